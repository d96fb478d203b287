package doctree

import "strings"

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Text content of this node (may be empty for container nodes)
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// Flatten joins the text of every node, depth-first, one node per line.
// Section titles are left out so headings do not turn into run-on sentences.
func Flatten(tree *DocTree) string {
	if tree == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if n.Text != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(n.Text)
			}
			walk(n.Children)
		}
	}
	walk(tree.Children)
	return sb.String()
}

// Pages returns the number of distinct non-zero pages referenced by the tree.
func Pages(tree *DocTree) int {
	if tree == nil {
		return 0
	}
	seen := make(map[int]bool)
	var walk func(nodes []*DocNode)
	walk = func(nodes []*DocNode) {
		for _, n := range nodes {
			if n.Page > 0 {
				seen[n.Page] = true
			}
			walk(n.Children)
		}
	}
	walk(tree.Children)
	return len(seen)
}

// Builder assembles a DocTree from a linear stream of headings and
// paragraphs, nesting each heading under the nearest shallower one.
type Builder struct {
	title   string
	root    *DocNode
	stack   []level
	pending []string
}

type level struct {
	node  *DocNode
	depth int
}

// NewBuilder starts a tree titled title.
func NewBuilder(title string) *Builder {
	root := &DocNode{Title: title}
	return &Builder{
		title: title,
		root:  root,
		stack: []level{{node: root}},
	}
}

// Heading opens a section at depth (1 for h1). Depths below 1 are treated as 1.
func (b *Builder) Heading(depth int, title string) {
	b.flush()
	depth = max(depth, 1)
	for len(b.stack) > 1 && b.stack[len(b.stack)-1].depth >= depth {
		b.stack = b.stack[:len(b.stack)-1]
	}
	n := &DocNode{Title: title}
	parent := b.stack[len(b.stack)-1].node
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, level{node: n, depth: depth})
}

// Paragraph appends text to the open section. Blank text is ignored.
func (b *Builder) Paragraph(text string) {
	if t := strings.TrimSpace(text); t != "" {
		b.pending = append(b.pending, t)
	}
}

// Tree returns the assembled tree. Text before the first heading becomes a
// leading untitled node.
func (b *Builder) Tree() *DocTree {
	b.flush()
	tree := &DocTree{Title: b.title}
	if b.root.Text != "" {
		tree.Children = append(tree.Children, &DocNode{Text: b.root.Text})
	}
	tree.Children = append(tree.Children, b.root.Children...)
	return tree
}

func (b *Builder) flush() {
	if len(b.pending) == 0 {
		return
	}
	top := b.stack[len(b.stack)-1].node
	text := strings.Join(b.pending, "\n\n")
	if top.Text != "" {
		top.Text += "\n\n" + text
	} else {
		top.Text = text
	}
	b.pending = b.pending[:0]
}
