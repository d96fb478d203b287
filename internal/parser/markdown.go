package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/aicli/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Code blocks and raw
// HTML are dropped because they are not prose.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	b := doctree.NewBuilder(trimExt(filename, ".md", ".markdown"))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		markdownBlock(b, n, src)
	}
	return b.Tree(), nil
}

func markdownBlock(b *doctree.Builder, n ast.Node, src []byte) {
	switch node := n.(type) {
	case *ast.Heading:
		b.Heading(node.Level, inlineText(node, src))
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.ThematicBreak:
	case *ast.List, *ast.ListItem, *ast.Blockquote:
		// One paragraph per item so list entries do not run together.
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			markdownBlock(b, c, src)
		}
	default:
		b.Paragraph(inlineText(n, src))
	}
}

// inlineText concatenates the text of n's inline descendants. Soft line
// breaks become spaces.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(t.Value)
			case *ast.RawHTML, *ast.Image:
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func trimExt(filename string, exts ...string) string {
	lower := strings.ToLower(filename)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return filename[:len(filename)-len(ext)]
		}
	}
	return filename
}
