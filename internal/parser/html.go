package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/aicli/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles HTML files. Headings open sections; block elements
// become paragraphs; page chrome and code are skipped.
type HTMLParser struct{}

var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Nav:      true,
	atom.Header:   true,
	atom.Footer:   true,
	atom.Aside:    true,
	atom.Form:     true,
	atom.Pre:      true,
	atom.Svg:      true,
}

var paragraphElements = map[atom.Atom]bool{
	atom.P:          true,
	atom.Li:         true,
	atom.Td:         true,
	atom.Th:         true,
	atom.Dd:         true,
	atom.Dt:         true,
	atom.Blockquote: true,
	atom.Figcaption: true,
	atom.Caption:    true,
}

var inlineElements = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.I: true, atom.Em: true,
	atom.Strong: true, atom.Span: true, atom.Code: true, atom.Small: true,
	atom.Sub: true, atom.Sup: true, atom.Mark: true, atom.Q: true,
	atom.Cite: true, atom.Time: true, atom.U: true, atom.S: true,
	atom.Kbd: true, atom.Var: true, atom.Label: true,
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := trimExt(filename, ".html", ".htm")
	if t := findElement(doc, atom.Title); t != nil {
		if s := textContent(t); s != "" {
			title = s
		}
	}
	b := doctree.NewBuilder(title)

	// Loose text directly inside <body> or a <div> collects here until the
	// next block boundary.
	var loose strings.Builder
	flushLoose := func() {
		b.Paragraph(collapseSpace(loose.String()))
		loose.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			loose.WriteString(n.Data)
			return
		case html.ElementNode:
			if skippedElements[n.DataAtom] {
				return
			}
			if level, ok := headingLevels[n.DataAtom]; ok {
				flushLoose()
				b.Heading(level, textContent(n))
				return
			}
			if paragraphElements[n.DataAtom] && !hasBlockChild(n) {
				flushLoose()
				b.Paragraph(textContent(n))
				return
			}
			if n.DataAtom == atom.Br {
				loose.WriteByte(' ')
				return
			}
			if !inlineElements[n.DataAtom] {
				flushLoose()
				defer flushLoose()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findElement(doc, atom.Body); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	flushLoose()
	return b.Tree(), nil
}

// hasBlockChild reports whether n wraps other paragraph-level elements, as
// in <li><p>..</p></li>, so they can be emitted individually.
func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (paragraphElements[c.DataAtom] || headingLevels[c.DataAtom] > 0) {
			return true
		}
	}
	return false
}

// textContent returns the visible text under n with whitespace collapsed.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.DataAtom == atom.Br {
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return collapseSpace(buf.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
