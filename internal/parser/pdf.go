package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/aicli/internal/doctree"
	"github.com/dgallion1/aicli/internal/executor"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles PDF files. It tries the Go library first,
// then falls back to pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
	Exec              executor.Executor
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	tmpPath, _, err := spool(r, "aicli-pdf-*.pdf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpPath)

	text, err := extractPDFText(tmpPath)
	if (err != nil || strings.TrimSpace(text) == "") && p.FallbackPdftotext {
		// Scanned or oddly encoded PDFs often yield nothing from the Go reader.
		if alt, altErr := p.extractPdftotext(tmpPath); altErr == nil {
			text, err = alt, nil
		} else if err == nil {
			err = altErr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{Title: trimExt(filename, ".pdf")}
	for i, page := range strings.Split(text, "\f") {
		page = unwrapLines(page)
		if page == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{
			Title: fmt.Sprintf("Page %d", i+1),
			Text:  page,
			Page:  i + 1,
		})
	}
	return tree, nil
}

// unwrapLines rejoins words hyphenated across line breaks and trims each
// line, keeping blank lines as paragraph breaks.
func unwrapLines(page string) string {
	lines := strings.Split(page, "\n")
	var sb strings.Builder
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		for strings.HasSuffix(line, "-") && len(line) > 1 && isLetter(line[len(line)-2]) &&
			i+1 < len(lines) && startsWithLower(strings.TrimSpace(lines[i+1])) {
			i++
			line = line[:len(line)-1] + strings.TrimSpace(lines[i])
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
	}
	return strings.TrimSpace(sb.String())
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func startsWithLower(s string) bool {
	return s != "" && s[0] >= 'a' && s[0] <= 'z'
}

func extractPDFText(path string) (text string, err error) {
	// The library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func (p *PDFParser) extractPdftotext(path string) (string, error) {
	exec := p.Exec
	if exec == nil {
		exec = executor.New()
	}
	bin, err := exec.LookPath("pdftotext")
	if err != nil {
		return "", fmt.Errorf("pdftotext not found on PATH: %w", err)
	}
	out, err := exec.Execute(context.Background(), bin, "-layout", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return out, nil
}
