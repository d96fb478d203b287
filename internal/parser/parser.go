package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/aicli/internal/doctree"
	"github.com/dgallion1/aicli/internal/executor"
)

// ErrUnsupportedExtension is returned for files no parser handles.
var ErrUnsupportedExtension = errors.New("unsupported file type")

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// SupportedExtensions lists file extensions this tool can read.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	return Loader{PDFFallbackPdftotext: true}.ForFile(filename)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Loader opens documents and flattens them into a single text blob.
type Loader struct {
	PDFFallbackPdftotext bool
	Exec                 executor.Executor // nil uses executor.New()
}

// ForFile returns the parser for filename, configured with the loader's options.
func (l Loader) ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: l.PDFFallbackPdftotext, Exec: l.Exec}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		if ext == "" {
			ext = "(none)"
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, ext)
	}
}

// Parse reads r as filename and returns its tree.
func (l Loader) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	p, err := l.ForFile(filename)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}

// LoadText parses r as filename and returns the flattened document text.
func (l Loader) LoadText(r io.Reader, filename string) (string, error) {
	tree, err := l.Parse(r, filename)
	if err != nil {
		return "", err
	}
	return doctree.Flatten(tree), nil
}

// LoadFile reads the document at path and returns its flattened text.
func (l Loader) LoadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := l.ForFile(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	tree, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return doctree.Flatten(tree), nil
}

// LoadFile reads path with default loader options.
func LoadFile(ctx context.Context, path string) (string, error) {
	return Loader{PDFFallbackPdftotext: true}.LoadFile(ctx, path)
}
