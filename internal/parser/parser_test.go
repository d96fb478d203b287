package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/aicli/internal/executor"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"notes.txt", false},
		{"README.MD", false},
		{"page.htm", false},
		{"paper.pdf", false},
		{"letter.docx", false},
		{"data.csv", true},
		{"noext", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ForFile(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedExtension) {
					t.Errorf("expected ErrUnsupportedExtension, got %v", err)
				}
				return
			}
			if err != nil || p == nil {
				t.Errorf("expected a parser, got %v", err)
			}
		})
	}
}

func TestIsSupportedExtension(t *testing.T) {
	if !IsSupportedExtension("a.PDF") {
		t.Error("expected .PDF to be supported")
	}
	if IsSupportedExtension("a.summary") {
		t.Error("expected .summary to be unsupported")
	}
}

func TestLoadFile_TextFlattened(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("First para.\n\nSecond para."), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "First para.\nSecond para." {
		t.Errorf("expected flattened text, got %q", got)
	}
}

func TestLoadFile_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(path, []byte("# Heading\n\nBody text here.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "Body text here.") {
		t.Errorf("expected body text, got %q", got)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.txt")
	_, err := LoadFile(context.Background(), path)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("expected error to name %q, got %v", path, err)
	}
}

func TestLoadFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.xlsx")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(context.Background(), path); !errors.Is(err, ErrUnsupportedExtension) {
		t.Errorf("expected ErrUnsupportedExtension, got %v", err)
	}
}

func TestLoadText_Reader(t *testing.T) {
	got, err := Loader{}.LoadText(strings.NewReader("Alpha.\n\nBeta."), "upload.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Alpha.\nBeta." {
		t.Errorf("expected %q, got %q", "Alpha.\nBeta.", got)
	}
}

type fakeExec struct {
	out     string
	err     error
	missing bool
	calls   [][]string
}

func (f *fakeExec) Execute(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.out, f.err
}

func (f *fakeExec) LookPath(name string) (string, error) {
	if f.missing {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + name, nil
}

var _ executor.Executor = (*fakeExec)(nil)

var errTool = errors.New("tool failed")

func TestPDFParser_FallsBackToPdftotext(t *testing.T) {
	fe := &fakeExec{out: "Page one text.\fPage two text."}
	p := &PDFParser{FallbackPdftotext: true, Exec: fe}
	tree, err := p.Parse(strings.NewReader("not a real pdf"), "broken.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fe.calls) != 1 || fe.calls[0][0] != "/usr/bin/pdftotext" {
		t.Fatalf("expected one pdftotext call, got %v", fe.calls)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(tree.Children))
	}
	if tree.Children[1].Page != 2 || tree.Children[1].Text != "Page two text." {
		t.Errorf("unexpected second page %+v", tree.Children[1])
	}
}

func TestPDFParser_NoFallback(t *testing.T) {
	fe := &fakeExec{out: "unused"}
	p := &PDFParser{FallbackPdftotext: false, Exec: fe}
	if _, err := p.Parse(strings.NewReader("not a real pdf"), "broken.pdf"); err == nil {
		t.Fatal("expected error without fallback")
	}
	if len(fe.calls) != 0 {
		t.Errorf("expected no external calls, got %v", fe.calls)
	}
}

func TestPDFParser_PdftotextMissing(t *testing.T) {
	fe := &fakeExec{missing: true}
	p := &PDFParser{FallbackPdftotext: true, Exec: fe}
	_, err := p.Parse(strings.NewReader("not a real pdf"), "broken.pdf")
	if err == nil {
		t.Fatal("expected error when pdftotext is not installed")
	}
	if len(fe.calls) != 0 {
		t.Errorf("expected no execution, got %v", fe.calls)
	}
}
