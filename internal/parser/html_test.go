package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/aicli/internal/doctree"
)

func TestHTMLParser_Sections(t *testing.T) {
	input := `<html><head><title>Field Guide</title><style>p{}</style></head>
<body>
<nav>Home | About</nav>
<h1>Burrows</h1>
<p>Gophers dig   <em>long</em>
tunnels.</p>
<h2>Depth</h2>
<ul><li>Shallow runs.</li><li><p>Deep nests.</p></li></ul>
<script>var x = 1;</script>
<footer>Copyright</footer>
</body></html>`

	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Field Guide" {
		t.Errorf("expected title from <title>, got %q", tree.Title)
	}
	if len(tree.Children) != 1 {
		t.Fatalf("expected 1 top-level section, got %d", len(tree.Children))
	}
	h1 := tree.Children[0]
	if h1.Title != "Burrows" || h1.Text != "Gophers dig long tunnels." {
		t.Errorf("unexpected h1 %q / %q", h1.Title, h1.Text)
	}
	if len(h1.Children) != 1 {
		t.Fatalf("expected 1 h2, got %d", len(h1.Children))
	}
	if got := h1.Children[0].Text; got != "Shallow runs.\n\nDeep nests." {
		t.Errorf("unexpected list text %q", got)
	}

	text := doctree.Flatten(tree)
	for _, absent := range []string{"Home", "var x", "Copyright", "p{}"} {
		if strings.Contains(text, absent) {
			t.Errorf("expected %q to be skipped, got %q", absent, text)
		}
	}
}

func TestHTMLParser_LooseText(t *testing.T) {
	input := `<body><div>Plain words with a <a href="#">link</a> inside.<br>Next line.</div><div>Second block.</div></body>`
	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "page.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "page" {
		t.Errorf("expected filename title, got %q", tree.Title)
	}
	want := "Plain words with a link inside. Next line.\n\nSecond block."
	if got := doctree.Flatten(tree); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestHTMLParser_Empty(t *testing.T) {
	tree, err := (&HTMLParser{}).Parse(strings.NewReader(""), "blank.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 0 {
		t.Errorf("expected no children, got %d", len(tree.Children))
	}
}
