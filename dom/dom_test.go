package dom

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func mustParse(t *testing.T, markup string) *html.Node {
	t.Helper()
	root, err := Parse(markup)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return root
}

func mustRender(t *testing.T, n *html.Node) string {
	t.Helper()
	out, err := OuterHTML(n)
	if err != nil {
		t.Fatalf("OuterHTML() error = %v", err)
	}
	return out
}

func TestIsDocument(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"<!DOCTYPE html><html></html>", true},
		{"  <!-- c --> <html lang=en>", true},
		{"<head><title>x</title></head>", true},
		{"<body>", true},
		{"<HTML>", true},
		{"<header>x</header>", false},
		{"<my-component></my-component>", false},
		{"Hello", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsDocument(tt.in); got != tt.want {
			t.Errorf("IsDocument(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse_FragmentRoundTrip(t *testing.T) {
	tests := []string{
		`<my-component name="World"></my-component>`,
		`<wrapper><a href="/x">x</a></wrapper><p>second</p>`,
		`text only`,
		`<div class="foo">Hello World!</div>`,
	}
	for _, in := range tests {
		root := mustParse(t, in)
		if root.Type != html.DocumentNode {
			t.Fatalf("root type = %v, want DocumentNode", root.Type)
		}
		if got := mustRender(t, root); got != in {
			t.Errorf("round trip of %q = %q", in, got)
		}
	}
}

func TestParse_Document(t *testing.T) {
	root := mustParse(t, `<!DOCTYPE html><html><head><title>t</title></head><body><p>x</p></body></html>`)
	if head := FindFirst(root, func(n *html.Node) bool { return IsElement(n, "head") }); head == nil {
		t.Fatal("expected head element")
	}
	if got := mustRender(t, root); got != `<!DOCTYPE html><html><head><title>t</title></head><body><p>x</p></body></html>` {
		t.Errorf("unexpected document rendering %q", got)
	}
}

func TestParseFragment_DefaultsToBody(t *testing.T) {
	nodes, err := ParseFragment(`Hello <b>World</b>!`, nil)
	if err != nil {
		t.Fatalf("ParseFragment() error = %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	for _, n := range nodes {
		if n.Parent != nil {
			t.Error("fragment nodes must be detached")
		}
	}
}

func TestInnerHTML(t *testing.T) {
	root := mustParse(t, `<div id="a"><span>x</span>y</div>`)
	div := ElementsByTag(root, "div")[0]
	got, err := InnerHTML(div)
	if err != nil {
		t.Fatalf("InnerHTML() error = %v", err)
	}
	if got != `<span>x</span>y` {
		t.Errorf("InnerHTML() = %q", got)
	}
}

func TestAttributes(t *testing.T) {
	root := mustParse(t, `<p a="1" b="2"></p>`)
	p := ElementsByTag(root, "p")[0]

	if v, ok := Attr(p, "b"); !ok || v != "2" {
		t.Errorf("Attr(b) = %q, %v", v, ok)
	}
	SetAttr(p, "a", "one")
	SetAttr(p, "c", "3")
	if !RemoveAttr(p, "b") {
		t.Error("RemoveAttr(b) reported nothing removed")
	}
	if RemoveAttr(p, "missing") {
		t.Error("RemoveAttr(missing) reported removal")
	}
	if HasAttr(p, "b") {
		t.Error("b must be gone")
	}
	if got := mustRender(t, p); got != `<p a="one" c="3"></p>` {
		t.Errorf("rendered %q", got)
	}
}

func TestClone_IsDeepAndDetached(t *testing.T) {
	root := mustParse(t, `<div class="x"><span>a</span></div>`)
	div := ElementsByTag(root, "div")[0]

	c := Clone(div)
	if c.Parent != nil {
		t.Error("clone must be detached")
	}
	SetAttr(c, "class", "y")
	c.FirstChild.FirstChild.Data = "b"

	if got := mustRender(t, div); got != `<div class="x"><span>a</span></div>` {
		t.Errorf("original modified: %q", got)
	}
	if got := mustRender(t, c); got != `<div class="y"><span>b</span></div>` {
		t.Errorf("clone = %q", got)
	}
}

func TestNodeSurgery(t *testing.T) {
	root := mustParse(t, `<ul><li>1</li><li>2</li></ul><p>p</p>`)
	ul := ElementsByTag(root, "ul")[0]
	p := ElementsByTag(root, "p")[0]

	items := RemoveChildren(ul)
	if len(items) != 2 || ul.FirstChild != nil {
		t.Fatalf("RemoveChildren left %v children", ul.FirstChild)
	}
	ReplaceWith(p, items...)
	if got := mustRender(t, root); got != `<ul></ul><li>1</li><li>2</li>` {
		t.Errorf("after ReplaceWith: %q", got)
	}

	PrependChildren(ul, NewElement("li", "0"))
	AppendChildren(ul, NewElement("li", "3"))
	if got := mustRender(t, ul); got != `<ul><li>0</li><li>3</li></ul>` {
		t.Errorf("after prepend/append: %q", got)
	}
	if !Contains(root, ul.FirstChild) {
		t.Error("Contains must see nested child")
	}
	if Contains(ul, p) {
		t.Error("detached node must not be contained")
	}
}

func TestTextContent(t *testing.T) {
	root := mustParse(t, `<div>a<b>b</b><i>c<u>d</u></i></div>`)
	if got := TextContent(root); !strings.EqualFold(got, "abcd") {
		t.Errorf("TextContent() = %q", got)
	}
}
