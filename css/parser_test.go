package css_test

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"compssr/css"
)

func mustParse(t *testing.T, input string) *css.Stylesheet {
	t.Helper()
	p := css.NewParser(zaptest.NewLogger(t))
	sheet, err := p.Parse([]byte(input), t.Name())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return sheet
}

// topRules returns rules which are not nested in @media blocks.
func topRules(sheet *css.Stylesheet) []css.Rule {
	var rules []css.Rule
	for _, item := range sheet.Items {
		if item.Rule != nil {
			rules = append(rules, *item.Rule)
		}
	}
	return rules
}

// declaration returns the last declaration of property in rule.
func declaration(rule css.Rule, property string) (css.Declaration, bool) {
	for i := len(rule.Declarations) - 1; i >= 0; i-- {
		if rule.Declarations[i].Property == property {
			return rule.Declarations[i], true
		}
	}
	return css.Declaration{}, false
}

func TestParser_ElementSelector(t *testing.T) {
	sheet := mustParse(t, `p { color: blue; }`)

	rules := topRules(sheet)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	rule := rules[0]
	if len(rule.Selectors) != 1 || rule.Selectors[0] != "p" {
		t.Errorf("expected selectors [p], got %q", rule.Selectors)
	}

	d, ok := declaration(rule, "color")
	if !ok {
		t.Fatal("expected color declaration")
	}
	if d.Value != "blue" || d.Important {
		t.Errorf("unexpected declaration %+v", d)
	}
}

func TestParser_DeclarationOrderPreserved(t *testing.T) {
	sheet := mustParse(t, `div { z-index: 1; color: red; margin: 0 auto; }`)

	rules := topRules(sheet)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	var names []string
	for _, d := range rules[0].Declarations {
		names = append(names, d.Property)
	}
	if got := strings.Join(names, ","); got != "z-index,color,margin" {
		t.Errorf("declaration order = %s, want z-index,color,margin", got)
	}
	if d, _ := declaration(rules[0], "margin"); d.Value != "0 auto" {
		t.Errorf("margin value = %q, want %q", d.Value, "0 auto")
	}
}

func TestParser_GroupedSelectors(t *testing.T) {
	sheet := mustParse(t, `h2, h3 , h4 { font-size: 120%; }`)

	rules := topRules(sheet)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule for grouped selector, got %d", len(rules))
	}

	expected := []string{"h2", "h3", "h4"}
	if len(rules[0].Selectors) != len(expected) {
		t.Fatalf("expected %d selectors, got %q", len(expected), rules[0].Selectors)
	}
	for i, sel := range rules[0].Selectors {
		if sel != expected[i] {
			t.Errorf("selector %d: expected %q, got %q", i, expected[i], sel)
		}
	}
}

func TestParser_HostSelectors(t *testing.T) {
	sheet := mustParse(t, `:host { display: block; } :host(.foo) { display: none; }`)

	rules := topRules(sheet)
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Selector() != ":host" {
		t.Errorf("first selector = %q, want :host", rules[0].Selector())
	}
	if rules[1].Selector() != ":host(.foo)" {
		t.Errorf("second selector = %q, want :host(.foo)", rules[1].Selector())
	}
}

func TestParser_Important(t *testing.T) {
	sheet := mustParse(t, `p { color: red !important; margin: 0 ! important; padding: 1px }`)

	rules := topRules(sheet)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	tests := []struct {
		prop      string
		value     string
		important bool
	}{
		{"color", "red", true},
		{"margin", "0", true},
		{"padding", "1px", false},
	}
	for _, tt := range tests {
		d, ok := declaration(rules[0], tt.prop)
		if !ok {
			t.Errorf("missing %s", tt.prop)
			continue
		}
		if d.Value != tt.value || d.Important != tt.important {
			t.Errorf("%s = %+v, want value %q important %v", tt.prop, d, tt.value, tt.important)
		}
	}
}

func TestParser_MediaBlockPreserved(t *testing.T) {
	sheet := mustParse(t, `
		p { margin: 0; }
		@media print {
			p { color: black; }
			.note, .aside { display: none; }
		}
	`)

	if len(sheet.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(sheet.Items))
	}
	mb := sheet.Items[1].MediaBlock
	if mb == nil {
		t.Fatal("expected second item to be a media block")
	}
	if mb.Query != "print" {
		t.Errorf("query = %q, want print", mb.Query)
	}
	if len(mb.Rules) != 2 {
		t.Fatalf("expected 2 rules in media block, got %d", len(mb.Rules))
	}
	if mb.Rules[1].Selector() != ".note, .aside" {
		t.Errorf("media rule selector = %q", mb.Rules[1].Selector())
	}

	// top level accessors do not see nested rules
	if len(topRules(sheet)) != 1 {
		t.Errorf("expected 1 top-level rule, got %d", len(topRules(sheet)))
	}

	var seen int
	sheet.EachRule(func(*css.Rule) { seen++ })
	if seen != 3 {
		t.Errorf("EachRule visited %d rules, want 3", seen)
	}
}

func TestParser_MediaQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`@media print { p { margin: 0; } }`, "print"},
		{`@media (min-width: 40em) { p { margin: 0; } }`, "(min-width: 40em)"},
		{`@media (min-width:40em) { p { margin: 0; } }`, "(min-width: 40em)"},
		{`@media screen and (max-width: 600px) { p { margin: 0; } }`, "screen and (max-width: 600px)"},
		{`@media print, screen { p { margin: 0; } }`, "print, screen"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			sheet := mustParse(t, tt.in)
			if len(sheet.Items) != 1 || sheet.Items[0].MediaBlock == nil {
				t.Fatalf("expected single media block, got %+v", sheet.Items)
			}
			if got := sheet.Items[0].MediaBlock.Query; got != tt.want {
				t.Errorf("query = %q, want %q", got, tt.want)
			}
			if !strings.HasPrefix(sheet.String(), "@media "+tt.want+" {") {
				t.Errorf("serialized:\n%s", sheet.String())
			}
		})
	}
}

func TestParser_FontFace(t *testing.T) {
	sheet := mustParse(t, `
		@font-face {
			font-family: "MyFont";
			src: url("fonts/myfont.woff2");
		}
	`)

	if len(sheet.Items) != 1 || sheet.Items[0].FontFace == nil {
		t.Fatalf("expected single font-face item, got %+v", sheet.Items)
	}
	decls := sheet.Items[0].FontFace.Declarations
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(decls))
	}
	if decls[0].Property != "font-family" || decls[0].Value != `"MyFont"` {
		t.Errorf("unexpected first declaration %+v", decls[0])
	}
}

func TestParser_Import(t *testing.T) {
	sheet := mustParse(t, `
		@import "other.css";
		@import url("another.css");
		p { margin: 0; }
	`)

	if len(sheet.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(sheet.Items))
	}
	var imports []string
	for _, item := range sheet.Items {
		if item.Import != nil {
			imports = append(imports, *item.Import)
		}
	}
	if len(imports) != 2 {
		t.Fatalf("expected 2 imports, got %d", len(imports))
	}
	if imports[0] != "other.css" || imports[1] != "another.css" {
		t.Errorf("unexpected imports %q", imports)
	}
}

func TestParser_UnsupportedAtRuleSkipped(t *testing.T) {
	sheet := mustParse(t, `
		@keyframes spin { from { opacity: 0; } to { opacity: 1; } }
		p { margin: 0; }
	`)

	rules := topRules(sheet)
	if len(rules) != 1 || rules[0].Selector() != "p" {
		t.Fatalf("expected only the p rule, got %+v", rules)
	}
	if len(sheet.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %q", sheet.Warnings)
	}
}

func TestParser_Comments(t *testing.T) {
	sheet := mustParse(t, `
		/* This is a comment */
		p {
			/* inline comment */
			text-indent: 1em; /* trailing comment */
		}
	`)

	rules := topRules(sheet)
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	d, ok := declaration(rules[0], "text-indent")
	if !ok || d.Value != "1em" {
		t.Errorf("text-indent = %+v, %v", d, ok)
	}
}

func TestParser_NilLogger(t *testing.T) {
	p := css.NewParser(nil)
	sheet, err := p.Parse([]byte(`a { color: red; }`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(topRules(sheet)) != 1 {
		t.Errorf("expected 1 rule, got %d", len(topRules(sheet)))
	}
}

func TestParser_Empty(t *testing.T) {
	p := css.NewParser(zap.NewNop())
	sheet, err := p.Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !sheet.Empty() {
		t.Errorf("expected empty stylesheet, got %d items", len(sheet.Items))
	}
}

func TestSplitSelectors(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"p", []string{"p"}},
		{"h1, h2", []string{"h1", "h2"}},
		{":host(.a, .b), p", []string{":host(.a, .b)", "p"}},
		{`a[title="x,y"], b`, []string{`a[title="x,y"]`, "b"}},
		{" , p ,", []string{"p"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := css.SplitSelectors(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("SplitSelectors(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStylesheet_String(t *testing.T) {
	imp := "other.css"
	sheet := &css.Stylesheet{Items: []css.StylesheetItem{
		{Import: &imp},
		{Rule: &css.Rule{
			Selectors: []string{"my-component p", "my-component"},
			Declarations: []css.Declaration{
				{Property: "color", Value: "blue", Important: true},
				{Property: "margin", Value: "0"},
			},
		}},
		{MediaBlock: &css.MediaBlock{Query: "print", Rules: []css.Rule{
			{Selectors: []string{"p"}, Declarations: []css.Declaration{{Property: "display", Value: "none"}}},
		}}},
	}}

	want := `@import url("other.css");
my-component p, my-component {color: blue !important; margin: 0;}
@media print {
p {display: none;}
}`
	if got := sheet.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestStylesheet_RoundTrip(t *testing.T) {
	input := `p {color: blue !important;}
a, b {margin: 0 auto;}`
	sheet := mustParse(t, input)
	if got := sheet.String(); got != input {
		t.Errorf("round trip =\n%s\nwant\n%s", got, input)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("boom") }

func TestStylesheet_WriteToError(t *testing.T) {
	sheet := mustParse(t, `p { color: red; }`)
	if _, err := sheet.WriteTo(failingWriter{}); err == nil {
		t.Error("expected error from failing writer")
	}
}
