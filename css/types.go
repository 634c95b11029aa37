package css

import (
	"fmt"
	"io"
	"strings"
)

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
// Backslashes and double quotes are escaped per CSS syntax: \" and \\.
func cssEscapeDoubleQuoted(s string) string {
	// Fast path: nothing to escape.
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Declaration is a single "property: value" pair of a rule block.
type Declaration struct {
	Property  string // Lower-cased property name, custom properties keep their case
	Value     string // Value text without the !important flag
	Important bool
}

// String returns the CSS text of the declaration without trailing semicolon.
func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Rule represents a single CSS rule block: selector list and declarations in
// source order.
type Rule struct {
	Selectors    []string
	Declarations []Declaration
}

// Selector returns the selector list joined the way it is serialized.
func (r Rule) Selector() string {
	return strings.Join(r.Selectors, ", ")
}

// MediaBlock represents a @media block with its query and nested rules.
type MediaBlock struct {
	Query string // Query text as written, e.g. "screen and (min-width: 40em)"
	Rules []Rule
}

// FontFace represents an @font-face declaration block, kept verbatim.
type FontFace struct {
	Declarations []Declaration
}

// StylesheetItem is a single top-level item in a stylesheet.
// Exactly one of Rule, MediaBlock, FontFace or Import is non-nil.
type StylesheetItem struct {
	Rule       *Rule       // A plain rule (selectors + declarations)
	MediaBlock *MediaBlock // A @media block containing nested rules
	FontFace   *FontFace   // A @font-face declaration
	Import     *string     // An @import URL
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Items    []StylesheetItem // All top-level items in source order
	Warnings []string         // Warnings for unsupported features
}

// Empty reports whether the stylesheet has nothing to serialize.
func (s *Stylesheet) Empty() bool {
	return s == nil || len(s.Items) == 0
}

// EachRule calls fn for every rule in the stylesheet including rules nested
// in @media blocks. Rules are passed by pointer and may be modified in place.
func (s *Stylesheet) EachRule(fn func(*Rule)) {
	for i := range s.Items {
		item := &s.Items[i]
		switch {
		case item.Rule != nil:
			fn(item.Rule)
		case item.MediaBlock != nil:
			for j := range item.MediaBlock.Rules {
				fn(&item.MediaBlock.Rules[j])
			}
		}
	}
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Output is compact: one rule per line, declarations kept in source order.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, item := range s.Items {
		var n int
		var err error

		switch {
		case item.Import != nil:
			n, err = fmt.Fprintf(w, "@import url(\"%s\");", cssEscapeDoubleQuoted(*item.Import))
		case item.FontFace != nil:
			n, err = writeBlock(w, "@font-face", item.FontFace.Declarations)
		case item.MediaBlock != nil:
			n, err = writeMediaBlock(w, item.MediaBlock)
		case item.Rule != nil:
			n, err = writeBlock(w, item.Rule.Selector(), item.Rule.Declarations)
		}

		total += int64(n)
		if err != nil {
			return total, err
		}

		if i < len(s.Items)-1 {
			n, err = io.WriteString(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// writeBlock writes "prelude {decl; decl;}" to w.
func writeBlock(w io.Writer, prelude string, decls []Declaration) (int, error) {
	var sb strings.Builder
	sb.WriteString(prelude)
	sb.WriteString(" {")
	for i, d := range decls {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(d.String())
		sb.WriteByte(';')
	}
	sb.WriteByte('}')
	return io.WriteString(w, sb.String())
}

// writeMediaBlock writes an @media block to w.
func writeMediaBlock(w io.Writer, mb *MediaBlock) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "@media %s {", mb.Query)
	total += n
	if err != nil {
		return total, err
	}
	for _, rule := range mb.Rules {
		n, err = io.WriteString(w, "\n")
		total += n
		if err != nil {
			return total, err
		}
		n, err = writeBlock(w, rule.Selector(), rule.Declarations)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = io.WriteString(w, "\n}")
	total += n
	return total, err
}
