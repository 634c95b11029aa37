package dom

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Tree returns indented human readable outline of n, one node per line. It
// is meant for debug reports, not for parsing.
func Tree(n *html.Node) string {
	tw := treeWriter{w: &strings.Builder{}}
	tw.node(0, n)
	return tw.w.String()
}

type treeWriter struct {
	w *strings.Builder
}

func (tw treeWriter) line(depth int, format string, args ...any) {
	for range depth {
		tw.w.WriteString("  ")
	}
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw treeWriter) node(depth int, n *html.Node) {
	switch n.Type {
	case html.DocumentNode:
		tw.line(depth, "#document")
	case html.DoctypeNode:
		tw.line(depth, "#doctype %s", n.Data)
	case html.ElementNode:
		var sb strings.Builder
		for _, a := range n.Attr {
			sb.WriteByte(' ')
			sb.WriteString(a.Key)
			sb.WriteByte('=')
			sb.WriteString(strconv.Quote(a.Val))
		}
		tw.line(depth, "<%s>%s", n.Data, sb.String())
	case html.TextNode:
		if strings.TrimSpace(n.Data) == "" {
			return
		}
		tw.line(depth, "#text: %s", strconv.Quote(n.Data))
	case html.CommentNode:
		tw.line(depth, "#comment: %s", strconv.Quote(n.Data))
	default:
		tw.line(depth, "#raw: %s", strconv.Quote(n.Data))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		tw.node(depth+1, c)
	}
}
