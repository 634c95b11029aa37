package dom

import (
	"bytes"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts markup to UTF-8 and returns the name of the character set
// used. Unless forced, character set is detected from BOM or meta elements,
// unlabeled non UTF-8 input is treated as windows-1252 the way browsers do.
func Decode(data []byte, forced encoding.Encoding) (string, string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(data[len(utf8BOM):]), "utf-8", nil
	}

	enc, name := forced, "forced"
	if enc == nil {
		enc, name, _ = charset.DetermineEncoding(data, "text/html")
	}
	if name == "utf-8" {
		return string(data), name, nil
	}
	res, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", name, err
	}
	return string(res), name, nil
}

// Extensions lists file name extensions of HTML documents.
var Extensions = []string{".html", ".htm"}

// IsHTMLName reports whether file name has one of HTML extensions.
func IsHTMLName(name string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}
