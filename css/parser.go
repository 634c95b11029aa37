package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into rule blocks.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
// Any grammar error reported by the tokenizer is returned, partial results are
// discarded.
func (p *Parser) Parse(data []byte, source ...string) (*Stylesheet, error) {
	sheet := &Stylesheet{
		Items:    make([]StylesheetItem, 0),
		Warnings: make([]string, 0),
	}

	src := "inline"
	if len(source) > 0 && source[0] != "" {
		src = source[0]
	}
	p.log.Debug("Parsing CSS", zap.String("source", src), zap.Int("bytes", len(data)))

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	var selectors []string
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parserError(parser); err != nil {
				return nil, fmt.Errorf("unable to parse stylesheet (%s): %w", src, err)
			}
			return sheet, nil

		case css.BeginAtRuleGrammar:
			atRule := strings.ToLower(string(data))
			switch atRule {
			case "@media":
				query := mediaQuery(parser.Values())
				rules, err := p.parseMediaBlockRules(parser, sheet)
				if err != nil {
					return nil, fmt.Errorf("unable to parse @media block (%s): %w", src, err)
				}
				p.log.Debug("Parsed @media block", zap.String("query", query), zap.Int("rules", len(rules)))
				sheet.Items = append(sheet.Items, StylesheetItem{
					MediaBlock: &MediaBlock{Query: query, Rules: rules},
				})
			case "@font-face":
				decls, err := p.parseDeclarations(parser, css.EndAtRuleGrammar)
				if err != nil {
					return nil, fmt.Errorf("unable to parse @font-face (%s): %w", src, err)
				}
				sheet.Items = append(sheet.Items, StylesheetItem{FontFace: &FontFace{Declarations: decls}})
			default:
				p.skipAtRuleBlock(parser)
				sheet.Warnings = append(sheet.Warnings, "unsupported at-rule: "+atRule)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g., @import)
			atRule := strings.ToLower(string(data))
			if atRule == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sheet.Items = append(sheet.Items, StylesheetItem{Import: &url})
					p.log.Debug("Parsed @import", zap.String("url", url))
				}
			} else {
				sheet.Warnings = append(sheet.Warnings, "unsupported at-rule: "+atRule)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.QualifiedRuleGrammar:
			// one selector of a comma separated group, the rest follows
			selectors = append(selectors, p.parseSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors = append(selectors, p.parseSelectors(data, parser.Values())...)
			decls, err := p.parseDeclarations(parser, css.EndRulesetGrammar)
			if err != nil {
				return nil, fmt.Errorf("unable to parse rule %q (%s): %w", strings.Join(selectors, ", "), src, err)
			}
			if len(selectors) > 0 {
				sheet.Items = append(sheet.Items, StylesheetItem{Rule: &Rule{Selectors: selectors, Declarations: decls}})
			}
			selectors = nil
		}
	}
}

// parserError returns the tokenizer error unless it merely signals end of
// input.
func parserError(parser *css.Parser) error {
	err := parser.Err()
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			// url(something) - the token data is the full url(...) string
			s := string(t.Data)
			s = strings.TrimPrefix(s, "url(")
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

// parseSelectors builds selector strings from grammar data and token values.
func (p *Parser) parseSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	if d := string(data); d != "{" && d != "," {
		sb.WriteString(d)
	}
	for _, v := range values {
		sb.Write(v.Data)
	}
	return SplitSelectors(sb.String())
}

// SplitSelectors splits a selector group on top level commas. Commas nested in
// parentheses, brackets or strings do not split.
func SplitSelectors(group string) []string {
	var (
		selectors []string
		depth     int
		quote     rune
		start     int
	)
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			selectors = append(selectors, s)
		}
	}
	for i, r := range group {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			add(group[start:i])
			start = i + 1
		}
	}
	add(group[start:])
	return selectors
}

// parseDeclarations parses property declarations until the end grammar of the
// enclosing block.
func (p *Parser) parseDeclarations(parser *css.Parser, end css.GrammarType) ([]Declaration, error) {
	var decls []Declaration

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parserError(parser); err != nil {
				return nil, err
			}
			return decls, nil

		case end:
			return decls, nil

		case css.DeclarationGrammar:
			if d, ok := newDeclaration(strings.ToLower(string(data)), parser.Values()); ok {
				decls = append(decls, d)
			}

		case css.CustomPropertyGrammar:
			if d, ok := newDeclaration(string(data), parser.Values()); ok {
				decls = append(decls, d)
			}
		}
	}
}

var importantSuffix = regexp.MustCompile(`(?i)!\s*important\s*$`)

// newDeclaration converts declaration tokens, splitting off a trailing
// !important flag.
func newDeclaration(name string, tokens []css.Token) (Declaration, bool) {
	tokens, important := stripImportant(tokens)
	value := joinTokens(tokens)
	if !important {
		// custom property values arrive as a single raw token
		if loc := importantSuffix.FindStringIndex(value); loc != nil {
			value = strings.TrimSpace(value[:loc[0]])
			important = true
		}
	}
	if name == "" || value == "" {
		return Declaration{}, false
	}
	return Declaration{Property: name, Value: value, Important: important}, true
}

// stripImportant removes trailing "! important" tokens.
func stripImportant(tokens []css.Token) ([]css.Token, bool) {
	i := lastSignificant(tokens, len(tokens))
	if i < 0 || tokens[i].TokenType != css.IdentToken || !strings.EqualFold(string(tokens[i].Data), "important") {
		return tokens, false
	}
	j := lastSignificant(tokens, i)
	if j < 0 || tokens[j].TokenType != css.DelimToken || string(tokens[j].Data) != "!" {
		return tokens, false
	}
	return tokens[:j], true
}

// lastSignificant returns index of the last non whitespace token before end.
func lastSignificant(tokens []css.Token, end int) int {
	for i := end - 1; i >= 0; i-- {
		if tokens[i].TokenType != css.WhitespaceToken {
			return i
		}
	}
	return -1
}

// joinTokens builds raw text from tokens, collapsing whitespace runs to a
// single space.
func joinTokens(tokens []css.Token) string {
	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			rawParts = append(rawParts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(rawParts, ""))
}

// mediaQuery joins @media prelude tokens. The grammar parser drops
// whitespace after ':' and ',', it is put back.
func mediaQuery(tokens []css.Token) string {
	var sb strings.Builder
	for i, t := range tokens {
		sb.Write(t.Data)
		if (t.TokenType == css.ColonToken || t.TokenType == css.CommaToken) &&
			i+1 < len(tokens) && tokens[i+1].TokenType != css.WhitespaceToken {
			sb.WriteByte(' ')
		}
	}
	return strings.TrimSpace(sb.String())
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// parseMediaBlockRules parses rules inside an @media block and returns them.
// Nested at-rules are skipped.
func (p *Parser) parseMediaBlockRules(parser *css.Parser, sheet *Stylesheet) ([]Rule, error) {
	var (
		rules     []Rule
		selectors []string
	)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parserError(parser); err != nil {
				return nil, err
			}
			return rules, nil

		case css.EndAtRuleGrammar:
			return rules, nil

		case css.BeginAtRuleGrammar:
			atRule := strings.ToLower(string(data))
			p.skipAtRuleBlock(parser)
			sheet.Warnings = append(sheet.Warnings, "unsupported nested at-rule: "+atRule)

		case css.QualifiedRuleGrammar:
			selectors = append(selectors, p.parseSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors = append(selectors, p.parseSelectors(data, parser.Values())...)
			decls, err := p.parseDeclarations(parser, css.EndRulesetGrammar)
			if err != nil {
				return nil, err
			}
			if len(selectors) > 0 {
				rules = append(rules, Rule{Selectors: selectors, Declarations: decls})
			}
			selectors = nil
		}
	}
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
