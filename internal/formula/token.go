// Package formula parses and evaluates arithmetic expressions over quoted
// column names, and carries the built-in financial ratio library.
package formula

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokColumn // quoted column reference, quotes stripped
	tokIdent  // function name
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

// lex splits an expression into tokens. Double- and single-quoted column
// names are atomic operands; no escaping inside quotes.
func lex(expr string) ([]token, error) {
	var toks []token
	runes := []rune(expr)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '"' || r == '\'':
			quote := r
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, eris.Errorf("formula: unterminated quote at position %d", i)
			}
			name := string(runes[i+1 : j])
			if name == "" {
				return nil, eris.Errorf("formula: empty column reference at position %d", i)
			}
			toks = append(toks, token{kind: tokColumn, text: name, pos: i})
			i = j + 1
		case r >= '0' && r <= '9' || r == '.':
			j := i
			for j < len(runes) && (runes[j] >= '0' && runes[j] <= '9' || runes[j] == '.') {
				j++
			}
			// Exponent suffix, e.g. 1.5e-3.
			if j < len(runes) && (runes[j] == 'e' || runes[j] == 'E') {
				k := j + 1
				if k < len(runes) && (runes[k] == '+' || runes[k] == '-') {
					k++
				}
				if k < len(runes) && runes[k] >= '0' && runes[k] <= '9' {
					for k < len(runes) && runes[k] >= '0' && runes[k] <= '9' {
						k++
					}
					j = k
				}
			}
			text := string(runes[i:j])
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, eris.Errorf("formula: bad number %q at position %d", text, i)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: f, pos: i})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: strings.ToLower(string(runes[i:j])), pos: i})
			i = j
		default:
			var kind tokenKind
			switch r {
			case '+':
				kind = tokPlus
			case '-':
				kind = tokMinus
			case '*':
				kind = tokStar
			case '/':
				kind = tokSlash
			case '(':
				kind = tokLParen
			case ')':
				kind = tokRParen
			case ',':
				kind = tokComma
			default:
				return nil, eris.Errorf("formula: unexpected character %q at position %d", string(r), i)
			}
			toks = append(toks, token{kind: kind, text: string(r), pos: i})
			i++
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(runes)})
	return toks, nil
}
