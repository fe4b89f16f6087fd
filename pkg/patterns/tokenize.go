package patterns

import (
	"strings"
)

// TokenType classifies a run of characters in a tag.
type TokenType string

// Token types produced by Tokenize.
const (
	PrefixV TokenType = "PREFIX_V" // Leading "v" directly followed by a digit.
	Num     TokenType = "NUM"      // Run of digits.
	Dot     TokenType = "DOT"      // Literal ".".
	Dash    TokenType = "DASH"     // Literal "-".
	Alpha   TokenType = "ALPHA"    // Run of letters.
	Hex     TokenType = "HEX"      // Seven or more lowercase hex digits after a dash.
)

// minHexLength is the shortest run after a dash treated as a commit hash.
const minHexLength = 7

// Token is one typed segment of a tag.
type Token struct {
	Type    TokenType
	Literal string
}

// Tokenize splits tag into typed tokens. Characters outside digits, letters,
// dots and dashes are dropped.
func Tokenize(tag string) []Token {
	var tokens []Token

	for i := 0; i < len(tag); {
		ch := tag[i]

		switch {
		case ch == '.':
			tokens = append(tokens, Token{Dot, "."})
			i++
		case ch == '-':
			tokens = append(tokens, Token{Dash, "-"})
			i++

			if n := hexRunAt(tag, i); n > 0 {
				tokens = append(tokens, Token{Hex, tag[i : i+n]})
				i += n
			}
		case isDigit(ch):
			j := scan(tag, i, isDigit)
			tokens = append(tokens, Token{Num, tag[i:j]})
			i = j
		case isLetter(ch):
			j := scan(tag, i, isLetter)
			word := tag[i:j]

			if word == "v" && len(tokens) == 0 && j < len(tag) && isDigit(tag[j]) {
				tokens = append(tokens, Token{PrefixV, word})
			} else {
				tokens = append(tokens, Token{Alpha, word})
			}

			i = j
		default:
			i++
		}
	}

	return tokens
}

// Signature identifies the shape of a token sequence. Letter runs keep their
// literal, so "-ls" and "-rc" suffixes form different groups.
func Signature(tokens []Token) string {
	parts := make([]string, 0, len(tokens))

	for _, token := range tokens {
		if token.Type == Alpha {
			parts = append(parts, string(Alpha)+":"+token.Literal)
		} else {
			parts = append(parts, string(token.Type))
		}
	}

	return strings.Join(parts, "|")
}

// hexRunAt returns the length of the lowercase hex run starting at i when it is
// long enough and ends at the end of tag or before a non-alphanumeric character.
func hexRunAt(tag string, i int) int {
	j := scan(tag, i, isLowerHex)
	if j-i < minHexLength {
		return 0
	}

	if j < len(tag) && (isDigit(tag[j]) || isLetter(tag[j])) {
		return 0
	}

	return j - i
}

func scan(s string, i int, accept func(byte) bool) int {
	for i < len(s) && accept(s[i]) {
		i++
	}

	return i
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isLetter(ch byte) bool { return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') }

func isLowerHex(ch byte) bool { return isDigit(ch) || (ch >= 'a' && ch <= 'f') }
