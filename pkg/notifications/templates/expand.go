package templates

import (
	"strings"
)

// Expand substitutes $name and ${name} placeholders in text with values from vars.
//
// Placeholders without a value are left as written and "$$" yields a literal "$".
func Expand(text string, vars map[string]string) string {
	var out strings.Builder

	out.Grow(len(text))

	for i := 0; i < len(text); {
		if text[i] != '$' || i+1 >= len(text) {
			out.WriteByte(text[i])
			i++

			continue
		}

		next := text[i+1]

		switch {
		case next == '$':
			out.WriteByte('$')

			i += 2
		case next == '{':
			end := strings.IndexByte(text[i+2:], '}')
			if end < 0 {
				out.WriteString(text[i:])

				return out.String()
			}

			name := text[i+2 : i+2+end]
			raw := text[i : i+3+end]

			out.WriteString(lookup(vars, name, raw))

			i += len(raw)
		case isNameStart(next):
			end := i + 1
			for end < len(text) && isNameChar(text[end]) {
				end++
			}

			out.WriteString(lookup(vars, text[i+1:end], text[i:end]))

			i = end
		default:
			out.WriteByte('$')
			i++
		}
	}

	return out.String()
}

func lookup(vars map[string]string, name, raw string) string {
	if value, ok := vars[name]; ok {
		return value
	}

	return raw
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || ('0' <= c && c <= '9')
}
