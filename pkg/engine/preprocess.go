package engine

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites faceting script source into something zygomys
// accepts:
//
//   - :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and never collide with user variables.
//   - kebab-case identifiers such as dop-length become dop_length, since
//     zygomys reads a hyphen as subtraction.
//   - ; and ;; line comments become // comments.
//
// String literals (double-quoted and backtick) pass through untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"' || c == '`':
			j := skipString(b, i)
			out = append(out, b[i:j]...)
			i = j

		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// skipString returns the index just past the string literal opening at
// b[start]. Backslash escapes apply only to double-quoted strings. An
// unterminated literal runs to the end of the input.
func skipString(b []byte, start int) int {
	quote := b[start]
	i := start + 1
	for i < len(b) && b[i] != quote {
		if quote == '"' && b[i] == '\\' && i+1 < len(b) {
			i++
		}
		i++
	}
	if i < len(b) {
		i++
	}
	return i
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
