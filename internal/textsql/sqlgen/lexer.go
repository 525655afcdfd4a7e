package sqlgen

import (
	"regexp"
	"strconv"
	"strings"
)

var literalMarker = regexp.MustCompile(`'#(\d+)'`)

// masked is a statement with every string literal replaced by an indexed
// marker ('#0', '#1', ...) and every double-quoted identifier unquoted, so
// regex scans over it never look inside literal text.
type masked struct {
	text     string
	literals []string
}

// literal returns the original content of marker n.
func (m masked) literal(n string) (string, bool) {
	i, err := strconv.Atoi(n)
	if err != nil || i < 0 || i >= len(m.literals) {
		return "", false
	}
	return m.literals[i], true
}

// unmask puts the original literals back into text derived from m.text.
func (m masked) unmask(text string) string {
	return literalMarker.ReplaceAllStringFunc(text, func(marker string) string {
		lit, ok := m.literal(marker[2 : len(marker)-1])
		if !ok {
			return marker
		}
		return "'" + escapeLiteral(lit) + "'"
	})
}

// maskSQL tokenizes quotes. An unterminated literal swallows the rest of
// the text, which leaves nothing for later checks to find; callers reject
// statements where unterminated is true.
func maskSQL(sql string) (m masked, unterminated bool) {
	return mask(sql, false)
}

// maskLiterals masks string literals only and keeps quoted identifiers as
// written, so the result can be unmasked back into valid SQL.
func maskLiterals(sql string) (m masked, unterminated bool) {
	return mask(sql, true)
}

func mask(sql string, keepIdents bool) (m masked, unterminated bool) {
	var sb strings.Builder
	sb.Grow(len(sql))

	for i := 0; i < len(sql); {
		switch c := sql[i]; c {
		case '\'':
			var lit strings.Builder
			j := i + 1
			closed := false
			for j < len(sql) {
				if sql[j] == '\'' {
					if j+1 < len(sql) && sql[j+1] == '\'' {
						lit.WriteByte('\'')
						j += 2
						continue
					}
					closed = true
					j++
					break
				}
				lit.WriteByte(sql[j])
				j++
			}
			if !closed {
				unterminated = true
			}
			sb.WriteString("'#")
			sb.WriteString(strconv.Itoa(len(m.literals)))
			sb.WriteString("'")
			m.literals = append(m.literals, lit.String())
			i = j
		case '"':
			if keepIdents {
				j := strings.IndexByte(sql[i+1:], '"')
				if j < 0 {
					unterminated = true
					sb.WriteString(sql[i:])
					i = len(sql)
					continue
				}
				sb.WriteString(sql[i : i+j+2])
				i += j + 2
				continue
			}
			j := i + 1
			for j < len(sql) && sql[j] != '"' {
				ch := sql[j]
				if isWordByte(ch) {
					sb.WriteByte(ch)
				} else {
					sb.WriteByte('_')
				}
				j++
			}
			if j >= len(sql) {
				unterminated = true
			}
			i = j + 1
		default:
			sb.WriteByte(c)
			i++
		}
	}

	m.text = sb.String()
	return m, unterminated
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
