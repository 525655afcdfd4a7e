package sqlgen

import (
	"strings"

	"school-query-workers/internal/textsql/schema"
)

// Keywords that close a FROM list at the current nesting level.
var fromListEnd = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "LIMIT": true, "OFFSET": true,
	"HAVING": true, "WINDOW": true, "FETCH": true, "FOR": true, "ON": true,
	"USING": true, "UNION": true, "INTERSECT": true, "EXCEPT": true, "SELECT": true,
	"RETURNING": true,
}

// Functions whose argument grammar uses FROM without naming a table.
var fromInsideCall = map[string]bool{
	"EXTRACT": true, "SUBSTRING": true, "TRIM": true, "OVERLAY": true, "POSITION": true,
}

type sqlToken struct {
	text string
	word bool
}

func tokenize(text string) []sqlToken {
	var toks []sqlToken
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isWordByte(c) || c == '.':
			j := i
			for j < len(text) && (isWordByte(text[j]) || text[j] == '.') {
				j++
			}
			toks = append(toks, sqlToken{text: text[i:j], word: true})
			i = j
		default:
			toks = append(toks, sqlToken{text: text[i : i+1]})
			i++
		}
	}
	return toks
}

type fromScope struct {
	call    string
	inList  bool
	expects bool
}

// extractTables returns the lower-cased table names named after FROM, JOIN
// or TABLE anywhere in a masked statement, subqueries and parenthesised
// join lists included, in order of first appearance.
func extractTables(maskedText string) []string {
	toks := tokenize(maskedText)
	stack := []*fromScope{{}}
	seen := map[string]bool{}
	var tables []string

	prevWord := func(i, back int) string {
		for k := i - 1; k >= 0; k-- {
			if !toks[k].word {
				return ""
			}
			back--
			if back == 0 {
				return strings.ToUpper(toks[k].text)
			}
		}
		return ""
	}

	for i, tok := range toks {
		cur := stack[len(stack)-1]

		if !tok.word {
			switch tok.text {
			case "(":
				// A parenthesised FROM item is a join list whose first
				// entry is a table. A subquery resets this at SELECT.
				opensItem := cur.expects
				cur.expects = false
				stack = append(stack, &fromScope{call: prevWord(i, 1), inList: opensItem, expects: opensItem})
			case ")":
				if len(stack) > 1 {
					stack = stack[:len(stack)-1]
				}
			case ",":
				if cur.inList {
					cur.expects = true
				}
			}
			continue
		}

		upper := strings.ToUpper(tok.text)
		switch {
		case upper == "FROM":
			if fromInsideCall[cur.call] {
				continue
			}
			if prevWord(i, 1) == "DISTINCT" {
				if p := prevWord(i, 2); p == "IS" || p == "NOT" {
					continue
				}
			}
			cur.inList, cur.expects = true, true
		case upper == "JOIN":
			cur.inList, cur.expects = true, true
		case upper == "TABLE":
			// TABLE name is shorthand for SELECT * FROM name.
			cur.inList, cur.expects = false, true
		case fromListEnd[upper]:
			cur.inList, cur.expects = false, false
		case cur.expects:
			if upper == "LATERAL" || upper == "ONLY" {
				continue
			}
			if upper == "VALUES" {
				cur.expects = false
				continue
			}
			name := strings.ToLower(tok.text)
			name = strings.TrimPrefix(name, "public.")
			if !seen[name] {
				seen[name] = true
				tables = append(tables, name)
			}
			cur.expects = false
		}
	}
	return tables
}

// rootOnly reports whether the tenant root is the sole table referenced.
func rootOnly(tables []string) bool {
	if len(tables) == 0 {
		return false
	}
	for _, t := range tables {
		if t != schema.RootTable {
			return false
		}
	}
	return true
}
