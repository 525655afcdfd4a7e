package sqlgen

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"vitess.io/vitess/go/vt/sqlparser"
)

// GrammarMode controls what a failed grammar check does.
type GrammarMode string

const (
	GrammarOff      GrammarMode = "off"
	GrammarAdvisory GrammarMode = "advisory"
	GrammarEnforce  GrammarMode = "enforce"
)

// ParseGrammarMode maps a config value to a mode. Unknown values mean off.
func ParseGrammarMode(s string) GrammarMode {
	switch GrammarMode(strings.ToLower(strings.TrimSpace(s))) {
	case GrammarAdvisory:
		return GrammarAdvisory
	case GrammarEnforce:
		return GrammarEnforce
	default:
		return GrammarOff
	}
}

var ErrNotQuery = errors.New("statement is not a query")

// GrammarChecker parses a statement and reports whether it is a single
// well-formed query.
type GrammarChecker interface {
	Check(sql string) error
}

var (
	postgresCast = regexp.MustCompile(`::\s*\w+(\s*\[\s*\])?`)
	ilike        = regexp.MustCompile(`(?i)\bILIKE\b`)
)

// VitessChecker uses the vitess parser. Its dialect is MySQL, so the
// Postgres-only spellings the generator is allowed to use are rewritten
// to their closest equivalent before parsing.
type VitessChecker struct {
	parser *sqlparser.Parser
}

func NewVitessChecker() *VitessChecker {
	return &VitessChecker{parser: sqlparser.NewTestParser()}
}

func (c *VitessChecker) Check(sql string) error {
	normalized := postgresCast.ReplaceAllString(sql, "")
	normalized = ilike.ReplaceAllString(normalized, "LIKE")

	stmt, err := c.parser.Parse(normalized)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union:
		return nil
	default:
		return ErrNotQuery
	}
}
