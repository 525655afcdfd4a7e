package sqlgen

import (
	"regexp"
	"strings"

	"school-query-workers/internal/textsql/schema"
)

// Repair kinds, also used as metric labels.
const (
	RepairPlaceholder   = "placeholder"
	RepairTenantLiteral = "tenant_literal"
	RepairRootLiteral   = "root_literal"
	RepairBooleanEquals = "boolean_equals"
	RepairEnumEquals    = "enum_equals"
	RepairDoubleEquals  = "double_equals"
)

var (
	placeholderPattern = regexp.MustCompile(
		`(?i)'?(\{\{\s*tenant_?id\s*\}\}|\$\{tenant_?id\}|\{tenant_?id\}|<tenant_?id>|:tenant_id\b|\btenant_id_placeholder\b|\byour_tenant_id\b|\[tenant_id\])'?`)

	tenantLiteralPattern = regexp.MustCompile(`(?i)(\b(?:\w+\.)?tenant_id\s*=\s*)'([0-9a-f-]*)'`)
	doubleEqualsPattern  = regexp.MustCompile(`\s*==+\s*`)
)

// Repairer fixes the mistakes generation models make most often. Every
// rewrite is a fixed regex applied in a fixed order so repairs cannot feed
// into each other, and running it twice changes nothing further.
type Repairer struct {
	rootLiteral   *regexp.Regexp
	missingBoolEq *regexp.Regexp
	missingEnumEq *regexp.Regexp
}

// NewRepairer builds the column-aware detectors from the catalog.
func NewRepairer(catalog *schema.Catalog) *Repairer {
	return &Repairer{
		rootLiteral: regexp.MustCompile(`(?i)(\bFROM\s+` + schema.RootTable +
			`(?:\s+(?:AS\s+)?\w+)?\s+WHERE\s+(?:\w+\.)?id\s*=\s*)'([0-9a-f-]*)'`),
		missingBoolEq: regexp.MustCompile(`(?i)(\b(?:\w+\.)?(?:` + alternation(catalog.BooleanColumns()) +
			`))\s+(true|false)\b`),
		missingEnumEq: regexp.MustCompile(`(?i)(\b(?:\w+\.)?(?:` + alternation(catalog.EnumColumns()) +
			`))\s+'`),
	}
}

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

// SubstitutePlaceholders replaces tenant placeholder tokens with the quoted
// tenant id.
func SubstitutePlaceholders(sql, tenantID string) (string, bool) {
	out := placeholderPattern.ReplaceAllLiteralString(sql, "'"+escapeLiteral(tenantID)+"'")
	return out, out != sql
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Repair applies every repair and returns the new text plus the kinds that
// changed something.
func (r *Repairer) Repair(sql, tenantID string) (string, []string) {
	var applied []string
	step := func(kind, next string) {
		if next != sql {
			applied = append(applied, kind)
			sql = next
		}
	}

	lit := "'" + escapeLiteral(tenantID) + "'"
	step(RepairTenantLiteral, tenantLiteralPattern.ReplaceAllString(sql, "${1}"+escapeReplacement(lit)))
	step(RepairRootLiteral, r.rootLiteral.ReplaceAllString(sql, "${1}"+escapeReplacement(lit)))
	step(RepairBooleanEquals, outsideLiterals(sql, func(text string) string {
		return r.missingBoolEq.ReplaceAllString(text, "$1 = $2")
	}))
	step(RepairEnumEquals, outsideLiterals(sql, func(text string) string {
		return r.missingEnumEq.ReplaceAllString(text, "$1 = '")
	}))
	step(RepairDoubleEquals, outsideLiterals(sql, func(text string) string {
		return doubleEqualsPattern.ReplaceAllString(text, " = ")
	}))

	return sql, applied
}

// SyntaxDefects re-runs the syntax detectors. A repaired statement must
// come back clean.
func (r *Repairer) SyntaxDefects(sql string) []string {
	if m, unterminated := maskLiterals(sql); !unterminated {
		sql = m.text
	}
	var defects []string
	if r.missingBoolEq.MatchString(sql) {
		defects = append(defects, RepairBooleanEquals)
	}
	if r.missingEnumEq.MatchString(sql) {
		defects = append(defects, RepairEnumEquals)
	}
	if strings.Contains(sql, "==") {
		defects = append(defects, RepairDoubleEquals)
	}
	return defects
}

// outsideLiterals applies rewrite to sql with string literals masked, so
// literal text is never edited. Statements with an unterminated quote are
// returned unchanged.
func outsideLiterals(sql string, rewrite func(string) string) string {
	m, unterminated := maskLiterals(sql)
	if unterminated {
		return sql
	}
	next := rewrite(m.text)
	if next == m.text {
		return sql
	}
	return m.unmask(next)
}

func escapeReplacement(s string) string {
	return strings.ReplaceAll(s, "$", "$$")
}
