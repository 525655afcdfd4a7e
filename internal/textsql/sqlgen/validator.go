package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"school-query-workers/internal/textsql/schema"
)

// Rejection reasons. They double as metric labels.
const (
	ReasonEmpty           = "empty"
	ReasonDenyList        = "deny_list"
	ReasonNotSelect       = "not_select"
	ReasonStacked         = "stacked_statement"
	ReasonUnterminated    = "unterminated_quote"
	ReasonTenantMissing   = "tenant_missing"
	ReasonTenantMismatch  = "tenant_mismatch"
	ReasonSyntax          = "syntax_defect"
	ReasonNoTables        = "no_tables"
	ReasonUnknownTable    = "unknown_table"
	ReasonTableNotAllowed = "table_not_allowed"
	ReasonNesting         = "nesting_depth"
	ReasonGrammar         = "grammar"
)

// ValidationResult is the validator's verdict. Message is safe to log but
// is only shown to users for table access rejections.
type ValidationResult struct {
	Safe    bool     `json:"safe"`
	Reason  string   `json:"reason,omitempty"`
	Message string   `json:"message,omitempty"`
	Tables  []string `json:"tables,omitempty"`
}

func reject(reason, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

type denyRule struct {
	name string
	re   *regexp.Regexp
}

// denyList is checked in order against the raw statement, literals
// included.
var denyList = []denyRule{
	{"data modification", regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|TRUNCATE|CREATE|REPLACE|MERGE|UPSERT|COPY|VACUUM|REINDEX|LOCK)\b`)},
	{"privilege change", regexp.MustCompile(`(?i)\b(GRANT|REVOKE)\b`)},
	{"procedure execution", regexp.MustCompile(`(?i)\b(EXEC|EXECUTE|CALL|PREPARE|DEALLOCATE)\b`)},
	{"comment", regexp.MustCompile(`--|/\*|\*/`)},
	{"set operation", regexp.MustCompile(`(?i)\b(UNION|INTERSECT|EXCEPT)\b`)},
	{"stacked statement", regexp.MustCompile(`;\s*\S`)},
	{"extended procedure", regexp.MustCompile(`(?i)\b(xp|sp)_\w+`)},
	{"select into", regexp.MustCompile(`(?i)\bINTO\b`)},
	{"server function", regexp.MustCompile(`(?i)\b(pg_sleep\w*|pg_read_file|pg_read_binary_file|pg_ls_dir|pg_stat_file|lo_import|lo_export|dblink\w*|pg_terminate_backend|pg_cancel_backend|set_config|current_setting|pg_catalog|information_schema)\b`)},
	{"delay", regexp.MustCompile(`(?i)\bWAITFOR\s+DELAY\b`)},
	{"escaped string", regexp.MustCompile(`(?i)(\bE'|\bU&'|\\|\$[a-z_]*\$)`)},
}

var (
	trailingSemicolon = regexp.MustCompile(`;\s*$`)
	selectKeyword     = regexp.MustCompile(`(?i)\bSELECT\b`)
	maskedTenant      = regexp.MustCompile(`(?i)(?:^|[^\w.])(?:\w+\.)?tenant_id\s*=\s*'#(\d+)'`)
)

// Validator is the gate every generated statement passes before it can be
// executed. It is pure: the same input always gives the same verdict.
type Validator struct {
	catalog   *schema.Catalog
	repairer  *Repairer
	maxNested int
	rootForm  *regexp.Regexp
	grammar   GrammarChecker
	mode      GrammarMode
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithMaxNestedSelects bounds the number of SELECTs beyond the first.
func WithMaxNestedSelects(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.maxNested = n
		}
	}
}

// WithGrammarCheck adds a parser-based check in the given mode.
func WithGrammarCheck(checker GrammarChecker, mode GrammarMode) ValidatorOption {
	return func(v *Validator) {
		v.grammar = checker
		v.mode = mode
	}
}

func NewValidator(catalog *schema.Catalog, repairer *Repairer, opts ...ValidatorOption) *Validator {
	v := &Validator{
		catalog:   catalog,
		repairer:  repairer,
		maxNested: 3,
		rootForm: regexp.MustCompile(`(?i)\bFROM\s+` + schema.RootTable +
			`(?:\s+(?:AS\s+)?\w+)?\s+WHERE\s+(?:\w+\.)?id\s*=\s*'#(\d+)'`),
		mode: GrammarOff,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks sql against tenantID and the caller's schema context.
func (v *Validator) Validate(sql, tenantID string, sc *schema.SchemaContext) ValidationResult {
	if strings.TrimSpace(sql) == "" {
		return reject(ReasonEmpty, "Statement is empty")
	}

	for _, rule := range denyList {
		if m := rule.re.FindString(sql); m != "" {
			return reject(ReasonDenyList, "Statement contains a forbidden %s pattern: %s", rule.name, strings.TrimSpace(m))
		}
	}

	if !startsSelect.MatchString(sql) {
		return reject(ReasonNotSelect, "Only SELECT statements are allowed")
	}

	m, unterminated := maskSQL(sql)
	if unterminated {
		return reject(ReasonUnterminated, "Statement has an unterminated quote")
	}
	if strings.Contains(trailingSemicolon.ReplaceAllString(m.text, ""), ";") {
		return reject(ReasonStacked, "Only a single statement is allowed")
	}

	tables := extractTables(m.text)

	if res, ok := v.checkTenant(m, tables, tenantID); !ok {
		return res
	}

	if defects := v.repairer.SyntaxDefects(sql); len(defects) > 0 {
		return reject(ReasonSyntax, "Statement still has syntax defects: %s", strings.Join(defects, ", "))
	}

	if len(tables) == 0 {
		return reject(ReasonNoTables, "Statement does not reference any table")
	}
	for _, t := range tables {
		if !v.catalog.Has(t) {
			return reject(ReasonUnknownTable, "Access to table '%s' is not permitted for your role", t)
		}
		if !sc.Allows(t) {
			return reject(ReasonTableNotAllowed, "Access to table '%s' is not permitted for your role", t)
		}
	}

	if nested := len(selectKeyword.FindAllStringIndex(m.text, -1)) - 1; nested > v.maxNested {
		return reject(ReasonNesting, "Statement nests %d subqueries, the limit is %d", nested, v.maxNested)
	}

	if v.grammar != nil && v.mode == GrammarEnforce {
		if err := v.grammar.Check(sql); err != nil {
			return reject(ReasonGrammar, "Statement failed grammar check: %v", err)
		}
	}

	return ValidationResult{Safe: true, Tables: tables}
}

// GrammarAdvisory runs the grammar check without affecting the verdict.
// It returns nil when no checker is configured or the mode is off.
func (v *Validator) GrammarAdvisory(sql string) error {
	if v.grammar == nil || v.mode != GrammarAdvisory {
		return nil
	}
	return v.grammar.Check(sql)
}

// checkTenant requires a tenant_id = '<literal>' predicate, or the root
// table's own id predicate when the root is the only table. Every tenant
// literal present must equal tenantID.
func (v *Validator) checkTenant(m masked, tables []string, tenantID string) (ValidationResult, bool) {
	if strings.TrimSpace(tenantID) == "" {
		return reject(ReasonTenantMissing, "No tenant scope available for this request"), false
	}

	found := false
	for _, match := range maskedTenant.FindAllStringSubmatch(m.text, -1) {
		lit, ok := m.literal(match[1])
		if !ok || lit != tenantID {
			return reject(ReasonTenantMismatch, "Statement is scoped to a different tenant"), false
		}
		found = true
	}
	if found {
		return ValidationResult{}, true
	}

	if rootOnly(tables) {
		matches := v.rootForm.FindAllStringSubmatch(m.text, -1)
		for _, match := range matches {
			lit, ok := m.literal(match[1])
			if !ok || lit != tenantID {
				return reject(ReasonTenantMismatch, "Statement is scoped to a different tenant"), false
			}
		}
		if len(matches) > 0 {
			return ValidationResult{}, true
		}
	}

	return reject(ReasonTenantMissing, "Statement is missing the tenant filter"), false
}
