package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"school-query-workers/internal/textsql/schema"
)

func TestSubstitutePlaceholders(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"mustache", "SELECT id FROM students WHERE tenant_id = '{{tenant_id}}'"},
		{"mustache unquoted", "SELECT id FROM students WHERE tenant_id = {{ tenantId }}"},
		{"shell", "SELECT id FROM students WHERE tenant_id = '${tenant_id}'"},
		{"brace", "SELECT id FROM students WHERE tenant_id = {tenant_id}"},
		{"angle", "SELECT id FROM students WHERE tenant_id = '<tenant_id>'"},
		{"named parameter", "SELECT id FROM students WHERE tenant_id = :tenant_id"},
		{"word", "SELECT id FROM students WHERE tenant_id = 'YOUR_TENANT_ID'"},
		{"bracket", "SELECT id FROM students WHERE tenant_id = [tenant_id]"},
	}

	want := "SELECT id FROM students WHERE tenant_id = '" + testTenant + "'"
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := SubstitutePlaceholders(tt.in, testTenant)
			assert.True(t, changed)
			assert.Equal(t, want, got)
		})
	}
}

func TestSubstitutePlaceholders_LeavesColumnsAlone(t *testing.T) {
	in := "SELECT s.tenant_id FROM students s WHERE s.tenant_id = '" + testTenant + "'"
	got, changed := SubstitutePlaceholders(in, testTenant)
	assert.False(t, changed)
	assert.Equal(t, in, got)
}

func TestRepair_FixesEachDefect(t *testing.T) {
	r := NewRepairer(schema.DefaultCatalog())

	tests := []struct {
		name string
		in   string
		want string
		kind string
	}{
		{
			name: "truncated tenant literal",
			in:   "SELECT COUNT(*) FROM students WHERE tenant_id = '3f2b8c1e-0a4d'",
			want: "SELECT COUNT(*) FROM students WHERE tenant_id = '" + testTenant + "'",
			kind: RepairTenantLiteral,
		},
		{
			name: "qualified tenant literal",
			in:   "SELECT COUNT(*) FROM students s WHERE s.tenant_id = '00000000-0000-0000-0000-000000000000'",
			want: "SELECT COUNT(*) FROM students s WHERE s.tenant_id = '" + testTenant + "'",
			kind: RepairTenantLiteral,
		},
		{
			name: "root id literal",
			in:   "SELECT name FROM schools WHERE id = 'abc123'",
			want: "SELECT name FROM schools WHERE id = '" + testTenant + "'",
			kind: RepairRootLiteral,
		},
		{
			name: "missing boolean equals",
			in:   "SELECT COUNT(*) FROM students WHERE tenant_id = '" + testTenant + "' AND is_deleted false",
			want: "SELECT COUNT(*) FROM students WHERE tenant_id = '" + testTenant + "' AND is_deleted = false",
			kind: RepairBooleanEquals,
		},
		{
			name: "missing enum equals",
			in:   "SELECT COUNT(*) FROM students s WHERE s.tenant_id = '" + testTenant + "' AND s.status 'ACTIVE'",
			want: "SELECT COUNT(*) FROM students s WHERE s.tenant_id = '" + testTenant + "' AND s.status = 'ACTIVE'",
			kind: RepairEnumEquals,
		},
		{
			name: "double equals",
			in:   "SELECT COUNT(*) FROM students WHERE tenant_id == '" + testTenant + "'",
			want: "SELECT COUNT(*) FROM students WHERE tenant_id = '" + testTenant + "'",
			kind: RepairDoubleEquals,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, applied := r.Repair(tt.in, testTenant)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, applied, tt.kind)
			assert.Empty(t, r.SyntaxDefects(got))
		})
	}
}

func TestRepair_IsIdempotent(t *testing.T) {
	r := NewRepairer(schema.DefaultCatalog())
	inputs := []string{
		"SELECT COUNT(*) FROM students WHERE tenant_id = 'deadbeef' AND is_deleted false AND status 'ACTIVE'",
		"SELECT name FROM schools s WHERE s.id = '' ",
		"SELECT a.status, COUNT(*) FROM attendance a WHERE a.tenant_id == '" + testTenant + "' GROUP BY a.status",
		"SELECT COUNT(*) FROM students WHERE tenant_id = '" + testTenant + "' AND is_deleted = false",
	}

	for _, in := range inputs {
		once, _ := r.Repair(in, testTenant)
		twice, applied := r.Repair(once, testTenant)
		assert.Equal(t, once, twice)
		assert.Empty(t, applied)
	}
}

func TestRepair_CleanStatementUntouched(t *testing.T) {
	r := NewRepairer(schema.DefaultCatalog())
	in := "SELECT first_name FROM students WHERE tenant_id = '" + testTenant + "' AND status = 'ACTIVE' AND is_deleted = false LIMIT 100"

	got, applied := r.Repair(in, testTenant)

	assert.Equal(t, in, got)
	assert.Empty(t, applied)
}

func TestRepair_LeavesLiteralTextAlone(t *testing.T) {
	r := NewRepairer(schema.DefaultCatalog())
	scope := "tenant_id = '" + testTenant + "'"

	tests := []struct {
		name string
		in   string
	}{
		{"double equals in literal", "SELECT id FROM students WHERE " + scope + " AND first_name = 'a==b'"},
		{"enum column name in literal", "SELECT id FROM messages WHERE " + scope + " AND subject = 'new status ''x'''"},
		{"boolean column name in literal", "SELECT id FROM guardians WHERE " + scope + " AND relationship = 'is_deleted true'"},
		{"quoted identifier", `SELECT "first_name" FROM students WHERE ` + scope + " AND last_name = 'O''Neil'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, applied := r.Repair(tt.in, testTenant)
			assert.Equal(t, tt.in, got)
			assert.Empty(t, applied)
			assert.Empty(t, r.SyntaxDefects(got))
		})
	}
}

func TestRepair_RewritesAroundLiterals(t *testing.T) {
	r := NewRepairer(schema.DefaultCatalog())
	in := "SELECT id FROM students WHERE tenant_id = '" + testTenant + "' AND last_name == 'x==y' AND status 'ACTIVE'"
	want := "SELECT id FROM students WHERE tenant_id = '" + testTenant + "' AND last_name = 'x==y' AND status = 'ACTIVE'"

	got, applied := r.Repair(in, testTenant)

	assert.Equal(t, want, got)
	assert.ElementsMatch(t, []string{RepairEnumEquals, RepairDoubleEquals}, applied)
	assert.Empty(t, r.SyntaxDefects(got))
}
