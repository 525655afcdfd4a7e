package schema

import (
	"fmt"
	"sort"
	"strings"

	"school-query-workers/internal/models"
)

// tenantToken stands in for the tenant id in memoised text.
const tenantToken = "\x00tenant\x00"

// SchemaContext is the role- and tenant-scoped view of the catalog handed
// to the SQL generator. It is immutable once built.
type SchemaContext struct {
	Role          models.Role
	TenantID      string
	AllowedTables map[string]struct{}
	Tables        []TableSpec
	Relationships []Relationship
	Enums         map[string][]string
	Text          string
}

// Allows reports whether table (any case) is in the allowed set.
func (s *SchemaContext) Allows(table string) bool {
	_, ok := s.AllowedTables[strings.ToLower(table)]
	return ok
}

// AllowedTableNames returns the allowed tables sorted by name.
func (s *SchemaContext) AllowedTableNames() []string {
	out := make([]string, 0, len(s.AllowedTables))
	for name := range s.AllowedTables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type roleView struct {
	allowed       map[string]struct{}
	tables        []TableSpec
	relationships []Relationship
	enums         map[string][]string
	text          string
}

// Builder renders SchemaContexts. Each role's view is computed once when
// the builder is created; Build only substitutes the tenant id.
type Builder struct {
	catalog *Catalog
	views   [models.RoleCount]roleView
}

// NewBuilder returns a Builder over catalog and policy. It returns an error
// if the policy names a table the catalog does not have.
func NewBuilder(catalog *Catalog, policy RoleAccessPolicy) (*Builder, error) {
	b := &Builder{catalog: catalog}
	for r := models.Role(0); r < models.RoleCount; r++ {
		names := policy.Tables(r)
		if len(names) == 0 {
			return nil, fmt.Errorf("no table policy for role %s", r)
		}
		view, err := b.buildView(names)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", r, err)
		}
		b.views[r] = view
	}
	return b, nil
}

// NewDefaultBuilder builds over the school catalog and default policy.
func NewDefaultBuilder() *Builder {
	b, err := NewBuilder(DefaultCatalog(), DefaultPolicy)
	if err != nil {
		panic(err)
	}
	return b
}

// Catalog returns the catalog the builder renders from.
func (b *Builder) Catalog() *Catalog {
	return b.catalog
}

// Build returns the schema context for role scoped to tenantID.
func (b *Builder) Build(role models.Role, tenantID string) *SchemaContext {
	if role < 0 || role >= models.RoleCount {
		role = models.RoleStaff
	}
	v := b.views[role]
	return &SchemaContext{
		Role:          role,
		TenantID:      tenantID,
		AllowedTables: v.allowed,
		Tables:        v.tables,
		Relationships: v.relationships,
		Enums:         v.enums,
		Text:          strings.ReplaceAll(v.text, tenantToken, tenantID),
	}
}

func (b *Builder) buildView(names []string) (roleView, error) {
	v := roleView{
		allowed: make(map[string]struct{}, len(names)),
		enums:   map[string][]string{},
	}
	for _, name := range names {
		t, ok := b.catalog.Table(name)
		if !ok {
			return roleView{}, fmt.Errorf("table %q is not in the catalog", name)
		}
		v.allowed[name] = struct{}{}
		v.tables = append(v.tables, t)
		for _, c := range t.Columns {
			if c.Enum != "" {
				v.enums[c.Enum] = b.catalog.EnumValues(c.Enum)
			}
		}
	}
	for _, rel := range b.catalog.Relationships() {
		_, from := v.allowed[rel.FromTable]
		_, to := v.allowed[rel.ToTable]
		if from && to {
			v.relationships = append(v.relationships, rel)
		}
	}
	v.text = renderText(v)
	return v, nil
}

func renderText(v roleView) string {
	var sb strings.Builder

	sb.WriteString("TABLES\n")
	for _, t := range v.tables {
		sb.WriteString("\n")
		writeTable(&sb, t, v.allowed)
	}

	if len(v.relationships) > 0 {
		sb.WriteString("\nRELATIONSHIPS\n")
		for _, r := range v.relationships {
			fmt.Fprintf(&sb, "- %s.%s = %s.%s\n", r.FromTable, r.FromColumn, r.ToTable, r.ToColumn)
		}
	}

	if len(v.enums) > 0 {
		sb.WriteString("\nENUM VALUES (use exactly as written, upper case)\n")
		names := make([]string, 0, len(v.enums))
		for name := range v.enums {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			quoted := make([]string, len(v.enums[name]))
			for i, val := range v.enums[name] {
				quoted[i] = "'" + val + "'"
			}
			fmt.Fprintf(&sb, "- %s: %s\n", name, strings.Join(quoted, ", "))
		}
	}

	return sb.String()
}

func writeTable(sb *strings.Builder, t TableSpec, allowed map[string]struct{}) {
	fmt.Fprintf(sb, "%s -- %s\n", t.Name, t.Description)
	if t.TenantRoot {
		fmt.Fprintf(sb, "  scope: tenant root, filter with %s.id = '%s' (this table has no tenant_id column)\n", t.Name, tenantToken)
	} else {
		fmt.Fprintf(sb, "  scope: %s.tenant_id = '%s'\n", t.Name, tenantToken)
	}
	if t.SoftDeletes() {
		fmt.Fprintf(sb, "  soft delete: always add %s.is_deleted = false\n", t.Name)
	}
	for _, c := range t.Columns {
		sb.WriteString("  - ")
		sb.WriteString(c.Name)
		sb.WriteString(" ")
		if c.Enum != "" {
			sb.WriteString("enum " + c.Enum)
		} else {
			sb.WriteString(c.Type)
		}
		if c.Nullable {
			sb.WriteString(", nullable")
		}
		if c.References != "" && c.Name != TenantColumn {
			target, _ := splitRef(c.References)
			if _, ok := allowed[target]; ok {
				sb.WriteString(", references " + c.References)
			}
		}
		sb.WriteString("\n")
	}
}
