// Package schema holds the static description of the school database and
// renders the role-scoped view of it that the SQL generator works from.
package schema

import (
	"sort"
	"strings"
	"sync"
)

// RootTable is the tenant table itself. It is scoped by its own id column.
const RootTable = "schools"

// TenantColumn is the scope column every non-root table carries.
const TenantColumn = "tenant_id"

// SoftDeleteColumn marks logically deleted rows.
const SoftDeleteColumn = "is_deleted"

// ColumnSpec describes one column.
type ColumnSpec struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable,omitempty"`
	References string `json:"references,omitempty"` // "table.column"
	Enum       string `json:"enum,omitempty"`
}

// TableSpec describes one table of the catalog.
type TableSpec struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Columns     []ColumnSpec `json:"columns"`
	TenantRoot  bool         `json:"tenantRoot,omitempty"`
}

// TenantScoped reports whether rows are filtered by tenant_id.
func (t TableSpec) TenantScoped() bool {
	return !t.TenantRoot
}

// SoftDeletes reports whether the table has an is_deleted flag.
func (t TableSpec) SoftDeletes() bool {
	for _, c := range t.Columns {
		if c.Name == SoftDeleteColumn {
			return true
		}
	}
	return false
}

// Relationship is a foreign-key join path.
type Relationship struct {
	FromTable  string `json:"fromTable"`
	FromColumn string `json:"fromColumn"`
	ToTable    string `json:"toTable"`
	ToColumn   string `json:"toColumn"`
}

// Catalog is the immutable set of tables and enumerations.
type Catalog struct {
	tables map[string]TableSpec
	order  []string
	enums  map[string][]string
}

// Table returns the spec for name.
func (c *Catalog) Table(name string) (TableSpec, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// Has reports whether name is a catalog table.
func (c *Catalog) Has(name string) bool {
	_, ok := c.tables[name]
	return ok
}

// TableNames returns every table name in declaration order.
func (c *Catalog) TableNames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// EnumValues returns the canonical values of an enumeration.
func (c *Catalog) EnumValues(name string) []string {
	return c.enums[name]
}

// Relationships returns the foreign-key edges, excluding the tenant_id edge
// every table has to the root.
func (c *Catalog) Relationships() []Relationship {
	var out []Relationship
	for _, name := range c.order {
		for _, col := range c.tables[name].Columns {
			if col.References == "" || col.Name == TenantColumn {
				continue
			}
			toTable, toColumn := splitRef(col.References)
			out = append(out, Relationship{
				FromTable:  name,
				FromColumn: col.Name,
				ToTable:    toTable,
				ToColumn:   toColumn,
			})
		}
	}
	return out
}

// BooleanColumns returns the distinct names of boolean columns.
func (c *Catalog) BooleanColumns() []string {
	return c.columnsWhere(func(col ColumnSpec) bool { return col.Type == "boolean" })
}

// EnumColumns returns the distinct names of enumerated columns.
func (c *Catalog) EnumColumns() []string {
	return c.columnsWhere(func(col ColumnSpec) bool { return col.Enum != "" })
}

func (c *Catalog) columnsWhere(keep func(ColumnSpec) bool) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range c.order {
		for _, col := range c.tables[name].Columns {
			if keep(col) && !seen[col.Name] {
				seen[col.Name] = true
				out = append(out, col.Name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func splitRef(ref string) (string, string) {
	table, column, ok := strings.Cut(ref, ".")
	if !ok {
		return ref, "id"
	}
	return table, column
}

// DefaultCatalog returns the process-wide school catalog. It is built once
// and never modified.
var DefaultCatalog = sync.OnceValue(func() *Catalog {
	return newCatalog(schoolTables(), schoolEnums())
})

func newCatalog(tables []TableSpec, enums map[string][]string) *Catalog {
	c := &Catalog{
		tables: make(map[string]TableSpec, len(tables)),
		enums:  enums,
	}
	for _, t := range tables {
		c.tables[t.Name] = t
		c.order = append(c.order, t.Name)
	}
	return c
}

func id() ColumnSpec { return ColumnSpec{Name: "id", Type: "uuid"} }
func tenant() ColumnSpec {
	return ColumnSpec{Name: TenantColumn, Type: "uuid", References: RootTable + ".id"}
}
func deleted() ColumnSpec {
	return ColumnSpec{Name: SoftDeleteColumn, Type: "boolean"}
}
func fk(name, ref string, nullable bool) ColumnSpec {
	return ColumnSpec{Name: name, Type: "uuid", References: ref, Nullable: nullable}
}
func col(name, typ string) ColumnSpec { return ColumnSpec{Name: name, Type: typ} }
func opt(name, typ string) ColumnSpec { return ColumnSpec{Name: name, Type: typ, Nullable: true} }
func enum(name, enumName string) ColumnSpec {
	return ColumnSpec{Name: name, Type: "enum", Enum: enumName}
}

func schoolTables() []TableSpec {
	return []TableSpec{
		{
			Name:        RootTable,
			Description: "The school (tenant) itself",
			TenantRoot:  true,
			Columns: []ColumnSpec{
				id(), col("name", "text"), opt("code", "text"), opt("address", "text"),
				opt("phone", "text"), opt("email", "text"), col("currency", "text"),
				col("created_at", "timestamp"),
			},
		},
		{
			Name:        "users",
			Description: "Login accounts of school staff",
			Columns: []ColumnSpec{
				id(), tenant(), col("email", "text"), col("first_name", "text"), col("last_name", "text"),
				enum("role", "USER_ROLE"), col("is_active", "boolean"), opt("last_login_at", "timestamp"),
				col("created_at", "timestamp"), deleted(),
			},
		},
		{
			Name:        "students",
			Description: "Enrolled and former students",
			Columns: []ColumnSpec{
				id(), tenant(), col("admission_number", "text"), col("first_name", "text"), col("last_name", "text"),
				enum("gender", "GENDER"), opt("date_of_birth", "date"),
				fk("class_id", "classes.id", true), fk("guardian_id", "guardians.id", true),
				enum("status", "STUDENT_STATUS"), opt("enrolled_at", "date"),
				col("created_at", "timestamp"), deleted(),
			},
		},
		{
			Name:        "guardians",
			Description: "Parents and guardians of students",
			Columns: []ColumnSpec{
				id(), tenant(), col("first_name", "text"), col("last_name", "text"),
				opt("phone", "text"), opt("email", "text"), opt("relationship", "text"), deleted(),
			},
		},
		{
			Name:        "classes",
			Description: "Class groups such as JSS1A or Primary 4",
			Columns: []ColumnSpec{
				id(), tenant(), col("name", "text"), opt("level", "text"),
				fk("class_teacher_id", "teachers.id", true), opt("capacity", "integer"), deleted(),
			},
		},
		{
			Name:        "teachers",
			Description: "Teaching staff",
			Columns: []ColumnSpec{
				id(), tenant(), fk("user_id", "users.id", true), col("first_name", "text"), col("last_name", "text"),
				opt("email", "text"), opt("phone", "text"), enum("employment_status", "EMPLOYMENT_STATUS"),
				opt("hired_at", "date"), deleted(),
			},
		},
		{
			Name:        "subjects",
			Description: "Subjects taught per class",
			Columns: []ColumnSpec{
				id(), tenant(), col("name", "text"), opt("code", "text"),
				fk("class_id", "classes.id", true), fk("teacher_id", "teachers.id", true), deleted(),
			},
		},
		{
			Name:        "academic_terms",
			Description: "Terms within an academic session",
			Columns: []ColumnSpec{
				id(), tenant(), col("name", "text"), col("session", "text"),
				col("start_date", "date"), col("end_date", "date"), col("is_current", "boolean"),
			},
		},
		{
			Name:        "attendance",
			Description: "Daily attendance marks",
			Columns: []ColumnSpec{
				id(), tenant(), fk("student_id", "students.id", false), fk("class_id", "classes.id", false),
				fk("term_id", "academic_terms.id", true), col("date", "date"),
				enum("status", "ATTENDANCE_STATUS"), fk("recorded_by", "teachers.id", true),
			},
		},
		{
			Name:        "exam_results",
			Description: "Scores per student, subject and term",
			Columns: []ColumnSpec{
				id(), tenant(), fk("student_id", "students.id", false), fk("subject_id", "subjects.id", false),
				fk("term_id", "academic_terms.id", false), enum("exam_type", "EXAM_TYPE"),
				col("score", "numeric"), opt("grade", "text"), deleted(),
			},
		},
		{
			Name:        "fee_structures",
			Description: "Fee items charged per class and term",
			Columns: []ColumnSpec{
				id(), tenant(), col("name", "text"), fk("class_id", "classes.id", true),
				fk("term_id", "academic_terms.id", true), col("amount", "numeric"), opt("due_date", "date"), deleted(),
			},
		},
		{
			Name:        "student_fees",
			Description: "Fees billed to each student with running balance",
			Columns: []ColumnSpec{
				id(), tenant(), fk("student_id", "students.id", false), fk("fee_structure_id", "fee_structures.id", false),
				fk("term_id", "academic_terms.id", true), col("amount_due", "numeric"), col("amount_paid", "numeric"),
				col("balance", "numeric"), enum("status", "FEE_STATUS"), opt("due_date", "date"), deleted(),
			},
		},
		{
			Name:        "fee_payments",
			Description: "Individual payments received against student fees",
			Columns: []ColumnSpec{
				id(), tenant(), fk("student_fee_id", "student_fees.id", true), fk("student_id", "students.id", false),
				col("amount", "numeric"), enum("payment_method", "PAYMENT_METHOD"), opt("reference", "text"),
				col("paid_at", "timestamp"), fk("recorded_by", "users.id", true), deleted(),
			},
		},
		{
			Name:        "expenses",
			Description: "School spending",
			Columns: []ColumnSpec{
				id(), tenant(), enum("category", "EXPENSE_CATEGORY"), opt("description", "text"),
				col("amount", "numeric"), col("spent_at", "date"), fk("recorded_by", "users.id", true), deleted(),
			},
		},
		{
			Name:        "messages",
			Description: "Messages sent to guardians and staff",
			Columns: []ColumnSpec{
				id(), tenant(), fk("sender_id", "users.id", true), enum("recipient_type", "RECIPIENT_TYPE"),
				opt("subject", "text"), enum("channel", "MESSAGE_CHANNEL"), enum("status", "MESSAGE_STATUS"),
				opt("sent_at", "timestamp"), deleted(),
			},
		},
	}
}

func schoolEnums() map[string][]string {
	return map[string][]string{
		"USER_ROLE":         {"OWNER", "ADMIN", "TEACHER", "STAFF", "ACCOUNTANT"},
		"GENDER":            {"MALE", "FEMALE"},
		"STUDENT_STATUS":    {"ACTIVE", "GRADUATED", "WITHDRAWN", "SUSPENDED"},
		"EMPLOYMENT_STATUS": {"ACTIVE", "ON_LEAVE", "RESIGNED"},
		"ATTENDANCE_STATUS": {"PRESENT", "ABSENT", "LATE", "EXCUSED"},
		"EXAM_TYPE":         {"CA", "MIDTERM", "EXAM"},
		"FEE_STATUS":        {"PAID", "PARTIAL", "UNPAID", "OVERDUE"},
		"PAYMENT_METHOD":    {"CASH", "BANK_TRANSFER", "CARD", "POS", "ONLINE"},
		"EXPENSE_CATEGORY":  {"SALARY", "UTILITIES", "SUPPLIES", "MAINTENANCE", "TRANSPORT", "OTHER"},
		"RECIPIENT_TYPE":    {"GUARDIAN", "STAFF", "CLASS", "ALL"},
		"MESSAGE_CHANNEL":   {"SMS", "EMAIL", "IN_APP"},
		"MESSAGE_STATUS":    {"QUEUED", "SENT", "FAILED"},
	}
}
