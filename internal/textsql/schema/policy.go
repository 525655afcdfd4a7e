package schema

import "school-query-workers/internal/models"

var (
	fullAccess = []string{
		RootTable, "users", "students", "guardians", "classes", "teachers", "subjects",
		"academic_terms", "attendance", "exam_results", "fee_structures", "student_fees",
		"fee_payments", "expenses", "messages",
	}

	academicAccess = []string{
		RootTable, "students", "guardians", "classes", "teachers", "subjects",
		"academic_terms", "attendance", "exam_results",
	}

	minimalAccess = []string{
		RootTable, "students", "classes", "academic_terms",
	}
)

// RoleAccessPolicy maps every role to the tables it may reference. The
// array is sized by RoleCount so adding a role without a policy entry
// leaves a nil slice that TestPolicyCoversEveryRole catches.
type RoleAccessPolicy [models.RoleCount][]string

// DefaultPolicy is the school access policy.
var DefaultPolicy = RoleAccessPolicy{
	models.RoleOwner:   fullAccess,
	models.RoleAdmin:   fullAccess,
	models.RoleTeacher: academicAccess,
	models.RoleStaff:   minimalAccess,
}

// Tables returns the allowed table names for role. Out-of-range roles get
// the staff set.
func (p *RoleAccessPolicy) Tables(role models.Role) []string {
	if role < 0 || role >= models.RoleCount {
		role = models.RoleStaff
	}
	return p[role]
}
