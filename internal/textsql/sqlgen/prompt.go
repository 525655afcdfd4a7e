package sqlgen

import (
	"fmt"
	"strings"

	"school-query-workers/internal/textsql/schema"
)

// MissingPrefix starts the plain-text reply the model gives when a question
// cannot be answered from the visible tables.
const MissingPrefix = "MISSING:"

// BuildPrompt renders the generation prompt for one question.
func BuildPrompt(sc *schema.SchemaContext, question string, rowLimit int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `You write PostgreSQL queries for a school management database. Convert the question into one read-only query.

RULES:
1. Output ONLY the SQL. No explanations, no markdown, no comments, no semicolon.
2. Write exactly one statement and start it with SELECT. Do not use WITH, UNION, INTERSECT or EXCEPT.
3. Every table you use other than %[1]s must be filtered with <alias>.tenant_id = '%[2]s'. Write the id as that literal, never as a placeholder.
4. When you query %[1]s on its own, filter it with %[1]s.id = '%[2]s'.
5. For every table that has is_deleted, add <alias>.is_deleted = false.
6. Use only the tables and columns listed below. Any other table is off limits.
7. Compare enum columns with the exact upper case values listed below, using =.
8. Compare boolean columns with = true or = false.
9. Add LIMIT %[3]d to queries that return rows rather than a single total.
10. Use table aliases and the relationships below when joining.

If the question cannot be answered from the tables below, do not write SQL. Reply with:
%[4]s <one sentence saying what information is not available>

`, schema.RootTable, sc.TenantID, rowLimit, MissingPrefix)

	sb.WriteString(sc.Text)
	sb.WriteString("\nQUESTION:\n")
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nSQL:\n")
	return sb.String()
}
