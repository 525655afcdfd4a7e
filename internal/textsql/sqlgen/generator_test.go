package sqlgen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "school-query-workers/internal/common/errors"
	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/models"
	"school-query-workers/internal/textsql/genai"
	"school-query-workers/internal/textsql/schema"
)

func newTestGenerator(t *testing.T, reply string, err error) (*Generator, *string) {
	t.Helper()
	var prompt string
	completer := genai.CompleterFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return reply, err
	})
	return NewGenerator(schema.NewDefaultBuilder(), completer, newTestValidator(), 0, logger.NewTestLogger(t)), &prompt
}

func TestGenerate_CountQuestion(t *testing.T) {
	g, prompt := newTestGenerator(t,
		"```sql\nSELECT COUNT(*) AS total FROM students WHERE tenant_id = '"+testTenant+"' AND is_deleted = false;\n```", nil)

	res, err := g.Generate(context.Background(), models.GenerationRequest{
		Question: "How many active students do we have?",
		TenantID: testTenant,
		Role:     models.RoleOwner,
	})

	require.NoError(t, err)
	assert.True(t, res.Executable())
	assert.Equal(t, models.QueryTypeCount, res.QueryType)
	assert.Equal(t, "SELECT COUNT(*) AS total FROM students WHERE tenant_id = '"+testTenant+"' AND is_deleted = false", res.SQL)

	assert.Contains(t, *prompt, "How many active students do we have?")
	assert.Contains(t, *prompt, "tenant_id = '"+testTenant+"'")
	assert.Contains(t, *prompt, "LIMIT 100")
}

func TestGenerate_RepairsPlaceholderAndDefects(t *testing.T) {
	g, _ := newTestGenerator(t,
		"SELECT first_name FROM students WHERE tenant_id = '{{tenant_id}}' AND is_deleted false AND status 'ACTIVE' LIMIT 100", nil)

	res, err := g.Generate(context.Background(), models.GenerationRequest{
		Question: "List active students",
		TenantID: testTenant,
		Role:     models.RoleTeacher,
	})

	require.NoError(t, err)
	require.True(t, res.Executable(), res.Error)
	assert.Equal(t, "SELECT first_name FROM students WHERE tenant_id = '"+testTenant+"' AND is_deleted = false AND status = 'ACTIVE' LIMIT 100", res.SQL)
	assert.Equal(t, []string{RepairPlaceholder, RepairBooleanEquals, RepairEnumEquals}, res.Repairs)
	assert.Equal(t, models.QueryTypeList, res.QueryType)
}

func TestGenerate_TeacherFeeQuestionRejected(t *testing.T) {
	g, prompt := newTestGenerator(t,
		"SELECT SUM(amount) AS collected FROM fee_payments WHERE tenant_id = '"+testTenant+"' AND is_deleted = false", nil)

	res, err := g.Generate(context.Background(), models.GenerationRequest{
		Question: "How much in fees did we collect this term?",
		TenantID: testTenant,
		Role:     models.RoleTeacher,
	})

	require.NoError(t, err)
	assert.False(t, res.Executable())
	assert.False(t, res.IsSafe)
	assert.Equal(t, ReasonTableNotAllowed, res.Reason)
	assert.Equal(t, "Access to table 'fee_payments' is not permitted for your role", res.Error)
	assert.NotContains(t, *prompt, "fee_payments")
}

func TestGenerate_Refusal(t *testing.T) {
	g, _ := newTestGenerator(t, "MISSING: There is no table describing bus routes. Ask about students instead.", nil)

	res, err := g.Generate(context.Background(), models.GenerationRequest{
		Question: "Which bus routes are busiest?",
		TenantID: testTenant,
		Role:     models.RoleAdmin,
	})

	require.NoError(t, err)
	assert.True(t, res.Refusal)
	assert.False(t, res.Success)
	assert.Empty(t, res.SQL)
	assert.Equal(t, "There is no table describing bus routes.", res.Error)
}

func TestGenerate_BackendFailureIsAnError(t *testing.T) {
	g, _ := newTestGenerator(t, "", errors.New("connection refused"))

	_, err := g.Generate(context.Background(), models.GenerationRequest{
		Question: "How many teachers?",
		TenantID: testTenant,
		Role:     models.RoleOwner,
	})

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeGenAIUnavailable, stdErr.Code)
}

func TestCheck_HandWrittenStatement(t *testing.T) {
	g, _ := newTestGenerator(t, "", nil)
	sc := g.Builder().Build(models.RoleStaff, testTenant)

	res := g.Check("SELECT name FROM schools WHERE id = '"+testTenant+"'", testTenant, sc)
	assert.True(t, res.Executable())

	res = g.Check("SELECT COUNT(*) FROM expenses WHERE tenant_id = '"+testTenant+"'", testTenant, sc)
	assert.False(t, res.Executable())
	assert.Equal(t, "Access to table 'expenses' is not permitted for your role", res.Error)
}
