// internal/workers/ai-conversation/generate-sql/handler_test.go
package generatesql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "school-query-workers/internal/common/errors"
	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/models"
	"school-query-workers/internal/textsql/audit"
	"school-query-workers/internal/textsql/genai"
	"school-query-workers/internal/textsql/schema"
	"school-query-workers/internal/textsql/sqlgen"
)

const tenant = "3f2b8c1e-0a4d-4e7f-9b21-5c6d7e8f9a01"

type recorderStub struct {
	events []audit.SecurityEvent
}

func (r *recorderStub) Record(_ context.Context, e audit.SecurityEvent) error {
	r.events = append(r.events, e)
	return nil
}

func newTestHandler(t *testing.T, reply string, replyErr error) (*Handler, *recorderStub) {
	t.Helper()
	log := logger.NewTestLogger(t)
	catalog := schema.DefaultCatalog()
	model := genai.CompleterFunc(func(context.Context, string) (string, error) {
		return reply, replyErr
	})
	gen := sqlgen.NewGenerator(schema.NewDefaultBuilder(), model,
		sqlgen.NewValidator(catalog, sqlgen.NewRepairer(catalog)), 100, log)
	rec := &recorderStub{}
	return NewHandler(LoadConfig(), gen, rec, log), rec
}

func TestHandler_Execute_Success(t *testing.T) {
	h, rec := newTestHandler(t, "```sql\nSELECT COUNT(*) FROM students WHERE tenant_id = '"+tenant+"' AND is_deleted = false;\n```", nil)

	out, err := h.Execute(context.Background(), &Input{
		Question: "How many students do we have?",
		TenantID: tenant,
		Role:     "owner",
	})

	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.True(t, out.IsSafe)
	assert.Equal(t, models.QueryTypeCount, out.QueryType)
	assert.Equal(t, "SELECT COUNT(*) FROM students WHERE tenant_id = '"+tenant+"' AND is_deleted = false", out.SQL)
	assert.Empty(t, rec.events)
}

func TestHandler_Execute_RejectedStatementIsHidden(t *testing.T) {
	h, rec := newTestHandler(t, "SELECT SUM(amount) FROM fee_payments WHERE tenant_id = '"+tenant+"'", nil)

	out, err := h.Execute(context.Background(), &Input{
		Question: "How much did we collect in fees?",
		TenantID: tenant,
		Role:     "class_teacher",
		CallerID: "user-42",
	})

	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Empty(t, out.SQL)
	assert.Equal(t, sqlgen.ReasonTableNotAllowed, out.Reason)
	assert.Equal(t, "Access to table 'fee_payments' is not permitted for your role", out.Message)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "teacher", rec.events[0].Role)
	assert.Equal(t, "user-42", rec.events[0].CallerID)
}

func TestHandler_Execute_Refusal(t *testing.T) {
	h, rec := newTestHandler(t, "MISSING: Transport routes are not tracked.", nil)

	out, err := h.Execute(context.Background(), &Input{
		Question: "Which bus route is busiest?",
		TenantID: tenant,
		Role:     "admin",
	})

	require.NoError(t, err)
	assert.True(t, out.Refusal)
	assert.Equal(t, "Transport routes are not tracked.", out.Message)
	assert.Empty(t, rec.events)
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	h, _ := newTestHandler(t, "", nil)

	for name, input := range map[string]*Input{
		"missing question": {TenantID: tenant},
		"missing tenant":   {Question: "How many students?"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), input)

			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
		})
	}
}

func TestHandler_Execute_GenerationUnavailable(t *testing.T) {
	h, _ := newTestHandler(t, "", errors.New("connection refused"))

	_, err := h.Execute(context.Background(), &Input{
		Question: "How many students?",
		TenantID: tenant,
		Role:     "owner",
	})

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeGenAIUnavailable, stdErr.Code)
	assert.True(t, strings.Contains(stdErr.Details, "connection refused"))
}
