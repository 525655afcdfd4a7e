// internal/workers/ai-conversation/translate-and-answer/handler_test.go
package translateandanswer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "school-query-workers/internal/common/errors"
	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/models"
	"school-query-workers/internal/textsql/orchestrator"
)

const tenant = "3f2b8c1e-0a4d-4e7f-9b21-5c6d7e8f9a01"

type answererStub struct {
	got    orchestrator.AnswerRequest
	calls  int
	result models.TextToActionResult
	err    error
}

func (a *answererStub) Answer(_ context.Context, req orchestrator.AnswerRequest) (models.TextToActionResult, error) {
	a.calls++
	a.got = req
	return a.result, a.err
}

func newTestHandler(t *testing.T, cfg *Config, a Answerer) *Handler {
	t.Helper()
	h, err := NewHandler(cfg, a, logger.NewTestLogger(t))
	require.NoError(t, err)
	return h
}

func TestHandler_Execute_Answered(t *testing.T) {
	stub := &answererStub{result: models.TextToActionResult{
		Success:     true,
		IsDataQuery: true,
		Outcome:     models.OutcomeAnswered,
		QueryType:   models.QueryTypeCount,
		Answer:      "You have 42 active students.",
		Data:        []map[string]interface{}{{"total": 42}},
		RowCount:    1,
		SQL:         "SELECT COUNT(*) FROM students WHERE tenant_id = '" + tenant + "'",
	}}
	h := newTestHandler(t, LoadConfig(), stub)

	out, err := h.Execute(context.Background(), &Input{
		Message:  "How many active students do we have?",
		TenantID: tenant,
		Role:     "Proprietor",
		CallerID: "user-1",
	})

	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAnswered, out.Outcome)
	assert.Equal(t, "You have 42 active students.", out.Answer)
	assert.Empty(t, out.SQL)
	assert.Equal(t, models.RoleOwner, stub.got.Role)
	assert.Equal(t, "user-1", stub.got.CallerID)
}

func TestHandler_Execute_IncludeSQL(t *testing.T) {
	stub := &answererStub{result: models.TextToActionResult{Success: true, Outcome: models.OutcomeAnswered, SQL: "SELECT 1"}}
	h := newTestHandler(t, &Config{Timeout: LoadConfig().Timeout, IncludeSQL: true}, stub)

	out, err := h.Execute(context.Background(), &Input{Message: "List classes", TenantID: tenant})

	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", out.SQL)
}

func TestHandler_Execute_UnknownRoleIsStaff(t *testing.T) {
	stub := &answererStub{result: models.TextToActionResult{Outcome: models.OutcomeNotDataQuery}}
	h := newTestHandler(t, LoadConfig(), stub)

	_, err := h.Execute(context.Background(), &Input{Message: "Hello", TenantID: tenant, Role: "bursar"})

	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, stub.got.Role)
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"empty message", &Input{TenantID: tenant}},
		{"missing tenant", &Input{Message: "How many students?"}},
		{"malformed tenant", &Input{Message: "How many students?", TenantID: "school-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &answererStub{}
			h := newTestHandler(t, LoadConfig(), stub)

			_, err := h.Execute(context.Background(), tt.input)

			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, apperrors.ErrCodeInvalidInput, stdErr.Code)
			assert.Zero(t, stub.calls)
		})
	}
}

func TestHandler_Validate_RawVariables(t *testing.T) {
	h := newTestHandler(t, LoadConfig(), &answererStub{})

	assert.NoError(t, h.validate(h.schema.ValidateJSON(`{"message":"How many students?","tenantId":"`+tenant+`","role":"teacher","processVar":1}`)))
	assert.Error(t, h.validate(h.schema.ValidateJSON(`{"message":"How many students?"}`)))
	assert.Error(t, h.validate(h.schema.ValidateJSON(`{"message":7,"tenantId":"`+tenant+`"}`)))
}

func TestHandler_Execute_InfrastructureError(t *testing.T) {
	stub := &answererStub{err: apperrors.NewExecutorUnavailableError(errors.New("dial tcp 10.0.0.5:5432: i/o timeout"))}
	h := newTestHandler(t, LoadConfig(), stub)

	_, err := h.Execute(context.Background(), &Input{Message: "How many students?", TenantID: tenant})

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, "TEXT_TO_SQL_UNAVAILABLE", apperrors.ConvertToBPMNError(stdErr).Code)
}
