// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Logger is the subset of the service logger the handler needs.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler reports a failed question job back to Zeebe: as a BPMN error
// the process model can catch, or as a failed job when the code allows
// retries.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError reports err on job. Infrastructure failures with a retry
// budget fail the job; everything else is thrown as a BPMN error.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := normalizeError(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	h.logError(job, stdErr, bpmnErr)

	if retries := retryBudget(job.Retries, bpmnErr.Retries); retries > 0 {
		h.failJob(ctx, client, job, bpmnErr, retries)
		return
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

// HandleJobErrorWithMessage throws err like HandleJobError but replaces the
// BPMN message with userMessage, which is also set as the "answer" variable.
// The original detail is only logged.
func (h *ErrorHandler) HandleJobErrorWithMessage(ctx context.Context, client worker.JobClient, job entities.Job, err error, userMessage string) {
	stdErr := normalizeError(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	h.logError(job, stdErr, bpmnErr)

	h.throwBPMNError(ctx, client, job, withUserMessage(bpmnErr, userMessage))
}

func withUserMessage(bpmnErr *BPMNError, userMessage string) *BPMNError {
	out := *bpmnErr
	out.Message = userMessage
	out.Details = ""
	out.ErrorVariables = make(map[string]interface{}, len(bpmnErr.ErrorVariables)+1)
	for k, v := range bpmnErr.ErrorVariables {
		out.ErrorVariables[k] = v
	}
	out.ErrorVariables["answer"] = userMessage
	return &out
}

// normalizeError wraps anything that is not a StandardError as INTERNAL_ERROR.
func normalizeError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// retryBudget never raises the retries Zeebe has left for the job.
func retryBudget(remaining int32, max int) int32 {
	if remaining < int32(max) {
		return remaining
	}
	return int32(max)
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int32) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(bpmnErr.Message)

	if vars, ok := errorVariablesJSON(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, err = withVars.Send(ctx)
			h.reportSend(job, "fail job", err)
			return
		}
	}
	_, err := cmd.Send(ctx)
	h.reportSend(job, "fail job", err)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, ok := errorVariablesJSON(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, err = withVars.Send(ctx)
			h.reportSend(job, "throw error", err)
			return
		}
	}
	_, err := cmd.Send(ctx)
	h.reportSend(job, "throw error", err)
}

func errorVariablesJSON(bpmnErr *BPMNError) (string, bool) {
	data, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (h *ErrorHandler) reportSend(job entities.Job, command string, err error) {
	if err == nil {
		return
	}
	h.logger.Error("zeebe command failed", map[string]interface{}{
		"command": command,
		"jobKey":  job.Key,
		"error":   err.Error(),
	})
}

// jobScope reads the tenant and caller from the job variables for logging.
// Malformed variables yield empty values.
func jobScope(variables string) (tenantID, callerID string) {
	var scope struct {
		TenantID string `json:"tenantId"`
		CallerID string `json:"callerId"`
	}
	_ = json.Unmarshal([]byte(variables), &scope)
	return scope.TenantID, scope.CallerID
}

// logError logs rejected input at Warn and everything else at Error.
func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	tenantID, callerID := jobScope(job.Variables)
	fields := map[string]interface{}{
		"jobKey":          job.Key,
		"taskType":        job.Type,
		"processInstance": job.ProcessInstanceKey,
		"tenantId":        tenantID,
		"callerId":        callerID,
		"errorCode":       string(stdErr.Code),
		"bpmnErrorCode":   bpmnErr.Code,
		"category":        GetErrorCategory(stdErr.Code),
		"details":         stdErr.Details,
		"retries":         bpmnErr.Retries,
	}
	if stdErr.Code == ErrCodeInvalidInput {
		h.logger.Warn("question job rejected", fields)
		return
	}
	h.logger.Error("question job failed", fields)
}
