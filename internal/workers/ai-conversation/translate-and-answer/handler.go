// internal/workers/ai-conversation/translate-and-answer/handler.go
package translateandanswer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "school-query-workers/internal/common/errors"
	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/common/metrics"
	"school-query-workers/internal/common/validation"
	"school-query-workers/internal/models"
	"school-query-workers/internal/textsql/orchestrator"
)

const (
	TaskType = "translate-and-answer"
)

// Answerer runs the full question pipeline.
type Answerer interface {
	Answer(ctx context.Context, req orchestrator.AnswerRequest) (models.TextToActionResult, error)
}

type Handler struct {
	config     *Config
	answerer   Answerer
	schema     *validation.Schema
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, answerer Answerer, log logger.Logger) (*Handler, error) {
	schema, err := validation.Compile(inputSchema)
	if err != nil {
		return nil, fmt.Errorf("input schema: %w", err)
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		answerer:   answerer,
		schema:     schema,
		errHandler: apperrors.NewErrorHandler(l),
		logger:     l,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	if err := h.validate(h.schema.ValidateJSON(job.Variables)); err != nil {
		h.failJob(client, job, err)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewInvalidInputError("parse input: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) validate(result *validation.ValidationResult, err error) error {
	if err != nil {
		return apperrors.NewInvalidInputError("validation error: " + err.Error())
	}
	if !result.Valid {
		return apperrors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.answerer.Answer(ctx, orchestrator.AnswerRequest{
		Message:  input.Message,
		TenantID: input.TenantID,
		CallerID: input.CallerID,
		Role:     models.ParseRole(input.Role),
	})
	if err != nil {
		return nil, err
	}

	out := &Output{
		Success:     res.Success,
		IsDataQuery: res.IsDataQuery,
		Outcome:     res.Outcome,
		QueryType:   res.QueryType,
		Answer:      res.Answer,
		Data:        res.Data,
		RowCount:    res.RowCount,
	}
	if h.config.IncludeSQL {
		out.SQL = res.SQL
	}

	h.logger.Info("question answered", map[string]interface{}{
		"outcome":   string(res.Outcome),
		"queryType": string(res.QueryType),
		"rowCount":  res.RowCount,
	})
	return out, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// failJob throws a BPMN error. Infrastructure failures carry the generic
// apology so the flow can reply without exposing the cause.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	code := "INTERNAL_ERROR"
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()

	if code == string(apperrors.ErrCodeInvalidInput) {
		h.errHandler.HandleJobError(context.Background(), client, job, err)
		return
	}
	h.errHandler.HandleJobErrorWithMessage(context.Background(), client, job, err, orchestrator.MsgUnavailable)
}

// Execute validates input against the job schema and runs the pipeline.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := h.validate(h.schema.ValidateValue(input)); err != nil {
		return nil, err
	}
	return h.execute(ctx, input)
}
