// internal/workers/ai-conversation/generate-sql/handler.go
package generatesql

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "school-query-workers/internal/common/errors"
	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/common/metrics"
	"school-query-workers/internal/models"
	"school-query-workers/internal/textsql/audit"
)

const (
	TaskType = "generate-sql"
)

// SQLGenerator turns a question into a validated statement.
type SQLGenerator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (models.SQLGenerationResult, error)
}

// SecurityRecorder receives statements the validator rejected.
type SecurityRecorder interface {
	Record(ctx context.Context, event audit.SecurityEvent) error
}

type Handler struct {
	config     *Config
	generator  SQLGenerator
	recorder   SecurityRecorder
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, generator SQLGenerator, recorder SecurityRecorder, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		generator:  generator,
		recorder:   recorder,
		errHandler: apperrors.NewErrorHandler(l),
		logger:     l,
	}
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, apperrors.NewInvalidInputError("question is required")
	}
	if strings.TrimSpace(input.TenantID) == "" {
		return nil, apperrors.NewInvalidInputError("tenantId is required")
	}

	role := models.ParseRole(input.Role)
	res, err := h.generator.Generate(ctx, models.GenerationRequest{
		Question: input.Question,
		TenantID: input.TenantID,
		Role:     role,
		CallerID: input.CallerID,
	})
	if err != nil {
		return nil, err
	}

	if res.Executable() {
		h.logger.Info("statement generated", map[string]interface{}{
			"queryType": string(res.QueryType),
			"repairs":   res.Repairs,
		})
		return &Output{
			Success:   true,
			SQL:       res.SQL,
			QueryType: res.QueryType,
			IsSafe:    true,
		}, nil
	}

	if res.Refusal {
		return &Output{Refusal: true, Message: res.Error}, nil
	}

	if h.recorder != nil {
		event := audit.NewSecurityEvent(input.TenantID, input.CallerID, role.String(), input.Question, res.SQL, res.Reason, res.Error)
		_ = h.recorder.Record(ctx, event)
	}
	return &Output{Message: res.Error, Reason: res.Reason}, nil
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	code := "INTERNAL_ERROR"
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		code = string(stdErr.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errHandler.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
