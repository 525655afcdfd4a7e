// internal/workers/ai-conversation/classify-query/handler.go
package classifyquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/common/metrics"
	"school-query-workers/internal/textsql/classifier"
)

const (
	TaskType = "classify-query"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
)

// Handler routes a chat message either to the data query flow or to
// general support.
type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Debug("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, fmt.Errorf("%w: %v", ErrInvalidInput, err))
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

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	c := classifier.Classify(input.Message)

	h.logger.Debug("message classified", map[string]interface{}{
		"route":   string(c.Route),
		"pattern": c.MatchedPattern,
	})

	return &Output{
		IsDataQuery:    c.IsDataQuery,
		Route:          string(c.Route),
		MatchedPattern: c.MatchedPattern,
	}, nil
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
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":    job.Key,
		"error":     err.Error(),
		"errorCode": ErrInvalidInput.Error(),
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, ErrInvalidInput.Error()).Inc()

	_, _ = client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(ErrInvalidInput.Error()).
		ErrorMessage(err.Error()).
		Send(context.Background())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
