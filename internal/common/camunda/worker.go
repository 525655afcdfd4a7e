// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"school-query-workers/internal/common/config"
	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/common/metrics"
	"school-query-workers/internal/common/observability"
)

// HandlerFunc is the signature every worker's Handle method has.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// StartWorker opens a job worker for taskType. Disabled workers are
// logged and skipped. The returned worker is nil when nothing was opened.
func (c *Client) StartWorker(taskType string, wcfg config.WorkerConfig, handle HandlerFunc, obs *observability.Observability, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := c.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(Instrument(taskType, handle, obs))).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jobWorker
}

// Instrument wraps handle with the active-jobs gauge and the OpenTelemetry
// job counters.
func Instrument(taskType string, handle HandlerFunc, obs *observability.Observability) HandlerFunc {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		defer active.Dec()

		start := time.Now()
		handle(client, job)

		ctx := context.Background()
		obs.RecordJobProcessed(ctx, taskType)
		obs.RecordJobDuration(ctx, time.Since(start), taskType)
	}
}
