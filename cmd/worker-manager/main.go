// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"school-query-workers/internal/common/aws"
	"school-query-workers/internal/common/camunda"
	"school-query-workers/internal/common/config"
	"school-query-workers/internal/common/database"
	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/common/observability"
	"school-query-workers/internal/textsql/audit"
	"school-query-workers/internal/textsql/executor"
	"school-query-workers/internal/textsql/featureflag"
	"school-query-workers/internal/textsql/genai"
	"school-query-workers/internal/textsql/orchestrator"
	"school-query-workers/internal/textsql/schema"
	"school-query-workers/internal/textsql/sqlgen"

	cq "school-query-workers/internal/workers/ai-conversation/classify-query"
	gs "school-query-workers/internal/workers/ai-conversation/generate-sql"
	taa "school-query-workers/internal/workers/ai-conversation/translate-and-answer"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("version", cfg.App.Version))

	obs := observability.New("worker-manager")
	defer obs.Shutdown()
	if cfg.Observability.TracingEnabled {
		if err := obs.EnableTracing(cfg.App.Name, cfg.Observability.JaegerEndpoint, cfg.Observability.SampleRatio); err != nil {
			zapLog.Warn("tracing disabled", zap.Error(err))
		}
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Security event sinks ---
	sinks := []audit.Sink{audit.NewIndexSink(esClient, cfg.Alerts.Index)}
	if cfg.Alerts.AWS.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Alerts.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		sinks = append(sinks, audit.NewTopicSink(snsClient, cfg.Alerts.AWS.SNS.TopicARN))
	}
	if cfg.Alerts.AWS.SES.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Alerts.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		sinks = append(sinks, audit.NewEmailSink(sesClient, cfg.Alerts.AWS.SES.FromEmail, cfg.Alerts.AWS.SES.To))
	}
	recorder := audit.NewRecorder(log, sinks...)

	// --- Text-to-SQL pipeline ---
	completer, err := genai.New(cfg.APIs.GenAI)
	if err != nil {
		zapLog.Fatal("genai client failed", zap.Error(err))
	}

	builder := schema.NewDefaultBuilder()
	catalog := builder.Catalog()
	validator := sqlgen.NewValidator(catalog, sqlgen.NewRepairer(catalog),
		sqlgen.WithMaxNestedSelects(cfg.TextToSQL.MaxNestedSelects),
		sqlgen.WithGrammarCheck(sqlgen.NewVitessChecker(), sqlgen.ParseGrammarMode(cfg.TextToSQL.GrammarCheck)),
	)
	generator := sqlgen.NewGenerator(builder, completer, validator, cfg.TextToSQL.RowLimit, log)

	exec := executor.NewPostgresExecutor(pg, cfg.TextToSQL.RowLimit,
		config.GetDuration(cfg.TextToSQL.ExecutionTimeout), log)

	flags := featureflag.NewPostgresStore(pg, redis, cfg.TextToSQL.FeatureName,
		time.Duration(cfg.TextToSQL.FeatureCacheTTL)*time.Second, log)

	service := orchestrator.NewService(orchestrator.Config{
		GenerationTimeout: config.GetDuration(cfg.APIs.GenAI.Timeout),
		TableRenderLimit:  cfg.TextToSQL.TableRenderLimit,
		Currency:          cfg.TextToSQL.Currency,
	}, orchestrator.Dependencies{
		Flags:     flags,
		Generator: generator,
		Executor:  exec,
		Completer: completer,
		Audit:     recorder,
		Obs:       obs,
	}, log)

	zapLog.Info("Text-to-SQL pipeline initialized",
		zap.String("genaiProvider", cfg.APIs.GenAI.Provider),
		zap.String("grammarCheck", cfg.TextToSQL.GrammarCheck),
		zap.Int("rowLimit", cfg.TextToSQL.RowLimit),
	)

	// --- Register Workers ---
	if wcfg := config.GetWorkerConfig(cfg, cq.TaskType); wcfg.Enabled {
		handler := cq.NewHandler(&cq.Config{Timeout: config.GetDuration(wcfg.Timeout)}, log)
		zeebe.StartWorker(cq.TaskType, wcfg, handler.Handle, obs, log)
	}

	if wcfg := config.GetWorkerConfig(cfg, gs.TaskType); wcfg.Enabled {
		handler := gs.NewHandler(&gs.Config{Timeout: config.GetDuration(wcfg.Timeout)}, generator, recorder, log)
		zeebe.StartWorker(gs.TaskType, wcfg, handler.Handle, obs, log)
	}

	if wcfg := config.GetWorkerConfig(cfg, taa.TaskType); wcfg.Enabled {
		handler, err := taa.NewHandler(&taa.Config{
			Timeout:    config.GetDuration(wcfg.Timeout),
			IncludeSQL: cfg.App.Environment != "production",
		}, service, log)
		if err != nil {
			zapLog.Fatal("failed to create translate-and-answer handler", zap.Error(err))
		}
		zeebe.StartWorker(taa.TaskType, wcfg, handler.Handle, obs, log)
	}
	zapLog.Info("All workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			status, code := "ready", http.StatusOK
			if err := zeebe.HealthCheck(ctx); err != nil {
				status, code = "zeebe unavailable", http.StatusServiceUnavailable
			} else if err := pg.Ping(ctx); err != nil {
				status, code = "postgres unavailable", http.StatusServiceUnavailable
			} else if err := redis.Ping(ctx); err != nil {
				status, code = "redis unavailable", http.StatusServiceUnavailable
			}
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]string{
				"status": status,
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
