// Package orchestrator answers a question end to end: feature check,
// classification, generation, execution and synthesis. Each stage can end
// the request early with a polite answer; only infrastructure failures are
// returned as errors.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/common/metrics"
	"school-query-workers/internal/common/observability"
	"school-query-workers/internal/models"
	"school-query-workers/internal/textsql/audit"
	"school-query-workers/internal/textsql/classifier"
	"school-query-workers/internal/textsql/executor"
	"school-query-workers/internal/textsql/featureflag"
	"school-query-workers/internal/textsql/genai"
)

// AnswerRequest is one user turn.
type AnswerRequest struct {
	Message  string
	TenantID string
	CallerID string
	Role     models.Role
}

// Generator produces a validated statement for a question.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (models.SQLGenerationResult, error)
}

// SecurityRecorder receives rejected statements.
type SecurityRecorder interface {
	Record(ctx context.Context, event audit.SecurityEvent) error
}

// Config tunes the orchestrator.
type Config struct {
	GenerationTimeout time.Duration
	TableRenderLimit  int
	Currency          string
}

// Dependencies are the collaborators a Service calls.
type Dependencies struct {
	Flags     featureflag.Store
	Generator Generator
	Executor  executor.Executor
	Completer genai.Completer
	Audit     SecurityRecorder
	Obs       *observability.Observability
}

type Service struct {
	config Config
	deps   Dependencies
	logger logger.Logger
}

func NewService(cfg Config, deps Dependencies, log logger.Logger) *Service {
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 60 * time.Second
	}
	if cfg.TableRenderLimit <= 0 {
		cfg.TableRenderLimit = DefaultTableRenderLimit
	}
	if deps.Obs == nil {
		deps.Obs = observability.NewNoop()
	}
	return &Service{
		config: cfg,
		deps:   deps,
		logger: log.With(map[string]interface{}{"component": "orchestrator"}),
	}
}

// Answer runs the pipeline for req.
func (s *Service) Answer(ctx context.Context, req AnswerRequest) (models.TextToActionResult, error) {
	log := s.logger.With(map[string]interface{}{
		"tenantId": req.TenantID,
		"callerId": req.CallerID,
		"role":     req.Role.String(),
	})
	attrs := []attribute.KeyValue{
		attribute.String("tenant.id", req.TenantID),
		attribute.String("caller.role", req.Role.String()),
	}

	if !s.featureEnabled(ctx, req, log, attrs) {
		return s.finish(models.TextToActionResult{
			Outcome: models.OutcomeFeatureDisabled,
			Answer:  MsgFeatureDisabled,
		}), nil
	}

	_, end := s.deps.Obs.StartSpan(ctx, "text_to_sql.classify", attrs...)
	class := classifier.Classify(req.Message)
	end(string(class.Route))
	if !class.IsDataQuery {
		log.Debug("message routed to general support", map[string]interface{}{"pattern": class.MatchedPattern})
		return s.finish(models.TextToActionResult{Outcome: models.OutcomeNotDataQuery}), nil
	}

	gen, err := s.generate(ctx, req, attrs)
	if err != nil {
		metrics.TextToSQLRequests.WithLabelValues("error").Inc()
		return models.TextToActionResult{}, err
	}
	if !gen.Executable() {
		return s.finish(s.rejected(ctx, req, gen, log)), nil
	}

	execCtx, end := s.deps.Obs.StartSpan(ctx, "text_to_sql.execute", attrs...)
	rows, err := s.deps.Executor.Execute(execCtx, gen.SQL)
	if err != nil {
		end("error")
		metrics.TextToSQLRequests.WithLabelValues("error").Inc()
		return models.TextToActionResult{}, err
	}
	if !rows.Success {
		end("failed")
		log.Error("statement execution failed", map[string]interface{}{
			"error": rows.Error,
			"sql":   gen.SQL,
		})
		return s.finish(models.TextToActionResult{
			IsDataQuery: true,
			Outcome:     models.OutcomeExecutionFailed,
			QueryType:   gen.QueryType,
			Answer:      MsgExecutionFailed,
			Error:       "execution failed",
		}), nil
	}
	end("ok")

	answer, err := s.synthesize(ctx, req, rows, log, attrs)
	if err != nil {
		metrics.TextToSQLRequests.WithLabelValues("error").Inc()
		return models.TextToActionResult{}, err
	}
	if gen.QueryType.Tabular() && rows.RowCount > 1 {
		answer = strings.TrimSpace(answer) + "\n\n" + renderTable(rows, s.config.TableRenderLimit)
	}

	return s.finish(models.TextToActionResult{
		Success:     true,
		IsDataQuery: true,
		Outcome:     models.OutcomeAnswered,
		QueryType:   gen.QueryType,
		Answer:      answer,
		Data:        rows.Rows,
		RowCount:    rows.RowCount,
		SQL:         gen.SQL,
	}), nil
}

// featureEnabled fails closed: a store error counts as disabled.
func (s *Service) featureEnabled(ctx context.Context, req AnswerRequest, log logger.Logger, attrs []attribute.KeyValue) bool {
	ctx, end := s.deps.Obs.StartSpan(ctx, "text_to_sql.feature_check", attrs...)
	if s.deps.Flags == nil {
		end("disabled")
		return false
	}
	enabled, err := s.deps.Flags.IsEnabled(ctx, req.TenantID)
	if err != nil {
		end("error")
		log.Error("feature check failed, treating as disabled", map[string]interface{}{"error": err.Error()})
		return false
	}
	if !enabled {
		end("disabled")
		log.Info("text-to-sql not enabled for tenant", nil)
		return false
	}
	end("enabled")
	return true
}

func (s *Service) generate(ctx context.Context, req AnswerRequest, attrs []attribute.KeyValue) (models.SQLGenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()
	ctx, end := s.deps.Obs.StartSpan(ctx, "text_to_sql.generate", attrs...)

	gen, err := s.deps.Generator.Generate(ctx, models.GenerationRequest{
		Question: req.Message,
		TenantID: req.TenantID,
		Role:     req.Role,
		CallerID: req.CallerID,
	})
	switch {
	case err != nil:
		end("error")
	case gen.Refusal:
		end("refused")
	case !gen.IsSafe:
		end("unsafe")
	default:
		end("ok")
	}
	return gen, err
}

// rejected turns a refusal or an unsafe statement into the user's answer.
// Unsafe statements are recorded as security events and never shown.
func (s *Service) rejected(ctx context.Context, req AnswerRequest, gen models.SQLGenerationResult, log logger.Logger) models.TextToActionResult {
	if gen.Refusal {
		log.Info("generation refused", map[string]interface{}{"message": gen.Error})
		return models.TextToActionResult{
			IsDataQuery: true,
			Outcome:     models.OutcomeGenerationRefused,
			Answer:      gen.Error,
		}
	}

	event := audit.NewSecurityEvent(req.TenantID, req.CallerID, req.Role.String(), req.Message, gen.SQL, gen.Reason, gen.Error)
	if s.deps.Audit != nil {
		_ = s.deps.Audit.Record(ctx, event)
	} else {
		log.Warn(event.Summary(), map[string]interface{}{
			"securityEvent": true,
			"eventId":       event.ID,
			"reason":        gen.Reason,
			"detail":        gen.Error,
			"sql":           gen.SQL,
		})
	}

	return models.TextToActionResult{
		IsDataQuery: true,
		Outcome:     models.OutcomeUnsafeStatement,
		Answer:      MsgUnsafeStatement,
		Error:       gen.Error,
	}
}

// synthesize phrases rows as an answer. A failed completion is an
// infrastructure error; an answer that leaks SQL is replaced by a
// deterministic summary.
func (s *Service) synthesize(ctx context.Context, req AnswerRequest, rows models.ExecutionResult, log logger.Logger, attrs []attribute.KeyValue) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.GenerationTimeout)
	defer cancel()
	ctx, end := s.deps.Obs.StartSpan(ctx, "text_to_sql.synthesize", attrs...)

	prompt, err := buildSynthesisPrompt(req.Message, rows, s.config.Currency)
	if err != nil {
		log.Warn("synthesis prompt failed, using summary", map[string]interface{}{"error": err.Error()})
		end("fallback")
		return fallbackAnswer(req.Message, rows, s.config.Currency), nil
	}

	text, err := genai.Call(ctx, s.deps.Completer, genai.PurposeSynthesize, prompt)
	if err != nil {
		end("error")
		return "", err
	}
	if !usableAnswer(text) {
		log.Warn("synthesis unusable, using summary", map[string]interface{}{"rowCount": rows.RowCount})
		end("fallback")
		return fallbackAnswer(req.Message, rows, s.config.Currency), nil
	}

	end("ok")
	return strings.TrimSpace(text), nil
}

func (s *Service) finish(result models.TextToActionResult) models.TextToActionResult {
	metrics.TextToSQLRequests.WithLabelValues(string(result.Outcome)).Inc()
	return result
}
