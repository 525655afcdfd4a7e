// Package sqlgen turns a question into a tenant-scoped SELECT and decides
// whether that statement is safe to run.
package sqlgen

import (
	"context"
	"strings"

	"school-query-workers/internal/common/logger"
	"school-query-workers/internal/common/metrics"
	"school-query-workers/internal/models"
	"school-query-workers/internal/textsql/genai"
	"school-query-workers/internal/textsql/schema"
)

// DefaultRowLimit is the LIMIT the prompt asks for on row-returning queries.
const DefaultRowLimit = 100

// Generator runs prompt, completion, cleanup, repair and validation for one
// question. It holds no per-request state.
type Generator struct {
	builder   *schema.Builder
	completer genai.Completer
	repairer  *Repairer
	validator *Validator
	rowLimit  int
	logger    logger.Logger
}

func NewGenerator(builder *schema.Builder, completer genai.Completer, validator *Validator, rowLimit int, log logger.Logger) *Generator {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	return &Generator{
		builder:   builder,
		completer: completer,
		repairer:  validator.repairer,
		validator: validator,
		rowLimit:  rowLimit,
		logger:    log.With(map[string]interface{}{"component": "sqlgen"}),
	}
}

// Generate produces a validated statement for req. The returned error is
// only set for infrastructure failures of the generation backend; refusals
// and unsafe statements are reported in the result.
//
// An unsafe result still carries the offending SQL so it can be audited.
// Callers must check Executable before running anything.
func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest) (models.SQLGenerationResult, error) {
	sc := g.builder.Build(req.Role, req.TenantID)
	prompt := BuildPrompt(sc, req.Question, g.rowLimit)

	raw, err := genai.Call(ctx, g.completer, genai.PurposeGenerate, prompt)
	if err != nil {
		return models.SQLGenerationResult{}, err
	}

	cleaned := CleanOutput(raw)
	if msg, refused := DetectRefusal(cleaned); refused {
		g.logger.Info("generation refused", map[string]interface{}{
			"tenantId": req.TenantID,
			"role":     req.Role.String(),
		})
		return models.SQLGenerationResult{
			Success: false,
			Refusal: true,
			Error:   msg,
		}, nil
	}

	return g.Check(cleaned, req.TenantID, sc), nil
}

// Check repairs and validates an already cleaned statement against sc.
// It is the whole post-generation path and is also used by tooling to
// vet hand-written statements.
func (g *Generator) Check(sql, tenantID string, sc *schema.SchemaContext) models.SQLGenerationResult {
	var repairs []string

	sql, substituted := SubstitutePlaceholders(sql, tenantID)
	if substituted {
		repairs = append(repairs, RepairPlaceholder)
	}
	sql, applied := g.repairer.Repair(sql, tenantID)
	repairs = append(repairs, applied...)
	for _, kind := range repairs {
		metrics.SQLRepairs.WithLabelValues(kind).Inc()
	}

	verdict := g.validator.Validate(sql, tenantID, sc)
	if !verdict.Safe {
		metrics.ValidationRejections.WithLabelValues(verdict.Reason).Inc()
		return models.SQLGenerationResult{
			Success: false,
			SQL:     sql,
			IsSafe:  false,
			Error:   verdict.Message,
			Reason:  verdict.Reason,
			Repairs: repairs,
		}
	}

	if err := g.validator.GrammarAdvisory(sql); err != nil {
		g.logger.Warn("statement passed validation but failed grammar check", map[string]interface{}{
			"tenantId": tenantID,
			"error":    err.Error(),
		})
	}

	if len(repairs) > 0 {
		g.logger.Debug("statement repaired", map[string]interface{}{
			"tenantId": tenantID,
			"repairs":  strings.Join(repairs, ","),
		})
	}

	return models.SQLGenerationResult{
		Success:   true,
		SQL:       sql,
		QueryType: ClassifyQuery(sql),
		IsSafe:    true,
		Repairs:   repairs,
	}
}

// Builder exposes the schema builder the generator renders prompts from.
func (g *Generator) Builder() *schema.Builder {
	return g.builder
}
