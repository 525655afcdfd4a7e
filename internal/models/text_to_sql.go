// internal/models/text_to_sql.go
package models

// GenerationRequest is one question to translate, scoped to a tenant and
// the caller's role.
type GenerationRequest struct {
	Question string `json:"question"`
	TenantID string `json:"tenantId"`
	Role     Role   `json:"role"`
	CallerID string `json:"callerId,omitempty"`
}

// SQLGenerationResult is the outcome of generation, repair and validation.
// SQL is only meaningful when Success and IsSafe are both true.
type SQLGenerationResult struct {
	Success   bool      `json:"success"`
	SQL       string    `json:"sql,omitempty"`
	QueryType QueryType `json:"queryType,omitempty"`
	IsSafe    bool      `json:"isSafe"`
	Refusal   bool      `json:"refusal,omitempty"`
	Error     string    `json:"error,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Repairs   []string  `json:"repairs,omitempty"`
}

// Executable reports whether the statement may be sent to the executor.
func (r SQLGenerationResult) Executable() bool {
	return r.Success && r.IsSafe && r.SQL != ""
}

// ExecutionResult is what the executor returns for a statement that reached
// the database. Infrastructure failures are returned as errors instead.
type ExecutionResult struct {
	Success   bool                     `json:"success"`
	Columns   []string                 `json:"columns,omitempty"`
	Rows      []map[string]interface{} `json:"rows,omitempty"`
	RowCount  int                      `json:"rowCount"`
	Truncated bool                     `json:"truncated,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

// Outcome names how a question left the pipeline.
type Outcome string

const (
	OutcomeAnswered          Outcome = "answered"
	OutcomeFeatureDisabled   Outcome = "feature_disabled"
	OutcomeNotDataQuery      Outcome = "not_data_query"
	OutcomeGenerationRefused Outcome = "generation_refused"
	OutcomeUnsafeStatement   Outcome = "unsafe_statement"
	OutcomeExecutionFailed   Outcome = "execution_failed"
)

// TextToActionResult is the final answer handed back to the caller.
type TextToActionResult struct {
	Success     bool                     `json:"success"`
	IsDataQuery bool                     `json:"isDataQuery"`
	Outcome     Outcome                  `json:"outcome"`
	QueryType   QueryType                `json:"queryType,omitempty"`
	Answer      string                   `json:"answer,omitempty"`
	Data        []map[string]interface{} `json:"data,omitempty"`
	RowCount    int                      `json:"rowCount"`
	SQL         string                   `json:"sql,omitempty"`
	Error       string                   `json:"error,omitempty"`
}
