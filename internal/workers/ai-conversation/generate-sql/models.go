// internal/workers/ai-conversation/generate-sql/models.go
package generatesql

import "school-query-workers/internal/models"

type Input struct {
	Question string `json:"question"`
	TenantID string `json:"tenantId"`
	Role     string `json:"role"`
	CallerID string `json:"callerId"`
}

// Output carries SQL only when it passed validation.
type Output struct {
	Success   bool             `json:"success"`
	SQL       string           `json:"sql,omitempty"`
	QueryType models.QueryType `json:"queryType,omitempty"`
	IsSafe    bool             `json:"isSafe"`
	Refusal   bool             `json:"refusal"`
	Message   string           `json:"message,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}
