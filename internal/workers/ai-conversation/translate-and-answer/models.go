// internal/workers/ai-conversation/translate-and-answer/models.go
package translateandanswer

import "school-query-workers/internal/models"

type Input struct {
	Message  string `json:"message"`
	TenantID string `json:"tenantId"`
	Role     string `json:"role,omitempty"`
	CallerID string `json:"callerId,omitempty"`
}

type Output struct {
	Success     bool                     `json:"success"`
	IsDataQuery bool                     `json:"isDataQuery"`
	Outcome     models.Outcome           `json:"outcome"`
	QueryType   models.QueryType         `json:"queryType,omitempty"`
	Answer      string                   `json:"answer,omitempty"`
	Data        []map[string]interface{} `json:"data,omitempty"`
	RowCount    int                      `json:"rowCount"`
	SQL         string                   `json:"sql,omitempty"`
}

// inputSchema is checked against the raw job variables before decoding.
const inputSchema = `{
  "type": "object",
  "required": ["message", "tenantId"],
  "properties": {
    "message":  {"type": "string", "minLength": 1, "maxLength": 2000},
    "tenantId": {"type": "string", "pattern": "^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$"},
    "role":     {"type": "string"},
    "callerId": {"type": "string"}
  }
}`
