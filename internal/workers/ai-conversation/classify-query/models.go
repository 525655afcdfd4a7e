// internal/workers/ai-conversation/classify-query/models.go
package classifyquery

type Input struct {
	Message string `json:"message"`
}

type Output struct {
	IsDataQuery    bool   `json:"isDataQuery"`
	Route          string `json:"route"`
	MatchedPattern string `json:"matchedPattern,omitempty"`
}
