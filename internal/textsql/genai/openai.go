package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"school-query-workers/internal/common/config"
	commonhttp "school-query-workers/internal/common/http"
)

// OpenAIClient calls any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *commonhttp.Client
}

func NewOpenAIClient(cfg config.GenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      commonhttp.NewClient(time.Duration(cfg.Timeout) * time.Millisecond),
	}, nil
}

func (o *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": o.temperature,
	}
	if o.maxTokens > 0 {
		payload["max_tokens"] = o.maxTokens
	}

	resp, err := o.client.PostJSON(ctx, o.baseURL+"/v1/chat/completions", payload, map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	})
	if err != nil {
		return "", classify(ctx, err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", classify(ctx, fmt.Errorf("decode chat completion response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty chat completion choices", ErrUnavailable)
	}
	return parsed.Choices[0].Message.Content, nil
}

var _ Completer = (*OpenAIClient)(nil)
