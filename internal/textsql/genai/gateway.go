package genai

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"mime"
	"strings"

	"school-query-workers/internal/common/config"
	commonhttp "school-query-workers/internal/common/http"
)

// GatewayClient calls the platform AI gateway's /api/ai/generate endpoint.
// The endpoint streams server-sent events (or newline-delimited JSON) when
// asked to and falls back to a single JSON object otherwise.
type GatewayClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *commonhttp.Client
}

func NewGatewayClient(cfg config.GenAIConfig) *GatewayClient {
	return &GatewayClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		// no client timeout, the caller's context bounds the call
		client: commonhttp.NewClient(0),
	}
}

type gatewayChunk struct {
	Text    string `json:"text"`
	Delta   string `json:"delta"`
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

func (c gatewayChunk) piece() string {
	switch {
	case c.Delta != "":
		return c.Delta
	case c.Text != "":
		return c.Text
	default:
		return c.Content
	}
}

func (g *GatewayClient) Complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  g.maxTokens,
		"temperature": g.temperature,
		"stream":      true,
	}
	if g.model != "" {
		requestBody["model"] = g.model
	}

	headers := map[string]string{"Accept": "text/event-stream, application/json"}
	if g.apiKey != "" {
		headers["Authorization"] = "Bearer " + g.apiKey
	}

	resp, err := g.client.PostJSON(ctx, g.baseURL+"/api/ai/generate", requestBody, headers)
	if err != nil {
		return "", classify(ctx, err)
	}
	defer resp.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	var text string
	switch mediaType {
	case "text/event-stream", "application/x-ndjson", "application/jsonl":
		text, err = drainStream(resp.Body)
	default:
		text, err = decodeSingle(resp.Body)
	}
	if err != nil {
		return "", classify(ctx, err)
	}
	return text, nil
}

// drainStream accumulates every chunk until [DONE] or EOF.
func drainStream(body io.Reader) (string, error) {
	var sb strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") || strings.HasPrefix(line, "event:") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == "[DONE]" {
			break
		}

		var chunk gatewayChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			// plain text frame
			sb.WriteString(line)
			continue
		}
		sb.WriteString(chunk.piece())
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func decodeSingle(body io.Reader) (string, error) {
	var chunk gatewayChunk
	if err := json.NewDecoder(body).Decode(&chunk); err != nil {
		return "", err
	}
	return chunk.piece(), nil
}

var _ Completer = (*GatewayClient)(nil)
