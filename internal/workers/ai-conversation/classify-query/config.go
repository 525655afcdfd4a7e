// internal/workers/ai-conversation/classify-query/config.go
package classifyquery

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 2 * time.Second,
	}
}
