// internal/workers/ai-conversation/generate-sql/config.go
package generatesql

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}
