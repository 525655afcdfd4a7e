// internal/workers/ai-conversation/translate-and-answer/config.go
package translateandanswer

import "time"

type Config struct {
	// Timeout bounds the whole pipeline; generation and execution carry
	// their own tighter deadlines.
	Timeout time.Duration
	// IncludeSQL adds the executed statement to the job output for
	// operators. It is never part of the answer text.
	IncludeSQL bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 120 * time.Second,
	}
}
