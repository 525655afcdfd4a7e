// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	APIs          APIsConfig              `mapstructure:"apis"`
	TextToSQL     TextToSQLConfig         `mapstructure:"text_to_sql"`
	Alerts        AlertsConfig            `mapstructure:"alerts"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI GenAIConfig `mapstructure:"genai"`
}

// GenAIConfig selects and configures the text generation backend.
// Provider is "gateway" (platform /api/ai/generate) or "openai"
// (any chat-completions compatible endpoint).
type GenAIConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// TextToSQLConfig tunes the question-to-SQL pipeline.
type TextToSQLConfig struct {
	FeatureName      string `mapstructure:"feature_name"`
	FeatureCacheTTL  int    `mapstructure:"feature_cache_ttl"` // seconds
	RowLimit         int    `mapstructure:"row_limit"`
	MaxNestedSelects int    `mapstructure:"max_nested_selects"`
	TableRenderLimit int    `mapstructure:"table_render_limit"`
	GrammarCheck     string `mapstructure:"grammar_check"` // off | advisory | enforce
	Currency         string `mapstructure:"currency"`
	ExecutionTimeout int    `mapstructure:"execution_timeout"` // milliseconds
}

// AlertsConfig holds the destinations for rejected-statement security events.
type AlertsConfig struct {
	Index string `mapstructure:"index"`
	AWS   struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
		SES struct {
			Enabled   bool     `mapstructure:"enabled"`
			FromEmail string   `mapstructure:"from_email"`
			To        []string `mapstructure:"to"`
		} `mapstructure:"ses"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ObservabilityConfig holds tracing settings.
type ObservabilityConfig struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
