// Package config holds the typed process configuration read from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/util"

	"github.com/caarlos0/env/v11"
)

const (
	BackendNeo4j    = "neo4j"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Debug     bool   `env:"DEBUG" envDefault:"false"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	Port      string `env:"PORT" envDefault:"8080"`
	APIKey    string `env:"API_KEY"`

	GraphBackend string `env:"GRAPH_BACKEND" envDefault:"neo4j"`
	DatabaseURL  string `env:"DATABASE_URL"`
	Neo4j        Neo4j  `envPrefix:"NEO4J_"`

	RabbitMQ RabbitMQ `envPrefix:"RABBITMQ_"`
	S3       S3       `envPrefix:"AWS_"`
	AI       AI       `envPrefix:"AI_"`

	RootLabel string        `env:"ROOT_LABEL" envDefault:"computer science"`
	MaxDepth  int           `env:"MAX_DEPTH" envDefault:"4"`
	LeaseTTL  time.Duration `env:"TAXONOMY_LEASE_TTL" envDefault:"5m"`

	Labels      Labels      `envPrefix:"LABEL_"`
	Mining      Mining      `envPrefix:"MINING_"`
	Combination Combination `envPrefix:"COMBINATION_"`
	Matching    Matching    `envPrefix:"MATCH_"`
}

type Neo4j struct {
	URI            string `env:"URI" envDefault:"bolt://localhost:7687"`
	User           string `env:"USER" envDefault:"neo4j"`
	Password       string `env:"PASSWORD"`
	Database       string `env:"DATABASE"`
	TimeoutSeconds int    `env:"TIMEOUT_SECONDS" envDefault:"10"`
	MaxPoolSize    int    `env:"MAX_POOL_SIZE" envDefault:"50"`
}

type RabbitMQ struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5672"`
	User     string `env:"USER" envDefault:"guest"`
	Password string `env:"PASSWORD" envDefault:"guest"`
}

// URL returns the AMQP connection string.
func (r RabbitMQ) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Password, r.Host, r.Port)
}

type S3 struct {
	Endpoint  string `env:"ENDPOINT"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET"`
}

// Enabled reports whether enough is configured to talk to S3.
func (s S3) Enabled() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

type AI struct {
	Adapter           string  `env:"ADAPTER" envDefault:"openai"`
	ChatURL           string  `env:"CHAT_URL"`
	ChatKey           string  `env:"CHAT_KEY"`
	ChatModel         string  `env:"CHAT_MODEL" envDefault:"gpt-4.1-mini"`
	Temperature       float64 `env:"TEMPERATURE" envDefault:"0"`
	ParallelRequests  int     `env:"PARALLEL_REQ" envDefault:"4"`
	RequestsPerMinute int     `env:"REQUESTS_PER_MINUTE" envDefault:"0"`
	MaxAttempts       int     `env:"MAX_ATTEMPTS" envDefault:"3"`
}

// Labels configures the batch label validator.
type Labels struct {
	BatchSize       int           `env:"BATCH_SIZE" envDefault:"50"`
	TokensPerMinute int           `env:"TOKENS_PER_MINUTE" envDefault:"1000000"`
	SafetyMargin    float64       `env:"SAFETY_MARGIN" envDefault:"0.9"`
	CharsPerToken   int           `env:"CHARS_PER_TOKEN" envDefault:"4"`
	PromptTokens    int           `env:"PROMPT_TOKENS" envDefault:"200"`
	Cooldown        time.Duration `env:"COOLDOWN" envDefault:"60s"`
	MaxAttempts     int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	Tokenizer       string        `env:"TOKENIZER" envDefault:"chars"`
}

type Mining struct {
	MinSupportCount int     `env:"MIN_SUPPORT_COUNT" envDefault:"2"`
	MinConfidence   float64 `env:"MIN_CONFIDENCE" envDefault:"0.7"`
	MaxItemsetSize  int     `env:"MAX_ITEMSET_SIZE" envDefault:"5"`
}

type Combination struct {
	MaxK   int  `env:"MAX_K" envDefault:"3"`
	Repair bool `env:"REPAIR" envDefault:"true"`
}

type Matching struct {
	MinConfidence float64 `env:"MIN_CONFIDENCE" envDefault:"0.9"`
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	util.LoadEnv()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the process cannot run with.
func (c *Config) Validate() error {
	switch c.GraphBackend {
	case BackendNeo4j, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("unknown GRAPH_BACKEND %q", c.GraphBackend)
	}
	if c.GraphBackend == BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	switch c.AI.Adapter {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown AI_ADAPTER %q", c.AI.Adapter)
	}
	if c.Labels.BatchSize <= 0 {
		return fmt.Errorf("LABEL_BATCH_SIZE must be positive")
	}
	if c.Labels.SafetyMargin <= 0 || c.Labels.SafetyMargin > 1 {
		return fmt.Errorf("LABEL_SAFETY_MARGIN must be in (0, 1]")
	}
	if c.Mining.MinConfidence < 0 || c.Mining.MinConfidence > 1 {
		return fmt.Errorf("MINING_MIN_CONFIDENCE must be in [0, 1]")
	}
	return nil
}
