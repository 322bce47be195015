package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Labels.BatchSize != 50 || cfg.Labels.TokensPerMinute != 1000000 {
		t.Fatalf("unexpected label defaults %+v", cfg.Labels)
	}
	if cfg.Labels.SafetyMargin != 0.9 || cfg.Labels.CharsPerToken != 4 {
		t.Fatalf("unexpected label defaults %+v", cfg.Labels)
	}
	if cfg.Labels.Cooldown != 60*time.Second {
		t.Fatalf("unexpected cooldown %v", cfg.Labels.Cooldown)
	}
	if cfg.RootLabel != "computer science" || cfg.MaxDepth != 4 {
		t.Fatalf("unexpected taxonomy defaults %q %d", cfg.RootLabel, cfg.MaxDepth)
	}
	if cfg.Mining.MinSupportCount != 2 || cfg.Mining.MinConfidence != 0.7 || cfg.Mining.MaxItemsetSize != 5 {
		t.Fatalf("unexpected mining defaults %+v", cfg.Mining)
	}
	if cfg.Neo4j.User != "neo4j" || cfg.Neo4j.MaxPoolSize != 50 {
		t.Fatalf("unexpected neo4j defaults %+v", cfg.Neo4j)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GRAPH_BACKEND", "memory")
	t.Setenv("LABEL_BATCH_SIZE", "10")
	t.Setenv("LABEL_COOLDOWN", "2s")
	t.Setenv("NEO4J_URI", "neo4j://graph:7687")
	t.Setenv("RABBITMQ_HOST", "mq")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Labels.BatchSize != 10 || cfg.Labels.Cooldown != 2*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg.Labels)
	}
	if cfg.Neo4j.URI != "neo4j://graph:7687" {
		t.Fatalf("unexpected neo4j uri %q", cfg.Neo4j.URI)
	}
	if got := cfg.RabbitMQ.URL(); got != "amqp://guest:guest@mq:5672/" {
		t.Fatalf("unexpected amqp url %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.GraphBackend = "sqlite" }, true},
		{"postgres without url", func(c *Config) { c.GraphBackend = BackendPostgres }, true},
		{"postgres with url", func(c *Config) { c.GraphBackend = BackendPostgres; c.DatabaseURL = "postgres://x" }, false},
		{"unknown adapter", func(c *Config) { c.AI.Adapter = "bard" }, true},
		{"zero batch", func(c *Config) { c.Labels.BatchSize = 0 }, true},
		{"bad margin", func(c *Config) { c.Labels.SafetyMargin = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				GraphBackend: BackendMemory,
				AI:           AI{Adapter: "openai"},
				Labels:       Labels{BatchSize: 50, SafetyMargin: 0.9},
				Mining:       Mining{MinConfidence: 0.7},
			}
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
