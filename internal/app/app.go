// Package app wires configuration, graph store, model client, lease locker
// and object storage into the services shared by the worker, the HTTP server
// and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/scholargraph/backend/internal/config"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/observability"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/storage"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/timing"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/util"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/ai"
	oai "github.com/OFFIS-RIT/scholargraph/backend/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/scholargraph/backend/pkg/ai/openai"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/canon"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger/console"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/logger/jsonlog"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store"
	"github.com/OFFIS-RIT/scholargraph/backend/pkg/store/memory"
	neo4jstore "github.com/OFFIS-RIT/scholargraph/backend/pkg/store/neo4j"
	pgxstore "github.com/OFFIS-RIT/scholargraph/backend/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App holds the long lived dependencies of a process.
type App struct {
	Config *config.Config
	Store  store.GraphStore
	AI     ai.GraphAIClient
	Locker leaselock.Locker
	// Objects is nil when S3 is not configured.
	Objects *storage.Client

	pool *pgxpool.Pool
}

// InitLogger installs the logger selected by LOG_FORMAT: "json" for zerolog
// lines, "logfmt" for key=value lines, anything else for colored console text.
func InitLogger(cfg *config.Config, service string) {
	if cfg.LogFormat == "json" {
		logger.Init(jsonlog.NewJSONLogger(jsonlog.JSONLoggerParams{
			Debug:   cfg.Debug,
			Service: service,
		}))
		return
	}
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  cfg.Debug,
		Logfmt: cfg.LogFormat == "logfmt",
		Prefix: service,
	}))
}

// New connects everything cfg asks for. PostgreSQL is opened whenever
// DATABASE_URL is set: it backs the postgres graph store and the lease
// locker. Without it an in-process locker is used.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	canon.SetRootLabel(cfg.RootLabel)
	a := &App{Config: cfg}

	if cfg.DatabaseURL != "" {
		if err := util.RetryErrWithContext(ctx, 3, func(context.Context) error {
			return pgxstore.Migrate(cfg.DatabaseURL)
		}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.pool = pool
		a.Locker = leaselock.New(pool)
	} else {
		a.Locker = leaselock.NewLocal()
	}

	graph, err := a.openStore(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Store = graph

	client, err := NewAIClient(cfg.AI)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.AI = client

	if cfg.S3.Enabled() {
		objects, err := storage.NewClient(ctx, cfg.S3)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.Objects = objects
	}

	logger.Info("[App] Initialized",
		"graph_backend", cfg.GraphBackend,
		"ai_adapter", cfg.AI.Adapter,
		"s3", a.Objects != nil,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.GraphStore, error) {
	cfg := a.Config
	switch cfg.GraphBackend {
	case config.BackendPostgres:
		return pgxstore.NewGraphDBStorageWithConnection(a.pool), nil
	case config.BackendMemory:
		logger.Warn("[App] Using the in-memory graph store, nothing is persisted")
		return memory.New(), nil
	default:
		client, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) (*neo4jstore.Client, error) {
			return neo4jstore.NewClient(ctx, neo4jstore.ClientParams{
				URI:         cfg.Neo4j.URI,
				User:        cfg.Neo4j.User,
				Password:    cfg.Neo4j.Password,
				Database:    cfg.Neo4j.Database,
				Timeout:     time.Duration(cfg.Neo4j.TimeoutSeconds) * time.Second,
				MaxPoolSize: cfg.Neo4j.MaxPoolSize,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
		}
		return neo4jstore.NewGraphNeo4jStorage(ctx, client), nil
	}
}

// NewAIClient builds the configured adapter behind a paced, observed client.
func NewAIClient(cfg config.AI) (ai.GraphAIClient, error) {
	var inner ai.GraphAIClient
	switch cfg.Adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:             cfg.ChatModel,
			Temperature:           cfg.Temperature,
			BaseURL:               cfg.ChatURL,
			ApiKey:                cfg.ChatKey,
			MaxConcurrentRequests: int64(cfg.ParallelRequests),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		inner = client
	default:
		inner = gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel:   cfg.ChatModel,
			Temperature: cfg.Temperature,
			ChatURL:     cfg.ChatURL,
			ChatKey:     cfg.ChatKey,
		})
	}
	return ai.NewPacedClient(inner, cfg.RequestsPerMinute, observability.ObserveLLM), nil
}

// Close releases every connection. It is safe on a partially built App.
func (a *App) Close(ctx context.Context) {
	if a.Store != nil {
		if err := a.Store.Close(ctx); err != nil {
			logger.Warn("[App] Failed to close graph store", "err", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// LogAIMetrics logs and resets the token usage of the model client.
func (a *App) LogAIMetrics() {
	metrics := a.AI.GetMetrics()
	observability.LLMTokens.WithLabelValues("input").Add(float64(metrics.InputTokens))
	observability.LLMTokens.WithLabelValues("output").Add(float64(metrics.OutputTokens))
	logger.Info(
		"AI Metrics",
		"input_tokens", metrics.InputTokens,
		"output_tokens", metrics.OutputTokens,
		"total_tokens", metrics.TotalTokens,
		"duration", timing.FormatDuration(time.Duration(metrics.DurationMs)*time.Millisecond),
	)
	a.AI.ResetMetrics()
}
