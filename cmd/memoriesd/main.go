// memoriesd is the Agentic Memories daemon: the HTTP API plus the
// scheduled intent loop, sharing one memory client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/agenticmem/agenticmem-go/pkg/core"
	"github.com/agenticmem/agenticmem-go/pkg/intent"
	intentPostgres "github.com/agenticmem/agenticmem-go/pkg/intent/postgres"
	intentSQLite "github.com/agenticmem/agenticmem-go/pkg/intent/sqlite"
	"github.com/agenticmem/agenticmem-go/pkg/server"
	"github.com/agenticmem/agenticmem-go/pkg/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a JSON config file (defaults to environment)")
	flag.Parse()

	var cfg *core.Config
	var err error
	if *configPath != "" {
		cfg, err = core.LoadConfigFromJSON(*configPath)
	} else {
		cfg, err = core.LoadConfigFromEnv()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := &telemetry.LogConfig{Service: "agentic-memories"}
	if cfg.Log != nil {
		logCfg.Level = cfg.Log.Level
		logCfg.Format = cfg.Log.Format
		logCfg.Env = cfg.Log.Env
	}
	logger, err := telemetry.NewLogger(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics := telemetry.NewMetrics()

	client, err := core.NewClient(cfg,
		core.WithLogger(logger.Named("core")),
		core.WithClientMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}
	defer func() { _ = client.Close() }()

	var intentStore intent.Store
	var scheduler *intent.Scheduler
	if cfg.Intent != nil && cfg.Intent.Enabled {
		intentStore, err = openIntentStore(cfg)
		if err != nil {
			return fmt.Errorf("init intent store: %w", err)
		}
		defer func() { _ = intentStore.Close() }()

		node, err := snowflake.NewNode(2)
		if err != nil {
			return fmt.Errorf("init snowflake node: %w", err)
		}

		executor := intent.NewMemoryExecutor(
			client.Storage(),
			client.Embedder(),
			client.Intelligence(),
			node,
			logger.Named("executor"),
		)
		conditions := intent.NewConditionChecker(client.Storage(), client.Embedder())
		scheduler = intent.NewScheduler(
			intentStore,
			executor,
			conditions,
			logger.Named("scheduler"),
			metrics,
			&intent.SchedulerConfig{
				Interval:  cfg.Intent.PollInterval,
				BatchSize: cfg.Intent.BatchSize,
			},
		)
		scheduler.Start()
		logger.Info("intent scheduler started",
			zap.Duration("poll_interval", cfg.Intent.PollInterval),
			zap.Int("batch_size", cfg.Intent.BatchSize))
	}

	addr := ":8080"
	if cfg.Server != nil && cfg.Server.Addr != "" {
		addr = cfg.Server.Addr
	}
	srv, err := server.New(&server.Config{
		Addr:    addr,
		Client:  client,
		Intents: intentStore,
		Logger:  logger.Named("http"),
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler shutdown", zap.Error(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// openIntentStore picks the intent backend: PostgreSQL when the vector
// store already runs there, a local SQLite file otherwise.
func openIntentStore(cfg *core.Config) (intent.Store, error) {
	node, err := snowflake.NewNode(3)
	if err != nil {
		return nil, err
	}

	if cfg.VectorStore.Provider == "postgres" {
		pg := cfg.VectorStore.Config
		return intentPostgres.NewStore(&intentPostgres.Config{
			Host:     stringValue(pg, "host"),
			Port:     intValue(pg, "port"),
			User:     stringValue(pg, "user"),
			Password: stringValue(pg, "password"),
			DBName:   stringValue(pg, "db_name"),
			SSLMode:  stringValue(pg, "ssl_mode"),
			Node:     node,
		})
	}

	path := "./agenticmem-intents.db"
	if cfg.Intent != nil && cfg.Intent.SQLitePath != "" {
		path = cfg.Intent.SQLitePath
	}
	return intentSQLite.NewStore(&intentSQLite.Config{Path: path, Node: node})
}

func stringValue(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// intValue accepts both int and float64, JSON decodes numbers as the
// latter.
func intValue(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
