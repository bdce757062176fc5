package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/chart"
	"github.com/askdb-io/askdb-engine/pkg/config"
	"github.com/askdb-io/askdb-engine/pkg/database"
	"github.com/askdb-io/askdb-engine/pkg/federation"
	"github.com/askdb-io/askdb-engine/pkg/handlers"
	"github.com/askdb-io/askdb-engine/pkg/llm"
	"github.com/askdb-io/askdb-engine/pkg/logging"
	enginemcp "github.com/askdb-io/askdb-engine/pkg/mcp"
	"github.com/askdb-io/askdb-engine/pkg/mcp/tools"
	"github.com/askdb-io/askdb-engine/pkg/middleware"
	"github.com/askdb-io/askdb-engine/pkg/registry"
	"github.com/askdb-io/askdb-engine/pkg/services"
)

// Version is set at build time via ldflags.
var Version = "dev"

// resultTTL is how long stored results stay addressable for drill-down.
const resultTTL = 30 * time.Minute

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("registry_store", cfg.Registry.Store),
		zap.String("primary_datasource", cfg.Engine.PrimaryDatasourceID),
	)

	rules, err := llm.LoadRules(cfg.Registry.RulesPath)
	if err != nil {
		logger.Fatal("Failed to load rule table", zap.Error(err))
	}

	builtins, err := registry.LoadBuiltins(cfg.Registry.BuiltinsPath)
	if err != nil {
		logger.Fatal("Failed to load built-in datasources", zap.Error(err))
	}

	var store registry.Store
	if cfg.Registry.Store == "postgres" {
		if err := database.Migrate(cfg.Database.URL(), cfg.Database.MigrationsPath, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		db, err := database.Connect(context.Background(), &cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to registry database", zap.Error(err))
		}
		defer db.Close()
		store = registry.NewPostgresStore(db)
	} else {
		store = registry.NewMemoryStore()
	}
	reg := registry.NewService(builtins, store, registry.NewVerifier(), cfg.Engine.PrimaryDatasourceID, logger)

	engine, err := federation.NewEngine(federation.Config{
		DBPath:            cfg.Engine.DBPath,
		MaxRows:           cfg.Engine.MaxRows,
		QueryTimeout:      time.Duration(cfg.Engine.QueryTimeoutMS) * time.Millisecond,
		SnapshotBatchSize: cfg.Engine.SnapshotBatchSize,
		SnapshotRowCap:    cfg.Engine.SnapshotRowCap,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open primary database", zap.Error(err))
	}
	defer func() { _ = engine.Close() }()

	model, err := llm.NewFromConfig(&cfg.LLM, rules, logger)
	if err != nil {
		logger.Fatal("Failed to build language model client", zap.Error(err))
	}
	generator := llm.NewGenerator(model, llm.NewRuleBasedClient(rules), logger)

	svc := services.NewQueryService(
		reg,
		engine,
		generator,
		chart.NewShaper(rules),
		rules,
		services.NewResultStore(resultTTL),
		services.EngineConfig{
			MaxRows:         cfg.Engine.MaxRows,
			MaxHistoryTurns: cfg.LLM.MaxHistoryTurns,
			DrilldownRowCap: cfg.Engine.DrilldownRowCap,
		},
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDatasourceHandler(reg, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(svc, logger).RegisterRoutes(mux)

	mcpServer := enginemcp.NewServer("askdb-engine", cfg.Version, logger)
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version)
	tools.RegisterDatasourceTools(mcpServer.MCP(), reg, logger)
	tools.RegisterAskTool(mcpServer.MCP(), svc, reg, logger)
	tools.RegisterRunSQLTool(mcpServer.MCP(), svc, reg, logger)
	tools.RegisterDrilldownTool(mcpServer.MCP(), svc, logger)
	mux.Handle("/mcp", middleware.MCPRequestLogger(logger)(mcpServer.NewStreamableHTTPServer()))

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting askdb-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
