package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/factory"
	"github.com/markchipman/cofoundry/internal"
	"go.uber.org/zap"
)

// Server exposes the custom entity repository over HTTP
type Server struct {
	repo   cofoundry.CustomEntityRepository
	health func(ctx context.Context) error
	mux    *http.ServeMux
}

// NewServer creates a new Server instance. health may be nil.
func NewServer(repo cofoundry.CustomEntityRepository, health func(ctx context.Context) error) *Server {
	return &Server{
		repo:   repo,
		health: health,
		mux:    http.NewServeMux(),
	}
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// definitions
	s.mux.HandleFunc("GET /api/v1/definitions", s.handleListDefinitions)
	s.mux.HandleFunc("GET /api/v1/definitions/{code}", s.handleGetDefinition)
	s.mux.HandleFunc("GET /api/v1/definitions/{code}/schema", s.handleGetDataModelSchema)
	s.mux.HandleFunc("POST /api/v1/definitions/{code}/ensure", s.handleEnsureDefinition)
	s.mux.HandleFunc("GET /api/v1/definitions/{code}/routes", s.handleRoutesByDefinition)
	s.mux.HandleFunc("GET /api/v1/definitions/{code}/entities", s.handleRenderSummariesByDefinition)
	s.mux.HandleFunc("GET /api/v1/definitions/{code}/search", s.handleSearchRenderSummaries)
	s.mux.HandleFunc("PUT /api/v1/definitions/{code}/ordering", s.handleReOrder)

	// routing
	s.mux.HandleFunc("GET /api/v1/routing-rules", s.handleRoutingRules)
	s.mux.HandleFunc("GET /api/v1/route", s.handleRouteByPath)
	s.mux.HandleFunc("GET /api/v1/path-unique", s.handlePathUnique)

	// rendering
	s.mux.HandleFunc("GET /api/v1/entities", s.handleRenderSummariesByIDs)
	s.mux.HandleFunc("GET /api/v1/entities/{id}", s.handleRenderSummary)
	s.mux.HandleFunc("GET /api/v1/entities/{id}/render", s.handleRenderDetails)
	s.mux.HandleFunc("GET /api/v1/page-blocks/{id}", s.handlePageBlockRenderDetails)

	// administration
	s.mux.HandleFunc("GET /api/v1/admin/entities", s.handleSummariesByIDs)
	s.mux.HandleFunc("GET /api/v1/admin/entities/{id}", s.handleDetails)
	s.mux.HandleFunc("GET /api/v1/admin/entities/{id}/versions", s.handleVersionSummaries)
	s.mux.HandleFunc("GET /api/v1/admin/definitions/{code}/search", s.handleSearchSummaries)

	// commands
	s.mux.HandleFunc("POST /api/v1/entities", s.handleAddEntity)
	s.mux.HandleFunc("DELETE /api/v1/entities/{id}", s.handleDeleteEntity)
	s.mux.HandleFunc("PUT /api/v1/entities/{id}/url", s.handleUpdateUrl)
	s.mux.HandleFunc("PUT /api/v1/entities/{id}/ordering-position", s.handleUpdateOrderingPosition)
	s.mux.HandleFunc("POST /api/v1/entities/{id}/publish", s.handlePublish)
	s.mux.HandleFunc("POST /api/v1/entities/{id}/unpublish", s.handleUnPublish)
	s.mux.HandleFunc("POST /api/v1/entities/{id}/draft", s.handleAddDraft)
	s.mux.HandleFunc("PUT /api/v1/entities/{id}/draft", s.handleUpdateDraft)
	s.mux.HandleFunc("DELETE /api/v1/entities/{id}/draft", s.handleDeleteDraft)
	s.mux.HandleFunc("POST /api/v1/versions/{id}/page-blocks", s.handleAddPageBlock)
	s.mux.HandleFunc("PUT /api/v1/page-blocks/{id}", s.handleUpdatePageBlock)
	s.mux.HandleFunc("POST /api/v1/page-blocks/{id}/move", s.handleMovePageBlock)
	s.mux.HandleFunc("DELETE /api/v1/page-blocks/{id}", s.handleDeletePageBlock)
}

// Handler returns the routed handler wrapped with the identity middleware.
func (s *Server) Handler() http.Handler {
	return withExecutionContext(s.mux)
}

func main() {
	storeKind := flag.String("store", getEnv("COFOUNDRY_STORE", "postgres"), "entity store: postgres or memory")
	addr := flag.String("addr", ":"+getEnv("PORT", "8080"), "listen address")
	flag.Parse()

	cfg, err := cofoundry.LoadConfigFromEnv()
	if err != nil {
		panic(err)
	}
	logger, err := factory.NewLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, shutdownTracing, err := factory.SetupTracing(ctx, cfg.Execution)
	if err != nil {
		sugar.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	defs, err := internal.LoadDefinitionRegistry(cfg.Entity.DefinitionDirectory)
	if err != nil {
		sugar.Fatalf("failed to load custom entity definitions: %v", err)
	}
	sugar.Infow("custom entity definitions loaded", "dir", cfg.Entity.DefinitionDirectory, "codes", defs.Codes())

	opts := factory.Options{Logger: logger, Tracer: tracer}
	var (
		repo   cofoundry.CustomEntityRepository
		health func(ctx context.Context) error
	)
	switch *storeKind {
	case "memory":
		repo, _, err = factory.NewMemoryRepository(defs, cfg, opts)
	case "postgres":
		pool, perr := factory.NewDatabasePool(ctx, cfg.Database)
		if perr != nil {
			sugar.Fatalf("failed to create database pool: %v", perr)
		}
		defer pool.Close()
		repo, err = factory.NewPostgresRepository(pool, defs, cfg, opts)
		health = func(ctx context.Context) error {
			return internal.PostgresHealthCheck(ctx, pool, cfg.Database.TableNames, 2*time.Second)
		}
	default:
		sugar.Fatalf("unknown store %q", *storeKind)
	}
	if err != nil {
		sugar.Fatalf("failed to build repository: %v", err)
	}

	server := NewServer(repo, health)
	server.RegisterRoutes()

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugar.Warnw("server shutdown failed", "err", err)
		}
	}()

	sugar.Infow("starting server", "addr", *addr, "store", *storeKind)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalf("server error: %v", err)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
