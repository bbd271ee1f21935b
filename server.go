package runbook

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/runbookhq/core/cache"
	"github.com/runbookhq/core/config"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/database/memory"
	"github.com/runbookhq/core/database/postgresql"
	"github.com/runbookhq/core/database/sqlite"
	"github.com/runbookhq/core/function"
	"github.com/runbookhq/core/logger"
	"github.com/runbookhq/core/scheduler"
	"github.com/runbookhq/core/search"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const serverVersion = "1.0.0"

// Server wires the catalog, the sandbox engine and the tool surface
// together from one configuration.
type Server struct {
	Config   config.AppConfig
	DB       database.Persister
	Volatile cache.Volatilizer
	Engine   *function.Engine
	Search   *search.Search
	Maint    *scheduler.Maintenance
	Log      *logger.Logger

	mcpsvr *mcp.Server
}

// New initializes the core services based on the configuration received.
func New(cfg config.AppConfig) (*Server, error) {
	s := &Server{Config: cfg}

	s.Log = logger.Get(cfg)

	if len(cfg.RedisURL) > 0 || len(cfg.RedisHost) > 0 {
		s.Volatile = cache.NewCache(cfg, s.Log)
	} else {
		s.Volatile = cache.NewDevCache()
	}

	publish := func(evt cache.FunctionEvent) {
		if err := s.Volatile.PublishFunction(evt); err != nil {
			s.Log.Warn().Err(err).Msg("could not publish function event")
		}
	}

	db, err := openDataStore(cfg, publish, s.Log)
	if err != nil {
		return nil, err
	}
	s.DB = db

	idx, err := search.New(cfg.SearchIndexPath)
	if err != nil {
		return nil, err
	}
	s.Search = idx

	contexts := function.NewContextBuilder(cfg, nil, s.Log)
	timeout := time.Duration(cfg.ExecTimeoutSeconds) * time.Second
	s.Engine = function.NewEngine(s.DB, s.Volatile, contexts, timeout, s.Log)

	s.Maint = scheduler.New(s.DB, s.Search, s.Log)

	// the index starts empty on boot while the catalog may not
	s.Maint.Reindex()

	s.mcpsvr = mcp.NewServer(&mcp.Implementation{
		Name:    "runbook",
		Version: serverVersion,
	}, nil)
	s.registerTools()

	return s, nil
}

func openDataStore(cfg config.AppConfig, publish cache.PublishFunctionEvent, log *logger.Logger) (database.Persister, error) {
	switch strings.ToLower(cfg.DataStore) {
	case database.DataStoreMemory:
		return memory.New(cfg.MaxFunctions, publish), nil
	case database.DataStorePostgreSQL:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return postgresql.New(db, cfg.MaxFunctions, publish, log)
	default:
		if dir := filepath.Dir(cfg.StoragePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}

		db, err := sql.Open("sqlite", cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return sqlite.New(db, cfg.MaxFunctions, publish, log)
	}
}

// Start serves the tool surface on the configured transport and blocks
// until the context is canceled or a stop signal arrives.
func (s *Server) Start(ctx context.Context) error {
	s.Maint.Start()
	defer s.Maint.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		select {
		case <-c:
			cancel()
		case <-ctx.Done():
		}
	}()

	if s.Config.Transport == config.TransportHTTP {
		return s.serveHTTP(ctx)
	}

	s.Log.Info().Msg("serving tools on stdio")
	return s.mcpsvr.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) serveHTTP(ctx context.Context) error {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.Ping(); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Write([]byte("ok"))
	})

	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpsvr
	}, nil))

	httpsvr := &http.Server{
		Addr:    ":" + s.Config.Port,
		Handler: r,
	}

	s.Log.Info().Msgf("serving tools on http port %s", s.Config.Port)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpsvr.ListenAndServe()
	})
	g.Go(func() error {
		<-gCtx.Done()
		return httpsvr.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
