// Package server wires the geovisor HTTP surface: the Huma REST API, the
// Datastar SSE handlers, the map page, static assets and metrics.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/geovisor/internal/api"
	"github.com/joeblew999/geovisor/internal/api/geovisor"
	"github.com/joeblew999/geovisor/internal/db"
	"github.com/joeblew999/geovisor/internal/humastar"
	"github.com/joeblew999/geovisor/internal/logger"
	"github.com/joeblew999/geovisor/internal/metrics"
	"github.com/joeblew999/geovisor/internal/service"
	"github.com/joeblew999/geovisor/internal/templates"
	"github.com/joeblew999/geovisor/web"
)

// Session housekeeping.
const (
	pruneEvery     = time.Minute
	defaultMaxIdle = 30 * time.Minute
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	DataURL string // GeoJSON source: http(s) URL or path relative to DataDir
	WebDir  string // Serve templates and static files from disk instead of the embedded copy
	DBName  string // DuckDB file name under DataDir/duckdb; empty disables the attribute store
	MaxIdle time.Duration
}

// Server is the geovisor HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	links    *humastar.Links
	db       *sql.DB
	bus      *service.EventBus
	data     *service.DataService
	sessions *service.SessionStore
	renderer *templates.Renderer
	webFS    fs.FS

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new geovisor server. Call Start to begin loading data.
func New(cfg Config) (*Server, error) {
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = defaultMaxIdle
	}

	mux := http.NewServeMux()
	links := humastar.NewLinks()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("geovisor API", api.Version)
	humaConfig.Info.Description = "Aquifer vulnerability geovisor: layer data, styles and the Datastar endpoints behind the map page."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())

	var webFS fs.FS = web.FS
	if cfg.WebDir != "" {
		webFS = os.DirFS(cfg.WebDir)
	}
	renderer, err := templates.New(webFS, "templates/*.html", "templates/fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	bus := service.NewEventBus()
	data := service.NewDataService(cfg.DataDir, cfg.DataURL, bus)

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		links:    links,
		bus:      bus,
		data:     data,
		sessions: service.NewSessionStore(data, service.DefaultMapConfig),
		renderer: renderer,
		webFS:    webFS,
	}

	if cfg.DBName != "" {
		conn, err := db.Open(db.Config{DataDir: cfg.DataDir, DBName: cfg.DBName, Extensions: []string{"spatial"}})
		if err != nil {
			logger.L().Warn("duckdb_unavailable", "err", err)
		} else {
			s.db = conn
		}
	}

	if err := s.routes(); err != nil {
		return nil, err
	}
	s.handler = logger.AccessMiddleware(logger.L())(mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Data returns the data service.
func (s *Server) Data() *service.DataService {
	return s.data
}

// Sessions returns the session store.
func (s *Server) Sessions() *service.SessionStore {
	return s.sessions
}

// Start loads the layer in the background and starts pruning idle sessions.
// Both stop when ctx is done or Close is called.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.data.Load(ctx); err != nil {
			return
		}
		if s.db == nil {
			return
		}
		if err := db.SyncFeatures(ctx, s.db, s.data.Layer()); err != nil {
			logger.L().Error("duckdb_sync_failed", "err", err)
			return
		}
		logger.L().Info("duckdb_synced", "table", db.FeaturesTable, "rows", s.data.Layer().Len())
	}()

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(pruneEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.sessions.Prune(s.config.MaxIdle); n > 0 {
					logger.L().Debug("sessions_pruned", "count", n, "live", s.sessions.Len())
				}
			}
		}
	}()
}

// Close stops background work and closes server resources.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) routes() error {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(&api.Services{
		Data:   s.data,
		Config: service.DefaultMapConfig,
	}))
	api.NewInfoHandler(s.config.DataDir, s.data, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Datastar SSE routes behind the map page
	gv := geovisor.New(s.data, s.sessions, s.bus, s.renderer, service.DefaultMapConfig)
	gv.RegisterRoutes(s.humaAPI)

	s.links.Build(s.humaAPI, geovisor.Tag)

	static, err := fs.Sub(s.webFS, "static")
	if err != nil {
		return fmt.Errorf("static files: %w", err)
	}
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	s.mux.Handle("GET /metrics", metrics.Handler())

	// Page routes
	page := s.withRootLinks(gv.Page(humastar.DiscoverRoutes(s.humaAPI, geovisor.Tag)))
	s.mux.Handle("GET /{$}", page)
	s.mux.Handle("GET /geovisor", page)
	return nil
}

// withRootLinks adds the API entry point links to a non-Huma handler.
func (s *Server) withRootLinks(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, l := range s.links.Root() {
			w.Header().Add("Link", l)
		}
		next.ServeHTTP(w, r)
	})
}
