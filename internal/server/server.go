// Package server wires the Pulse services together behind one HTTP
// server. In docker store mode it also owns the metricsdb container
// lifecycle, starting it on server start and stopping it on shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/config"
	"github.com/creatorpulse/pulse/internal/docstore"
	"github.com/creatorpulse/pulse/internal/jobs"
	"github.com/creatorpulse/pulse/internal/media"
	"github.com/creatorpulse/pulse/internal/notify"
	"github.com/creatorpulse/pulse/internal/reaper"
	"github.com/creatorpulse/pulse/internal/scrape"
	"github.com/creatorpulse/pulse/internal/server/endpoints"
	"github.com/creatorpulse/pulse/internal/session"
	"github.com/creatorpulse/pulse/internal/svcctx"
	"github.com/creatorpulse/pulse/internal/syncer"
	"github.com/creatorpulse/pulse/internal/videostore"
)

const storeReadyTimeout = 60 * time.Second

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8480)
	Port string

	Store  config.StoreConfig
	Queue  config.QueueConfig
	Reaper config.ReaperConfig
	Media  config.MediaConfig

	// Scrapers configures the provider registry per platform.
	Scrapers map[string]scrape.ProviderConfig

	// WorkerSecret authorizes scheduled dispatch and sweep calls.
	WorkerSecret string

	// ConfigManager provides configuration with hot-reload support.
	// Optional; when set, scraper config changes apply live.
	ConfigManager *config.Manager

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// FromConfig builds a server Config from the application configuration.
func FromConfig(c *config.Config) Config {
	return Config{
		Host:         c.Server.Host,
		Port:         c.Server.Port,
		Store:        c.Store,
		Queue:        c.Queue,
		Reaper:       c.Reaper,
		Media:        c.Media,
		Scrapers:     c.EnabledScrapers(),
		WorkerSecret: c.ResolvedWorkerSecret(),
	}
}

// Server is the main Pulse HTTP server.
type Server struct {
	cfg      Config
	registry *scrape.Registry
	logger   *slog.Logger

	// storeManager is non-nil only in docker store mode.
	storeManager *docstore.DockerManager
	store        docstore.Store

	dispatcher *jobs.Dispatcher
	reaper     *reaper.Reaper

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	httpServer *http.Server

	// baseCtx outlives request contexts; accepted jobs run on it.
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.RWMutex
	running bool
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8480"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Store.Mode == "" {
		cfg.Store.Mode = "docker"
	}

	s := &Server{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: scrape.NewRegistry(),
	}
	s.registry.SetLogger(cfg.Logger)
	s.registry.Reload(cfg.Scrapers)

	// Watch for config changes
	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			s.registry.Reload(c.EnabledScrapers())
			cfg.Logger.Info("scraper registry reloaded from config")
		})
	}

	if cfg.Store.Mode == "docker" {
		manager, err := docstore.NewDockerManager(docstore.DockerConfig{
			ContainerName: cfg.Store.ContainerName,
			Image:         cfg.Store.Image,
			HostPort:      cfg.Store.Port,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create store manager: %w", err)
		}
		s.storeManager = manager
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{StoreManager: s.storeManager}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // dispatch waits for the sync
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Bootstrap connects the document store and builds all services. It is
// called by Start; tests call it directly and drive the handler through
// httptest instead of a listening socket.
func (s *Server) Bootstrap(ctx context.Context) error {
	store, err := s.connectStore(ctx)
	if err != nil {
		return err
	}
	s.store = store

	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())

	var rehoster *media.Rehoster
	if s.cfg.Media.BaseURL != "" {
		rehoster = media.NewRehoster(media.NewMemoryObjectStore(s.cfg.Media.BaseURL), s.logger)
	}

	acctStore := accounts.NewStore(store, s.logger)
	engine := videostore.NewEngine(store, rehoster, s.logger)
	notifier := notify.NewLogNotifier(s.logger)
	sessions := session.NewAggregator(store, notifier, s.logger)
	coordinator := syncer.NewCoordinator(acctStore, engine, s.registry, sessions, s.logger)
	jobStore := jobs.NewStore(store, s.logger)
	s.dispatcher = jobs.NewDispatcher(s.baseCtx, jobStore, syncer.NewExecutor(coordinator),
		s.cfg.Queue.ConcurrencyLimit, s.cfg.Queue.MaxAttempts, s.logger)

	s.reaper = reaper.New(acctStore, engine, s.dispatcher, reaper.Config{
		VideoTimeout:   s.cfg.Reaper.VideoTimeout,
		AccountTimeout: s.cfg.Reaper.AccountTimeout,
		Interval:       s.cfg.Reaper.Interval,
		SweepInterval:  s.cfg.Queue.SweepInterval,
	}, s.logger)

	s.services = &svcctx.Services{
		Store:        store,
		Accounts:     acctStore,
		Engine:       engine,
		JobStore:     jobStore,
		Dispatcher:   s.dispatcher,
		Sessions:     sessions,
		Coordinator:  coordinator,
		Registry:     s.registry,
		Config:       s.cfg.ConfigManager,
		Logger:       s.logger,
		WorkerSecret: s.cfg.WorkerSecret,
	}

	return nil
}

// connectStore brings up the document store per the configured mode.
func (s *Server) connectStore(ctx context.Context) (docstore.Store, error) {
	switch s.cfg.Store.Mode {
	case "memory":
		s.logger.Info("using in-memory document store")
		return docstore.NewMemoryStore(), nil

	case "external":
		if s.cfg.Store.URL == "" {
			return nil, errors.New("store.url is required in external mode")
		}
		client := docstore.NewClient(s.cfg.Store.URL)
		if err := client.WaitReady(ctx, storeReadyTimeout); err != nil {
			return nil, fmt.Errorf("external store not ready: %w", err)
		}
		s.logger.Info("connected to external document store", "url", s.cfg.Store.URL)
		return client, nil

	case "docker":
		// Validate any existing container matches our config
		if err := s.storeManager.ValidateExisting(ctx); err != nil {
			return nil, fmt.Errorf("existing metricsdb container incompatible: %w", err)
		}
		s.logger.Info("starting metricsdb")
		if err := s.storeManager.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start metricsdb: %w", err)
		}
		client := docstore.NewClient(s.storeManager.URL())
		if err := client.WaitReady(ctx, storeReadyTimeout); err != nil {
			return nil, fmt.Errorf("metricsdb not ready: %w", err)
		}
		s.logger.Info("metricsdb is ready", "url", s.storeManager.URL())
		return client, nil

	default:
		return nil, fmt.Errorf("unknown store mode: %s", s.cfg.Store.Mode)
	}
}

// Start starts the server and its document store. It blocks until the
// context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Bootstrap(ctx); err != nil {
		s.setNotRunning()
		return err
	}

	if err := s.reaper.Start(s.baseCtx); err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to start reaper: %w", err)
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown stops the HTTP server, drains in-flight jobs, and stops the
// document store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.reaper != nil {
		s.reaper.Stop()
	}

	// Let running jobs finish before the store goes away.
	if s.dispatcher != nil {
		s.logger.Info("waiting for in-flight jobs")
		s.dispatcher.Wait()
	}
	if s.baseCancel != nil {
		s.baseCancel()
	}

	if s.storeManager != nil {
		s.logger.Info("stopping metricsdb")
		if err := s.storeManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("metricsdb stop error", "error", err)
		}
		if err := s.storeManager.Close(); err != nil {
			s.logger.Error("metricsdb manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Store returns the document store. Nil before Bootstrap.
func (s *Server) Store() docstore.Store {
	return s.store
}

// Dispatcher returns the job dispatcher. Nil before Bootstrap.
func (s *Server) Dispatcher() *jobs.Dispatcher {
	return s.dispatcher
}

// Registry returns the scraper registry.
func (s *Server) Registry() *scrape.Registry {
	return s.registry
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or dispatcher aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil || s.dispatcher == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
