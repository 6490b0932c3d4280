// ABOUTME: Gateway orchestrator that wires the store, auth, chat hub, and AI scheduler
// ABOUTME: Manages the HTTP server lifecycle and graceful shutdown

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/atendeai/chat-gateway/internal/ai"
	"github.com/atendeai/chat-gateway/internal/auth"
	"github.com/atendeai/chat-gateway/internal/chat"
	"github.com/atendeai/chat-gateway/internal/config"
	"github.com/atendeai/chat-gateway/internal/presence"
	"github.com/atendeai/chat-gateway/internal/store"
)

// schedulerDrainTimeout bounds the wait for in-flight AI jobs at shutdown.
const schedulerDrainTimeout = 30 * time.Second

// Gateway orchestrates the chat-gateway server components: the SQLite
// store, token verification, the WebSocket hub, the AI reply scheduler,
// and the admin REST surface.
type Gateway struct {
	config     *config.Config
	store      store.Store
	verifier   *auth.JWTVerifier
	presence   *presence.Registry
	hub        *chat.Hub
	scheduler  *ai.Scheduler
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the store from config, honoring the CHATGATE_DB_PATH
// override used in deployment.
func initStore(cfg *config.Config) (store.Store, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("CHATGATE_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// New assembles a gateway from config. The returned gateway is not running
// until Run is called.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	registry := presence.NewRegistry(logger)
	rooms := chat.NewRooms(logger)
	hub := chat.NewHub(verifier, st, registry, rooms, cfg.Server.AllowedOrigins, logger)

	gw := &Gateway{
		config:   cfg,
		store:    st,
		verifier: verifier,
		presence: registry,
		hub:      hub,
		logger:   logger,
	}

	if cfg.AI.Enabled {
		completer := ai.NewOpenAICompleter(ai.OpenAIConfig{
			APIKey:      cfg.AI.APIKey,
			BaseURL:     cfg.AI.BaseURL,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			MaxTokens:   cfg.AI.MaxTokens,
		})
		gw.scheduler = ai.NewScheduler(completer, st, hub, ai.Policy{
			MaxAttempts:    cfg.AI.MaxAttempts,
			RetryBackoff:   cfg.AI.RetryBackoff,
			RequestTimeout: cfg.AI.RequestTimeout,
		}, logger)
		hub.SetReplyScheduler(gw.scheduler)
		logger.Info("ai replies enabled", "model", cfg.AI.Model, "max_attempts", cfg.AI.MaxAttempts)
	} else {
		logger.Info("ai replies disabled")
	}

	mux := http.NewServeMux()
	gw.registerRoutes(mux)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// registerRoutes wires the WebSocket endpoint, health check, and the
// admin REST surface. Admin routes require a bearer token with the ADMIN
// role.
func (g *Gateway) registerRoutes(mux *http.ServeMux) {
	mux.Handle("GET /chat", g.hub)
	mux.HandleFunc("GET /healthz", g.handleHealth)

	mux.HandleFunc("GET /api/presence", auth.RequireRole(g.verifier, auth.RoleAdmin, g.handlePresenceList))
	mux.HandleFunc("GET /api/presence/{userID}", auth.RequireRole(g.verifier, auth.RoleAdmin, g.handlePresenceGet))
	mux.HandleFunc("POST /api/conversations/{id}/notify", auth.RequireRole(g.verifier, auth.RoleAdmin, g.handleNotifyConversation))
	mux.HandleFunc("POST /api/conversations/{id}/admin-message", auth.RequireRole(g.verifier, auth.RoleAdmin, g.handleAdminMessage))
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown runs Shutdown with a fresh context, since the run
// context is already canceled by the time it is needed.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown stops accepting connections, closes live clients, waits for
// in-flight AI jobs, and closes the store, in that order.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	g.hub.Shutdown()

	if g.scheduler != nil {
		errs = appendCloseError(errs, "scheduler drain", g.scheduler.Close(schedulerDrainTimeout))
	}

	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
