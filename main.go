// MediaWiki Session MCP Server - A Model Context Protocol server backed by
// one authenticated MediaWiki API session
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olgasafonova/mediawiki-session/internal/config"
	"github.com/olgasafonova/mediawiki-session/tools"
	"github.com/olgasafonova/mediawiki-session/tracing"
	"github.com/olgasafonova/mediawiki-session/wiki"
)

const (
	ServerName    = "mediawiki-session"
	ServerVersion = "1.0.0"
)

const serverInstructions = `MediaWiki Session provides tools for reading and editing one MediaWiki wiki through a single logged-in session.

Available tools:
- wiki_get_page: Read a page's wikitext (it becomes the current page)
- wiki_edit_page: Replace, append to, or prepend to a page (requires credentials)
- wiki_get_recent_changes: Page through the recent-changes feed
- wiki_get_random_pages: Pick random page titles
- wiki_fetch_edit_token: Refresh the session's edit token

Configure via environment variables (or a .env file):
- MEDIAWIKI_URL: Wiki API URL (e.g., https://wiki.example.com/w/api.php)
- MEDIAWIKI_USERNAME / MEDIAWIKI_PASSWORD: Bot credentials (for editing)
- MEDIAWIKI_USER_AGENT, MEDIAWIKI_TIMEOUT, MEDIAWIKI_MAX_RETRIES: Transport tuning
- METRICS_ADDR: Serve Prometheus metrics on this address (e.g., :9090)`

func main() {
	// stdout carries the MCP protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	shutdownTracing, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("Tracing shutdown failed", "error", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		metricsServer := newMetricsServer(cfg.MetricsAddr)
		go func() {
			logger.Info("Serving metrics", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	session, err := wiki.New(&cfg.Wiki, wiki.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	if cfg.HasCredentials() {
		if err := session.Login(ctx, cfg.Username, cfg.Password); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
	} else {
		logger.Warn("No credentials configured; editing will be rejected by the wiki")
	}

	server := newServer(session, logger)

	logger.Info("Starting MediaWiki Session MCP Server",
		"name", ServerName,
		"version", ServerVersion,
		"wiki_url", cfg.Wiki.Endpoint,
		"session_id", session.ID(),
	)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newServer builds the MCP server with every tool bound to session
func newServer(session *wiki.Session, logger *slog.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: serverInstructions,
	})

	tools.NewHandlerRegistry(session, logger).RegisterAll(server)
	return server
}

// newMetricsServer exposes /metrics and a /health check
func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
