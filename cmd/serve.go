package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"mcpgateway/internal/aggregator"
	"mcpgateway/internal/auth"
	"mcpgateway/internal/config"
	"mcpgateway/internal/gateway"
	"mcpgateway/internal/metrics"
	"mcpgateway/internal/sdkcompat"
	"mcpgateway/internal/session"
	"mcpgateway/internal/store"
	"mcpgateway/internal/upstream"
	"mcpgateway/internal/watcher"
	"mcpgateway/pkg/logging"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway",
	Long: `serve loads the gateway and upstream configuration, connects to every
enabled upstream, and starts the HTTP endpoint that aggregates their tools
behind session- and API-key-scoped access.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", "", "configuration directory (default $HOME/.config/mcpgateway)")
}

// emptyKeySource is the auth.KeySource used when no DatabaseURL is
// configured: there is nowhere to read keys from, so every bearer-token
// request fails closed (unless AuthBypass is set).
type emptyKeySource struct{}

func (emptyKeySource) ActiveKeys() ([]auth.APIKey, error) { return nil, nil }
func (emptyKeySource) TouchLastUsed(string)               {}

func runServe(cmd *cobra.Command, args []string) error {
	configPath := serveConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.AuthBypass && !cfg.Dev {
		return errors.New("authBypass may only be set when dev is true")
	}

	manager := config.NewManager(configPath)
	if err := manager.Load(); err != nil {
		return fmt.Errorf("load upstream definitions: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var keySource auth.KeySource = emptyKeySource{}
	var audit auth.Sink = auth.NoopSink{}
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		if err := store.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		keySource = store.NewPgKeySource(pool)
		audit = store.NewPgTrafficSink(pool)
	} else {
		logging.Warn("Serve", "no databaseUrl configured; running with no persisted api keys or traffic log")
	}

	authr := auth.NewAuthenticator(keySource, cfg.AuthBypass)
	metricsInst := metrics.New()
	catalog := aggregator.NewCatalog()
	sessions := session.NewStore(cfg.SessionIdleTimeout, cfg.SessionCleanupInterval, 0)
	defer sessions.Stop()

	hooks := gateway.NewEventHooks(catalog, sessions, metricsInst)
	registry := upstream.NewRegistry(hooks.AsRegistryEvents())
	hooks.Registry = registry
	defer registry.Shutdown()

	sdk := sdkcompat.New(catalog, registry)
	hooks.OnCatalogChanged = sdk.Sync

	registry.LoadFromManager(ctx, manager)

	gw := gateway.NewServer(registry, catalog, sessions, authr, audit, metricsInst)
	gw.Handle("/metrics", promhttp.HandlerFor(metricsInst.Registry(), promhttp.HandlerOpts{}))

	var devWatcher *watcher.Watcher
	if cfg.Watch {
		w, err := watcher.New(watcher.RegistryAdapter{Registry: registry})
		if err != nil {
			logging.Warn("Serve", "failed to start dev-watcher: %v", err)
		} else {
			for _, def := range manager.List() {
				if len(def.WatchPaths) == 0 {
					continue
				}
				if err := w.Watch(def); err != nil {
					logging.Warn("Serve", "failed to watch paths for %s: %v", def.ID, err)
				}
			}
			w.Start(ctx)
			devWatcher = w
		}
	}
	if devWatcher != nil {
		defer devWatcher.Stop()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           gw,
		ReadHeaderTimeout: 10 * time.Second,
	}
	sdkAddr := fmt.Sprintf("%s:%d", cfg.Host, cfg.SDKCompatPort)
	sdkServer := &http.Server{
		Addr:              sdkAddr,
		Handler:           sdk.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 2)
	go func() {
		logging.Info("Serve", "gateway listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("gateway endpoint: %w", err)
			return
		}
		serveErr <- nil
	}()
	go func() {
		logging.Info("Serve", "sdk-compatibility listener on %s", sdkAddr)
		if err := sdkServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("sdk-compatibility listener: %w", err)
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logging.Info("Serve", "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var shutdownErr error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("gateway shutdown: %w", err)
		}
		if err := sdkServer.Shutdown(shutdownCtx); err != nil && shutdownErr == nil {
			shutdownErr = fmt.Errorf("sdk-compatibility shutdown: %w", err)
		}
		return shutdownErr
	case err := <-serveErr:
		return err
	}
}
