// Package app wires the hubgate runtime: config, logging, the hub client,
// the session store, HTTP routes, and the WebSocket gateway.
package app

import (
	"context"
	"errors"
	"net/http"

	"hubgate/cmd/internal/auth/activity"
	authapi "hubgate/cmd/internal/auth/api"
	"hubgate/cmd/internal/auth/hub"
	"hubgate/cmd/internal/auth/session"
	"hubgate/cmd/internal/metrics"
	"hubgate/cmd/internal/realtime"
)

// App owns the long-lived pieces of the server and their shutdown order.
type App struct {
	cfg Config
	log Logger

	store    *session.Store
	hub      *hub.Client
	activity *activity.Reporter
	auth     *authapi.Handler
	ws       *realtime.Gateway
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	hubCfg, err := hub.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}

	m := metrics.Default()
	store := session.NewStore()
	metrics.RegisterSessionGauge(store.Len)

	hubClient := hub.NewClient(hubCfg, log, m)

	reporter := activity.New(activity.LoadConfigFromEnv(), log, m)
	if reporter.Enabled() {
		log.Info("activity.enabled")
	} else {
		log.Info("activity.disabled", "reason", "no activity url configured")
	}

	authCfg := authapi.LoadConfigFromEnv()
	authHandler := authapi.NewHandler(log, authCfg, hubClient, store, reporter, m)

	ws := realtime.NewGateway(log, hubClient, store, authCfg.CookieName, nil, m)

	return &App{
		cfg:      cfg,
		log:      log,
		store:    store,
		hub:      hubClient,
		activity: reporter,
		auth:     authHandler,
		ws:       ws,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.auth, a.ws)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: a.cfg.ReadHeaderTimeout,
		ReadTimeout:       a.cfg.ReadTimeout,
		WriteTimeout:      a.cfg.WriteTimeout,
		IdleTimeout:       a.cfg.IdleTimeout,
		MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	// In-flight activity reports are abandoned past a short grace period;
	// heartbeats are best-effort by contract.
	a.activity.Close()
	a.hub.CloseIdleConnections()

	a.log.Info("server.stopped")
	return nil
}
