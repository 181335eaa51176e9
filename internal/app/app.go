package app

import (
	"log/slog"
	"net/http"

	"diary_console/internal/config"
	"diary_console/internal/gateway"
	"diary_console/internal/lib/logger/sl"
	"diary_console/internal/metrics"
	"diary_console/internal/session"
	"diary_console/internal/store"

	"github.com/prometheus/client_golang/prometheus"
)

// App wires the console together: config -> gateway -> store -> session.
type App struct {
	Log     *slog.Logger
	Cfg     *config.Config
	Gateway *gateway.Client
	Store   *store.Store
	Session *session.Service

	registry *prometheus.Registry
}

func New(log *slog.Logger, cfg *config.Config) *App {
	var rec metrics.Recorder = metrics.Noop{}
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		rec = metrics.NewCollector(registry)
	}

	tokens := session.NewTokenFile(cfg.Auth.TokenFile)
	gw := gateway.New(log, cfg.API, tokens, rec)
	st := store.New(log, gw, rec, cfg.Defaults, cfg.AI.SuggestionTTL)
	sess := session.New(log, tokens, gw)

	return &App{
		Log:      log,
		Cfg:      cfg,
		Gateway:  gw,
		Store:    st,
		Session:  sess,
		registry: registry,
	}
}

// StartMetrics exposes /metrics when enabled. Returns immediately.
func (a *App) StartMetrics() {
	if a.registry == nil {
		return
	}

	go func() {
		a.Log.Info("metrics listening", slog.String("addr", a.Cfg.Metrics.Addr))
		if err := http.ListenAndServe(a.Cfg.Metrics.Addr, metrics.Handler(a.registry)); err != nil {
			a.Log.Error("metrics listener stopped", sl.Err(err))
		}
	}()
}
