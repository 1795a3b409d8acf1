package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/config"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type pendingCounter interface {
	CountPending(maxAttempts int) (int64, error)
}

func newRouter(cfg *config.Config, logg *logger.Logger, database, cache pinger, pending pendingCounter, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(logg))
	r.Use(requestLogging(logg))
	r.Get("/healthz", healthz(cfg, logg, database, cache, pending))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

func healthz(cfg *config.Config, logg *logger.Logger, database, cache pinger, pending pendingCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		err := multierr.Combine(database.Ping(ctx), cache.Ping(ctx))
		if err != nil {
			logg.WarnErr(logg.WithField(ctx, "path", r.URL.Path), "health check failed", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"errors": errorStrings(err),
			})
			return
		}

		body := map[string]any{"status": "ok", "env": cfg.App.Env}
		if count, err := pending.CountPending(cfg.Outbox.MaxAttempts); err == nil {
			body["pending"] = count
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func errorStrings(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
