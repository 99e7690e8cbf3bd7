package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authapi "hubgate/cmd/internal/auth/api"
	"hubgate/cmd/internal/realtime"
)

func registerHTTP(mux *http.ServeMux, auth *authapi.Handler, ws *realtime.Gateway) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	// Sessions are in-memory and the hub is validated lazily per request,
	// so readiness has nothing stronger to check than liveness.
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	auth.Register(mux)
	mux.Handle("/ws", ws)
}
