// Copyright (c) The siphond Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package admin is the daemon's own HTTP surface: a liveness probe, a
// Prometheus metrics endpoint exposing write-queue and cache counters
// (collectd_write_queue_length, collectd_write_queue_dropped,
// collectd_cache_size), and a websocket endpoint fanning out
// FAILURE/WARNING/OKAY notifications. Routing, compression, CORS and
// access logging use gorilla/mux + gorilla/handlers; the metrics
// collector follows the standard promauto/promhttp registration pattern.
package admin

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/siphond/siphond/pkg/core"
	"github.com/siphond/siphond/pkg/log"
)

// Admin is the daemon's administrative HTTP surface.
type Admin struct {
	core     *core.Core
	router   *mux.Router
	notify   *Notifier
	registry *prometheus.Registry
}

// New builds the router. Call Handler to get the http.Handler to serve,
// wrapped with the daemon's compression/CORS/logging middleware. New uses
// its own Prometheus registry rather than the global default one, so
// multiple Admin instances (as in tests) never collide on metric names.
func New(c *core.Core) *Admin {
	a := &Admin{core: c, router: mux.NewRouter(), notify: newNotifier(), registry: prometheus.NewRegistry()}

	a.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "collectd_write_queue_length",
			Help: "Current number of value lists queued for write.",
		}, func() float64 { return float64(c.Queue.Len()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "collectd_write_queue_dropped",
			Help: "Cumulative number of value lists dropped by write-queue shedding.",
		}, func() float64 { return float64(c.Queue.Dropped()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "collectd_cache_size",
			Help: "Current number of identifiers held in the value cache.",
		}, func() float64 { return float64(c.Cache.Size()) }),
	)

	a.router.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	a.router.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	a.router.HandleFunc("/ws", a.notify.handleWebsocket).Methods(http.MethodGet)

	if err := c.RegisterNotification("wsnotify", a.notify.Dispatch); err != nil {
		log.Warnf("admin: could not register websocket notification fan-out: %v", err)
	}

	return a
}

// Handler returns the fully wrapped http.Handler for the admin surface.
func (a *Admin) Handler() http.Handler {
	a.router.Use(handlers.CompressHandler)
	a.router.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))
	a.router.Use(handlers.CORS(
		handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"}),
		handlers.AllowedMethods([]string{"GET"}),
		handlers.AllowedOrigins([]string{"*"}),
	))
	return handlers.CustomLoggingHandler(io.Discard, a.router, func(_ io.Writer, params handlers.LogFormatterParams) {
		log.Debugf("%s %s (response: %d, size: %d)", params.Request.Method, params.URL.RequestURI(), params.StatusCode, params.Size)
	})
}

type healthStatus struct {
	Status     string `json:"status"`
	QueueDepth int    `json:"queue_depth"`
	CacheSize  int    `json:"cache_size"`
	Dropped    int64  `json:"dropped"`
}

func (a *Admin) handleHealthz(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(healthStatus{
		Status:     "ok",
		QueueDepth: a.core.Queue.Len(),
		CacheSize:  a.core.Cache.Size(),
		Dropped:    a.core.Queue.Dropped(),
	})
}
