package server

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/brettbedarf/sandboxfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unknownCommandLabel keeps the command label bounded for arbitrary input
const unknownCommandLabel = "unknown"

// Metrics holds the gateway's Prometheus collectors on a private registry
type Metrics struct {
	registry        *prometheus.Registry
	commands        []string
	commandsTotal   *prometheus.CounterVec
	fileWritesTotal *prometheus.CounterVec
	sessionsCreated prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors. commands are the names counted under
// their own label; activeSessions reports the live session count on scrape.
func NewMetrics(commands []string, activeSessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		commands: commands,
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_commands_total",
				Help: "Total number of submitted command lines",
			},
			[]string{"command", "status"},
		),
		fileWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_file_writes_total",
				Help: "Total number of files created or overwritten by redirection",
			},
			[]string{"op"},
		),
		sessionsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandbox_sessions_created_total",
				Help: "Total number of sessions created",
			},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "sandbox_sessions_active",
			Help: "Number of live sessions",
		},
		func() float64 { return float64(activeSessions()) },
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Notify implements [sandboxfs.Observer] so the metrics can subscribe to sessions
func (m *Metrics) Notify(ev sandboxfs.Event) {
	switch e := ev.(type) {
	case sandboxfs.EventSubmitted:
		status := "ok"
		if e.Failed {
			status = "error"
		}
		m.commandsTotal.WithLabelValues(m.commandLabel(e.Entry.Command), status).Inc()
	case sandboxfs.EventWritten:
		m.fileWritesTotal.WithLabelValues(string(e.Change.Op)).Inc()
	case sandboxfs.EventCleared:
		m.commandsTotal.WithLabelValues("clear", "ok").Inc()
	}
}

func (m *Metrics) sessionCreated() {
	m.sessionsCreated.Inc()
}

func (m *Metrics) observeRequest(method, route string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(method, route, http.StatusText(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) commandLabel(line string) string {
	fields := strings.Fields(line)
	if len(fields) > 0 && slices.Contains(m.commands, fields[0]) {
		return fields[0]
	}
	return unknownCommandLabel
}
