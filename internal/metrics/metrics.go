// Package metrics 收集同步引擎的 prometheus 指標
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ama_events_applied_total",
		Help: "Events folded into the room cache, by kind.",
	}, []string{"kind"})

	EventsBuffered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ama_events_buffered_total",
		Help: "Events held back because the room snapshot had not landed yet.",
	})

	FramesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ama_frames_dropped_total",
		Help: "Stream frames dropped without being applied, by reason.",
	}, []string{"reason"})

	SnapshotLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ama_snapshot_loads_total",
		Help: "Room snapshot loads, by result.",
	}, []string{"result"})

	Reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ama_stream_reconnects_total",
		Help: "Successful stream redials after a dropped connection.",
	})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ama_active_sessions",
		Help: "Rooms with an open event stream.",
	})

	MutationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ama_mutation_errors_total",
		Help: "Failed upstream mutations, by operation.",
	}, []string{"op"})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ama_http_requests_total",
		Help: "Local API requests, by route and status.",
	}, []string{"route", "status"})
)

func init() {
	prometheus.MustRegister(
		EventsApplied,
		EventsBuffered,
		FramesDropped,
		SnapshotLoads,
		Reconnects,
		ActiveSessions,
		MutationErrors,
		HTTPRequests,
	)
}
