// Package metrics exposes the pipeline's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// FramesDecoded counts combined-stream frames decoded, by stream name.
	FramesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perpx_frames_decoded_total",
		Help: "Market stream frames decoded, by stream name.",
	}, []string{"stream"})

	// DecodeWarnings counts frames or records dropped as undecodable.
	DecodeWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpx_decode_warnings_total",
		Help: "Frames or records dropped because they could not be decoded.",
	})

	// InboxDrops counts records dropped because a worker inbox was full.
	// Backpressure drops are deliberately not logged per message; this
	// counter carries the signal instead.
	InboxDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpx_inbox_drops_total",
		Help: "Records dropped on a full worker inbox.",
	})

	// EventsEmitted counts detection events handed to the queue, by type.
	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perpx_events_emitted_total",
		Help: "Detection events emitted, by event type.",
	}, []string{"type"})

	// QueueWriteErrors counts events lost to queue write failures.
	QueueWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perpx_queue_write_errors_total",
		Help: "Events lost because a queue write failed.",
	})
)

// Serve exposes /metrics on addr. An empty addr disables the listener.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
		}
	}()
}
