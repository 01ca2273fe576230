package detect

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"perpx/internal/market"
	"perpx/internal/metrics"
	"perpx/internal/queue"
)

// EventQueue is the durable queue detection events are pushed onto.
const EventQueue = "events"

// Publisher serializes events and hands them to the durable queue. It
// is shared by every worker and detector goroutine; the underlying
// redis client is safe for concurrent use.
type Publisher struct {
	queue *queue.RedisQueue
	log   zerolog.Logger
}

func NewPublisher(q *queue.RedisQueue) *Publisher {
	return &Publisher{
		queue: q,
		log:   log.With().Str("component", "detect").Logger(),
	}
}

// Publish pushes one event. A queue write failure is logged and the
// event is lost; staleness dominates reliability here, so there is no
// retry.
func (p *Publisher) Publish(ctx context.Context, ev *market.Event) {
	body, err := ev.JSON()
	if err != nil {
		p.log.Error().Err(err).Str("symbol", ev.Symbol).Msg("failed to serialize event")
		return
	}

	metrics.EventsEmitted.WithLabelValues(string(ev.EventType)).Inc()
	p.log.Info().RawJSON("event", body).Msg("new event")

	if err := p.queue.Push(ctx, EventQueue, string(body), 0); err != nil {
		metrics.QueueWriteErrors.Inc()
		p.log.Error().Err(err).Str("symbol", ev.Symbol).Str("type", string(ev.EventType)).Msg("failed to push event")
	}
}
