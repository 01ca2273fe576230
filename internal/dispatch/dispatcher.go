// Package dispatch routes decoded records to the worker shard that owns
// their symbol.
package dispatch

import (
	"github.com/cespare/xxhash/v2"

	"perpx/internal/market"
	"perpx/internal/metrics"
)

// Shard maps a symbol to a worker index. xxhash is deterministic across
// restarts, so a symbol always lands on the same worker.
func Shard(symbol string, workerCount int) int {
	return int(xxhash.Sum64String(symbol) % uint64(workerCount))
}

// Dispatcher fans records out to bounded worker inboxes. The inbox
// slice is shared read-only after construction.
type Dispatcher struct {
	inboxes []chan market.Message
}

func New(inboxes []chan market.Message) *Dispatcher {
	return &Dispatcher{inboxes: inboxes}
}

// Dispatch forwards a record to its shard without blocking. When the
// inbox is full the record is dropped: a stale tick is worthless, and
// blocking here would push backpressure into the websocket reader.
// Returns false on a drop.
func (d *Dispatcher) Dispatch(msg market.Message) bool {
	inbox := d.inboxes[Shard(msg.MessageSymbol(), len(d.inboxes))]
	select {
	case inbox <- msg:
		return true
	default:
		metrics.InboxDrops.Inc()
		return false
	}
}
