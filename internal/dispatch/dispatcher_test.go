package dispatch

import (
	"testing"

	"perpx/internal/market"
)

func TestShardStability(t *testing.T) {
	for _, symbol := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "DOGEUSDT"} {
		first := Shard(symbol, 4)
		for i := 0; i < 100; i++ {
			if got := Shard(symbol, 4); got != first {
				t.Fatalf("%s: shard changed from %d to %d", symbol, first, got)
			}
		}
		if first < 0 || first >= 4 {
			t.Errorf("%s: shard %d out of range", symbol, first)
		}
	}
}

func TestSameSymbolSameWorker(t *testing.T) {
	inboxes := make([]chan market.Message, 4)
	for i := range inboxes {
		inboxes[i] = make(chan market.Message, 16)
	}
	d := New(inboxes)

	// Tickers and mark prices for one symbol must land on one inbox.
	for i := 0; i < 5; i++ {
		d.Dispatch(&market.Ticker{Symbol: "BTCUSDT"})
		d.Dispatch(&market.MarkPrice{Symbol: "BTCUSDT"})
	}

	owner := Shard("BTCUSDT", 4)
	if got := len(inboxes[owner]); got != 10 {
		t.Errorf("owner inbox holds %d messages, want 10", got)
	}
	for i, inbox := range inboxes {
		if i != owner && len(inbox) != 0 {
			t.Errorf("inbox %d holds %d stray messages", i, len(inbox))
		}
	}
}

func TestDispatchDropsOnFullInbox(t *testing.T) {
	inboxes := []chan market.Message{make(chan market.Message, 1)}
	d := New(inboxes)

	if !d.Dispatch(&market.Ticker{Symbol: "BTCUSDT"}) {
		t.Fatal("first dispatch should succeed")
	}
	if d.Dispatch(&market.Ticker{Symbol: "BTCUSDT"}) {
		t.Fatal("dispatch into a full inbox should drop")
	}
	if len(inboxes[0]) != 1 {
		t.Errorf("inbox holds %d messages, want 1", len(inboxes[0]))
	}
}
