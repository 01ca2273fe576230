// Package worker owns the per-shard aggregation state. Each worker is
// the single consumer of one inbox and the only goroutine touching its
// kline sequences and funding-rate dedup map, so none of it is locked.
package worker

import (
	"context"
	"math"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"perpx/config"
	"perpx/internal/detect"
	"perpx/internal/market"
)

// fundingState tracks the last acknowledged funding rate per symbol.
// rate follows every change above the change threshold; time advances
// only when an event is emitted, which spaces emissions at least
// funding_rate_interval apart.
type fundingState struct {
	time uint64
	rate float64
}

type Worker struct {
	id            int
	inbox         chan market.Message
	maxKlineCount int
	funding       config.FundingRateConfig
	pub           *detect.Publisher
	log           zerolog.Logger

	klines      map[string]map[market.Interval][]market.Kline
	lastFunding map[string]fundingState

	// Hooks replaced in tests. rollover receives the snapshot taken
	// before the fresh bar is appended; publish receives every event.
	rollover func(symbol string, interval market.Interval, closed []market.Kline, turnover string)
	publish  func(ev *market.Event)
}

func New(id int, inbox chan market.Message, maxKlineCount int, funding config.FundingRateConfig, pub *detect.Publisher) *Worker {
	w := &Worker{
		id:            id,
		inbox:         inbox,
		maxKlineCount: maxKlineCount,
		funding:       funding,
		pub:           pub,
		log:           log.With().Str("component", "worker").Int("shard", id).Logger(),
		klines:        make(map[string]map[market.Interval][]market.Kline),
		lastFunding:   make(map[string]fundingState),
	}
	w.rollover = w.fanOutDetectors
	w.publish = w.publishAsync
	return w
}

// Run consumes the inbox until it is closed, then drains and exits.
func (w *Worker) Run(wg *sync.WaitGroup) {
	defer wg.Done()
	w.log.Info().Msg("worker started")
	for msg := range w.inbox {
		w.handle(msg)
	}
	w.log.Info().Msg("worker stopped")
}

// handle never propagates an error: bad data is logged or defaulted,
// the loop keeps going.
func (w *Worker) handle(msg market.Message) {
	switch m := msg.(type) {
	case *market.Ticker:
		w.handleTicker(m)
	case *market.MarkPrice:
		w.handleMarkPrice(m)
	}
}

func (w *Worker) handleTicker(t *market.Ticker) {
	price := parseFloat(t.LastPrice)
	volume := parseFloat(t.Volume)

	byInterval, ok := w.klines[t.Symbol]
	if !ok {
		byInterval = make(map[market.Interval][]market.Kline, len(market.Intervals))
		w.klines[t.Symbol] = byInterval
	}

	for _, interval := range market.Intervals {
		aligned := market.AlignTs(t.EventTime, interval)
		seq := byInterval[interval]

		switch {
		case len(seq) == 0:
			seq = append(seq, market.NewKline(aligned, price, volume))
		case seq[len(seq)-1].StartTs == aligned:
			seq[len(seq)-1].Update(price, volume)
		default:
			// Rollover. Snapshot before appending so detectors see the
			// bar that just closed as the newest element.
			closed := make([]market.Kline, len(seq))
			copy(closed, seq)
			w.rollover(t.Symbol, interval, closed, t.Turnover)

			seq = append(seq, market.NewKline(aligned, price, volume))
			if len(seq) > w.maxKlineCount {
				seq = seq[1:]
			}
		}
		byInterval[interval] = seq
	}
}

func (w *Worker) handleMarkPrice(m *market.MarkPrice) {
	rate, err := strconv.ParseFloat(m.FundingRate, 64)
	if err != nil {
		w.log.Error().Err(err).Str("symbol", m.Symbol).Str("rate", m.FundingRate).Msg("funding rate parse error")
		return
	}
	if math.Abs(rate) <= w.funding.MinFundingRate {
		return
	}

	changed := false
	st, ok := w.lastFunding[m.Symbol]
	if !ok {
		w.lastFunding[m.Symbol] = fundingState{time: m.EventTime, rate: rate}
		changed = true
	} else if math.Abs(rate-st.rate) > w.funding.MinFundingRateChange {
		st.rate = rate
		if m.EventTime-st.time > w.funding.FundingRateInterval*1000 {
			st.time = m.EventTime
			changed = true
		}
		w.lastFunding[m.Symbol] = st
	}

	if changed {
		w.publish(detect.FundingRate(m.Symbol, m.EventTime, m.FundingRate, m.NextFundingTime))
	}
}

// fanOutDetectors spawns the closed-bar detectors so a slow queue write
// never stalls ingestion. Each goroutine owns its snapshot copy.
func (w *Worker) fanOutDetectors(symbol string, interval market.Interval, closed []market.Kline, turnover string) {
	go func() {
		if ev, ok := detect.VolatilitySpike(symbol, interval, closed, turnover); ok {
			w.pub.Publish(context.Background(), ev)
		}
	}()
	go func() {
		if ev, ok := detect.ConsecutiveMove(symbol, interval, closed, turnover); ok {
			w.pub.Publish(context.Background(), ev)
		}
	}()
}

func (w *Worker) publishAsync(ev *market.Event) {
	go w.pub.Publish(context.Background(), ev)
}

// parseFloat falls back to 0 on malformed exchange numbers; decode
// already succeeded, so a bad number must not kill the record.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
