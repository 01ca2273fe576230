// Package detect implements the closed-bar detectors. Each detector is
// a pure function over an immutable kline snapshot; the worker spawns
// them after a rollover so they never stall the ingest loop.
package detect

import "perpx/internal/market"

const (
	// minAmplitude is the absolute amplitude floor below which a bar is
	// treated as flat noise.
	minAmplitude = 0.0001
	// spikeFactor is how far the closed bar's amplitude must exceed the
	// average of the three bars before it.
	spikeFactor = 2.0
	// spikeBars is the minimum sequence length: three history bars plus
	// the bar that just closed.
	spikeBars = 4
)

// VolatilitySpike checks whether the most recently closed bar's range
// is an outlier against the three bars before it. klines is the
// snapshot taken at rollover, oldest first, with the closed bar last.
func VolatilitySpike(symbol string, interval market.Interval, klines []market.Kline, turnover string) (*market.Event, bool) {
	n := len(klines)
	if n < spikeBars {
		return nil, false
	}

	history := klines[n-4 : n-1]
	current := klines[n-1]

	// Division guard: the exchange should never report a zero open, but
	// a NaN amplitude must not reach the queue.
	if current.Open == 0 {
		return nil, false
	}
	currentAmp := (current.High - current.Low) / current.Open

	var sum float64
	for _, k := range history {
		if k.Open == 0 {
			return nil, false
		}
		sum += (k.High - k.Low) / k.Open
	}
	avgPrevAmp := sum / float64(len(history))

	direction := -1
	if current.Close > history[len(history)-1].Close {
		direction = 1
	}

	if currentAmp <= minAmplitude || currentAmp <= avgPrevAmp*spikeFactor {
		return nil, false
	}

	return &market.Event{
		Symbol:    symbol,
		EventType: market.EventVolatilitySpike,
		Period:    interval.String(),
		Value: map[string]interface{}{
			"amplitude":     currentAmp,
			"avg_amplitude": avgPrevAmp,
			"volume":        current.Volume,
			"turnover":      turnover,
			"direction":     direction,
		},
		Timestamp: current.StartTs,
	}, true
}
