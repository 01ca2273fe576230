package detect

import (
	"math"
	"testing"

	"perpx/internal/market"
)

// barWithAmplitude builds a bar whose (high-low)/open equals amp.
func barWithAmplitude(startTs uint64, amp, close float64) market.Kline {
	return market.Kline{
		Open:    100,
		High:    100 + 100*amp,
		Low:     100,
		Close:   close,
		Volume:  10,
		StartTs: startTs,
	}
}

func TestVolatilitySpikeEmits(t *testing.T) {
	// Three calm bars, then a closed bar ten times their range.
	klines := []market.Kline{
		barWithAmplitude(1_700_000_100_000, 0.001, 100),
		barWithAmplitude(1_700_000_400_000, 0.001, 100),
		barWithAmplitude(1_700_000_700_000, 0.001, 100),
		barWithAmplitude(1_700_001_000_000, 0.010, 101),
	}

	ev, ok := VolatilitySpike("BTCUSDT", market.Min5, klines, "12345.6")
	if !ok {
		t.Fatal("expected a spike event")
	}

	if ev.EventType != market.EventVolatilitySpike {
		t.Errorf("event type = %s", ev.EventType)
	}
	if ev.Period != "5m" {
		t.Errorf("period = %q, want 5m", ev.Period)
	}
	if ev.Timestamp != 1_700_001_000_000 {
		t.Errorf("timestamp = %d, want start of the closed bar", ev.Timestamp)
	}

	amp := ev.Value["amplitude"].(float64)
	avg := ev.Value["avg_amplitude"].(float64)
	if math.Abs(amp-0.010) > 1e-12 {
		t.Errorf("amplitude = %v, want 0.010", amp)
	}
	if math.Abs(avg-0.001) > 1e-12 {
		t.Errorf("avg_amplitude = %v, want 0.001", avg)
	}
	if ev.Value["direction"].(int) != 1 {
		t.Errorf("direction = %v, want 1 (close above previous close)", ev.Value["direction"])
	}
	if ev.Value["turnover"].(string) != "12345.6" {
		t.Errorf("turnover not carried verbatim: %v", ev.Value["turnover"])
	}
}

func TestVolatilitySpikeDownDirection(t *testing.T) {
	klines := []market.Kline{
		barWithAmplitude(1, 0.001, 100),
		barWithAmplitude(2, 0.001, 100),
		barWithAmplitude(3, 0.001, 100),
		barWithAmplitude(4, 0.010, 99),
	}

	ev, ok := VolatilitySpike("BTCUSDT", market.Min5, klines, "1")
	if !ok {
		t.Fatal("expected a spike event")
	}
	if ev.Value["direction"].(int) != -1 {
		t.Errorf("direction = %v, want -1", ev.Value["direction"])
	}
}

func TestVolatilitySpikeTooFewBars(t *testing.T) {
	klines := []market.Kline{
		barWithAmplitude(1, 0.001, 100),
		barWithAmplitude(2, 0.001, 100),
		barWithAmplitude(3, 0.010, 100),
	}
	if _, ok := VolatilitySpike("BTCUSDT", market.Min5, klines, "1"); ok {
		t.Error("three bars must not emit: detector needs four")
	}
}

func TestVolatilitySpikeBelowThresholds(t *testing.T) {
	// Exactly double the average is not strictly greater than 2x.
	klines := []market.Kline{
		barWithAmplitude(1, 0.001, 100),
		barWithAmplitude(2, 0.001, 100),
		barWithAmplitude(3, 0.001, 100),
		barWithAmplitude(4, 0.002, 101),
	}
	if _, ok := VolatilitySpike("BTCUSDT", market.Min5, klines, "1"); ok {
		t.Error("amplitude equal to 2x average must not emit")
	}

	// A large relative jump still below the absolute floor stays quiet.
	quiet := []market.Kline{
		barWithAmplitude(1, 0.000001, 100),
		barWithAmplitude(2, 0.000001, 100),
		barWithAmplitude(3, 0.000001, 100),
		barWithAmplitude(4, 0.00005, 101),
	}
	if _, ok := VolatilitySpike("BTCUSDT", market.Min5, quiet, "1"); ok {
		t.Error("amplitude below the absolute floor must not emit")
	}
}

func TestVolatilitySpikeZeroOpenGuard(t *testing.T) {
	klines := []market.Kline{
		barWithAmplitude(1, 0.001, 100),
		{Open: 0, High: 1, Low: 0, Close: 0, StartTs: 2},
		barWithAmplitude(3, 0.001, 100),
		barWithAmplitude(4, 0.010, 101),
	}
	if _, ok := VolatilitySpike("BTCUSDT", market.Min5, klines, "1"); ok {
		t.Error("zero open in history must suppress the event, not emit NaN")
	}

	current := []market.Kline{
		barWithAmplitude(1, 0.001, 100),
		barWithAmplitude(2, 0.001, 100),
		barWithAmplitude(3, 0.001, 100),
		{Open: 0, High: 1, Low: 0, Close: 1, StartTs: 4},
	}
	if _, ok := VolatilitySpike("BTCUSDT", market.Min5, current, "1"); ok {
		t.Error("zero open in the closed bar must suppress the event")
	}
}
