package market

import "encoding/json"

// Ticker is a single entry of the !ticker@arr stream. Price and volume
// fields stay as the exchange's decimal strings; parsing to float64 is
// deferred to the worker so a malformed number never fails the decode.
type Ticker struct {
	EventType string `json:"e"`
	EventTime uint64 `json:"E"`
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
	Volume    string `json:"Q"` // quantity traded at the last price
	Turnover  string `json:"q"` // 24h rolling notional turnover
}

// MarkPrice is a single entry of the !markPrice@arr stream.
type MarkPrice struct {
	EventType       string `json:"e"`
	EventTime       uint64 `json:"E"`
	Symbol          string `json:"s"`
	FundingRate     string `json:"r"`
	NextFundingTime uint64 `json:"T"`
}

// Message is a record bound for a worker inbox: either a *Ticker or a
// *MarkPrice. Workers dispatch on the concrete type.
type Message interface {
	MessageSymbol() string
}

func (t *Ticker) MessageSymbol() string    { return t.Symbol }
func (m *MarkPrice) MessageSymbol() string { return m.Symbol }

// Interval is one of the four aggregation timeframes.
type Interval int

const (
	Min5 Interval = iota
	Min15
	Hour1
	Hour4
)

// Intervals lists every timeframe a ticker is aggregated into.
var Intervals = [4]Interval{Min5, Min15, Hour1, Hour4}

// Seconds returns the interval length in seconds.
func (i Interval) Seconds() uint64 {
	switch i {
	case Min5:
		return 300
	case Min15:
		return 900
	case Hour1:
		return 3600
	case Hour4:
		return 14400
	}
	return 0
}

func (i Interval) String() string {
	switch i {
	case Min5:
		return "5m"
	case Min15:
		return "15m"
	case Hour1:
		return "1h"
	case Hour4:
		return "4h"
	}
	return "unknown"
}

// AlignTs floors a millisecond timestamp to the start of its interval
// bucket.
func AlignTs(ts uint64, interval Interval) uint64 {
	return ts - ts%(interval.Seconds()*1000)
}

// Kline is an OHLCV bar. Only the last bar of a sequence is ever
// mutated; earlier bars are closed and immutable.
type Kline struct {
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  float64
	StartTs uint64
}

// NewKline opens a bar at an aligned bucket start from the first tick
// observed in the bucket.
func NewKline(startTs uint64, price, volume float64) Kline {
	return Kline{
		Open:    price,
		High:    price,
		Low:     price,
		Close:   price,
		Volume:  volume,
		StartTs: startTs,
	}
}

// Update folds one tick into the bar.
func (k *Kline) Update(price, volume float64) {
	if price > k.High {
		k.High = price
	}
	if price < k.Low {
		k.Low = price
	}
	k.Close = price
	k.Volume += volume
}

// EventType classifies detections pushed to the downstream queue.
type EventType string

const (
	EventVolatilitySpike EventType = "VolatilitySpike"
	EventConsecutiveMove EventType = "ConsecutiveMove"
	EventFundingRate     EventType = "FundingRate"
)

// Event is the externally visible detection record. Period is empty for
// funding-rate events. Value carries detector-specific fields.
type Event struct {
	Symbol    string                 `json:"symbol"`
	EventType EventType              `json:"event_type"`
	Period    string                 `json:"period"`
	Value     map[string]interface{} `json:"value"`
	Timestamp uint64                 `json:"timestamp"`
}

// JSON serializes the event for the queue.
func (e *Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}
