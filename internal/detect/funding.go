package detect

import "perpx/internal/market"

// FundingRate builds the event for a funding-rate change that already
// passed the worker's per-symbol dedup. The rate is carried as the
// exchange's original decimal string so consumers see the exact value.
func FundingRate(symbol string, eventTime uint64, fundingRate string, nextFundingTime uint64) *market.Event {
	return &market.Event{
		Symbol:    symbol,
		EventType: market.EventFundingRate,
		Period:    "",
		Value: map[string]interface{}{
			"funding_rate":      fundingRate,
			"next_funding_time": nextFundingTime,
		},
		Timestamp: eventTime,
	}
}
