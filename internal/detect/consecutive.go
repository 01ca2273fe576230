package detect

import "perpx/internal/market"

const (
	// minRunBars is both the shortest sequence worth scanning and the
	// shortest run that emits an event.
	minRunBars = 3
	// maxRunBars caps how far back the walk looks.
	maxRunBars = 10
)

// ConsecutiveMove counts how many of the newest closed bars form an
// unbroken non-decreasing or non-increasing run of closes. Equal closes
// preserve the run. The first comparison fixes the trend and counts
// both bars involved, so the shortest emitting run spans three bars.
func ConsecutiveMove(symbol string, interval market.Interval, klines []market.Kline, turnover string) (*market.Event, bool) {
	n := len(klines)
	if n < minRunBars {
		return nil, false
	}

	takeLen := n
	if takeLen > maxRunBars {
		takeLen = maxRunBars
	}
	slice := klines[n-takeLen:]

	count := 1
	trend := 0
	prev := slice[len(slice)-1]
	for i := len(slice) - 2; i >= 0; i-- {
		curr := slice[i]
		if trend == 0 {
			if prev.Close >= curr.Close {
				trend = 1
			} else {
				trend = -1
			}
			count++
		} else if (trend == 1 && prev.Close >= curr.Close) || (trend == -1 && prev.Close <= curr.Close) {
			count++
		} else {
			break
		}
		prev = curr
	}

	if count < minRunBars {
		return nil, false
	}

	return &market.Event{
		Symbol:    symbol,
		EventType: market.EventConsecutiveMove,
		Period:    interval.String(),
		Value: map[string]interface{}{
			"count":     count,
			"turnover":  turnover,
			"direction": trend,
		},
		Timestamp: klines[n-1].StartTs,
	}, true
}
