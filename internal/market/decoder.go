package market

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"perpx/internal/metrics"
)

// Combined-stream names this service subscribes to.
const (
	StreamTicker    = "!ticker@arr"
	StreamMarkPrice = "!markPrice@arr"
)

type frame struct {
	Stream string            `json:"stream"`
	Data   []json.RawMessage `json:"data"`
}

// DecodeFrame parses one combined-stream text frame into worker-bound
// messages. A top-level parse failure or an unrecognized stream returns
// an error; a record that fails to decode is logged at warn and skipped
// so the rest of the batch survives.
func DecodeFrame(raw []byte) ([]Message, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}

	switch f.Stream {
	case StreamTicker:
		metrics.FramesDecoded.WithLabelValues(StreamTicker).Inc()
		msgs := make([]Message, 0, len(f.Data))
		for _, rec := range f.Data {
			t := &Ticker{}
			if err := json.Unmarshal(rec, t); err != nil {
				metrics.DecodeWarnings.Inc()
				log.Warn().Err(err).Str("stream", f.Stream).Msg("dropping undecodable ticker record")
				continue
			}
			msgs = append(msgs, t)
		}
		return msgs, nil
	case StreamMarkPrice:
		metrics.FramesDecoded.WithLabelValues(StreamMarkPrice).Inc()
		msgs := make([]Message, 0, len(f.Data))
		for _, rec := range f.Data {
			m := &MarkPrice{}
			if err := json.Unmarshal(rec, m); err != nil {
				metrics.DecodeWarnings.Inc()
				log.Warn().Err(err).Str("stream", f.Stream).Msg("dropping undecodable mark-price record")
				continue
			}
			msgs = append(msgs, m)
		}
		return msgs, nil
	default:
		return nil, fmt.Errorf("unrecognized stream %q", f.Stream)
	}
}
