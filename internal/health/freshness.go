// Package health tracks the freshness of the candle data observed by the
// query service and derives the /health staleness signal from it.
package health

import (
	"sync"
	"time"
)

// msThreshold splits integer epochs: anything above it is milliseconds.
const msThreshold = int64(1e12)

// maxEpochSeconds guards NormalizeTimestamp against absurd inputs
// (roughly year 9999 in seconds).
const maxEpochSeconds = int64(253402300799)

// NormalizeTimestamp interprets a raw integer epoch as seconds or milliseconds
// and converts it to a UTC instant. Conversion never fails: out-of-range input
// yields the current instant so one bad row cannot break an endpoint.
func NormalizeTimestamp(ts int64) time.Time {
	sec := ts
	var nsec int64
	if sec > msThreshold {
		sec = ts / 1000
		nsec = (ts % 1000) * int64(time.Millisecond)
	}
	if sec < 0 || sec > maxEpochSeconds {
		return time.Now().UTC()
	}
	return time.Unix(sec, nsec).UTC()
}

// Tracker holds the timestamp of the most recently observed candle across all
// symbols and timeframes. It starts optimistically healthy at construction
// time and is advanced by whichever candle query completes last; concurrent
// writers race freely under last-writer-wins.
type Tracker struct {
	staleAfter time.Duration
	now        func() time.Time

	mu     sync.Mutex
	latest time.Time
}

// Status is the payload of the /health endpoint.
type Status struct {
	OK     bool    `json:"ok"`
	AgeSec float64 `json:"age_sec"`
}

// NewTracker builds a Tracker with the given staleness threshold.
func NewTracker(staleAfter time.Duration) *Tracker {
	return newTracker(staleAfter, time.Now)
}

func newTracker(staleAfter time.Duration, now func() time.Time) *Tracker {
	return &Tracker{
		staleAfter: staleAfter,
		now:        now,
		latest:     now().UTC(),
	}
}

// Observe records the timestamp of a freshly fetched latest candle.
func (t *Tracker) Observe(candleTime time.Time) {
	t.mu.Lock()
	t.latest = candleTime.UTC()
	t.mu.Unlock()
}

// Latest returns the most recently observed candle timestamp.
func (t *Tracker) Latest() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Status computes the staleness signal: ok iff the elapsed time since the
// last observation is strictly under the threshold. AgeSec is always
// reported so callers can observe the margin.
func (t *Tracker) Status() Status {
	age := t.now().UTC().Sub(t.Latest()).Seconds()
	if age < 0 {
		age = 0
	}
	return Status{
		OK:     age < t.staleAfter.Seconds(),
		AgeSec: age,
	}
}
