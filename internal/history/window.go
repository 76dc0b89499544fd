// Package history turns the append-only history stream into bounded,
// queryable trailing windows of readings per city.
package history

import (
	"sort"
	"time"

	"github.com/windvane/windvane/internal/station"
)

// insertResult says what happened to a reading offered to a window.
type insertResult int

const (
	insertAppended insertResult = iota
	insertReplaced
	insertStale
)

// trendWindow is one city's trailing window: readings ascending by
// timestamp, bounded by retention age and a max entry count. Callers hold
// the owning city's lock.
type trendWindow struct {
	retention  time.Duration
	maxEntries int
	readings   []station.Reading
}

func newTrendWindow(retention time.Duration, maxEntries int) *trendWindow {
	return &trendWindow{
		retention:  retention,
		maxEntries: maxEntries,
	}
}

// insert offers a reading to the window and prunes entries older than the
// retention, measured from now at ingestion time so stream gaps age out
// stale data. A reading with a timestamp already present replaces that
// entry; readings older than the retention cutoff are discarded.
func (w *trendWindow) insert(r station.Reading, now time.Time) insertResult {
	cutoff := now.Add(-w.retention)

	if !r.Timestamp.After(cutoff) {
		w.prune(cutoff)
		return insertStale
	}

	// Find the insertion point; readings normally arrive in order, so
	// this is almost always len(w.readings).
	i := sort.Search(len(w.readings), func(i int) bool {
		return !w.readings[i].Timestamp.Before(r.Timestamp)
	})

	result := insertAppended
	switch {
	case i < len(w.readings) && w.readings[i].Timestamp.Equal(r.Timestamp):
		w.readings[i] = r
		result = insertReplaced
	case i == len(w.readings):
		w.readings = append(w.readings, r)
	default:
		w.readings = append(w.readings, station.Reading{})
		copy(w.readings[i+1:], w.readings[i:])
		w.readings[i] = r
	}

	w.prune(cutoff)

	if w.maxEntries > 0 && len(w.readings) > w.maxEntries {
		over := len(w.readings) - w.maxEntries
		w.readings = w.readings[over:]
	}
	return result
}

// prune drops entries at or before the cutoff.
func (w *trendWindow) prune(cutoff time.Time) {
	i := 0
	for i < len(w.readings) && !w.readings[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		w.readings = w.readings[i:]
	}
}

// snapshot returns a copy of the retained readings no older than now-d,
// ascending. d <= 0 or d > retention means the full retained window.
func (w *trendWindow) snapshot(d time.Duration, now time.Time) []station.Reading {
	if d <= 0 || d > w.retention {
		d = w.retention
	}
	cutoff := now.Add(-d)

	i := 0
	for i < len(w.readings) && !w.readings[i].Timestamp.After(cutoff) {
		i++
	}

	out := make([]station.Reading, len(w.readings)-i)
	copy(out, w.readings[i:])
	return out
}

func (w *trendWindow) size() int {
	return len(w.readings)
}
