package display

import (
	"sync"
	"time"

	"github.com/metalblueberry/pitchtuner/pkg/circular"
	"github.com/metalblueberry/pitchtuner/pkg/tuner"
)

// Reading is one rendered estimate.
type Reading struct {
	Frequency float64
	Info      tuner.PitchInfo
	At        time.Time
}

// History keeps the latest reading and a ring of recent frequencies for a
// frontend that draws on its own goroutine.
type History struct {
	now         func() time.Time
	frequencies *circular.Buffer[float64]

	lock   sync.Mutex
	latest Reading
	seen   bool
}

// NewHistory remembers up to size frequencies.
func NewHistory(size int) *History {
	return &History{
		now:         time.Now,
		frequencies: circular.New[float64](size),
	}
}

// Render records frequency. It never fails.
func (h *History) Render(frequency float64) error {
	r := Reading{
		Frequency: frequency,
		Info:      tuner.Map(frequency),
		At:        h.now(),
	}
	h.frequencies.Push(frequency)

	h.lock.Lock()
	h.latest = r
	h.seen = true
	h.lock.Unlock()
	return nil
}

// Latest returns the most recent reading, if any.
func (h *History) Latest() (Reading, bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.latest, h.seen
}

// Frequencies returns recent frequencies, oldest first, reusing dst.
func (h *History) Frequencies(dst []float64) []float64 {
	return h.frequencies.Snapshot(dst[:0])
}
