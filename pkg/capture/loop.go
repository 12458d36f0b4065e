// Package capture drives the tuner from audio deliveries: it downmixes,
// estimates and renders at most once per render interval, synchronously on
// the delivering goroutine.
package capture

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/metalblueberry/pitchtuner/pkg/pitch"
)

// Defaults for Options.
const (
	DefaultRenderInterval   = 100 * time.Millisecond
	DefaultBufferCapacity   = 1024
	DefaultErrorLogInterval = time.Second
)

// ErrChannels is returned for a stream without a positive channel count.
var ErrChannels = errors.New("capture: channel count must be positive")

// ErrSampleRate is returned for a stream without a positive sample rate.
var ErrSampleRate = errors.New("capture: sample rate must be positive")

// Estimator produces a frequency estimate for a mono window.
type Estimator interface {
	Estimate(samples []float32, sampleRate int) (pitch.Estimate, bool)
}

// Sink displays a frequency.
type Sink interface {
	Render(frequency float64) error
}

// Options configures a Loop.
type Options struct {
	Channels   int
	SampleRate int

	// RenderInterval is the minimum time between two processed deliveries.
	RenderInterval time.Duration
	// BufferCapacity is reserved up front for the mono buffer.
	BufferCapacity int
	// MinWindow, when positive, keeps accumulating deliveries that pass the
	// rate gate until this many mono samples are available.
	MinWindow int
	// ErrorLogInterval spaces out log lines for stream errors.
	ErrorLogInterval time.Duration

	Log logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
	// Fatal is called with render failures. It defaults to logging at fatal
	// level, which exits the process.
	Fatal func(error)
}

// Stats counts what the loop did with its deliveries.
type Stats struct {
	Delivered    uint64
	Skipped      uint64
	Accumulating uint64
	Estimated    uint64
	Rendered     uint64
	StreamErrors uint64
}

// Loop is the audio delivery handler. Its pipeline state is owned by the
// goroutine that calls Deliver, and Deliver takes no locks.
type Loop struct {
	opts      Options
	estimator Estimator
	sink      Sink

	// mono is cleared after each estimation and never reallocated.
	mono       []float32
	lastRender time.Time

	// Stream errors may arrive on a device notification thread.
	errLimit     *rate.Limiter
	suppressed   atomic.Uint64
	streamErrors atomic.Uint64
	stats        Stats
}

// New validates opts and builds a loop feeding estimator and sink.
func New(opts Options, estimator Estimator, sink Sink) (*Loop, error) {
	if opts.Channels < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrChannels, opts.Channels)
	}
	if opts.SampleRate < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrSampleRate, opts.SampleRate)
	}
	if opts.RenderInterval < 0 {
		return nil, fmt.Errorf("capture: negative render interval %v", opts.RenderInterval)
	}
	if opts.BufferCapacity <= 0 {
		opts.BufferCapacity = DefaultBufferCapacity
	}
	if opts.MinWindow > opts.BufferCapacity {
		opts.BufferCapacity = opts.MinWindow
	}
	if opts.ErrorLogInterval <= 0 {
		opts.ErrorLogInterval = DefaultErrorLogInterval
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Fatal == nil {
		log := opts.Log
		opts.Fatal = func(err error) {
			log.WithError(err).Fatal("render failed")
		}
	}

	return &Loop{
		opts:      opts,
		estimator: estimator,
		sink:      sink,
		mono:      make([]float32, 0, opts.BufferCapacity),
		errLimit:  rate.NewLimiter(rate.Every(opts.ErrorLogInterval), 1),
	}, nil
}

// Deliver handles one buffer of interleaved samples.
func (l *Loop) Deliver(frame []float32) {
	l.stats.Delivered++
	now := l.opts.Now()
	if !l.lastRender.IsZero() && now.Sub(l.lastRender) < l.opts.RenderInterval {
		l.stats.Skipped++
		return
	}

	l.mono = pitch.Downmix(l.mono, frame, l.opts.Channels)
	if len(l.mono) < l.opts.MinWindow {
		l.stats.Accumulating++
		return
	}

	est, ok := l.estimator.Estimate(l.mono, l.opts.SampleRate)
	l.mono = l.mono[:0]
	if ok {
		l.stats.Estimated++
		if err := l.sink.Render(est.Frequency); err != nil {
			l.opts.Fatal(err)
		} else {
			l.stats.Rendered++
		}
	}
	l.lastRender = l.opts.Now()
}

// StreamError handles an error reported by the audio stream. Errors are
// logged, at most one line per ErrorLogInterval; the rest are counted and
// reported with the next line.
func (l *Loop) StreamError(err error) {
	l.streamErrors.Add(1)
	if !l.errLimit.AllowN(l.opts.Now(), 1) {
		l.suppressed.Add(1)
		return
	}
	entry := l.opts.Log.WithError(err)
	if n := l.suppressed.Swap(0); n > 0 {
		entry = entry.WithField("suppressed", n)
	}
	entry.Warn("audio stream error")
}

// Stats returns the loop's counters. Call it from the delivering goroutine
// or after the stream has stopped.
func (l *Loop) Stats() Stats {
	s := l.stats
	s.StreamErrors = l.streamErrors.Load()
	return s
}
