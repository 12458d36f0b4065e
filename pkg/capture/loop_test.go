package capture

import (
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/metalblueberry/pitchtuner/pkg/pitch"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

type recordingEstimator struct {
	windows []int
	rates   []int
	result  float64
	ok      bool
}

func (e *recordingEstimator) Estimate(samples []float32, sampleRate int) (pitch.Estimate, bool) {
	e.windows = append(e.windows, len(samples))
	e.rates = append(e.rates, sampleRate)
	return pitch.Estimate{Frequency: e.result}, e.ok
}

type recordingSink struct {
	frequencies []float64
	err         error
}

func (s *recordingSink) Render(frequency float64) error {
	s.frequencies = append(s.frequencies, frequency)
	return s.err
}

func newTestLoop(t *testing.T, opts Options, est Estimator, sink Sink) (*Loop, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	if opts.Channels == 0 {
		opts.Channels = 1
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = 48000
	}
	if opts.RenderInterval == 0 {
		opts.RenderInterval = DefaultRenderInterval
	}
	if opts.Log == nil {
		log := logrus.New()
		log.SetOutput(io.Discard)
		opts.Log = log
	}
	opts.Now = clock.Now
	if opts.Fatal == nil {
		opts.Fatal = func(err error) {
			t.Fatalf("unexpected fatal: %v", err)
		}
	}
	l, err := New(opts, est, sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, clock
}

func TestDeliveriesInsideIntervalAreSkipped(t *testing.T) {
	est := &recordingEstimator{result: 440, ok: true}
	sink := &recordingSink{}
	l, clock := newTestLoop(t, Options{}, est, sink)

	frame := make([]float32, 256)
	for i := 0; i < 10; i++ {
		l.Deliver(frame)
		clock.Advance(30 * time.Millisecond)
	}

	// Processed at 0, 120, 240 ms.
	if len(est.windows) != 3 {
		t.Fatalf("estimated %d times, want 3", len(est.windows))
	}
	if len(sink.frequencies) != 3 {
		t.Fatalf("rendered %d times, want 3", len(sink.frequencies))
	}
	stats := l.Stats()
	if stats.Delivered != 10 || stats.Skipped != 7 || stats.Rendered != 3 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestDeliveriesAtIntervalAllPass(t *testing.T) {
	est := &recordingEstimator{result: 440, ok: true}
	sink := &recordingSink{}
	l, clock := newTestLoop(t, Options{}, est, sink)

	for i := 0; i < 5; i++ {
		l.Deliver(make([]float32, 64))
		clock.Advance(DefaultRenderInterval)
	}
	if len(est.windows) != 5 {
		t.Fatalf("estimated %d times, want 5", len(est.windows))
	}
}

func TestSilenceStillAdvancesTimestamp(t *testing.T) {
	est := &recordingEstimator{ok: false}
	sink := &recordingSink{}
	l, clock := newTestLoop(t, Options{}, est, sink)

	l.Deliver(make([]float32, 64))
	clock.Advance(50 * time.Millisecond)
	l.Deliver(make([]float32, 64))

	if len(est.windows) != 1 {
		t.Fatalf("estimated %d times, want 1", len(est.windows))
	}
	if len(sink.frequencies) != 0 {
		t.Fatalf("rendered without an estimate")
	}
}

func TestWindowIsClearedAfterEstimate(t *testing.T) {
	est := &recordingEstimator{result: 100, ok: true}
	sink := &recordingSink{}
	l, clock := newTestLoop(t, Options{Channels: 2, SampleRate: 44100}, est, sink)

	l.Deliver(make([]float32, 512))
	clock.Advance(time.Second)
	l.Deliver(make([]float32, 300))

	if len(est.windows) != 2 || est.windows[0] != 256 || est.windows[1] != 150 {
		t.Fatalf("windows=%v, want [256 150]", est.windows)
	}
	if est.rates[0] != 44100 {
		t.Fatalf("sample rate=%d, want 44100", est.rates[0])
	}
	if sink.frequencies[1] != 100 {
		t.Fatalf("frequencies=%v", sink.frequencies)
	}
}

func TestMonoBufferIsNotReallocated(t *testing.T) {
	est := &recordingEstimator{ok: false}
	l, clock := newTestLoop(t, Options{BufferCapacity: 512}, est, &recordingSink{})

	first := &l.mono[:1][0]
	for i := 0; i < 5; i++ {
		l.Deliver(make([]float32, 400))
		clock.Advance(time.Second)
	}
	if &l.mono[:1][0] != first {
		t.Fatalf("mono buffer was reallocated")
	}
	if cap(l.mono) != 512 {
		t.Fatalf("cap=%d, want 512", cap(l.mono))
	}
}

func TestMinWindowAccumulates(t *testing.T) {
	est := &recordingEstimator{result: 220, ok: true}
	sink := &recordingSink{}
	l, clock := newTestLoop(t, Options{MinWindow: 1000}, est, sink)

	l.Deliver(make([]float32, 400))
	clock.Advance(time.Millisecond)
	l.Deliver(make([]float32, 400))
	clock.Advance(time.Millisecond)
	l.Deliver(make([]float32, 400))

	if len(est.windows) != 1 || est.windows[0] != 1200 {
		t.Fatalf("windows=%v, want [1200]", est.windows)
	}

	// The rate gate applies again after the estimate.
	clock.Advance(time.Millisecond)
	l.Deliver(make([]float32, 4000))
	if len(est.windows) != 1 {
		t.Fatalf("delivery inside interval was processed")
	}
	if got := l.Stats().Accumulating; got != 2 {
		t.Fatalf("accumulating=%d, want 2", got)
	}
}

func TestRenderFailureIsFatal(t *testing.T) {
	var fatal error
	est := &recordingEstimator{result: 440, ok: true}
	sink := &recordingSink{err: errors.New("tty gone")}
	l, _ := newTestLoop(t, Options{Fatal: func(err error) { fatal = err }}, est, sink)

	l.Deliver(make([]float32, 64))
	if fatal == nil || fatal.Error() != "tty gone" {
		t.Fatalf("fatal=%v", fatal)
	}
	if l.Stats().Rendered != 0 {
		t.Fatalf("failed render counted")
	}
}

func TestStreamErrorsAreRateLimited(t *testing.T) {
	log, hook := test.NewNullLogger()
	l, clock := newTestLoop(t, Options{Log: log, ErrorLogInterval: time.Second}, &recordingEstimator{}, &recordingSink{})

	for i := 0; i < 5; i++ {
		l.StreamError(errors.New("overflow"))
		clock.Advance(100 * time.Millisecond)
	}
	if n := len(hook.AllEntries()); n != 1 {
		t.Fatalf("logged %d entries, want 1", n)
	}

	clock.Advance(time.Second)
	l.StreamError(errors.New("overflow"))
	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	last := entries[1]
	if last.Level != logrus.WarnLevel {
		t.Fatalf("level=%v, want warn", last.Level)
	}
	if got := last.Data["suppressed"]; got != uint64(4) {
		t.Fatalf("suppressed=%v, want 4", got)
	}
	if got := l.Stats().StreamErrors; got != 6 {
		t.Fatalf("stream errors=%d, want 6", got)
	}
}

func TestNewValidates(t *testing.T) {
	est := &recordingEstimator{}
	sink := &recordingSink{}
	if _, err := New(Options{Channels: 0, SampleRate: 48000}, est, sink); !errors.Is(err, ErrChannels) {
		t.Fatalf("err=%v, want ErrChannels", err)
	}
	if _, err := New(Options{Channels: 2, SampleRate: 0}, est, sink); !errors.Is(err, ErrSampleRate) {
		t.Fatalf("err=%v, want ErrSampleRate", err)
	}
	if _, err := New(Options{Channels: 2, SampleRate: 48000, RenderInterval: -time.Second}, est, sink); err == nil {
		t.Fatalf("negative interval accepted")
	}
}

func TestLoopWithRealEstimator(t *testing.T) {
	sink := &recordingSink{}
	l, _ := newTestLoop(t, Options{Channels: 2, SampleRate: 44100}, pitch.NewEstimator(pitch.DefaultOptions()), sink)

	frame := make([]float32, 2*2048)
	for i := 0; i < 2048; i++ {
		v := float32(0.8 * math.Sin(2*math.Pi*220*float64(i)/44100))
		frame[2*i] = v
		frame[2*i+1] = v
	}
	l.Deliver(frame)

	if len(sink.frequencies) != 1 {
		t.Fatalf("rendered %d times, want 1", len(sink.frequencies))
	}
	if f := sink.frequencies[0]; math.Abs(f-220) > 2.2 {
		t.Fatalf("frequency=%v, want ~220", f)
	}
}
