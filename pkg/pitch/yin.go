// Package pitch turns windows of mono audio into fundamental frequency
// estimates using the YIN method.
package pitch

import (
	"github.com/cwbudde/algo-vecmath"
)

// Estimate is an accepted fundamental frequency together with the values
// that passed the confidence gate.
type Estimate struct {
	Frequency float64
	// Clarity is 1 - CMNDF at the chosen lag.
	Clarity float64
	// Power is the mean squared amplitude of the window.
	Power float64
}

// Estimator runs YIN over whole windows. Its scratch buffers are reused
// between calls, so it must not be shared between goroutines.
type Estimator struct {
	opts Options

	signal  []float64
	squares []float64
	yin     []float64
	fft     *fftDifference
}

// NewEstimator creates an estimator with the given gate.
func NewEstimator(opts Options) *Estimator {
	return &Estimator{opts: opts}
}

// Options returns the estimator's configuration.
func (e *Estimator) Options() Options {
	return e.opts
}

// Estimate returns the fundamental frequency of samples, or false when the
// window is too short, too quiet or not periodic enough.
func (e *Estimator) Estimate(samples []float32, sampleRate int) (Estimate, bool) {
	n := len(samples)
	if n < 2 || sampleRate <= 0 {
		return Estimate{}, false
	}

	e.load(samples)

	power := e.power()
	if power < e.opts.PowerThreshold {
		return Estimate{}, false
	}

	h := n / 2
	if h < 3 {
		return Estimate{}, false
	}
	yin := e.yin[:h]
	e.difference(yin)
	cumulativeMeanNormalize(yin)

	tau, ok := absoluteThreshold(yin, e.opts.ClarityThreshold)
	if !ok {
		return Estimate{}, false
	}

	period := parabolicInterpolation(yin, tau)
	if period <= 0 {
		return Estimate{}, false
	}

	return Estimate{
		Frequency: float64(sampleRate) / period,
		Clarity:   1 - yin[tau],
		Power:     power,
	}, true
}

// load copies samples into the float64 working buffers, growing them only
// when the window is longer than any seen before.
func (e *Estimator) load(samples []float32) {
	n := len(samples)
	if cap(e.signal) < n {
		e.signal = make([]float64, n)
		e.squares = make([]float64, n)
		e.yin = make([]float64, n/2)
	}
	e.signal = e.signal[:n]
	e.squares = e.squares[:n]
	for i, v := range samples {
		e.signal[i] = float64(v)
	}
}

func (e *Estimator) power() float64 {
	vecmath.MulBlock(e.squares, e.signal, e.signal)
	sum := 0.0
	for _, v := range e.squares {
		sum += v
	}
	return sum / float64(len(e.squares))
}

func (e *Estimator) difference(d []float64) {
	method := e.opts.Difference
	if method == DifferenceAuto {
		method = DifferenceDirect
		if len(e.signal) > fftMinWindow {
			method = DifferenceFFT
		}
	}

	if method == DifferenceFFT {
		if e.fft == nil {
			e.fft = newFFTDifference()
		}
		if err := e.fft.compute(e.signal, d); err == nil {
			return
		}
	}
	directDifference(e.signal, d)
}

// cumulativeMeanNormalize replaces d with d(tau) divided by the mean of
// d(1..tau). A zero running sum leaves the lag at 1 so it never qualifies.
func cumulativeMeanNormalize(d []float64) {
	d[0] = 1
	running := 0.0
	for tau := 1; tau < len(d); tau++ {
		running += d[tau]
		if running == 0 {
			d[tau] = 1
			continue
		}
		d[tau] *= float64(tau) / running
	}
}

// absoluteThreshold finds the first lag whose clarity reaches the threshold
// and follows the dip down to its local minimum.
func absoluteThreshold(yin []float64, clarity float64) (int, bool) {
	for tau := 2; tau < len(yin); tau++ {
		if 1-yin[tau] < clarity {
			continue
		}
		for tau+1 < len(yin) && yin[tau+1] < yin[tau] {
			tau++
		}
		return tau, true
	}
	return 0, false
}

// parabolicInterpolation refines tau to sub-sample precision from its two
// neighbours, limiting the shift to half a sample.
func parabolicInterpolation(yin []float64, tau int) float64 {
	if tau < 1 || tau+1 >= len(yin) {
		return float64(tau)
	}

	s0 := yin[tau-1]
	s1 := yin[tau]
	s2 := yin[tau+1]
	denominator := 2 * (2*s1 - s2 - s0)
	if denominator == 0 {
		return float64(tau)
	}

	shift := (s2 - s0) / denominator
	if shift < -0.5 {
		shift = -0.5
	} else if shift > 0.5 {
		shift = 0.5
	}
	return float64(tau) + shift
}
