package pitch

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/andrepxx/go-dsp-guitar/fft"
)

// Windows longer than this use the FFT difference under DifferenceAuto.
const fftMinWindow = 1024

// directDifference fills d[tau] with the sum over j < len(d) of
// (x[j] - x[j+tau])^2. x must hold at least 2*len(d) - 1 samples.
func directDifference(x, d []float64) {
	h := len(d)
	for tau := 0; tau < h; tau++ {
		sum := 0.0
		for j := 0; j < h; j++ {
			delta := x[j] - x[j+tau]
			sum += delta * delta
		}
		d[tau] = sum
	}
}

// fftDifference computes the same function as directDifference by expanding
// the square: d(tau) = e(0) + e(tau) - 2 c(tau), where e(tau) is the energy of
// x[tau:tau+h] and c the cross-correlation of x[:h] with x.
type fftDifference struct {
	ft      fft.FourierTransform
	size    uint64
	head    []float64
	full    []float64
	specH   []complex128
	specF   []complex128
	squares []float64
}

func newFFTDifference() *fftDifference {
	return &fftDifference{
		ft: fft.CreateFourierTransform(),
	}
}

// resize makes sure the transform buffers fit a window of n samples.
func (f *fftDifference) resize(n int) {
	size, _ := fft.NextPowerOfTwo(uint64(2 * n))

	if size != f.size {
		f.size = size
		f.head = make([]float64, size)
		f.full = make([]float64, size)
		f.specH = make([]complex128, size)
		f.specF = make([]complex128, size)
	}

	if cap(f.squares) < n+1 {
		f.squares = make([]float64, n+1)
	}
	f.squares = f.squares[:n+1]
}

func (f *fftDifference) compute(x, d []float64) error {
	n := len(x)
	h := len(d)
	f.resize(n)

	copy(f.head, x[:h])
	fft.ZeroFloat(f.head[h:])
	copy(f.full, x)
	fft.ZeroFloat(f.full[n:])

	if err := f.ft.RealFourier(f.head, f.specH, fft.SCALING_DEFAULT); err != nil {
		return fmt.Errorf("pitch: forward fft: %w", err)
	}
	if err := f.ft.RealFourier(f.full, f.specF, fft.SCALING_DEFAULT); err != nil {
		return fmt.Errorf("pitch: forward fft: %w", err)
	}
	for i, elem := range f.specH {
		f.specH[i] = cmplx.Conj(elem) * f.specF[i]
	}
	if err := f.ft.RealInverseFourier(f.specH, f.head, fft.SCALING_DEFAULT); err != nil {
		return fmt.Errorf("pitch: inverse fft: %w", err)
	}

	// squares holds the running energy: squares[i] = sum of x[k]^2 for k < i.
	prefix := f.squares
	prefix[0] = 0
	for i, v := range x {
		prefix[i+1] = prefix[i] + v*v
	}

	// Normalise whatever scaling the transform pair applies against the
	// exactly known zero-lag term.
	e0 := prefix[h]
	scale := 1.0
	if c0 := f.head[0]; math.Abs(c0) > 1e-12 && e0 > 0 {
		scale = e0 / c0
	}

	for tau := 0; tau < h; tau++ {
		etau := prefix[tau+h] - prefix[tau]
		v := e0 + etau - 2*scale*f.head[tau]
		if v < 0 {
			v = 0
		}
		d[tau] = v
	}
	d[0] = 0
	return nil
}
