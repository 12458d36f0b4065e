package pitch

import (
	"fmt"
	"strings"
)

// Default confidence gate.
const (
	DefaultPowerThreshold   = 0.1
	DefaultClarityThreshold = 0.8
)

// Difference selects how the YIN difference function is computed.
type Difference int

const (
	// DifferenceAuto picks DifferenceFFT for windows longer than fftMinWindow.
	DifferenceAuto Difference = iota
	// DifferenceDirect evaluates the sum of squared differences lag by lag.
	DifferenceDirect
	// DifferenceFFT derives the differences from an FFT cross-correlation.
	DifferenceFFT
)

var differenceNames = map[Difference]string{
	DifferenceAuto:   "auto",
	DifferenceDirect: "direct",
	DifferenceFFT:    "fft",
}

func (d Difference) String() string {
	if name, ok := differenceNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Difference(%d)", int(d))
}

// ParseDifference maps "auto", "direct" or "fft" to a Difference.
func ParseDifference(s string) (Difference, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DifferenceAuto, nil
	}
	for d, name := range differenceNames {
		if name == s {
			return d, nil
		}
	}
	return DifferenceAuto, fmt.Errorf("pitch: unknown difference method %q", s)
}

// Options configures an Estimator.
type Options struct {
	// PowerThreshold is the minimum mean squared amplitude of a window.
	PowerThreshold float64
	// ClarityThreshold is the minimum 1 - CMNDF accepted at the chosen lag.
	ClarityThreshold float64
	Difference       Difference
}

// DefaultOptions returns the thresholds the tuner ships with.
func DefaultOptions() Options {
	return Options{
		PowerThreshold:   DefaultPowerThreshold,
		ClarityThreshold: DefaultClarityThreshold,
		Difference:       DifferenceAuto,
	}
}

// Validate reports thresholds outside their meaningful range.
func (o Options) Validate() error {
	if o.PowerThreshold < 0 {
		return fmt.Errorf("pitch: power threshold %v is negative", o.PowerThreshold)
	}
	if o.ClarityThreshold <= 0 || o.ClarityThreshold > 1 {
		return fmt.Errorf("pitch: clarity threshold %v outside (0, 1]", o.ClarityThreshold)
	}
	if _, ok := differenceNames[o.Difference]; !ok {
		return fmt.Errorf("pitch: invalid difference method %v", o.Difference)
	}
	return nil
}
