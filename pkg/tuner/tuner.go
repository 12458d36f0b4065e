package tuner

import (
	"math"
	"strconv"
)

/*
 * Global constants.
 */
const (
	REFERENCE_FREQUENCY = 440.0
	REFERENCE_SEMITONE  = 57
	NUM_NOTES           = 12
	IN_TUNE_DEVIATION   = 0.1
)

/*
 * Chromatic note names, starting at the reference note A.
 */
var noteLiterals = [NUM_NOTES]string{
	"A",
	"A♯/B♭",
	"B",
	"C",
	"C♯/D♭",
	"D",
	"D♯/E♭",
	"E",
	"F",
	"F♯/G♭",
	"G",
	"G♯/A♭",
}

/*
 * Data structure representing a musical note.
 */
type Note struct {
	Literal string
	Octave  int
}

/*
 * Returns the note in scientific pitch notation, e.g. "A4".
 */
func (n Note) String() string {
	return n.Literal + strconv.Itoa(n.Octave)
}

/*
 * Data structure representing the closest note to a frequency and the
 * deviation from it, expressed as a fraction of a semitone.
 */
type PitchInfo struct {
	Note      Note
	Deviation float64
}

/*
 * Returns the deviation in cents (hundredths of a semitone).
 */
func (p PitchInfo) Cents() float64 {
	return 100.0 * p.Deviation
}

/*
 * Reports whether the deviation is small enough to call the note in tune.
 */
func (p PitchInfo) InTune() bool {
	return math.Abs(p.Deviation) < IN_TUNE_DEVIATION
}

/*
 * Returns the direction the instrument must be tuned in.
 *
 * "↓" when too sharp, "↑" when too flat, empty otherwise.
 */
func (p PitchInfo) Hint() string {

	if p.Deviation > IN_TUNE_DEVIATION {
		return "↓"
	} else if p.Deviation < -IN_TUNE_DEVIATION {
		return "↑"
	}

	return ""
}

/*
 * Number of semitones between a frequency and the reference A4.
 *
 * f(n) = 2^(n / 12) * 440, solved for n.
 */
func Semitones(frequency float64) float64 {
	ratio := frequency / REFERENCE_FREQUENCY
	return NUM_NOTES * math.Log2(ratio)
}

/*
 * Equal-tempered frequency of the note n semitones away from A4.
 */
func Frequency(semitone int) float64 {
	exponent := float64(semitone) / NUM_NOTES
	return REFERENCE_FREQUENCY * math.Exp2(exponent)
}

/*
 * Creates the note n semitones away from A4.
 */
func NoteFromSemitone(semitone int) Note {
	idx := semitone % NUM_NOTES

	/*
	 * Go keeps the sign of the dividend, so fold negative indices back
	 * into the table.
	 */
	if idx < 0 {
		idx += NUM_NOTES
	}

	n := Note{
		Literal: noteLiterals[idx],
		Octave:  floorDiv(REFERENCE_SEMITONE+semitone, NUM_NOTES),
	}

	return n
}

/*
 * Splits a fractional semitone count into note and deviation.
 *
 * Ties are rounded half away from zero (math.Round), so an offset of
 * exactly +0.5 maps to the upper note with a deviation of -0.5 and an
 * offset of exactly -0.5 maps to the lower note with a deviation of +0.5.
 */
func FromSemitones(semitones float64) PitchInfo {
	rounded := math.Round(semitones)

	info := PitchInfo{
		Note:      NoteFromSemitone(int(rounded)),
		Deviation: semitones - rounded,
	}

	return info
}

/*
 * Maps a frequency in Hz to the closest note and the deviation from it.
 *
 * The frequency must be positive.
 */
func Map(frequency float64) PitchInfo {
	semitones := Semitones(frequency)
	return FromSemitones(semitones)
}

/*
 * Integer division rounding towards negative infinity.
 */
func floorDiv(a int, b int) int {
	q := a / b

	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}

	return q
}
