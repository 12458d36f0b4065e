package display

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/metalblueberry/pitchtuner/pkg/tuner"
)

// Plain prints one line each time the detected note changes. It suits
// output that is not a terminal, such as a pipe or a file.
type Plain struct {
	w        io.Writer
	log      logrus.FieldLogger
	previous string
}

// NewPlain writes lines to w.
func NewPlain(w io.Writer, log logrus.FieldLogger) *Plain {
	return &Plain{w: w, log: log}
}

// Render prints the reading for frequency unless the note is unchanged.
func (p *Plain) Render(frequency float64) error {
	info := tuner.Map(frequency)
	note := info.Note.String()

	p.log.WithFields(logrus.Fields{
		"frequency": frequency,
		"note":      note,
		"cents":     info.Cents(),
	}).Debug("pitch")

	if note == p.previous {
		return nil
	}
	p.previous = note

	if _, err := fmt.Fprintf(p.w, "%s %+.1f cents (%.1f Hz)\n", note, info.Cents(), frequency); err != nil {
		return fmt.Errorf("display: write: %w", err)
	}
	return nil
}
