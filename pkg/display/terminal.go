// Package display renders pitch readings for people: a full-screen
// terminal view, a line-per-note log and a history for graphical frontends.
package display

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/metalblueberry/pitchtuner/pkg/tuner"
)

// DefaultInTuneBackground is the ANSI colour behind an in-tune note.
const DefaultInTuneBackground = "2"

// TerminalOptions configures a Terminal.
type TerminalOptions struct {
	Profile          termenv.Profile
	InTuneBackground string
}

// Terminal redraws the whole screen with the latest reading on every Render.
type Terminal struct {
	w        *bufio.Writer
	out      *termenv.Output
	renderer *lipgloss.Renderer
	inTune   lipgloss.Style
	text     bytes.Buffer
}

// NewTerminal writes to w using the colour profile in opts.
func NewTerminal(w io.Writer, opts TerminalOptions) *Terminal {
	bw := bufio.NewWriter(w)
	renderer := lipgloss.NewRenderer(bw)
	renderer.SetColorProfile(opts.Profile)

	background := opts.InTuneBackground
	if background == "" {
		background = DefaultInTuneBackground
	}

	return &Terminal{
		w:        bw,
		out:      termenv.NewOutput(bw, termenv.WithProfile(opts.Profile)),
		renderer: renderer,
		inTune:   renderer.NewStyle().Background(lipgloss.Color(background)),
	}
}

// Render clears the screen, homes the cursor and prints the reading for
// frequency. Write and flush failures are returned.
func (t *Terminal) Render(frequency float64) error {
	t.text.Reset()
	t.compose(frequency)

	t.out.ClearScreen()
	t.out.MoveCursor(1, 1)
	if _, err := t.w.Write(t.text.Bytes()); err != nil {
		return fmt.Errorf("display: write: %w", err)
	}
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("display: flush: %w", err)
	}
	return nil
}

func (t *Terminal) compose(frequency float64) {
	info := tuner.Map(frequency)
	deviation := info.Deviation
	deviationStyle := t.renderer.NewStyle().Foreground(lipgloss.Color(Color(deviation).Hex()))

	fmt.Fprintf(&t.text, "Pitch: %.1f hertz\n", frequency)
	t.text.WriteString("\n\n")

	if deviation > 0 {
		t.text.WriteString(deviationStyle.Render(fmt.Sprintf("%+.1f", info.Cents())))
	}
	t.text.WriteString("\n")

	note := info.Note.String()
	if info.InTune() {
		note = t.inTune.Render(note)
	}
	t.text.WriteString("\n")
	t.text.WriteString(note)
	if hint := info.Hint(); hint != "" {
		t.text.WriteString(" ")
		t.text.WriteString(hint)
	}
	t.text.WriteString("\n\n")

	if deviation < 0 {
		t.text.WriteString(deviationStyle.Render(fmt.Sprintf("%.1f", info.Cents())))
		t.text.WriteString("\n")
	}
}

// ParseProfile maps a profile name to a termenv profile. "auto" (or "")
// inspects f and the environment.
func ParseProfile(name string, f *os.File) (termenv.Profile, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return termenv.NewOutput(f).EnvColorProfile(), nil
	case "truecolor":
		return termenv.TrueColor, nil
	case "ansi256":
		return termenv.ANSI256, nil
	case "ansi":
		return termenv.ANSI, nil
	case "ascii":
		return termenv.Ascii, nil
	}
	return termenv.Ascii, fmt.Errorf("display: unknown color profile %q", name)
}
