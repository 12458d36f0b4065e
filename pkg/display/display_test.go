package display

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"

	"github.com/metalblueberry/pitchtuner/pkg/tuner"
)

var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

func stripANSI(s string) string {
	return ansiSequence.ReplaceAllString(s, "")
}

// detuned returns the frequency deviating from A4 by deviation semitones.
func detuned(deviation float64) float64 {
	return 440 * math.Exp2(deviation/12)
}

func TestColorInTuneIsWhite(t *testing.T) {
	if got, want := Color(0), (RGB{255, 255, 255}); got != want {
		t.Fatalf("Color(0)=%v, want %v", got, want)
	}
}

func TestColorIsSymmetric(t *testing.T) {
	for _, x := range []float64{0.01, 0.1, 0.25, 0.3, 0.49, 0.5} {
		sharp := Color(x)
		flat := Color(-x)
		if sharp.R != flat.G || sharp.G != flat.R || sharp.B != flat.B {
			t.Fatalf("x=%v: sharp %v flat %v are not mirrored", x, sharp, flat)
		}
		if sharp.G != 255 || flat.R != 255 {
			t.Fatalf("x=%v: sharp %v should keep green, flat %v should keep red", x, sharp, flat)
		}
	}
}

func TestColorDimsMonotonically(t *testing.T) {
	prev := Color(0)
	for x := 0.02; x <= 0.5; x += 0.02 {
		c := Color(-x)
		if c.G > prev.G || c.B > prev.B {
			t.Fatalf("x=%v: %v brighter than %v", x, c, prev)
		}
		prev = c
	}
	if got, want := Color(0.5), (RGB{0, 255, 0}); got != want {
		t.Fatalf("Color(0.5)=%v, want %v", got, want)
	}
	if got, want := Color(-0.5), (RGB{255, 0, 0}); got != want {
		t.Fatalf("Color(-0.5)=%v, want %v", got, want)
	}
}

func TestColorHex(t *testing.T) {
	if got := (RGB{0x66, 0xff, 0x0a}).Hex(); got != "#66ff0a" {
		t.Fatalf("Hex()=%q", got)
	}
}

func TestTerminalLayout(t *testing.T) {
	tests := []struct {
		name      string
		deviation float64
		want      string
	}{
		{"in tune", 0, "\n\n\n\n\nA4\n\n"},
		{"slightly sharp", 0.05, "\n\n\n+5.0\n\nA4\n\n"},
		{"sharp", 0.3, "\n\n\n+30.0\n\nA4 ↓\n\n"},
		{"flat", -0.3, "\n\n\n\n\nA4 ↑\n\n-30.0\n"},
		{"slightly flat", -0.05, "\n\n\n\n\nA4\n\n-5.0\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			term := NewTerminal(&buf, TerminalOptions{Profile: termenv.Ascii})
			f := detuned(tc.deviation)
			if err := term.Render(f); err != nil {
				t.Fatalf("Render: %v", err)
			}
			want := fmt.Sprintf("Pitch: %.1f hertz", f) + tc.want
			if got := stripANSI(buf.String()); got != want {
				t.Fatalf("got %q, want %q", got, want)
			}
		})
	}
}

func TestTerminalClearsBeforeEachRender(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Profile: termenv.TrueColor})
	for i := 0; i < 3; i++ {
		buf.Reset()
		if err := term.Render(440); err != nil {
			t.Fatalf("Render: %v", err)
		}
		if !strings.HasPrefix(buf.String(), "\x1b[2J") {
			t.Fatalf("render %d does not start with a screen clear: %q", i, buf.String())
		}
		if !strings.Contains(buf.String(), "\x1b[1;1H") {
			t.Fatalf("render %d does not home the cursor: %q", i, buf.String())
		}
	}
}

func TestTerminalStyles(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, TerminalOptions{Profile: termenv.TrueColor})

	if err := term.Render(detuned(0.3)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[38;2;") {
		t.Fatalf("sharp reading lacks deviation colour: %q", buf.String())
	}
	if strings.Contains(buf.String(), "\x1b[42m") {
		t.Fatalf("out-of-tune note highlighted: %q", buf.String())
	}

	buf.Reset()
	if err := term.Render(440); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "\x1b[42m") {
		t.Fatalf("in-tune note not highlighted: %q", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestTerminalReportsWriteFailure(t *testing.T) {
	term := NewTerminal(failingWriter{}, TerminalOptions{Profile: termenv.Ascii})
	if err := term.Render(440); err == nil {
		t.Fatalf("expected error from failing writer")
	}
}

func TestParseProfile(t *testing.T) {
	tests := map[string]termenv.Profile{
		"truecolor": termenv.TrueColor,
		"ANSI256":   termenv.ANSI256,
		"ansi":      termenv.ANSI,
		"ascii":     termenv.Ascii,
	}
	for name, want := range tests {
		got, err := ParseProfile(name, nil)
		if err != nil || got != want {
			t.Fatalf("ParseProfile(%q)=%v,%v want %v", name, got, err, want)
		}
	}
	if _, err := ParseProfile("sepia", nil); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPlainPrintsOnNoteChange(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlain(&buf, quietLogger())
	for _, f := range []float64{440, 441, 439.5, tuner.Frequency(3), tuner.Frequency(3), 440} {
		if err := p.Render(f); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "A4 ") || !strings.HasPrefix(lines[1], "C5 ") || !strings.HasPrefix(lines[2], "A4 ") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestPlainReportsWriteFailure(t *testing.T) {
	p := NewPlain(failingWriter{}, quietLogger())
	if err := p.Render(440); err == nil {
		t.Fatalf("expected error from failing writer")
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return at }

	if _, ok := h.Latest(); ok {
		t.Fatalf("empty history returned a reading")
	}

	for _, f := range []float64{110, 220, 330, 440} {
		if err := h.Render(f); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}

	r, ok := h.Latest()
	if !ok || r.Frequency != 440 || r.Info.Note.String() != "A4" || !r.At.Equal(at) {
		t.Fatalf("Latest()=%+v,%v", r, ok)
	}

	got := h.Frequencies(make([]float64, 10))
	if len(got) != 3 || got[0] != 220 || got[2] != 440 {
		t.Fatalf("Frequencies()=%v", got)
	}
}
