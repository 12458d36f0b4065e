package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/metalblueberry/pitchtuner/pkg/audio"
)

func TestPrintDevices(t *testing.T) {
	var buf bytes.Buffer
	err := printDevices(&buf, []audio.DeviceInfo{
		{Name: "HDA Intel PCH", MaxInputChannels: 2, DefaultSampleRate: 44100, Default: true},
		{Name: "USB Microphone"},
	})
	if err != nil {
		t.Fatalf("printDevices: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Fatalf("header=%q", lines[0])
	}
	if !strings.Contains(lines[1], "HDA Intel PCH (default)") || !strings.Contains(lines[1], "44100 Hz") {
		t.Fatalf("default device line=%q", lines[1])
	}
	if !strings.Contains(lines[2], "USB Microphone") || strings.Count(lines[2], "?") != 2 {
		t.Fatalf("unknown fields line=%q", lines[2])
	}
}
