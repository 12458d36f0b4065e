// Package config defines the tuner's configuration file and its defaults.
package config

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/metalblueberry/pitchtuner/pkg/audio"
	"github.com/metalblueberry/pitchtuner/pkg/capture"
	"github.com/metalblueberry/pitchtuner/pkg/display"
	"github.com/metalblueberry/pitchtuner/pkg/pitch"
)

// Display modes.
const (
	ModeTerminal = "terminal"
	ModePlain    = "plain"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Pitch   PitchConfig   `yaml:"pitch"`
	Capture CaptureConfig `yaml:"capture"`
	Display DisplayConfig `yaml:"display"`
	Log     LogConfig     `yaml:"log"`
}

// AudioConfig selects the capture backend and device. Zero numeric values
// use the device defaults.
type AudioConfig struct {
	Backend         string `yaml:"backend"`
	Device          string `yaml:"device"`
	Channels        int    `yaml:"channels"`
	SampleRate      int    `yaml:"sample_rate"`
	FramesPerBuffer int    `yaml:"frames_per_buffer"`
}

type PitchConfig struct {
	PowerThreshold   float64 `yaml:"power_threshold"`
	ClarityThreshold float64 `yaml:"clarity_threshold"`
	// Difference is auto, direct or fft.
	Difference string `yaml:"difference"`
	MinWindow  int    `yaml:"min_window"`
}

type CaptureConfig struct {
	RenderInterval   time.Duration `yaml:"render_interval"`
	BufferCapacity   int           `yaml:"buffer_capacity"`
	ErrorLogInterval time.Duration `yaml:"error_log_interval"`
}

type DisplayConfig struct {
	Mode string `yaml:"mode"`
	// Color is a termenv profile name or auto.
	Color            string `yaml:"color"`
	InTuneBackground string `yaml:"in_tune_background"`
}

type LogConfig struct {
	Level LogLevel `yaml:"level"`
	// File receives log output instead of stderr when set.
	File string `yaml:"file"`
}

// LogLevel is a logrus level name.
type LogLevel string

// IsValid reports whether l names a level New accepts.
func (l LogLevel) IsValid() bool {
	switch l {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

// Logrus converts l, falling back to warn for unknown names.
func (l LogLevel) Logrus() logrus.Level {
	level, err := logrus.ParseLevel(string(l))
	if err != nil || !l.IsValid() {
		return logrus.WarnLevel
	}
	return level
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	opts := pitch.DefaultOptions()
	return &Config{
		Audio: AudioConfig{
			Backend: audio.BackendPortAudio,
		},
		Pitch: PitchConfig{
			PowerThreshold:   opts.PowerThreshold,
			ClarityThreshold: opts.ClarityThreshold,
			Difference:       opts.Difference.String(),
		},
		Capture: CaptureConfig{
			RenderInterval:   capture.DefaultRenderInterval,
			BufferCapacity:   capture.DefaultBufferCapacity,
			ErrorLogInterval: capture.DefaultErrorLogInterval,
		},
		Display: DisplayConfig{
			Mode:             ModeTerminal,
			Color:            "auto",
			InTuneBackground: display.DefaultInTuneBackground,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// PitchOptions converts the pitch section. Call it on a validated config.
func (c *Config) PitchOptions() pitch.Options {
	difference, _ := pitch.ParseDifference(c.Pitch.Difference)
	return pitch.Options{
		PowerThreshold:   c.Pitch.PowerThreshold,
		ClarityThreshold: c.Pitch.ClarityThreshold,
		Difference:       difference,
	}
}

// AudioOptions converts the audio section.
func (c *Config) AudioOptions(log logrus.FieldLogger) audio.Options {
	return audio.Options{
		Device:          c.Audio.Device,
		Channels:        c.Audio.Channels,
		SampleRate:      c.Audio.SampleRate,
		FramesPerBuffer: c.Audio.FramesPerBuffer,
		Log:             log,
	}
}

// CaptureOptions converts the capture section for a negotiated stream.
func (c *Config) CaptureOptions(stream audio.StreamConfig, log logrus.FieldLogger) capture.Options {
	return capture.Options{
		Channels:         stream.Channels,
		SampleRate:       stream.SampleRate,
		RenderInterval:   c.Capture.RenderInterval,
		BufferCapacity:   c.Capture.BufferCapacity,
		MinWindow:        c.Pitch.MinWindow,
		ErrorLogInterval: c.Capture.ErrorLogInterval,
		Log:              log,
	}
}
