package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/metalblueberry/pitchtuner/pkg/audio"
	"github.com/metalblueberry/pitchtuner/pkg/display"
	"github.com/metalblueberry/pitchtuner/pkg/pitch"
)

// Load reads the YAML configuration file at path on top of [Default] and
// validates the result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, Validate(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates the
// result. Keys missing from r keep their default values.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Audio
	switch strings.ToLower(cfg.Audio.Backend) {
	case audio.BackendPortAudio, audio.BackendMalgo:
	default:
		errs = append(errs, fmt.Errorf("audio.backend %q is invalid; valid values: %s, %s", cfg.Audio.Backend, audio.BackendPortAudio, audio.BackendMalgo))
	}
	if cfg.Audio.Channels < 0 {
		errs = append(errs, fmt.Errorf("audio.channels must be >= 0, got %d", cfg.Audio.Channels))
	}
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be >= 0, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FramesPerBuffer < 0 {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer must be >= 0, got %d", cfg.Audio.FramesPerBuffer))
	}

	// Pitch
	if _, err := pitch.ParseDifference(cfg.Pitch.Difference); err != nil {
		errs = append(errs, fmt.Errorf("pitch.difference: %w", err))
	} else if err := cfg.PitchOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Pitch.MinWindow < 0 {
		errs = append(errs, fmt.Errorf("pitch.min_window must be >= 0, got %d", cfg.Pitch.MinWindow))
	}

	// Capture
	if cfg.Capture.RenderInterval < 0 {
		errs = append(errs, fmt.Errorf("capture.render_interval must be >= 0, got %v", cfg.Capture.RenderInterval))
	}
	if cfg.Capture.BufferCapacity <= 0 {
		errs = append(errs, fmt.Errorf("capture.buffer_capacity must be > 0, got %d", cfg.Capture.BufferCapacity))
	}
	if cfg.Capture.ErrorLogInterval <= 0 {
		errs = append(errs, fmt.Errorf("capture.error_log_interval must be > 0, got %v", cfg.Capture.ErrorLogInterval))
	}

	// Display
	switch cfg.Display.Mode {
	case ModeTerminal, ModePlain:
	default:
		errs = append(errs, fmt.Errorf("display.mode %q is invalid; valid values: %s, %s", cfg.Display.Mode, ModeTerminal, ModePlain))
	}
	if c := cfg.Display.Color; c != "" && c != "auto" {
		if _, err := display.ParseProfile(cfg.Display.Color, nil); err != nil {
			errs = append(errs, fmt.Errorf("display.color: %w", err))
		}
	}

	// Log
	if !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}
