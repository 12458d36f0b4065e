package config

import "flag"

// Flags holds the command-line overrides shared by the tuner commands.
type Flags struct {
	Path     string
	Backend  string
	Device   string
	Mode     string
	LogLevel string
}

// Register defines the flags on fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Path, "config", "", "path to a YAML configuration file")
	fs.StringVar(&f.Backend, "backend", "", "audio backend: portaudio or malgo")
	fs.StringVar(&f.Device, "device", "", "substring of the input device name")
	fs.StringVar(&f.Mode, "mode", "", "display mode: terminal or plain")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn or error")
}

// Load reads the configuration file named by -config and applies the other
// flags on top. The result is validated after the overrides.
func (f *Flags) Load() (*Config, error) {
	cfg, err := Load(f.Path)
	if err != nil {
		return nil, err
	}
	f.apply(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *Flags) apply(cfg *Config) {
	if f.Backend != "" {
		cfg.Audio.Backend = f.Backend
	}
	if f.Device != "" {
		cfg.Audio.Device = f.Device
	}
	if f.Mode != "" {
		cfg.Display.Mode = f.Mode
	}
	if f.LogLevel != "" {
		cfg.Log.Level = LogLevel(f.LogLevel)
	}
}
