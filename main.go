// Command pitchtuner listens to the default input device and shows the
// nearest note, its deviation and a tuning hint in the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/metalblueberry/pitchtuner/internal/config"
	"github.com/metalblueberry/pitchtuner/internal/logging"
	"github.com/metalblueberry/pitchtuner/pkg/audio"
	"github.com/metalblueberry/pitchtuner/pkg/capture"
	"github.com/metalblueberry/pitchtuner/pkg/display"
	"github.com/metalblueberry/pitchtuner/pkg/pitch"
)

func main() {
	os.Exit(run())
}

func run() int {
	var flags config.Flags
	flags.Register(flag.CommandLine)
	flag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		logging.New(logrus.ErrorLevel, os.Stderr).WithError(err).Error("invalid configuration")
		return 1
	}

	log, closeLog, err := logging.Open(cfg.Log.Level.Logrus(), cfg.Log.File)
	if err != nil {
		logging.New(logrus.ErrorLevel, os.Stderr).WithError(err).Error("cannot open log file")
		return 1
	}
	defer closeLog()

	sink, err := newSink(cfg, log)
	if err != nil {
		log.WithError(err).Error("cannot set up display")
		return 1
	}

	source, err := audio.Open(cfg.Audio.Backend, cfg.AudioOptions(log))
	if err != nil {
		log.WithError(err).Error("cannot open audio input")
		return 1
	}

	loop, err := capture.New(cfg.CaptureOptions(source.Config(), log), pitch.NewEstimator(cfg.PitchOptions()), sink)
	if err != nil {
		log.WithError(err).Error("unsupported input stream")
		closeSource(source, log)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := source.Start(loop); err != nil {
		log.WithError(err).Error("cannot start audio input")
		closeSource(source, log)
		return 1
	}
	log.Info("listening")

	<-ctx.Done()
	closeSource(source, log)

	stats := loop.Stats()
	log.WithFields(logrus.Fields{
		"delivered":     stats.Delivered,
		"skipped":       stats.Skipped,
		"estimated":     stats.Estimated,
		"rendered":      stats.Rendered,
		"stream_errors": stats.StreamErrors,
	}).Info("stopped")
	return 0
}

// newSink picks the display for cfg. Terminal mode needs stdout to be a
// terminal; otherwise the plain line output is used.
func newSink(cfg *config.Config, log logrus.FieldLogger) (capture.Sink, error) {
	mode := cfg.Display.Mode
	if mode == config.ModeTerminal && !term.IsTerminal(int(os.Stdout.Fd())) {
		log.Warn("stdout is not a terminal, using plain output")
		mode = config.ModePlain
	}
	if mode == config.ModePlain {
		return display.NewPlain(os.Stdout, log), nil
	}

	profile, err := display.ParseProfile(cfg.Display.Color, os.Stdout)
	if err != nil {
		return nil, err
	}
	return display.NewTerminal(os.Stdout, display.TerminalOptions{
		Profile:          profile,
		InTuneBackground: cfg.Display.InTuneBackground,
	}), nil
}

func closeSource(source audio.Source, log logrus.FieldLogger) {
	if err := source.Close(); err != nil {
		log.WithError(err).Warn("closing audio input")
	}
}
