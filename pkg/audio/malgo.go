package audio

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/sirupsen/logrus"
)

type malgoSource struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	config StreamConfig

	handler Handler
	closing atomic.Bool
}

// OpenMalgo opens a float32 capture device through miniaudio.
func OpenMalgo(opts Options) (Source, error) {
	log := opts.logger().WithField("backend", BackendMalgo)
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("audio: malgo init: %w", err)
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatF32
	config.Capture.Channels = uint32(max(opts.Channels, 0))
	config.SampleRate = uint32(max(opts.SampleRate, 0))
	if opts.FramesPerBuffer > 0 {
		config.PeriodSizeInFrames = uint32(opts.FramesPerBuffer)
	}
	config.Alsa.NoMMap = 1

	name := "default"
	if opts.Device != "" {
		info, err := findMalgoDevice(ctx, opts.Device)
		if err != nil {
			freeContext(ctx)
			return nil, err
		}
		config.Capture.DeviceID = info.ID.Pointer()
		name = info.Name()
	}

	s := &malgoSource{ctx: ctx}
	s.device, err = malgo.InitDevice(ctx.Context, config, malgo.DeviceCallbacks{
		Data: s.processAudio,
		Stop: s.stopped,
	})
	if err != nil {
		freeContext(ctx)
		return nil, fmt.Errorf("audio: init device %q: %w", name, err)
	}
	s.config = StreamConfig{
		Channels:   int(s.device.CaptureChannels()),
		SampleRate: int(s.device.SampleRate()),
	}

	log.WithFields(logrus.Fields{
		"device":      name,
		"channels":    s.config.Channels,
		"sample_rate": s.config.SampleRate,
	}).Info("input stream opened")
	return s, nil
}

func (s *malgoSource) Config() StreamConfig {
	return s.config
}

func (s *malgoSource) Start(h Handler) error {
	s.handler = h
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("audio: start device: %w", err)
	}
	return nil
}

func (s *malgoSource) Close() error {
	s.closing.Store(true)
	var errs []error
	if s.device.IsStarted() {
		if err := s.device.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("audio: stop device: %w", err))
		}
	}
	s.device.Uninit()
	if err := freeContext(s.ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *malgoSource) processAudio(_, input []byte, _ uint32) {
	samples := float32View(input)
	if len(samples) == 0 {
		return
	}
	s.handler.Deliver(samples)
}

func (s *malgoSource) stopped() {
	if s.closing.Load() || s.handler == nil {
		return
	}
	s.handler.StreamError(ErrDeviceStopped)
}

// float32View reinterprets a native-endian sample buffer without copying.
func float32View(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

func freeContext(ctx *malgo.AllocatedContext) error {
	err := ctx.Uninit()
	ctx.Free()
	if err != nil {
		return fmt.Errorf("audio: malgo uninit: %w", err)
	}
	return nil
}

func findMalgoDevice(ctx *malgo.AllocatedContext, name string) (malgo.DeviceInfo, error) {
	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceInfo{}, fmt.Errorf("audio: list devices: %w", err)
	}
	for _, info := range devices {
		if nameMatches(info.Name(), name) {
			return info, nil
		}
	}
	return malgo.DeviceInfo{}, fmt.Errorf("%w: nothing matches %q", ErrNoInputDevice, name)
}

func malgoDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("audio: malgo init: %w", err)
	}
	defer freeContext(ctx)

	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}

	infos := make([]DeviceInfo, 0, len(devices))
	for _, device := range devices {
		info := DeviceInfo{
			Name:    device.Name(),
			Default: device.IsDefault != 0,
		}
		for _, f := range device.Formats {
			if f.SampleRate > 0 {
				info.DefaultSampleRate = float64(f.SampleRate)
				break
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}
