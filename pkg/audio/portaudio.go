package audio

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/sirupsen/logrus"
)

type portAudioSource struct {
	*portaudio.Stream
	config  StreamConfig
	handler Handler
}

// OpenPortAudio opens an input-only PortAudio stream. Stereo and wider
// devices are opened with two channels unless opts asks for more.
func OpenPortAudio(opts Options) (Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: portaudio init: %w", err)
	}

	input, err := findPortAudioDevice(opts.Device)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	p := portaudio.HighLatencyParameters(input, nil)
	p.Input.Channels = opts.Channels
	if p.Input.Channels <= 0 {
		p.Input.Channels = min(input.MaxInputChannels, 2)
	}
	if opts.SampleRate > 0 {
		p.SampleRate = float64(opts.SampleRate)
	}
	if opts.FramesPerBuffer > 0 {
		p.FramesPerBuffer = opts.FramesPerBuffer
	}

	s := &portAudioSource{
		config: StreamConfig{
			Channels:   p.Input.Channels,
			SampleRate: int(p.SampleRate),
		},
	}
	s.Stream, err = portaudio.OpenStream(p, s.processAudio)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: open stream on %q: %w", input.Name, err)
	}

	opts.logger().WithFields(logrus.Fields{
		"backend":     BackendPortAudio,
		"device":      input.Name,
		"channels":    s.config.Channels,
		"sample_rate": s.config.SampleRate,
	}).Info("input stream opened")
	return s, nil
}

func (s *portAudioSource) Config() StreamConfig {
	return s.config
}

func (s *portAudioSource) Start(h Handler) error {
	s.handler = h
	if err := s.Stream.Start(); err != nil {
		return fmt.Errorf("audio: start stream: %w", err)
	}
	return nil
}

func (s *portAudioSource) Close() error {
	var errs []error
	if err := s.Stream.Stop(); err != nil && !errors.Is(err, portaudio.StreamIsStopped) {
		errs = append(errs, fmt.Errorf("audio: stop stream: %w", err))
	}
	if err := s.Stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("audio: close stream: %w", err))
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("audio: portaudio terminate: %w", err))
	}
	return errors.Join(errs...)
}

func (s *portAudioSource) processAudio(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.InputOverflow != 0 {
		s.handler.StreamError(ErrInputOverflow)
	}
	s.handler.Deliver(in)
}

func findPortAudioDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		input, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoInputDevice, err)
		}
		return input, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}
	for _, device := range devices {
		if device.MaxInputChannels > 0 && nameMatches(device.Name, name) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("%w: nothing matches %q", ErrNoInputDevice, name)
}

func portAudioDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audio: list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var infos []DeviceInfo
	for _, device := range devices {
		if device.MaxInputChannels <= 0 {
			continue
		}
		infos = append(infos, DeviceInfo{
			Name:              device.Name,
			MaxInputChannels:  device.MaxInputChannels,
			DefaultSampleRate: device.DefaultSampleRate,
			Default:           def != nil && device.Name == def.Name,
		})
	}
	return infos, nil
}
