// Package audio adapts capture libraries to a push-based stream of
// interleaved float32 buffers.
package audio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Backend names accepted by Open and Devices.
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
)

var (
	// ErrUnknownBackend is returned for a backend name Open does not know.
	ErrUnknownBackend = errors.New("audio: unknown backend")
	// ErrNoInputDevice is returned when no capture device matches.
	ErrNoInputDevice = errors.New("audio: no input device")
	// ErrInputOverflow is reported when the device dropped input samples.
	ErrInputOverflow = errors.New("audio: input overflow")
	// ErrDeviceStopped is reported when the device stops on its own.
	ErrDeviceStopped = errors.New("audio: device stopped")
)

// StreamConfig is what the device negotiated.
type StreamConfig struct {
	Channels   int
	SampleRate int
}

// Handler receives a stream's buffers and errors. Deliver is called on the
// backend's audio thread; the buffer is only valid during the call.
type Handler interface {
	Deliver(samples []float32)
	StreamError(err error)
}

// Source is an opened capture stream.
type Source interface {
	Config() StreamConfig
	Start(h Handler) error
	Close() error
}

// Options selects and configures the capture device. Zero values mean the
// device default.
type Options struct {
	// Device picks the first input device whose name contains this string,
	// case-insensitively. Empty selects the default input device.
	Device          string
	Channels        int
	SampleRate      int
	FramesPerBuffer int
	Log             logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Log == nil {
		return logrus.StandardLogger()
	}
	return o.Log
}

// DeviceInfo describes a capture device. Zero numeric fields are unknown.
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// Open opens a capture stream on the named backend.
func Open(backend string, opts Options) (Source, error) {
	switch strings.ToLower(backend) {
	case "", BackendPortAudio:
		return OpenPortAudio(opts)
	case BackendMalgo:
		return OpenMalgo(opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// Devices lists the capture devices of the named backend.
func Devices(backend string) ([]DeviceInfo, error) {
	switch strings.ToLower(backend) {
	case "", BackendPortAudio:
		return portAudioDevices()
	case BackendMalgo:
		return malgoDevices()
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

// nameMatches reports whether name contains want, ignoring case.
func nameMatches(name, want string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(want))
}
