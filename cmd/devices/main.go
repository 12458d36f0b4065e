// Command devices lists the capture devices a backend can open.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/metalblueberry/pitchtuner/internal/logging"
	"github.com/metalblueberry/pitchtuner/pkg/audio"
)

var defaultMark = lipgloss.NewStyle().Bold(true)

func main() {
	backend := flag.String("backend", audio.BackendPortAudio, "audio backend: portaudio or malgo")
	flag.Parse()

	log := logging.New(logrus.WarnLevel, os.Stderr)
	devices, err := audio.Devices(*backend)
	if err != nil {
		log.WithError(err).WithField("backend", *backend).Error("cannot list devices")
		os.Exit(1)
	}
	if err := printDevices(os.Stdout, devices); err != nil {
		log.WithError(err).Error("cannot write device list")
		os.Exit(1)
	}
}

func printDevices(w io.Writer, devices []audio.DeviceInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCHANNELS\tSAMPLE RATE\t")
	for _, d := range devices {
		name := d.Name
		if d.Default {
			name = defaultMark.Render(name + " (default)")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", name, unknownIfZero(float64(d.MaxInputChannels), "%.0f"), unknownIfZero(d.DefaultSampleRate, "%.0f Hz"))
	}
	return tw.Flush()
}

func unknownIfZero(v float64, format string) string {
	if v == 0 {
		return "?"
	}
	return fmt.Sprintf(format, v)
}
