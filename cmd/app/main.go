// Copyright 2016 Hajime Hoshi
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command app is the windowed tuner. It shows the latest note and a plot of
// the deviation of recent readings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/sirupsen/logrus"

	"github.com/metalblueberry/pitchtuner/internal/config"
	"github.com/metalblueberry/pitchtuner/internal/logging"
	"github.com/metalblueberry/pitchtuner/pkg/audio"
	"github.com/metalblueberry/pitchtuner/pkg/capture"
	"github.com/metalblueberry/pitchtuner/pkg/display"
	"github.com/metalblueberry/pitchtuner/pkg/pitch"
	"github.com/metalblueberry/pitchtuner/pkg/tuner"
)

const (
	screenWidth  = 640
	screenHeight = 480

	historySize = 200
	// staleAfter blanks the note when no reading arrived for this long.
	staleAfter = 2 * time.Second
)

type Game struct {
	ctx     context.Context
	history *display.History
	now     func() time.Time

	buff       []float64
	deviations []float64

	vertices []ebiten.Vertex
	indices  []uint16
}

func (g *Game) Update() error {
	return g.ctx.Err()
}

func (g *Game) Draw(screen *ebiten.Image) {
	up := screen.SubImage(image.Rect(0, 0, screen.Bounds().Dx(), screen.Bounds().Dy()/2)).(*ebiten.Image)
	down := screen.SubImage(image.Rect(0, screen.Bounds().Dy()/2, screen.Bounds().Dx(), screen.Bounds().Dy())).(*ebiten.Image)

	reading, ok := g.history.Latest()
	if !ok || g.now().Sub(reading.At) > staleAfter {
		ebitenutil.DebugPrint(screen, "Listening...")
	} else {
		g.drawReading(up, reading)
	}

	g.buff = g.history.Frequencies(g.buff)
	g.deviations = deviations(g.deviations, g.buff)
	g.drawCenterLine(down)
	g.drawWave(down, g.deviations, 0.5)
}

func (g *Game) drawReading(screen *ebiten.Image, r display.Reading) {
	c := display.Color(r.Info.Deviation)
	b := screen.Bounds()
	w := float32(b.Dx()) / 3
	h := float32(b.Dy()) / 3
	x := float32(b.Min.X) + w
	y := float32(b.Min.Y) + h
	vector.DrawFilledRect(screen, x, y, w, h, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}, false)
	if r.Info.InTune() {
		vector.StrokeRect(screen, x-4, y-4, w+8, h+8, 2, color.RGBA{G: 0xff, A: 0xff}, false)
	}

	msg := fmt.Sprintf("Pitch: %.1f hertz\nNote: %s %s\nCents: %+.1f", r.Frequency, r.Info.Note, r.Info.Hint(), r.Info.Cents())
	ebitenutil.DebugPrintAt(screen, msg, b.Min.X+8, b.Min.Y+8)
}

// deviations maps each frequency to its deviation from the nearest note.
func deviations(dst []float64, frequencies []float64) []float64 {
	dst = dst[:0]
	for _, f := range frequencies {
		dst = append(dst, tuner.Map(f).Deviation)
	}
	return dst
}

var (
	whiteImage = ebiten.NewImage(3, 3)

	// whiteSubImage is an internal sub image of whiteImage.
	// Use whiteSubImage at DrawTriangles instead of whiteImage in order to avoid bleeding edges.
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

func (g *Game) drawCenterLine(screen *ebiten.Image) {
	b := screen.Bounds()
	mid := float32(b.Min.Y + b.Dy()/2)
	vector.StrokeLine(screen, float32(b.Min.X), mid, float32(b.Max.X), mid, 1, color.Gray{Y: 0x60}, false)
}

// drawWave plots data scaled so that ±size spans the half height of screen.
// Positive values are drawn above the middle line.
func (g *Game) drawWave(screen *ebiten.Image, data []float64, size float64) {
	if len(data) < 2 {
		return
	}
	var path vector.Path
	b := screen.Bounds()
	mid := b.Min.Y + b.Dy()/2
	width := b.Dx()

	scale := float64(b.Dy()/2) / size
	for i := range data {
		x := float32(b.Min.X) + float32(i*width)/float32(historySize)
		y := float32(float64(mid) - data[i]*scale)
		if i == 0 {
			path.MoveTo(x, y)
			continue
		}
		path.LineTo(x, y)
	}

	c := display.Color(data[len(data)-1])
	op := &vector.StrokeOptions{}
	op.Width = float32(2)
	op.LineJoin = vector.LineJoinRound
	vs, is := path.AppendVerticesAndIndicesForStroke(g.vertices[:0], g.indices[:0], op)
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = float32(c.R) / 0xff
		vs[i].ColorG = float32(c.G) / 0xff
		vs[i].ColorB = float32(c.B) / 0xff
		vs[i].ColorA = 1
	}
	screen.DrawTriangles(vs, is, whiteSubImage, &ebiten.DrawTrianglesOptions{
		AntiAlias: true,
	})
	g.vertices, g.indices = vs, is
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := audio.Open(cfg.Audio.Backend, cfg.AudioOptions(log))
	if err != nil {
		log.WithError(err).Error("cannot open audio input")
		return 1
	}
	defer func() {
		if err := source.Close(); err != nil {
			log.WithError(err).Warn("closing audio input")
		}
	}()

	history := display.NewHistory(historySize)
	loop, err := capture.New(cfg.CaptureOptions(source.Config(), log), pitch.NewEstimator(cfg.PitchOptions()), history)
	if err != nil {
		log.WithError(err).Error("unsupported input stream")
		return 1
	}
	if err := source.Start(loop); err != nil {
		log.WithError(err).Error("cannot start audio input")
		return 1
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Tuner")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err = ebiten.RunGame(&Game{
		ctx:     ctx,
		history: history,
		now:     time.Now,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("window closed with error")
		return 1
	}
	return 0
}
