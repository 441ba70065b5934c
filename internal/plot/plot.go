// Package plot renders archived readings as a stacked PNG time series,
// one panel per measurement channel, sharing the x axis.
package plot

import (
	"fmt"
	"image/color"
	"os"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/sensorlog/aranet-archive/internal/reading"
)

// Channel names accepted by Render, in panel order.
const (
	ChannelCO2         = "co2"
	ChannelTemperature = "temperature"
	ChannelHumidity    = "humidity"
	ChannelPressure    = "pressure"
	ChannelBattery     = "battery"
)

type channelSpec struct {
	label string
	unit  string
	color color.RGBA
	value func(reading.Reading) (float64, bool)
}

// Per-channel color/unit table, carried over from the original plotting
// front-end (CO2 purple, temperature red, humidity blue, pressure green).
var channels = map[string]channelSpec{
	ChannelCO2: {"CO2", "ppm", color.RGBA{R: 0x80, B: 0x80, A: 0xff},
		func(r reading.Reading) (float64, bool) {
			if r.CO2PPM == nil {
				return 0, false
			}
			return float64(*r.CO2PPM), true
		}},
	ChannelTemperature: {"Temperature", "°C", color.RGBA{R: 0xd6, G: 0x2c, B: 0x2c, A: 0xff},
		func(r reading.Reading) (float64, bool) {
			if r.Temperature == nil {
				return 0, false
			}
			return *r.Temperature, true
		}},
	ChannelHumidity: {"Humidity", "%", color.RGBA{R: 0x1f, G: 0x4f, B: 0xd6, A: 0xff},
		func(r reading.Reading) (float64, bool) {
			if r.Humidity == nil {
				return 0, false
			}
			return *r.Humidity, true
		}},
	ChannelPressure: {"Pressure", "hPa", color.RGBA{G: 0x80, B: 0x20, A: 0xff},
		func(r reading.Reading) (float64, bool) {
			if r.PressureHPa == nil {
				return 0, false
			}
			return *r.PressureHPa, true
		}},
	ChannelBattery: {"Battery", "%", color.RGBA{R: 0x70, G: 0x70, B: 0x70, A: 0xff},
		func(r reading.Reading) (float64, bool) {
			if r.BatteryPct == nil {
				return 0, false
			}
			return float64(*r.BatteryPct), true
		}},
}

// ValidChannels returns the accepted channel names, sorted.
func ValidChannels() []string {
	out := make([]string, 0, len(channels))
	for name := range channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Options controls a Render call.
type Options struct {
	Title string

	// Channels selects the panels, top to bottom. Required, validated.
	Channels []string

	// MaxMeasures thins the series by discarding every second reading
	// while the count exceeds it. Zero means no thinning.
	MaxMeasures int

	// Location renders the x axis in this timezone; nil means UTC.
	Location *time.Location
}

// Render writes a PNG of the readings to path.
func Render(readings []reading.Reading, opts Options, path string) error {
	if len(opts.Channels) == 0 {
		return fmt.Errorf("no channels selected, valid: %v", ValidChannels())
	}
	for _, name := range opts.Channels {
		if _, ok := channels[name]; !ok {
			return fmt.Errorf("unknown channel %q, valid: %v", name, ValidChannels())
		}
	}
	if len(readings) == 0 {
		return fmt.Errorf("no readings in the selected range")
	}

	readings = Thin(readings, opts.MaxMeasures)

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	rows := len(opts.Channels)
	panels := make([][]*plot.Plot, rows)
	for i, name := range opts.Channels {
		def := channels[name]

		p := plot.New()
		p.Title.Text = ""
		if i == 0 {
			p.Title.Text = opts.Title
		}
		p.X.Tick.Marker = plot.TimeTicks{
			Format: "2006-01-02 15:04",
			Time:   plot.UnixTimeIn(loc),
		}
		p.Y.Label.Text = fmt.Sprintf("%s (%s)", def.label, def.unit)
		p.Add(plotter.NewGrid())

		pts := make(plotter.XYs, 0, len(readings))
		for _, r := range readings {
			v, ok := def.value(r)
			if !ok {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(r.Timestamp.Unix()), Y: v})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("build %s series: %w", name, err)
		}
		line.Color = def.color
		p.Add(line)
		p.Legend.Add(def.label, line)
		p.Legend.Top = true

		panels[i] = []*plot.Plot{p}
	}

	img := vgimg.New(12*vg.Inch, vg.Length(4*rows)*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: 1,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := plot.Align(panels, tiles, dc)
	for i := range panels {
		panels[i][0].Draw(canvases[i][0])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Thin discards every second reading while the count exceeds max,
// matching the original plotting job's behavior. max <= 0 disables.
func Thin(readings []reading.Reading, max int) []reading.Reading {
	if max <= 0 {
		return readings
	}
	for len(readings) > max {
		kept := make([]reading.Reading, 0, (len(readings)+1)/2)
		for i := 0; i < len(readings); i += 2 {
			kept = append(kept, readings[i])
		}
		readings = kept
	}
	return readings
}
