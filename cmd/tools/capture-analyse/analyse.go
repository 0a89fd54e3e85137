package main

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/facelink/internal/livelink/parse"
	"github.com/banshee-data/facelink/internal/remap"
	"github.com/banshee-data/facelink/internal/smoothing"
	"github.com/banshee-data/facelink/internal/unified"
)

// plotChannels are drawn by savePlot, in legend order.
var plotChannels = []string{
	"eye.left.openness",
	"eye.right.openness",
	"lip.JawOpen",
	"lip.MouthApeShape",
	"lip.MouthPout",
}

// ChannelSummary describes one output channel over a capture. Jitter is
// the standard deviation of frame-to-frame differences, which is what
// smoothing is meant to reduce.
type ChannelSummary struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Jitter float64 `json:"jitter"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Report is the result of analysing one capture.
type Report struct {
	PCAPFile       string           `json:"pcap_file"`
	Vocabulary     string           `json:"vocabulary"`
	Smoothed       bool             `json:"smoothed"`
	Packets        int              `json:"packets"`
	Matched        int              `json:"matched_packets"`
	Frames         int              `json:"frames"`
	DecodeFailures int              `json:"decode_failures"`
	DurationSecs   float64          `json:"duration_secs"`
	FrameRate      float64          `json:"frame_rate_hz"`
	Channels       []ChannelSummary `json:"channels"`
}

// analyser runs captured payloads through the live pipeline and records
// every output channel.
type analyser struct {
	vocab  *parse.Vocabulary
	engine *remap.Engine
	last   *unified.TargetPose

	failures int
	times    []time.Time
	series   map[string][]float64
}

func newAnalyser(vocab *parse.Vocabulary, bank *smoothing.Bank) *analyser {
	return &analyser{
		vocab:  vocab,
		engine: remap.NewEngine(remap.Config{EyeEnabled: true, LipEnabled: true, Smoothing: bank}),
		series: make(map[string][]float64),
	}
}

// handle is a network.ReplayHandler.
func (a *analyser) handle(payload []byte, captured time.Time) error {
	src, err := parse.ParseFrame(payload, a.vocab)
	if err != nil {
		a.failures++
		return err
	}
	pose := a.engine.Remap(src, a.last)
	a.last = pose
	a.times = append(a.times, captured)

	eyes := map[string]unified.EyeState{"left": pose.Eye.Left, "right": pose.Eye.Right, "combined": pose.Eye.Combined}
	for side, e := range eyes {
		a.record("eye."+side+".openness", e.Openness)
		a.record("eye."+side+".widen", e.Widen)
		a.record("eye."+side+".look.x", e.Look.X)
		a.record("eye."+side+".look.y", e.Look.Y)
	}
	for i, v := range pose.Lip {
		a.record("lip."+unified.LipParam(i).String(), v)
	}
	return nil
}

func (a *analyser) record(name string, v float32) {
	a.series[name] = append(a.series[name], float64(v))
}

// report summarises everything handled so far.
func (a *analyser) report() Report {
	r := Report{
		Vocabulary:     a.vocab.Version(),
		Frames:         len(a.times),
		DecodeFailures: a.failures,
	}
	if n := len(a.times); n > 1 {
		d := a.times[n-1].Sub(a.times[0])
		r.DurationSecs = d.Seconds()
		if d > 0 {
			r.FrameRate = float64(n-1) / d.Seconds()
		}
	}

	names := make([]string, 0, len(a.series))
	for name := range a.series {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.Channels = append(r.Channels, summarise(name, a.series[name]))
	}
	return r
}

func summarise(name string, xs []float64) ChannelSummary {
	s := ChannelSummary{Name: name}
	if len(xs) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		s.StdDev = 0
	}
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
	}
	if len(xs) > 2 {
		diffs := make([]float64, len(xs)-1)
		for i := 1; i < len(xs); i++ {
			diffs[i-1] = xs[i] - xs[i-1]
		}
		s.Jitter = stat.StdDev(diffs, nil)
	}
	return s
}

// savePlot draws plotChannels against capture time and writes a PNG.
func (a *analyser) savePlot(path, title string) error {
	if len(a.times) == 0 {
		return fmt.Errorf("no frames to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Value"

	start := a.times[0]
	for i, name := range plotChannels {
		values := a.series[name]
		pts := make(plotter.XYs, len(values))
		for j, v := range values {
			pts[j] = plotter.XY{X: a.times[j].Sub(start).Seconds(), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to create line for %s: %w", name, err)
		}
		line.Width = vg.Points(1)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true

	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
