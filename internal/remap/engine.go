package remap

import (
	"sync/atomic"

	"github.com/banshee-data/facelink/internal/livelink/parse"
	"github.com/banshee-data/facelink/internal/smoothing"
	"github.com/banshee-data/facelink/internal/unified"
)

// Config selects which sections are produced initially and whether they
// are smoothed.
type Config struct {
	EyeEnabled bool
	LipEnabled bool

	// Smoothing, when non-nil, filters every scalar output channel.
	Smoothing *smoothing.Bank
}

// Engine remaps source poses. Remap and Reset belong to the capture loop;
// the section gates may be flipped from any goroutine and take effect on
// the next Remap.
type Engine struct {
	smoothing *smoothing.Bank
	eye       atomic.Bool
	lip       atomic.Bool
}

// NewEngine creates an engine.
func NewEngine(cfg Config) *Engine {
	e := &Engine{smoothing: cfg.Smoothing}
	e.eye.Store(cfg.EyeEnabled)
	e.lip.Store(cfg.LipEnabled)
	return e
}

// EyeEnabled reports whether eye output is produced.
func (e *Engine) EyeEnabled() bool { return e.eye.Load() }

// LipEnabled reports whether lip output is produced.
func (e *Engine) LipEnabled() bool { return e.lip.Load() }

// SetEyeEnabled turns eye output on or off. While off, the eye section of
// each new pose is carried over from the previous one.
func (e *Engine) SetEyeEnabled(on bool) { e.eye.Store(on) }

// SetLipEnabled turns lip output on or off, like SetEyeEnabled.
func (e *Engine) SetLipEnabled(on bool) { e.lip.Store(on) }

// Reset clears smoothing state.
func (e *Engine) Reset() {
	if e.smoothing != nil {
		e.smoothing.Reset()
	}
}

// Remap builds the next target pose from src. A disabled section is copied
// from prev unchanged (zero when prev is nil). prev is never modified.
func (e *Engine) Remap(src *parse.SourcePose, prev *unified.TargetPose) *unified.TargetPose {
	next := &unified.TargetPose{}
	if prev != nil {
		*next = *prev
	}

	if e.eye.Load() {
		next.Eye = RemapEyes(src)
		if e.smoothing != nil {
			e.smoothEyes(&next.Eye)
		}
	}
	if e.lip.Load() {
		next.Lip = RemapLips(src.Lip)
		if e.smoothing != nil {
			e.smoothLips(&next.Lip)
		}
	}
	return next
}

var (
	eyeSides  = []string{"eye.left", "eye.right", "eye.combined"}
	eyeFields = []string{"look.x", "look.y", "openness", "widen"}
)

// ChannelNames lists every output channel name the smoothing bank sees,
// eye channels first, then "lip.<LipParam>" in enumeration order.
func ChannelNames() []string {
	names := make([]string, 0, len(eyeSides)*len(eyeFields)+int(unified.NumLipParams))
	for _, side := range eyeSides {
		for _, field := range eyeFields {
			names = append(names, side+"."+field)
		}
	}
	for i := range unified.NumLipParams {
		names = append(names, "lip."+i.String())
	}
	return names
}

func (e *Engine) smoothEyes(d *unified.EyeData) {
	for i, s := range []*unified.EyeState{&d.Left, &d.Right, &d.Combined} {
		e.smoothEye(eyeSides[i], s)
	}
}

func (e *Engine) smoothEye(prefix string, s *unified.EyeState) {
	b := e.smoothing
	s.Look.X = b.Process(prefix+".look.x", s.Look.X)
	s.Look.Y = b.Process(prefix+".look.y", s.Look.Y)
	s.Openness = b.Process(prefix+".openness", s.Openness)
	s.Widen = b.Process(prefix+".widen", s.Widen)
}

func (e *Engine) smoothLips(d *unified.LipData) {
	b := e.smoothing
	for i := range d {
		d[i] = b.Process("lip."+unified.LipParam(i).String(), d[i])
	}
}
