package smoothing

import "sync"

// Params tunes one channel. Speed scales the change magnitude into a blend
// rate; Decay is the per-sample carry-over of the previous rate. A bypassed
// channel passes samples through and keeps no filter.
type Params struct {
	Speed  float32 `json:"speed"`
	Decay  float32 `json:"decay"`
	Bypass bool    `json:"bypass,omitempty"`
}

// DefaultParams suits normalised blendshape coefficients.
var DefaultParams = Params{Speed: 8, Decay: 0.8}

// Bank owns one Filter per named channel. A channel's filter is created and
// initialised on its first sample.
type Bank struct {
	mu        sync.Mutex
	defaults  Params
	overrides map[string]Params
	filters   map[string]*Filter
}

// NewBank creates a bank using defaults for channels without an override.
func NewBank(defaults Params, overrides map[string]Params) *Bank {
	o := make(map[string]Params, len(overrides))
	for k, v := range overrides {
		o[k] = v
	}
	return &Bank{
		defaults:  defaults,
		overrides: o,
		filters:   make(map[string]*Filter),
	}
}

// Params returns the parameters applied to channel.
func (b *Bank) Params(channel string) Params {
	if p, ok := b.overrides[channel]; ok {
		return p
	}
	return b.defaults
}

// Process smooths one sample of channel. The first sample of a channel is
// returned unchanged, as is every sample of a bypassed channel.
func (b *Bank) Process(channel string, sample float32) float32 {
	p := b.Params(channel)
	if p.Bypass {
		return sample
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, ok := b.filters[channel]
	if !ok {
		f = &Filter{}
		f.Init(sample)
		b.filters[channel] = f
		return sample
	}
	return f.Process(sample, p.Speed, p.Decay)
}

// Reset drops all filter state.
func (b *Bank) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters = make(map[string]*Filter)
}

// Len returns the number of channels seen since the last Reset.
func (b *Bank) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.filters)
}
