// Package smoothing implements the fast-attack, slow-release lag filter used
// to take per-frame coefficient noise out of the published pose.
package smoothing

import "math"

// Filter is a two-stage exponential lag filter. The blend rate follows the
// size of the latest change, and decay lets a high rate persist while the
// signal slows down again. The zero value must be initialised with Init
// before use.
type Filter struct {
	value1   float32
	value2   float32
	lastRate float32
}

// Init resets the filter to rest at sample.
func (f *Filter) Init(sample float32) {
	f.value1 = sample
	f.value2 = sample
	f.lastRate = 0
}

// Process feeds one sample and returns the smoothed output.
func (f *Filter) Process(sample, speed, decay float32) float32 {
	delta := sample - f.value1
	rate := speed * float32(math.Abs(float64(delta)))
	f.lastRate = max(f.lastRate*decay, rate)
	r := min(max(f.lastRate, 0), 1)
	f.value1 = lerp(f.value1, sample, r)
	f.value2 = lerp(f.value2, f.value1, r)
	return f.value2
}

// Value returns the last output without advancing the filter.
func (f *Filter) Value() float32 { return f.value2 }

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
