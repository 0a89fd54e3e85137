// Package remap converts assembled capture poses into the unified target
// parameter set.
//
// All derivations are plain arithmetic on the raw coefficients. The
// composite formulas keep a 0.05 bias so that a resting face maps to a
// near-zero (not exactly zero) contribution.
package remap

import (
	"math"

	"github.com/banshee-data/facelink/internal/livelink/parse"
	"github.com/banshee-data/facelink/internal/unified"
)

// EyeCalc is the closure amount of an eye: a steep power curve on blink
// plus a linear squint term. Openness is 1 - EyeCalc and is not clamped,
// so blink near 1 with any squint goes below zero.
func EyeCalc(blink, squint float32) float32 {
	return float32(math.Pow(0.05+float64(blink), 6)) + squint
}

// ApeCalc is the "mouth open, lips closed" shape.
func ApeCalc(jawOpen, mouthClose float32) float32 {
	c := 0.05 + mouthClose
	return (0.05 + jawOpen) * c * c
}

// DeriveEye maps one raw eye into target space. Pitch is negated: the
// capture reports positive pitch looking down.
func DeriveEye(e parse.EyePose) unified.EyeState {
	return unified.EyeState{
		Look:     unified.Vector2{X: e.Yaw, Y: -e.Pitch},
		Openness: 1 - EyeCalc(e.Blink, e.Squint),
		Widen:    e.Wide,
	}
}

// AverageEyes is the element-wise mean of two raw eyes.
func AverageEyes(l, r parse.EyePose) parse.EyePose {
	avg := func(a, b float32) float32 { return (a + b) / 2 }
	return parse.EyePose{
		Blink:    avg(l.Blink, r.Blink),
		LookDown: avg(l.LookDown, r.LookDown),
		LookIn:   avg(l.LookIn, r.LookIn),
		LookOut:  avg(l.LookOut, r.LookOut),
		LookUp:   avg(l.LookUp, r.LookUp),
		Squint:   avg(l.Squint, r.Squint),
		Wide:     avg(l.Wide, r.Wide),
		Pitch:    avg(l.Pitch, r.Pitch),
		Yaw:      avg(l.Yaw, r.Yaw),
		Roll:     avg(l.Roll, r.Roll),
	}
}

// CombineEyes derives the cyclopean eye from the averaged raw channels.
func CombineEyes(l, r parse.EyePose) unified.EyeState {
	return DeriveEye(AverageEyes(l, r))
}

// RemapEyes derives left, right and combined eye states.
func RemapEyes(src *parse.SourcePose) unified.EyeData {
	return unified.EyeData{
		Left:     DeriveEye(src.Left),
		Right:    DeriveEye(src.Right),
		Combined: CombineEyes(src.Left, src.Right),
	}
}

// RemapLips maps the lower-face channels. The capture has a single
// left/right mouth channel, so the upper and lower target sides both take
// it. Parameters listed in unified.ZeroPlaceholders stay zero.
func RemapLips(l parse.LipPose) unified.LipData {
	var d unified.LipData

	d[unified.JawRight] = l[parse.JawRight]
	d[unified.JawLeft] = l[parse.JawLeft]
	d[unified.JawForward] = l[parse.JawForward]
	d[unified.JawOpen] = l[parse.JawOpen]
	d[unified.MouthApeShape] = ApeCalc(l[parse.JawOpen], l[parse.MouthClose])

	d[unified.MouthUpperRight] = l[parse.MouthRight]
	d[unified.MouthLowerRight] = l[parse.MouthRight]
	d[unified.MouthUpperLeft] = l[parse.MouthLeft]
	d[unified.MouthLowerLeft] = l[parse.MouthLeft]

	d[unified.MouthUpperOverturn] = l[parse.MouthShrugUpper]
	d[unified.MouthLowerOverturn] = l[parse.MouthShrugLower]
	d[unified.MouthPout] = (l[parse.MouthFunnel] + l[parse.MouthPucker]) / 2

	d[unified.MouthSmileRight] = l[parse.MouthSmileRight]
	d[unified.MouthSmileLeft] = l[parse.MouthSmileLeft]
	d[unified.MouthSadRight] = l[parse.MouthFrownRight]
	d[unified.MouthSadLeft] = l[parse.MouthFrownLeft]

	d[unified.CheekPuffRight] = l[parse.CheekPuff]
	d[unified.CheekPuffLeft] = l[parse.CheekPuff]

	d[unified.MouthUpperUpRight] = l[parse.MouthUpperUpRight]
	d[unified.MouthUpperUpLeft] = l[parse.MouthUpperUpLeft]
	d[unified.MouthLowerDownRight] = l[parse.MouthLowerDownRight]
	d[unified.MouthLowerDownLeft] = l[parse.MouthLowerDownLeft]

	d[unified.MouthUpperInside] = l[parse.MouthRollUpper]
	d[unified.MouthLowerInside] = l[parse.MouthRollLower]

	d[unified.TongueLongStep1] = l[parse.TongueOut]
	d[unified.TongueLongStep2] = l[parse.TongueOut]

	return d
}
