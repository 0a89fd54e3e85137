// Package unified defines the canonical face-tracking parameter set
// published to avatar animation consumers. Its schema is fixed: capture
// vocabularies may change, the target pose does not.
package unified

import (
	"encoding/json"
	"fmt"
)

// Vector2 is a gaze angle pair (x = yaw, y = pitch in target convention).
type Vector2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// EyeState is the derived state of one eye.
type EyeState struct {
	Look     Vector2 `json:"look"`
	Openness float32 `json:"openness"`
	Widen    float32 `json:"widen"`
}

// EyeData groups both eyes and the cyclopean combined eye.
type EyeData struct {
	Left     EyeState `json:"left"`
	Right    EyeState `json:"right"`
	Combined EyeState `json:"combined"`
}

// LipParam enumerates the lower-face target parameters.
type LipParam int

const (
	JawRight LipParam = iota
	JawLeft
	JawForward
	JawOpen
	MouthApeShape
	MouthUpperRight
	MouthUpperLeft
	MouthLowerRight
	MouthLowerLeft
	MouthUpperOverturn
	MouthLowerOverturn
	MouthPout
	MouthSmileRight
	MouthSmileLeft
	MouthSadRight
	MouthSadLeft
	CheekPuffRight
	CheekPuffLeft
	CheekSuck
	MouthUpperUpRight
	MouthUpperUpLeft
	MouthLowerDownRight
	MouthLowerDownLeft
	MouthUpperInside
	MouthLowerInside
	MouthLowerOverlay
	TongueLongStep1
	TongueLongStep2
	TongueDown
	TongueUp
	TongueRight
	TongueLeft
	TongueRoll
	TongueUpLeftMorph
	TongueUpRightMorph
	TongueDownLeftMorph
	TongueDownRightMorph

	NumLipParams
)

var lipParamNames = [NumLipParams]string{
	"JawRight", "JawLeft", "JawForward", "JawOpen",
	"MouthApeShape",
	"MouthUpperRight", "MouthUpperLeft", "MouthLowerRight", "MouthLowerLeft",
	"MouthUpperOverturn", "MouthLowerOverturn",
	"MouthPout",
	"MouthSmileRight", "MouthSmileLeft", "MouthSadRight", "MouthSadLeft",
	"CheekPuffRight", "CheekPuffLeft", "CheekSuck",
	"MouthUpperUpRight", "MouthUpperUpLeft", "MouthLowerDownRight", "MouthLowerDownLeft",
	"MouthUpperInside", "MouthLowerInside", "MouthLowerOverlay",
	"TongueLongStep1", "TongueLongStep2",
	"TongueDown", "TongueUp", "TongueRight", "TongueLeft", "TongueRoll",
	"TongueUpLeftMorph", "TongueUpRightMorph", "TongueDownLeftMorph", "TongueDownRightMorph",
}

func (p LipParam) String() string {
	if p < 0 || p >= NumLipParams {
		return "LipParam(?)"
	}
	return lipParamNames[p]
}

// ParseLipParam resolves a parameter by name.
func ParseLipParam(name string) (LipParam, bool) {
	for i, n := range lipParamNames {
		if n == name {
			return LipParam(i), true
		}
	}
	return 0, false
}

// ZeroPlaceholders are parameters the capture stream has no signal for.
// They are always emitted, always zero.
var ZeroPlaceholders = []LipParam{
	CheekSuck,
	MouthLowerOverlay,
	TongueDown,
	TongueUp,
	TongueRight,
	TongueLeft,
	TongueRoll,
	TongueUpLeftMorph,
	TongueUpRightMorph,
	TongueDownLeftMorph,
	TongueDownRightMorph,
}

// LipData holds every LipParam value.
type LipData [NumLipParams]float32

// Map returns the values keyed by parameter name.
func (d *LipData) Map() map[string]float32 {
	out := make(map[string]float32, NumLipParams)
	for i, v := range d {
		out[lipParamNames[i]] = v
	}
	return out
}

// MarshalJSON encodes lip data as a name → value object so consumers do
// not depend on enumeration order.
func (d LipData) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Map())
}

// UnmarshalJSON decodes the object form written by MarshalJSON. Unknown
// names are rejected; absent names decode as zero.
func (d *LipData) UnmarshalJSON(b []byte) error {
	var m map[string]float32
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	out, err := LipDataFromMap(m)
	if err != nil {
		return err
	}
	*d = out
	return nil
}

// LipDataFromMap builds LipData from name → value pairs.
func LipDataFromMap(m map[string]float32) (LipData, error) {
	var d LipData
	for name, v := range m {
		p, ok := ParseLipParam(name)
		if !ok {
			return LipData{}, fmt.Errorf("unknown lip parameter %q", name)
		}
		d[p] = v
	}
	return d, nil
}

// TargetPose is the complete published output of one cycle.
type TargetPose struct {
	Eye EyeData `json:"eye"`
	Lip LipData `json:"lip"`
}
