package parse

import (
	"fmt"
	"sort"
	"strings"
)

// Binding places one wire channel into a SourcePose sub-record. Field is an
// EyeField, LipShape, BrowShape or HeadAxis depending on Group.
type Binding struct {
	Group Group
	Side  Side
	Field int
}

// Channel is one entry of a vocabulary: the wire name at its payload
// position and where the value goes.
type Channel struct {
	Name    string
	Binding Binding
}

// Vocabulary is an immutable, validated channel table. Channel order is the
// order of the float values in the payload.
type Vocabulary struct {
	version  string
	channels []Channel
	names    []string
	index    map[string]Binding
	hasBrow  bool
	hasHead  bool
}

// Vocabulary versions shipped with the bridge.
const (
	// VersionV1 uses the capture app's historical names, where the three
	// eye angle channels carry the side as a prefix ("LeftEyeYaw").
	VersionV1 = "v1"
	// VersionV2 uses suffix names for every per-eye channel ("EyeYawLeft").
	VersionV2 = "v2"

	DefaultVersion = VersionV1
)

func eye(side Side, f EyeField) Binding { return Binding{Group: GroupEye, Side: side, Field: int(f)} }
func lip(s LipShape) Binding           { return Binding{Group: GroupLip, Field: int(s)} }
func brow(s BrowShape) Binding         { return Binding{Group: GroupBrow, Field: int(s)} }
func head(a HeadAxis) Binding          { return Binding{Group: GroupHead, Field: int(a)} }

// v1Channels lists the payload in wire order.
var v1Channels = []Channel{
	{"EyeBlinkLeft", eye(SideLeft, EyeBlink)},
	{"EyeLookDownLeft", eye(SideLeft, EyeLookDown)},
	{"EyeLookInLeft", eye(SideLeft, EyeLookIn)},
	{"EyeLookOutLeft", eye(SideLeft, EyeLookOut)},
	{"EyeLookUpLeft", eye(SideLeft, EyeLookUp)},
	{"EyeSquintLeft", eye(SideLeft, EyeSquint)},
	{"EyeWideLeft", eye(SideLeft, EyeWide)},
	{"EyeBlinkRight", eye(SideRight, EyeBlink)},
	{"EyeLookDownRight", eye(SideRight, EyeLookDown)},
	{"EyeLookInRight", eye(SideRight, EyeLookIn)},
	{"EyeLookOutRight", eye(SideRight, EyeLookOut)},
	{"EyeLookUpRight", eye(SideRight, EyeLookUp)},
	{"EyeSquintRight", eye(SideRight, EyeSquint)},
	{"EyeWideRight", eye(SideRight, EyeWide)},
	{"JawForward", lip(JawForward)},
	{"JawLeft", lip(JawLeft)},
	{"JawRight", lip(JawRight)},
	{"JawOpen", lip(JawOpen)},
	{"MouthClose", lip(MouthClose)},
	{"MouthFunnel", lip(MouthFunnel)},
	{"MouthPucker", lip(MouthPucker)},
	{"MouthLeft", lip(MouthLeft)},
	{"MouthRight", lip(MouthRight)},
	{"MouthSmileLeft", lip(MouthSmileLeft)},
	{"MouthSmileRight", lip(MouthSmileRight)},
	{"MouthFrownLeft", lip(MouthFrownLeft)},
	{"MouthFrownRight", lip(MouthFrownRight)},
	{"MouthDimpleLeft", lip(MouthDimpleLeft)},
	{"MouthDimpleRight", lip(MouthDimpleRight)},
	{"MouthStretchLeft", lip(MouthStretchLeft)},
	{"MouthStretchRight", lip(MouthStretchRight)},
	{"MouthRollLower", lip(MouthRollLower)},
	{"MouthRollUpper", lip(MouthRollUpper)},
	{"MouthShrugLower", lip(MouthShrugLower)},
	{"MouthShrugUpper", lip(MouthShrugUpper)},
	{"MouthPressLeft", lip(MouthPressLeft)},
	{"MouthPressRight", lip(MouthPressRight)},
	{"MouthLowerDownLeft", lip(MouthLowerDownLeft)},
	{"MouthLowerDownRight", lip(MouthLowerDownRight)},
	{"MouthUpperUpLeft", lip(MouthUpperUpLeft)},
	{"MouthUpperUpRight", lip(MouthUpperUpRight)},
	{"BrowDownLeft", brow(BrowDownLeft)},
	{"BrowDownRight", brow(BrowDownRight)},
	{"BrowInnerUp", brow(BrowInnerUp)},
	{"BrowOuterUpLeft", brow(BrowOuterUpLeft)},
	{"BrowOuterUpRight", brow(BrowOuterUpRight)},
	{"CheekPuff", lip(CheekPuff)},
	{"CheekSquintLeft", lip(CheekSquintLeft)},
	{"CheekSquintRight", lip(CheekSquintRight)},
	{"NoseSneerLeft", lip(NoseSneerLeft)},
	{"NoseSneerRight", lip(NoseSneerRight)},
	{"TongueOut", lip(TongueOut)},
	{"HeadYaw", head(HeadYaw)},
	{"HeadPitch", head(HeadPitch)},
	{"HeadRoll", head(HeadRoll)},
	{"LeftEyeYaw", eye(SideLeft, EyeYaw)},
	{"LeftEyePitch", eye(SideLeft, EyePitch)},
	{"LeftEyeRoll", eye(SideLeft, EyeRoll)},
	{"RightEyeYaw", eye(SideRight, EyeYaw)},
	{"RightEyePitch", eye(SideRight, EyePitch)},
	{"RightEyeRoll", eye(SideRight, EyeRoll)},
}

// v2Renames maps the v1 prefix names onto the corrected suffix form.
// Payload positions are unchanged.
var v2Renames = map[string]string{
	"LeftEyeYaw":    "EyeYawLeft",
	"LeftEyePitch":  "EyePitchLeft",
	"LeftEyeRoll":   "EyeRollLeft",
	"RightEyeYaw":   "EyeYawRight",
	"RightEyePitch": "EyePitchRight",
	"RightEyeRoll":  "EyeRollRight",
}

func v2Channels() []Channel {
	out := make([]Channel, len(v1Channels))
	for i, ch := range v1Channels {
		if renamed, ok := v2Renames[ch.Name]; ok {
			ch.Name = renamed
		}
		out[i] = ch
	}
	return out
}

// VocabularyV1 and VocabularyV2 are built once; a broken table is a
// programming error and panics at init.
var (
	VocabularyV1 = mustVocabulary(VersionV1, v1Channels)
	VocabularyV2 = mustVocabulary(VersionV2, v2Channels())
)

func mustVocabulary(version string, channels []Channel) *Vocabulary {
	v, err := NewVocabulary(version, channels)
	if err != nil {
		panic(fmt.Sprintf("vocabulary %s: %v", version, err))
	}
	return v
}

// VocabularyByName returns a shipped vocabulary. An empty name selects
// DefaultVersion.
func VocabularyByName(name string) (*Vocabulary, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DefaultVersion:
		return VocabularyV1, nil
	case VersionV2:
		return VocabularyV2, nil
	default:
		return nil, fmt.Errorf("unknown vocabulary %q (want %s or %s)", name, VersionV1, VersionV2)
	}
}

// NewVocabulary validates channels and builds a lookup table.
func NewVocabulary(version string, channels []Channel) (*Vocabulary, error) {
	v := &Vocabulary{
		version:  version,
		channels: append([]Channel(nil), channels...),
		names:    make([]string, len(channels)),
		index:    make(map[string]Binding, len(channels)),
	}
	for i, ch := range channels {
		v.names[i] = ch.Name
		v.index[ch.Name] = ch.Binding
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks that the table can fill a complete SourcePose: exactly
// FrameChannels unique names, every eye field of both eyes and every lip
// shape bound once, and brow and head either fully bound or ignored.
func (v *Vocabulary) Validate() error {
	if len(v.channels) != FrameChannels {
		return fmt.Errorf("%w: %d channels, want %d", ErrVocabularySize, len(v.channels), FrameChannels)
	}
	if len(v.index) != len(v.channels) {
		return fmt.Errorf("%w: duplicate channel names", ErrVocabularySize)
	}

	var (
		eyes  [2][NumEyeFields]int
		lips  [NumLipShapes]int
		brows [NumBrowShapes]int
		heads [NumHeadAxes]int
	)
	for _, ch := range v.channels {
		b := ch.Binding
		var slot *int
		switch b.Group {
		case GroupEye:
			if b.Side != SideLeft && b.Side != SideRight {
				return fmt.Errorf("channel %q: eye binding without side", ch.Name)
			}
			if b.Field < 0 || b.Field >= int(NumEyeFields) {
				return fmt.Errorf("channel %q: eye field %d out of range", ch.Name, b.Field)
			}
			slot = &eyes[b.Side-SideLeft][b.Field]
		case GroupLip:
			if b.Field < 0 || b.Field >= int(NumLipShapes) {
				return fmt.Errorf("channel %q: lip shape %d out of range", ch.Name, b.Field)
			}
			slot = &lips[b.Field]
		case GroupBrow:
			if b.Field < 0 || b.Field >= int(NumBrowShapes) {
				return fmt.Errorf("channel %q: brow shape %d out of range", ch.Name, b.Field)
			}
			slot = &brows[b.Field]
		case GroupHead:
			if b.Field < 0 || b.Field >= int(NumHeadAxes) {
				return fmt.Errorf("channel %q: head axis %d out of range", ch.Name, b.Field)
			}
			slot = &heads[b.Field]
		case GroupIgnored:
			continue
		default:
			return fmt.Errorf("channel %q: unknown group %d", ch.Name, b.Group)
		}
		*slot++
		if *slot > 1 {
			return fmt.Errorf("channel %q: %s field %d bound twice", ch.Name, b.Group, b.Field)
		}
	}

	var missing []string
	for s, fields := range eyes {
		for f, n := range fields {
			if n == 0 {
				missing = append(missing, fmt.Sprintf("%s eye %s", Side(s)+SideLeft, EyeField(f)))
			}
		}
	}
	for s, n := range lips {
		if n == 0 {
			missing = append(missing, LipShape(s).String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("unbound channels: %s", strings.Join(missing, ", "))
	}

	if partial(brows[:]) {
		return fmt.Errorf("brow channels partially bound")
	}
	if partial(heads[:]) {
		return fmt.Errorf("head channels partially bound")
	}
	v.hasBrow = allBound(brows[:])
	v.hasHead = allBound(heads[:])
	return nil
}

func allBound(counts []int) bool {
	for _, n := range counts {
		if n == 0 {
			return false
		}
	}
	return true
}

func partial(counts []int) bool {
	seen := 0
	for _, n := range counts {
		seen += n
	}
	return seen > 0 && seen < len(counts)
}

// Version returns the vocabulary version label.
func (v *Vocabulary) Version() string { return v.version }

// Names returns the channel names in payload order. The slice is shared;
// callers must not modify it.
func (v *Vocabulary) Names() []string { return v.names }

// Channels returns a copy of the channel table.
func (v *Vocabulary) Channels() []Channel { return append([]Channel(nil), v.channels...) }

// Lookup returns the binding for a wire name.
func (v *Vocabulary) Lookup(name string) (Binding, bool) {
	b, ok := v.index[name]
	return b, ok
}

// HasBrow reports whether assembled poses carry a BrowPose.
func (v *Vocabulary) HasBrow() bool { return v.hasBrow }

// HasHead reports whether assembled poses carry a HeadPose.
func (v *Vocabulary) HasHead() bool { return v.hasHead }
