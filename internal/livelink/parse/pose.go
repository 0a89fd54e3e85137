package parse

// Side identifies the eye a binding belongs to.
type Side int

const (
	SideNone Side = iota
	SideLeft
	SideRight
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "none"
	}
}

// Group identifies the sub-record of SourcePose a channel is copied into.
type Group int

const (
	GroupEye Group = iota + 1
	GroupLip
	GroupBrow
	GroupHead
	// GroupIgnored marks a payload position that is decoded but not
	// copied into the pose.
	GroupIgnored
)

func (g Group) String() string {
	switch g {
	case GroupEye:
		return "eye"
	case GroupLip:
		return "lip"
	case GroupBrow:
		return "brow"
	case GroupHead:
		return "head"
	case GroupIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// EyeField indexes the ten per-eye channels.
type EyeField int

const (
	EyeBlink EyeField = iota
	EyeLookDown
	EyeLookIn
	EyeLookOut
	EyeLookUp
	EyeSquint
	EyeWide
	EyePitch
	EyeYaw
	EyeRoll

	NumEyeFields
)

var eyeFieldNames = [NumEyeFields]string{
	"Blink", "LookDown", "LookIn", "LookOut", "LookUp",
	"Squint", "Wide", "Pitch", "Yaw", "Roll",
}

func (f EyeField) String() string {
	if f < 0 || f >= NumEyeFields {
		return "EyeField(?)"
	}
	return eyeFieldNames[f]
}

// EyePose holds the raw channels of one eye.
type EyePose struct {
	Blink    float32
	LookDown float32
	LookIn   float32
	LookOut  float32
	LookUp   float32
	Squint   float32
	Wide     float32
	Pitch    float32
	Yaw      float32
	Roll     float32
}

func (e *EyePose) set(f EyeField, v float32) {
	switch f {
	case EyeBlink:
		e.Blink = v
	case EyeLookDown:
		e.LookDown = v
	case EyeLookIn:
		e.LookIn = v
	case EyeLookOut:
		e.LookOut = v
	case EyeLookUp:
		e.LookUp = v
	case EyeSquint:
		e.Squint = v
	case EyeWide:
		e.Wide = v
	case EyePitch:
		e.Pitch = v
	case EyeYaw:
		e.Yaw = v
	case EyeRoll:
		e.Roll = v
	}
}

// LipShape indexes the jaw, mouth, cheek, nose and tongue channels.
type LipShape int

const (
	JawForward LipShape = iota
	JawLeft
	JawRight
	JawOpen
	MouthClose
	MouthFunnel
	MouthPucker
	MouthLeft
	MouthRight
	MouthSmileLeft
	MouthSmileRight
	MouthFrownLeft
	MouthFrownRight
	MouthDimpleLeft
	MouthDimpleRight
	MouthStretchLeft
	MouthStretchRight
	MouthRollLower
	MouthRollUpper
	MouthShrugLower
	MouthShrugUpper
	MouthPressLeft
	MouthPressRight
	MouthLowerDownLeft
	MouthLowerDownRight
	MouthUpperUpLeft
	MouthUpperUpRight
	CheekPuff
	CheekSquintLeft
	CheekSquintRight
	NoseSneerLeft
	NoseSneerRight
	TongueOut

	NumLipShapes
)

var lipShapeNames = [NumLipShapes]string{
	"JawForward", "JawLeft", "JawRight", "JawOpen",
	"MouthClose", "MouthFunnel", "MouthPucker", "MouthLeft", "MouthRight",
	"MouthSmileLeft", "MouthSmileRight", "MouthFrownLeft", "MouthFrownRight",
	"MouthDimpleLeft", "MouthDimpleRight", "MouthStretchLeft", "MouthStretchRight",
	"MouthRollLower", "MouthRollUpper", "MouthShrugLower", "MouthShrugUpper",
	"MouthPressLeft", "MouthPressRight", "MouthLowerDownLeft", "MouthLowerDownRight",
	"MouthUpperUpLeft", "MouthUpperUpRight",
	"CheekPuff", "CheekSquintLeft", "CheekSquintRight",
	"NoseSneerLeft", "NoseSneerRight",
	"TongueOut",
}

func (s LipShape) String() string {
	if s < 0 || s >= NumLipShapes {
		return "LipShape(?)"
	}
	return lipShapeNames[s]
}

// LipPose holds the lower-face channels indexed by LipShape.
type LipPose [NumLipShapes]float32

// BrowShape indexes the brow channels.
type BrowShape int

const (
	BrowDownLeft BrowShape = iota
	BrowDownRight
	BrowInnerUp
	BrowOuterUpLeft
	BrowOuterUpRight

	NumBrowShapes
)

// BrowPose holds the brow channels indexed by BrowShape.
type BrowPose [NumBrowShapes]float32

// HeadAxis indexes the head rotation channels.
type HeadAxis int

const (
	HeadYaw HeadAxis = iota
	HeadPitch
	HeadRoll

	NumHeadAxes
)

// HeadPose holds head rotation indexed by HeadAxis.
type HeadPose [NumHeadAxes]float32

// SourcePose is one fully assembled capture frame. Brow and Head are nil
// when the active vocabulary does not carry those channels.
type SourcePose struct {
	Left  EyePose
	Right EyePose
	Lip   LipPose
	Brow  *BrowPose
	Head  *HeadPose
}

// Eye returns the eye record for side.
func (p *SourcePose) Eye(side Side) *EyePose {
	if side == SideRight {
		return &p.Right
	}
	return &p.Left
}

func (p *SourcePose) set(b Binding, v float32) {
	switch b.Group {
	case GroupEye:
		p.Eye(b.Side).set(EyeField(b.Field), v)
	case GroupLip:
		p.Lip[b.Field] = v
	case GroupBrow:
		p.Brow[b.Field] = v
	case GroupHead:
		p.Head[b.Field] = v
	}
}
