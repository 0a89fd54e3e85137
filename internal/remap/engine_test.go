package remap

import (
	"testing"

	"github.com/banshee-data/facelink/internal/livelink/parse"
	"github.com/banshee-data/facelink/internal/smoothing"
	"github.com/banshee-data/facelink/internal/unified"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceWith(jaw, blink float32) *parse.SourcePose {
	src := &parse.SourcePose{}
	src.Lip[parse.JawOpen] = jaw
	src.Left.Blink = blink
	src.Right.Blink = blink
	return src
}

func TestEngine_RemapBoth(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{EyeEnabled: true, LipEnabled: true})
	src := sourceWith(0.5, 0.2)

	got := e.Remap(src, nil)
	want := &unified.TargetPose{Eye: RemapEyes(src), Lip: RemapLips(src.Lip)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Remap mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_LipGateKeepsPrevious(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{EyeEnabled: true, LipEnabled: true})
	first := e.Remap(sourceWith(0.3, 0), nil)
	require.Equal(t, float32(0.3), first.Lip[unified.JawOpen])

	e.SetLipEnabled(false)
	require.False(t, e.LipEnabled())
	second := e.Remap(sourceWith(0.9, 0.5), first)

	assert.Equal(t, first.Lip, second.Lip, "lip section must carry over while disabled")
	assert.NotEqual(t, first.Eye, second.Eye, "eye section must still update")
	assert.Equal(t, float32(0.3), first.Lip[unified.JawOpen], "prev must not be modified")
}

func TestEngine_EyeGateKeepsPrevious(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{EyeEnabled: true, LipEnabled: true})
	prev := e.Remap(sourceWith(0, 0.1), nil)
	e.SetEyeEnabled(false)
	got := e.Remap(sourceWith(0.4, 1), prev)

	assert.Equal(t, prev.Eye, got.Eye)
	assert.Equal(t, float32(0.4), got.Lip[unified.JawOpen])

	e.SetEyeEnabled(true)
	again := e.Remap(sourceWith(0.4, 1), got)
	assert.Equal(t, RemapEyes(sourceWith(0.4, 1)), again.Eye)
}

func TestEngine_GatesFromConfig(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{EyeEnabled: true})
	assert.True(t, e.EyeEnabled())
	assert.False(t, e.LipEnabled())
}

func TestChannelNames(t *testing.T) {
	t.Parallel()

	names := ChannelNames()
	require.Len(t, names, 12+int(unified.NumLipParams))
	assert.Equal(t, "eye.left.look.x", names[0])
	assert.Contains(t, names, "eye.combined.openness")
	assert.Contains(t, names, "lip.JawOpen")
	assert.Equal(t, "lip."+(unified.NumLipParams-1).String(), names[len(names)-1])

	// Every channel the engine smooths is listed.
	bank := smoothing.NewBank(smoothing.DefaultParams, nil)
	e := NewEngine(Config{EyeEnabled: true, LipEnabled: true, Smoothing: bank})
	e.Remap(sourceWith(0.2, 0.2), nil)
	assert.Equal(t, len(names), bank.Len())
}

func TestEngine_DisabledWithoutPrevious(t *testing.T) {
	t.Parallel()

	got := NewEngine(Config{}).Remap(sourceWith(0.4, 1), nil)
	assert.Equal(t, &unified.TargetPose{}, got)
}

func TestEngine_Smoothing(t *testing.T) {
	t.Parallel()

	bank := smoothing.NewBank(smoothing.Params{Speed: 0.5, Decay: 0}, nil)
	e := NewEngine(Config{EyeEnabled: true, LipEnabled: true, Smoothing: bank})

	// First frame initialises the filters and passes through.
	first := e.Remap(sourceWith(0, 0), nil)
	assert.Equal(t, float32(0), first.Lip[unified.JawOpen])

	// A step to 1 is damped: speed 0.5 * delta 1 → 0.25 after two stages.
	second := e.Remap(sourceWith(1, 0), first)
	assert.InDelta(t, 0.25, second.Lip[unified.JawOpen], 1e-6)

	e.Reset()
	assert.Equal(t, 0, bank.Len())
}
