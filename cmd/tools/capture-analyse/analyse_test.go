package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/facelink/internal/livelink/network"
	"github.com/banshee-data/facelink/internal/livelink/parse"
	"github.com/banshee-data/facelink/internal/monitoring"
	"github.com/banshee-data/facelink/internal/smoothing"
	"github.com/banshee-data/facelink/internal/testutil"
)

func writeSession(t *testing.T, jaws ...float32) string {
	t.Helper()

	var datagrams []testutil.CapturedDatagram
	for _, jaw := range jaws {
		pkt := testutil.NewFrame(parse.VocabularyV1).Set("JawOpen", jaw).Packet("iPhone")
		datagrams = append(datagrams, testutil.CapturedDatagram{Port: network.DefaultPort, Payload: pkt})
	}
	// Noise on another port and one truncated frame.
	datagrams = append(datagrams,
		testutil.CapturedDatagram{Port: 5353, Payload: []byte("mdns")},
		testutil.CapturedDatagram{Port: network.DefaultPort, Payload: testutil.ShortPacket(8)},
	)

	path := filepath.Join(t.TempDir(), "session.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	testutil.WriteCapture(t, f, 20*time.Millisecond, datagrams...)
	return path
}

func channel(r Report, name string) ChannelSummary {
	for _, c := range r.Channels {
		if c.Name == name {
			return c
		}
	}
	return ChannelSummary{}
}

func TestAnalyseFile(t *testing.T) {
	old := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(old) })

	path := writeSession(t, 0, 0.5, 1, 0.5)

	report, a, err := analyseFile(path, network.DefaultPort, parse.VocabularyV1, nil)
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, 6, report.Packets)
	assert.Equal(t, 5, report.Matched)
	assert.Equal(t, 4, report.Frames)
	assert.Equal(t, 1, report.DecodeFailures)
	assert.Equal(t, "v1", report.Vocabulary)
	assert.InDelta(t, 0.06, report.DurationSecs, 1e-9)
	assert.InDelta(t, 50, report.FrameRate, 1e-6)

	jaw := channel(report, "lip.JawOpen")
	assert.InDelta(t, 0.5, jaw.Mean, 1e-6)
	assert.InDelta(t, 0, jaw.Min, 1e-6)
	assert.InDelta(t, 1, jaw.Max, 1e-6)
	// Differences are +0.5, +0.5, -0.5.
	assert.InDelta(t, math.Sqrt(1.0/3), jaw.Jitter, 1e-6)

	pout := channel(report, "lip.MouthPout")
	assert.Zero(t, pout.StdDev)

	plot := filepath.Join(t.TempDir(), "plot.png")
	require.NoError(t, a.savePlot(plot, "session"))
	info, err := os.Stat(plot)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestAnalyseFile_Smoothed(t *testing.T) {
	old := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(old) })

	path := writeSession(t, 0.5, 0.52, 0.5, 0.52, 0.5, 0.52)

	raw, _, err := analyseFile(path, network.DefaultPort, parse.VocabularyV1, nil)
	require.NoError(t, err)
	smoothed, _, err := analyseFile(path, network.DefaultPort, parse.VocabularyV1, smoothing.NewBank(smoothing.DefaultParams, nil))
	require.NoError(t, err)

	assert.True(t, smoothed.Smoothed)
	assert.Less(t, channel(smoothed, "lip.JawOpen").Jitter, channel(raw, "lip.JawOpen").Jitter)
}

func TestAnalyseFile_Missing(t *testing.T) {
	_, _, err := analyseFile(filepath.Join(t.TempDir(), "none.pcap"), 0, parse.VocabularyV1, nil)
	assert.Error(t, err)
}

func TestSummarise_Short(t *testing.T) {
	s := summarise("x", []float64{2})
	assert.Equal(t, 2.0, s.Mean)
	assert.Zero(t, s.StdDev)
	assert.Zero(t, s.Jitter)

	empty := summarise("y", nil)
	assert.Equal(t, "y", empty.Name)
	assert.Zero(t, empty.Mean)
}

func TestSavePlot_NoFrames(t *testing.T) {
	a := newAnalyser(parse.VocabularyV1, nil)
	assert.Error(t, a.savePlot(filepath.Join(t.TempDir(), "p.png"), "empty"))
}

func TestWriteOutputs(t *testing.T) {
	old := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(old) })

	path := writeSession(t, 0, 1)
	_, a, err := analyseFile(path, network.DefaultPort, parse.VocabularyV1, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, writeOutputs(dir, path, []byte(`{"frames":2}`), a))

	data, err := os.ReadFile(filepath.Join(dir, "session-report.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"frames":2}`, string(data))
	_, err = os.Stat(filepath.Join(dir, "session-plot.png"))
	assert.NoError(t, err)
}

func TestWriteOutputs_MissingDir(t *testing.T) {
	a := newAnalyser(parse.VocabularyV1, nil)
	err := writeOutputs(filepath.Join(t.TempDir(), "missing"), "x.pcap", nil, a)
	assert.Error(t, err)
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facelink.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestPipelineSettings_NoConfig(t *testing.T) {
	vocab, bank, err := pipelineSettings("", "v2", true, false)
	require.NoError(t, err)
	assert.Same(t, parse.VocabularyV2, vocab)
	assert.Nil(t, bank)

	_, bank, err = pipelineSettings("", "v1", false, true)
	require.NoError(t, err)
	require.NotNil(t, bank)
	assert.Equal(t, smoothing.DefaultParams, bank.Params("lip.JawOpen"))

	_, _, err = pipelineSettings("", "v9", true, false)
	assert.Error(t, err)
}

func TestPipelineSettings_UsesConfigTuning(t *testing.T) {
	path := writeConfigFile(t, `{
  "vocabulary": "v2",
  "smoothing": {"enabled": true, "speed": 3, "channels": {"lip.JawOpen": {"speed": 1, "decay": 0.2}}}
}`)

	vocab, bank, err := pipelineSettings(path, "v1", false, false)
	require.NoError(t, err)
	assert.Same(t, parse.VocabularyV2, vocab, "config vocabulary applies when the flag is not set")
	require.NotNil(t, bank)
	assert.Equal(t, smoothing.Params{Speed: 1, Decay: 0.2}, bank.Params("lip.JawOpen"))
	assert.Equal(t, float32(3), bank.Params("lip.MouthPout").Speed)

	vocab, _, err = pipelineSettings(path, "v1", true, false)
	require.NoError(t, err)
	assert.Same(t, parse.VocabularyV1, vocab, "explicit -vocabulary wins")
}

func TestPipelineSettings_SmoothForcesConfigOn(t *testing.T) {
	path := writeConfigFile(t, `{"smoothing": {"enabled": false, "channels": {"eye.left.openness": {"speed": 20, "decay": 0.5}}}}`)

	_, bank, err := pipelineSettings(path, "v1", false, false)
	require.NoError(t, err)
	assert.Nil(t, bank, "smoothing off in config")

	_, bank, err = pipelineSettings(path, "v1", false, true)
	require.NoError(t, err)
	require.NotNil(t, bank)
	assert.Equal(t, smoothing.Params{Speed: 20, Decay: 0.5}, bank.Params("eye.left.openness"))
}

func TestPipelineSettings_BadConfig(t *testing.T) {
	_, _, err := pipelineSettings(writeConfigFile(t, `{"smoothing": {"channels": {"lip.nope": {}}}}`), "v1", false, false)
	assert.Error(t, err)
}
