// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/facelink/internal/livelink/parse"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertFloat32Near fails the test if got is further than eps from want.
func AssertFloat32Near(t testing.TB, name string, got, want, eps float32) {
	t.Helper()
	if math.Abs(float64(got-want)) > float64(eps) {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, eps)
	}
}

// NewLocalRequest creates a test HTTP request from a loopback address, as
// tsweb debug routes require.
func NewLocalRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

// Frame builds capture datagrams for tests.
type Frame struct {
	vocab  *parse.Vocabulary
	values map[string]float32
}

// NewFrame starts a frame for vocab with every channel zero.
func NewFrame(vocab *parse.Vocabulary) *Frame {
	return &Frame{vocab: vocab, values: make(map[string]float32, parse.FrameChannels)}
}

// Set assigns one channel. Unknown names are kept and ignored on encode.
func (f *Frame) Set(name string, v float32) *Frame {
	f.values[name] = v
	return f
}

// SetAll assigns every channel v.
func (f *Frame) SetAll(v float32) *Frame {
	for _, name := range f.vocab.Names() {
		f.values[name] = v
	}
	return f
}

// Packet encodes the frame behind a device-name header.
func (f *Frame) Packet(device string) []byte {
	return parse.EncodeFrame(DeviceHeader(device), f.vocab.Names(), f.values)
}

// DeviceHeader returns a variable-length header like the ones capture
// apps put before the payload: a version byte, a length-prefixed device
// name and a frame counter.
func DeviceHeader(device string) []byte {
	h := []byte{6, 0, 0, 0, byte(len(device))}
	h = append(h, device...)
	return append(h, 0, 0, 0, 1)
}

// ShortPacket returns a datagram n bytes shorter than a full frame.
func ShortPacket(n int) []byte {
	if n > parse.FrameSize {
		n = parse.FrameSize
	}
	return make([]byte, parse.FrameSize-n)
}
