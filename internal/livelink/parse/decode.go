package parse

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
)

// Payload layout constants.
const (
	FrameChannels   = 61                              // blendshape coefficients per frame
	BytesPerChannel = 4                               // IEEE-754 float32
	FrameSize       = FrameChannels * BytesPerChannel // 244 trailing bytes
)

// Source yields one raw datagram per call.
type Source interface {
	Receive(ctx context.Context) ([]byte, error)
}

// TrimFrame returns the trailing FrameSize bytes of packet, or packet
// itself when it is not longer than that. The returned slice aliases
// packet.
func TrimFrame(packet []byte) []byte {
	if len(packet) > FrameSize {
		return packet[len(packet)-FrameSize:]
	}
	return packet
}

// Decode extracts the named coefficients from one datagram. names gives
// the payload order and must hold FrameChannels unique entries.
//
// Only the last FrameSize bytes are read; anything before them is header.
// A shorter packet fails with ErrIncompleteFrame and yields no values.
func Decode(packet []byte, names []string) (map[string]float32, error) {
	if len(names) != FrameChannels {
		return nil, fmt.Errorf("%w: got %d names", ErrVocabularySize, len(names))
	}

	payload := TrimFrame(packet)
	chunks := len(payload) / BytesPerChannel
	if chunks != FrameChannels {
		return nil, &DecodeError{Kind: IncompleteFrame, Size: len(packet)}
	}

	values := make(map[string]float32, FrameChannels)
	for i := 0; i < chunks; i++ {
		bits := binary.BigEndian.Uint32(payload[i*BytesPerChannel:])
		values[names[i]] = math.Float32frombits(bits)
	}
	if len(values) != FrameChannels {
		return nil, fmt.Errorf("%w: duplicate channel names", ErrVocabularySize)
	}
	return values, nil
}

// ReadFrame receives one datagram from src and decodes it. Receive errors
// are reported as a ReceiveFault DecodeError wrapping the source error, so
// errors.Is still matches context cancellation.
func ReadFrame(ctx context.Context, src Source, names []string) (map[string]float32, error) {
	packet, err := src.Receive(ctx)
	if err != nil {
		return nil, &DecodeError{Kind: ReceiveFault, Err: err}
	}
	return Decode(packet, names)
}

// EncodeFrame writes values as a big-endian payload in names order,
// prefixed by header. Missing names encode as zero. It produces the same
// layout a capture device sends and is used by replay fixtures and tests.
func EncodeFrame(header []byte, names []string, values map[string]float32) []byte {
	out := make([]byte, len(header)+len(names)*BytesPerChannel)
	copy(out, header)
	body := out[len(header):]
	for i, name := range names {
		binary.BigEndian.PutUint32(body[i*BytesPerChannel:], math.Float32bits(values[name]))
	}
	return out
}
