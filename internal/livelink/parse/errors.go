package parse

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteFrame matches decode failures caused by a payload that
	// did not yield exactly FrameChannels values.
	ErrIncompleteFrame = errors.New("incomplete frame")
	// ErrReceiveFault matches decode failures caused by the packet source.
	ErrReceiveFault = errors.New("receive fault")
	// ErrMissingChannel matches assembly failures for an absent channel.
	ErrMissingChannel = errors.New("missing channel")
	// ErrVocabularySize is returned for channel tables or name lists that
	// do not describe exactly FrameChannels unique channels.
	ErrVocabularySize = errors.New("vocabulary must name exactly 61 unique channels")
)

// DecodeKind classifies a DecodeError.
type DecodeKind int

const (
	IncompleteFrame DecodeKind = iota + 1
	ReceiveFault
)

func (k DecodeKind) String() string {
	switch k {
	case IncompleteFrame:
		return "incomplete frame"
	case ReceiveFault:
		return "receive fault"
	default:
		return "unknown"
	}
}

// DecodeError reports a frame that produced no output. The previous pose
// stays valid when one is returned.
type DecodeError struct {
	Kind DecodeKind
	// Size is the received packet length in bytes (0 for receive faults).
	Size int
	// Err is the underlying I/O error for ReceiveFault.
	Err error
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case IncompleteFrame:
		return fmt.Sprintf("incomplete frame: %d bytes, need at least %d", e.Size, FrameSize)
	case ReceiveFault:
		return fmt.Sprintf("receive fault: %v", e.Err)
	default:
		return "decode error"
	}
}

// Is matches the sentinel for the error's kind.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrIncompleteFrame:
		return e.Kind == IncompleteFrame
	case ErrReceiveFault:
		return e.Kind == ReceiveFault
	}
	return false
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AssembleError reports a channel the vocabulary binds but the decoded
// values lack.
type AssembleError struct {
	Channel string
}

func (e *AssembleError) Error() string {
	return fmt.Sprintf("missing channel %q", e.Channel)
}

func (e *AssembleError) Is(target error) bool { return target == ErrMissingChannel }
