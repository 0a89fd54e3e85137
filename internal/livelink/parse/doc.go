// Package parse turns raw LiveLink datagrams into structured source poses.
//
// Responsibilities: trailing-window framing, big-endian float decoding of
// the 61 blendshape coefficients, and grouping of the named coefficients
// into per-eye, lip, brow and head records through an explicit vocabulary
// table. Nothing in this package keeps state between frames.
//
// Wire layout of one datagram:
//
//	┌──────────────────────────────┬─────────────────────────────────────┐
//	│ header (variable, discarded) │ payload: 61 × float32 big-endian    │
//	│ device name, subject, frame  │ = 244 bytes, always right-aligned   │
//	└──────────────────────────────┴─────────────────────────────────────┘
//
// The header length depends on the sending device's name, so the decoder
// never parses it and only keeps the trailing FrameSize bytes.
package parse
