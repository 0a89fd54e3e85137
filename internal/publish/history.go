package publish

import (
	"sync"
	"time"

	"github.com/banshee-data/facelink/internal/unified"
)

// HistoryPoint is the subset of a snapshot the debug chart plots.
type HistoryPoint struct {
	Time          time.Time
	LeftOpenness  float32
	RightOpenness float32
	JawOpen       float32
	MouthApeShape float32
}

// History is a fixed-size ring of recent HistoryPoints.
type History struct {
	mu     sync.Mutex
	points []HistoryPoint
	next   int
	full   bool
}

// NewHistory creates a ring holding size points.
func NewHistory(size int) *History {
	return &History{points: make([]HistoryPoint, size)}
}

// Add records snap, overwriting the oldest point when full.
func (h *History) Add(snap *Snapshot) {
	if snap == nil || snap.Pose == nil {
		return
	}
	p := HistoryPoint{
		Time:          snap.Time,
		LeftOpenness:  snap.Pose.Eye.Left.Openness,
		RightOpenness: snap.Pose.Eye.Right.Openness,
		JawOpen:       snap.Pose.Lip[unified.JawOpen],
		MouthApeShape: snap.Pose.Lip[unified.MouthApeShape],
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.points[h.next] = p
	h.next = (h.next + 1) % len(h.points)
	if h.next == 0 {
		h.full = true
	}
}

// Points returns the recorded points, oldest first.
func (h *History) Points() []HistoryPoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.full {
		return append([]HistoryPoint(nil), h.points[:h.next]...)
	}
	out := make([]HistoryPoint, 0, len(h.points))
	out = append(out, h.points[h.next:]...)
	return append(out, h.points[:h.next]...)
}
