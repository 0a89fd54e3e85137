package livelink

import (
	"fmt"
	"sync"
	"time"
)

// Stats tracks capture statistics with thread-safe operations. Interval
// counters are cleared by GetAndReset; totals run for the process lifetime.
type Stats struct {
	mu             sync.Mutex
	packetCount    int64
	byteCount      int64
	frameCount     int64
	receiveErrors  int64
	decodeFailures int64
	droppedCount   int64
	lastReset      time.Time

	totals StatsTotals
}

// StatsTotals are cumulative counters reported by the debug stats route.
type StatsTotals struct {
	Packets        int64 `json:"packets"`
	Bytes          int64 `json:"bytes"`
	Frames         int64 `json:"frames"`
	ReceiveErrors  int64 `json:"receive_errors"`
	DecodeFailures int64 `json:"decode_failures"`
	Dropped        int64 `json:"dropped_on_forward"`
}

// StatsInterval is one GetAndReset window.
type StatsInterval struct {
	StatsTotals
	Duration time.Duration
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{lastReset: time.Now()}
}

// AddPacket counts one received datagram.
func (s *Stats) AddPacket(bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packetCount++
	s.byteCount += int64(bytes)
	s.totals.Packets++
	s.totals.Bytes += int64(bytes)
}

// AddReceiveError counts a socket read failure.
func (s *Stats) AddReceiveError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiveErrors++
	s.totals.ReceiveErrors++
}

// AddDropped counts a datagram the forwarder could not relay.
func (s *Stats) AddDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.droppedCount++
	s.totals.Dropped++
}

// AddFrame counts a successfully published frame.
func (s *Stats) AddFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameCount++
	s.totals.Frames++
}

// AddDecodeFailure counts a datagram that could not be decoded or assembled.
func (s *Stats) AddDecodeFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decodeFailures++
	s.totals.DecodeFailures++
}

// Totals returns the cumulative counters.
func (s *Stats) Totals() StatsTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// GetAndReset returns the counters for the current interval and starts a
// new one.
func (s *Stats) GetAndReset() StatsInterval {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := StatsInterval{
		StatsTotals: StatsTotals{
			Packets:        s.packetCount,
			Bytes:          s.byteCount,
			Frames:         s.frameCount,
			ReceiveErrors:  s.receiveErrors,
			DecodeFailures: s.decodeFailures,
			Dropped:        s.droppedCount,
		},
		Duration: now.Sub(s.lastReset),
	}

	s.packetCount = 0
	s.byteCount = 0
	s.frameCount = 0
	s.receiveErrors = 0
	s.decodeFailures = 0
	s.droppedCount = 0
	s.lastReset = now
	return out
}

// LogStats logs and resets the interval counters. Quiet intervals are not
// logged.
func (s *Stats) LogStats() {
	iv := s.GetAndReset()
	if msg := iv.Format(); msg != "" {
		logf("%s", msg)
	}
}

// Format renders the interval as a per-second summary, or "" when nothing
// happened.
func (iv StatsInterval) Format() string {
	if iv.Packets == 0 && iv.ReceiveErrors == 0 && iv.Dropped == 0 {
		return ""
	}
	secs := iv.Duration.Seconds()
	if secs <= 0 {
		secs = 1
	}
	msg := fmt.Sprintf("capture stats (/sec): %.1f packets, %.1f frames, %.2f KB",
		float64(iv.Packets)/secs, float64(iv.Frames)/secs, float64(iv.Bytes)/secs/1024)
	if iv.DecodeFailures > 0 {
		msg += fmt.Sprintf(", %d decode failures", iv.DecodeFailures)
	}
	if iv.ReceiveErrors > 0 {
		msg += fmt.Sprintf(", %d receive errors", iv.ReceiveErrors)
	}
	if iv.Dropped > 0 {
		msg += fmt.Sprintf(", %d dropped on forward", iv.Dropped)
	}
	return msg
}
