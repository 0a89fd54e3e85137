// Package publish hands remapped poses from the capture loop to consumers.
// The loop is the only writer; any number of goroutines may read.
package publish

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/facelink/internal/monitoring"
	"github.com/banshee-data/facelink/internal/unified"
)

var logf = monitoring.Component("Publish")

// Snapshot is one published pose. A snapshot is never modified after it
// has been published.
type Snapshot struct {
	Sequence uint64              `json:"sequence"`
	Time     time.Time           `json:"time"`
	Pose     *unified.TargetPose `json:"pose"`
}

// subscriberBuffer is the per-subscriber queue depth. Slow subscribers lose
// the oldest pending snapshots, never block the writer.
const subscriberBuffer = 8

// Store holds the latest snapshot and fans it out to subscribers.
type Store struct {
	latest atomic.Pointer[Snapshot]
	seq    atomic.Uint64

	subscriberMu sync.Mutex
	subscribers  map[string]chan *Snapshot
	closed       bool

	history *History
}

// NewStore creates an empty store. historySize bounds the ring kept for
// the debug chart; zero disables it.
func NewStore(historySize int) *Store {
	s := &Store{subscribers: make(map[string]chan *Snapshot)}
	if historySize > 0 {
		s.history = NewHistory(historySize)
	}
	return s
}

// Publish makes pose the latest snapshot. The store takes ownership of
// pose; the caller must not modify it afterwards.
func (s *Store) Publish(pose *unified.TargetPose, at time.Time) *Snapshot {
	snap := &Snapshot{
		Sequence: s.seq.Add(1),
		Time:     at,
		Pose:     pose,
	}
	s.latest.Store(snap)
	if s.history != nil {
		s.history.Add(snap)
	}

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest queued snapshot to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return snap
}

// Latest returns the most recent snapshot. ok is false until the first
// Publish.
func (s *Store) Latest() (snap *Snapshot, ok bool) {
	snap = s.latest.Load()
	return snap, snap != nil
}

// History returns the chart ring, or nil when disabled.
func (s *Store) History() *History { return s.history }

// Subscribe registers a new subscriber and returns its ID and channel.
// The channel is closed by Unsubscribe or Close.
func (s *Store) Subscribe() (string, <-chan *Snapshot) {
	id := uuid.NewString()
	ch := make(chan *Snapshot, subscriberBuffer)

	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if s.closed {
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber. Unknown IDs are ignored.
func (s *Store) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Subscribers returns the number of registered subscribers.
func (s *Store) Subscribers() int {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	return len(s.subscribers)
}

// Close closes every subscriber channel. Publish keeps working for
// Latest readers.
func (s *Store) Close() {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.closed = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}
