package network

import (
	"testing"
	"time"
)

func TestNewForwarder_BadAddress(t *testing.T) {
	if _, err := NewForwarder("not-an-address", nil, time.Second); err == nil {
		t.Error("Expected error for address without port")
	}
}

func TestForwarder_DropsWhenQueueFull(t *testing.T) {
	stats := &mockStats{}
	fwd, err := NewForwarder("127.0.0.1:9", stats, time.Second)
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}
	defer fwd.Close()

	// Not started: nothing drains the queue.
	capacity := cap(fwd.channel)
	for i := 0; i < capacity+3; i++ {
		fwd.ForwardAsync([]byte{byte(i)})
	}
	if stats.dropped != 3 {
		t.Errorf("Expected 3 dropped packets, got %d", stats.dropped)
	}
}

func TestForwarder_CopiesPacket(t *testing.T) {
	fwd, err := NewForwarder("127.0.0.1:9", nil, time.Second)
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}
	defer fwd.Close()

	pkt := []byte{1, 2}
	fwd.ForwardAsync(pkt)
	pkt[0] = 99

	queued := <-fwd.channel
	if queued[0] != 1 {
		t.Errorf("Expected queued copy to be unaffected, got %v", queued)
	}
}

func TestForwarder_CloseIsIdempotent(t *testing.T) {
	fwd, err := NewForwarder("127.0.0.1:9", nil, time.Second)
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}
	if err := fwd.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := fwd.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
	// Must not panic after close.
	fwd.ForwardAsync([]byte{1})
}
