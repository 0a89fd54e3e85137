package network

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// DropCounter records datagrams the forwarder could not relay.
type DropCounter interface {
	AddDropped()
}

// Forwarder relays raw capture datagrams to a second UDP address so another
// consumer can listen to the same stream. Relaying is asynchronous and never
// blocks the receive path: when the queue is full the datagram is dropped.
type Forwarder struct {
	conn        *net.UDPConn
	channel     chan []byte
	stats       DropCounter
	logInterval time.Duration
	address     string

	mu     sync.Mutex
	closed bool
}

// NewForwarder dials addr (host:port) for forwarding.
func NewForwarder(addr string, stats DropCounter, logInterval time.Duration) (*Forwarder, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}

	if logInterval <= 0 {
		logInterval = time.Minute
	}
	return &Forwarder{
		conn:        conn,
		channel:     make(chan []byte, 256),
		stats:       stats,
		logInterval: logInterval,
		address:     addr,
	}, nil
}

// Address returns the forwarding destination.
func (f *Forwarder) Address() string { return f.address }

// Start runs the relay goroutine until ctx is done or Close is called.
func (f *Forwarder) Start(ctx context.Context) {
	go func() {
		failed := 0
		var lastError error
		ticker := time.NewTicker(f.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case packet, ok := <-f.channel:
				if !ok {
					return
				}
				if _, err := f.conn.Write(packet); err != nil {
					failed++
					lastError = err
					if f.stats != nil {
						f.stats.AddDropped()
					}
				}
			case <-ticker.C:
				if failed > 0 && lastError != nil {
					logf("Dropped %d forwarded packets due to errors (latest: %v)", failed, lastError)
					failed = 0
					lastError = nil
				}
			}
		}
	}()

	logf("forwarding packets to %s", f.address)
}

// ForwardAsync queues packet for relaying. The caller keeps ownership of
// packet; the queue holds its own copy.
func (f *Forwarder) ForwardAsync(packet []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	packetCopy := make([]byte, len(packet))
	copy(packetCopy, packet)

	select {
	case f.channel <- packetCopy:
	default:
		if f.stats != nil {
			f.stats.AddDropped()
		}
	}
}

// Close stops accepting packets and closes the connection.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.channel)
	f.mu.Unlock()
	return f.conn.Close()
}
