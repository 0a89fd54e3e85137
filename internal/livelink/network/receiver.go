// Package network owns the UDP side of the LiveLink bridge: binding the
// capture port, receiving datagrams, relaying them to a secondary
// consumer, and replaying captured traffic from PCAP files.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/facelink/internal/monitoring"
)

// DefaultPort is the capture app's default target port.
const DefaultPort = 11111

var logf = monitoring.Component("LiveLink")

// ErrNotOpen is returned by Receive before Open or after Close.
var ErrNotOpen = errors.New("receiver is not open")

// BindError reports that the capture port could not be bound. It is fatal
// at initialisation.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// PacketStats receives per-datagram accounting from the receiver.
type PacketStats interface {
	AddPacket(bytes int)
	AddReceiveError()
}

// noopStats is the safe default when no stats collector is provided.
type noopStats struct{}

func (noopStats) AddPacket(int)    {}
func (noopStats) AddReceiveError() {}

// ReceiverConfig configures a Receiver. Zero values select defaults.
type ReceiverConfig struct {
	// Host restricts the bind address; empty binds all interfaces.
	Host string
	// RcvBuf sets the OS receive buffer size when positive.
	RcvBuf int
	// PollInterval bounds how long a single socket read blocks before the
	// context is checked again. Default 100ms.
	PollInterval time.Duration
	// MaxPacketSize is the receive buffer length. Default 2048.
	MaxPacketSize int

	Factory   UDPSocketFactory
	Stats     PacketStats
	Forwarder *Forwarder
}

// Receiver owns the bound capture socket and hands out one datagram per
// Receive call. Datagrams queued by the OS between calls are returned in
// arrival order; nothing is dropped or reordered here.
type Receiver struct {
	cfg ReceiverConfig
	buf []byte

	mu       sync.Mutex
	sock     UDPSocket
	lastFrom *net.UDPAddr
}

// NewReceiver creates an unopened receiver.
func NewReceiver(cfg ReceiverConfig) *Receiver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.MaxPacketSize <= 0 {
		cfg.MaxPacketSize = 2048
	}
	if cfg.Factory == nil {
		cfg.Factory = RealUDPSocketFactory{}
	}
	if cfg.Stats == nil {
		cfg.Stats = noopStats{}
	}
	return &Receiver{
		cfg: cfg,
		buf: make([]byte, cfg.MaxPacketSize),
	}
}

// Open binds the receiver to port. An already bound socket is closed
// first, so reopening on the same port succeeds.
func (r *Receiver) Open(port int) error {
	r.mu.Lock()
	old := r.sock
	r.sock = nil
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}

	addr := net.JoinHostPort(r.cfg.Host, fmt.Sprint(port))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	sock, err := r.cfg.Factory.ListenUDP("udp", udpAddr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}
	if r.cfg.RcvBuf > 0 {
		if err := sock.SetReadBuffer(r.cfg.RcvBuf); err != nil {
			logf("Warning: failed to set UDP receive buffer size to %d: %v", r.cfg.RcvBuf, err)
		}
	}

	r.mu.Lock()
	r.sock = sock
	r.mu.Unlock()

	logf("listening on %s", sock.LocalAddr())
	return nil
}

// Receive blocks until one datagram arrives or ctx is done. The returned
// slice is a copy the caller may keep.
func (r *Receiver) Receive(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.mu.Lock()
		sock := r.sock
		r.mu.Unlock()
		if sock == nil {
			return nil, ErrNotOpen
		}

		// Bounded reads let cancellation interrupt a quiet socket.
		if err := sock.SetReadDeadline(time.Now().Add(r.cfg.PollInterval)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil, ErrNotOpen
			}
			r.cfg.Stats.AddReceiveError()
			return nil, fmt.Errorf("udp set read deadline: %w", err)
		}

		n, from, err := sock.ReadFromUDP(r.buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil, ErrNotOpen
			}
			r.cfg.Stats.AddReceiveError()
			return nil, fmt.Errorf("udp read: %w", err)
		}

		packet := make([]byte, n)
		copy(packet, r.buf[:n])

		r.mu.Lock()
		r.lastFrom = from
		r.mu.Unlock()

		r.cfg.Stats.AddPacket(n)
		if r.cfg.Forwarder != nil {
			r.cfg.Forwarder.ForwardAsync(packet)
		}
		return packet, nil
	}
}

// LastSender returns the address of the most recent datagram, or nil.
func (r *Receiver) LastSender() *net.UDPAddr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFrom
}

// LocalAddr returns the bound address, or nil when closed.
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sock == nil {
		return nil
	}
	return r.sock.LocalAddr()
}

// Close releases the socket. It is safe to call more than once.
func (r *Receiver) Close() error {
	r.mu.Lock()
	sock := r.sock
	r.sock = nil
	r.mu.Unlock()
	if sock == nil {
		return nil
	}
	return sock.Close()
}
