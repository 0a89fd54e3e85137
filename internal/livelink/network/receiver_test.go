package network

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

type mockStats struct {
	packets int
	bytes   int
	errors  int
	dropped int
}

func (m *mockStats) AddPacket(bytes int) { m.packets++; m.bytes += bytes }
func (m *mockStats) AddReceiveError()    { m.errors++ }
func (m *mockStats) AddDropped()         { m.dropped++ }

func TestNewReceiver_Defaults(t *testing.T) {
	r := NewReceiver(ReceiverConfig{})

	if r.cfg.PollInterval != 100*time.Millisecond {
		t.Errorf("Expected default poll interval 100ms, got %v", r.cfg.PollInterval)
	}
	if len(r.buf) != 2048 {
		t.Errorf("Expected default buffer 2048, got %d", len(r.buf))
	}
	if r.cfg.Stats == nil {
		t.Error("Expected default noop stats, got nil")
	}
	if _, ok := r.cfg.Factory.(RealUDPSocketFactory); !ok {
		t.Errorf("Expected real socket factory by default, got %T", r.cfg.Factory)
	}
}

func TestReceiver_OpenBindsPort(t *testing.T) {
	sock := NewMockUDPSocket()
	factory := &MockUDPSocketFactory{Socket: sock}
	r := NewReceiver(ReceiverConfig{Factory: factory, RcvBuf: 65536})

	if err := r.Open(42069); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(factory.ListenCalls) != 1 {
		t.Fatalf("Expected 1 listen call, got %d", len(factory.ListenCalls))
	}
	if factory.ListenCalls[0].Port != 42069 {
		t.Errorf("Expected port 42069, got %d", factory.ListenCalls[0].Port)
	}
	if sock.ReadBufferSize != 65536 {
		t.Errorf("Expected read buffer 65536, got %d", sock.ReadBufferSize)
	}
	if r.LocalAddr() == nil {
		t.Error("Expected local address after Open")
	}
}

func TestReceiver_OpenBindError(t *testing.T) {
	bindErr := errors.New("address already in use")
	r := NewReceiver(ReceiverConfig{Factory: &MockUDPSocketFactory{Error: bindErr}})

	err := r.Open(DefaultPort)
	var be *BindError
	if !errors.As(err, &be) {
		t.Fatalf("Expected BindError, got %v", err)
	}
	if !errors.Is(err, bindErr) {
		t.Errorf("Expected BindError to wrap cause, got %v", err)
	}
}

func TestReceiver_ReceiveReturnsCopies(t *testing.T) {
	sock := NewMockUDPSocket([]byte{1, 2, 3}, []byte{4, 5})
	stats := &mockStats{}
	r := NewReceiver(ReceiverConfig{Factory: &MockUDPSocketFactory{Socket: sock}, Stats: stats})
	if err := r.Open(DefaultPort); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	first, err := r.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	second, err := r.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	if string(first) != string([]byte{1, 2, 3}) {
		t.Errorf("Expected first datagram [1 2 3], got %v", first)
	}
	if string(second) != string([]byte{4, 5}) {
		t.Errorf("Expected second datagram [4 5], got %v", second)
	}
	if stats.packets != 2 || stats.bytes != 5 {
		t.Errorf("Expected 2 packets / 5 bytes, got %d / %d", stats.packets, stats.bytes)
	}
	if r.LastSender() == nil {
		t.Error("Expected sender address to be recorded")
	}
	if sock.ReadDeadline.IsZero() {
		t.Error("Expected a read deadline to be set")
	}
}

func TestReceiver_ReceiveSkipsTimeouts(t *testing.T) {
	sock := NewMockUDPSocket()
	r := NewReceiver(ReceiverConfig{Factory: &MockUDPSocketFactory{Socket: sock}})
	if err := r.Open(DefaultPort); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Receive(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context deadline error, got %v", err)
	}
	if sock.Timeouts == 0 {
		t.Error("Expected the receiver to poll at least once")
	}
}

func TestReceiver_ReceiveError(t *testing.T) {
	sock := NewMockUDPSocket([]byte{9})
	sock.ReadError = errors.New("connection reset")
	stats := &mockStats{}
	r := NewReceiver(ReceiverConfig{Factory: &MockUDPSocketFactory{Socket: sock}, Stats: stats})
	if err := r.Open(DefaultPort); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := r.Receive(context.Background()); err == nil {
		t.Fatal("Expected read error")
	}
	if stats.errors != 1 {
		t.Errorf("Expected 1 receive error, got %d", stats.errors)
	}

	// The fault is transient: the next call returns the queued datagram.
	pkt, err := r.Receive(context.Background())
	if err != nil || len(pkt) != 1 {
		t.Errorf("Expected recovery after error, got %v / %v", pkt, err)
	}
}

func TestReceiver_NotOpen(t *testing.T) {
	r := NewReceiver(ReceiverConfig{Factory: &MockUDPSocketFactory{Socket: NewMockUDPSocket()}})

	if _, err := r.Receive(context.Background()); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen before Open, got %v", err)
	}

	if err := r.Open(DefaultPort); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}
	if _, err := r.Receive(context.Background()); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen after Close, got %v", err)
	}
}

func TestReceiver_RealSocket(t *testing.T) {
	r := NewReceiver(ReceiverConfig{Host: "127.0.0.1", PollInterval: 10 * time.Millisecond})
	if err := r.Open(0); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	addr := r.LocalAddr().(*net.UDPAddr)
	client, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte("frame")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pkt, err := r.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if string(pkt) != "frame" {
		t.Errorf("Expected 'frame', got %q", pkt)
	}
}

func TestReceiver_ForwardsPackets(t *testing.T) {
	server, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("Failed to start test server: %v", err)
	}
	defer server.Close()

	stats := &mockStats{}
	fwd, err := NewForwarder(server.LocalAddr().String(), stats, time.Second)
	if err != nil {
		t.Fatalf("NewForwarder failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fwd.Start(ctx)
	defer fwd.Close()

	sock := NewMockUDPSocket([]byte("relay-me"))
	r := NewReceiver(ReceiverConfig{Factory: &MockUDPSocketFactory{Socket: sock}, Forwarder: fwd})
	if err := r.Open(DefaultPort); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := r.Receive(ctx); err != nil {
		t.Fatalf("Receive failed: %v", err)
	}

	server.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, _, err := server.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("Expected forwarded packet, got %v", err)
	}
	if string(buf[:n]) != "relay-me" {
		t.Errorf("Expected 'relay-me', got %q", buf[:n])
	}
}

func TestReceiver_ReopenSamePort(t *testing.T) {
	r := NewReceiver(ReceiverConfig{Host: "127.0.0.1", PollInterval: 10 * time.Millisecond})
	if err := r.Open(0); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()
	port := r.LocalAddr().(*net.UDPAddr).Port

	if err := r.Open(port); err != nil {
		t.Fatalf("Reopen on port %d failed: %v", port, err)
	}
	if got := r.LocalAddr().(*net.UDPAddr).Port; got != port {
		t.Errorf("Expected port %d after reopen, got %d", port, got)
	}

	client, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()
	if _, err := client.Write([]byte("again")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pkt, err := r.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive after reopen failed: %v", err)
	}
	if string(pkt) != "again" {
		t.Errorf("Expected 'again', got %q", pkt)
	}
}

func TestReceiver_ReopenClosesPreviousSocket(t *testing.T) {
	first := NewMockUDPSocket()
	factory := &MockUDPSocketFactory{Socket: first}
	r := NewReceiver(ReceiverConfig{Factory: factory})
	if err := r.Open(DefaultPort); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	factory.Socket = NewMockUDPSocket()
	factory.Error = errors.New("address already in use")
	if err := r.Open(DefaultPort); err == nil {
		t.Fatal("Expected bind error")
	}
	if !first.Closed {
		t.Error("Expected previous socket closed before rebinding")
	}
	if r.LocalAddr() != nil {
		t.Error("Expected no bound socket after failed reopen")
	}
}

func TestReceiver_SetReadDeadlineError(t *testing.T) {
	sock := NewMockUDPSocket([]byte{1})
	sock.SetReadDeadlineError = errors.New("deadline unsupported")
	stats := &mockStats{}
	r := NewReceiver(ReceiverConfig{Factory: &MockUDPSocketFactory{Socket: sock}, Stats: stats})
	if err := r.Open(DefaultPort); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	_, err := r.Receive(context.Background())
	if err == nil || !errors.Is(err, sock.SetReadDeadlineError) {
		t.Fatalf("Expected wrapped deadline error, got %v", err)
	}
	if sock.ReadIndex != 0 {
		t.Error("Expected no read without a deadline")
	}
	if stats.errors != 1 {
		t.Errorf("Expected 1 receive error, got %d", stats.errors)
	}
}
