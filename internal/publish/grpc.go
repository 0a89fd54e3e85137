package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/facelink/internal/monitoring"
	"github.com/banshee-data/facelink/internal/unified"
)

var grpcLogf = monitoring.Component("gRPC")

// Service and method names of the pose stream.
const (
	ServiceName      = "facelink.PoseService"
	StreamPosesName  = "StreamPoses"
	StreamPosesRoute = "/" + ServiceName + "/" + StreamPosesName
)

// PoseServiceDesc describes the pose streaming service. Requests are
// google.protobuf.Empty; every response is a google.protobuf.Struct
// holding one snapshot (see SnapshotToStruct).
var PoseServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    StreamPosesName,
		Handler:       streamPosesHandler,
		ServerStreams: true,
	}},
	Metadata: "facelink/pose.proto",
}

// GRPCServer streams published snapshots to remote consumers.
type GRPCServer struct {
	store   *Store
	clients atomic.Int32

	mu       sync.Mutex
	server   *grpc.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewGRPCServer creates a server streaming from store.
func NewGRPCServer(store *Store) *GRPCServer {
	return &GRPCServer{store: store}
}

// Register attaches the pose service to s.
func (g *GRPCServer) Register(s *grpc.Server) {
	s.RegisterService(&PoseServiceDesc, g)
}

// Start listens on addr and serves in the background.
func (g *GRPCServer) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	g.Serve(lis)
	return nil
}

// Serve serves on an existing listener in the background.
func (g *GRPCServer) Serve(lis net.Listener) {
	s := grpc.NewServer()
	g.Register(s)

	g.mu.Lock()
	g.server = s
	g.listener = lis
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		grpcLogf("pose stream listening on %s", lis.Addr())
		if err := s.Serve(lis); err != nil {
			grpcLogf("server error: %v", err)
		}
	}()
}

// Stop ends all streams and waits for the server to exit.
func (g *GRPCServer) Stop() {
	g.mu.Lock()
	s := g.server
	g.server = nil
	g.mu.Unlock()
	if s == nil {
		return
	}
	s.Stop()
	g.wg.Wait()
	grpcLogf("server stopped")
}

// Clients returns the number of connected streams.
func (g *GRPCServer) Clients() int { return int(g.clients.Load()) }

func streamPosesHandler(srv any, stream grpc.ServerStream) error {
	req := new(emptypb.Empty)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(*GRPCServer).streamPoses(stream)
}

func (g *GRPCServer) streamPoses(stream grpc.ServerStream) error {
	ctx := stream.Context()
	id, ch := g.store.Subscribe()
	defer g.store.Unsubscribe(id)

	n := g.clients.Add(1)
	defer g.clients.Add(-1)
	grpcLogf("client connected: %s (total: %d)", id, n)

	// New clients see the current pose straight away.
	if snap, ok := g.store.Latest(); ok {
		if err := sendSnapshot(stream, snap); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			grpcLogf("client disconnected: %s", id)
			return nil
		case snap, ok := <-ch:
			if !ok {
				return status.Error(codes.Unavailable, "pose store closed")
			}
			if err := sendSnapshot(stream, snap); err != nil {
				return err
			}
		}
	}
}

func sendSnapshot(stream grpc.ServerStream, snap *Snapshot) error {
	msg, err := SnapshotToStruct(snap)
	if err != nil {
		return status.Errorf(codes.Internal, "encode snapshot %d: %v", snap.Sequence, err)
	}
	return stream.SendMsg(msg)
}

// SnapshotToStruct converts snap to its wire form. The struct mirrors the
// JSON encoding of Snapshot.
func SnapshotToStruct(snap *Snapshot) (*structpb.Struct, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

// SnapshotFromStruct decodes a message produced by SnapshotToStruct.
func SnapshotFromStruct(msg *structpb.Struct) (*Snapshot, error) {
	raw, err := json.Marshal(msg.AsMap())
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Pose: &unified.TargetPose{}}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// PoseStream receives snapshots from a remote GRPCServer.
type PoseStream struct {
	stream grpc.ClientStream
}

// StreamPoses opens a pose stream on conn.
func StreamPoses(ctx context.Context, conn grpc.ClientConnInterface) (*PoseStream, error) {
	stream, err := conn.NewStream(ctx, &PoseServiceDesc.Streams[0], StreamPosesRoute)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &PoseStream{stream: stream}, nil
}

// Recv blocks for the next snapshot.
func (p *PoseStream) Recv() (*Snapshot, error) {
	msg := new(structpb.Struct)
	if err := p.stream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return SnapshotFromStruct(msg)
}
