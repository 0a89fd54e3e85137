package network

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ReplayHandler receives each UDP payload of a replayed capture together
// with its capture timestamp.
type ReplayHandler func(payload []byte, captured time.Time) error

// ReplayStats summarises a replay run.
type ReplayStats struct {
	Packets  int // all packets read from the file
	Matched  int // UDP packets on the requested port
	Failures int // payloads the handler rejected
}

// ReplayPCAP reads a classic libpcap stream and hands every UDP payload
// addressed to port (any port when port is 0) to handler. Handler errors are
// counted and logged, never fatal, mirroring the live receive policy. The
// file is read with the pure-Go pcapgo reader so no libpcap is needed.
func ReplayPCAP(ctx context.Context, r io.Reader, port int, handler ReplayHandler) (ReplayStats, error) {
	var stats ReplayStats

	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return stats, fmt.Errorf("failed to open PCAP stream: %w", err)
	}

	source := gopacket.NewPacketSource(reader, reader.LinkType())

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		packet, err := source.NextPacket()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read PCAP packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok || len(udp.Payload) == 0 {
			continue
		}
		if port != 0 && int(udp.DstPort) != port {
			continue
		}
		stats.Matched++

		captured := packet.Metadata().Timestamp
		if err := handler(udp.Payload, captured); err != nil {
			stats.Failures++
			if stats.Failures <= 5 {
				logf("replay packet %d rejected: %v", stats.Packets, err)
			}
		}
	}
}
