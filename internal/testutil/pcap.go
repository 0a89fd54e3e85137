package testutil

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// CapturedDatagram is one UDP datagram for WriteCapture.
type CapturedDatagram struct {
	Port    int
	Payload []byte
}

// CaptureStart is the timestamp of the first packet WriteCapture writes.
var CaptureStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// WriteCapture writes an Ethernet/IPv4/UDP capture to w, one packet
// every interval starting at CaptureStart.
func WriteCapture(t testing.TB, w io.Writer, interval time.Duration, datagrams ...CapturedDatagram) {
	t.Helper()

	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("WriteFileHeader failed: %v", err)
	}

	for i, d := range datagrams {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(192, 168, 1, 20),
			DstIP:    net.IPv4(192, 168, 1, 10),
		}
		udp := &layers.UDP{SrcPort: 50000, DstPort: layers.UDPPort(d.Port)}
		if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
			t.Fatalf("SetNetworkLayerForChecksum failed: %v", err)
		}

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(d.Payload)); err != nil {
			t.Fatalf("SerializeLayers failed: %v", err)
		}
		data := buf.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     CaptureStart.Add(time.Duration(i) * interval),
			CaptureLength: len(data),
			Length:        len(data),
		}
		if err := pw.WritePacket(ci, data); err != nil {
			t.Fatalf("WritePacket failed: %v", err)
		}
	}
}
