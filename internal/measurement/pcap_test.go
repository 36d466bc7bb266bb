package measurement

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/banshee-data/trackinit/internal/monitoring"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCapture serialises one Ethernet/IPv4/UDP frame per payload.
func buildCapture(t *testing.T, dstPort uint16, payloads ...string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	ts := time.Unix(1700000000, 0)
	for i, payload := range payloads {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
			DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(192, 168, 1, 10),
			DstIP:    net.IPv4(192, 168, 1, 20),
		}
		udp := &layers.UDP{SrcPort: 40000, DstPort: layers.UDPPort(dstPort)}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

		sb := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(sb, opts, eth, ip, udp, gopacket.Payload([]byte(payload))))

		data := sb.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * 100 * time.Millisecond),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return &buf
}

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func TestReadPCAP(t *testing.T) {
	muteLogs(t)

	capture := buildCapture(t, 2368,
		"0,0,1000,0,1\n0,0,1001,1,1\n",
		"garbage\n# comment\n0,0,1002,2\n",
	)

	got, stats, err := ReadPCAP(context.Background(), capture, 2368)
	require.NoError(t, err)

	assert.Equal(t, PCAPStats{Packets: 2, UDPPackets: 2, Measurements: 3, BadLines: 1}, stats)
	require.Len(t, got, 3)
	assert.Equal(t, 1002.0, got[2].Range)
	assert.Equal(t, DefaultDoppler, got[2].Doppler)
}

func TestReadPCAPPortFilter(t *testing.T) {
	muteLogs(t)

	capture := buildCapture(t, 9999, "0,0,1000,0\n")
	got, stats, err := ReadPCAP(context.Background(), capture, 2368)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, stats.Packets)
	assert.Zero(t, stats.UDPPackets)
}

func TestReadPCAPCancelled(t *testing.T) {
	muteLogs(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := ReadPCAP(ctx, buildCapture(t, 2368, "0,0,1,0\n"), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadPCAPBadHeader(t *testing.T) {
	_, _, err := ReadPCAP(context.Background(), bytes.NewReader([]byte("not a pcap")), 0)
	assert.Error(t, err)
}
