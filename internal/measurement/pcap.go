package measurement

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/trackinit/internal/monitoring"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// PCAPStats summarises a capture replay.
type PCAPStats struct {
	Packets      int // packets read from the capture
	UDPPackets   int // packets matching the UDP port filter
	Measurements int // detections decoded
	BadLines     int // payload lines that failed to parse
}

// ReadPCAPFile replays the capture at path. See ReadPCAP.
func ReadPCAPFile(ctx context.Context, path string, udpPort int) ([]Measurement, PCAPStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, PCAPStats{}, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	defer f.Close()
	return ReadPCAP(ctx, f, udpPort)
}

// ReadPCAP decodes a libpcap capture of a sensor streaming the line protocol
// over UDP. Each datagram payload may hold several newline separated
// detections. When udpPort is non-zero only datagrams addressed to that port
// are used. Lines that fail to parse are counted and skipped so that a single
// corrupt datagram does not abort a replay.
func ReadPCAP(ctx context.Context, r io.Reader, udpPort int) ([]Measurement, PCAPStats, error) {
	var stats PCAPStats

	reader, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read PCAP header: %w", err)
	}
	source := gopacket.NewPacketSource(reader, reader.LinkType())

	var out []Measurement
	for {
		if err := ctx.Err(); err != nil {
			monitoring.Logf("PCAP reader stopping due to context cancellation (processed %d packets)", stats.Packets)
			return out, stats, err
		}

		packet, err := source.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, stats, fmt.Errorf("failed to read packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++

		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok {
			continue
		}
		if udpPort != 0 && int(udp.DstPort) != udpPort {
			continue
		}
		stats.UDPPackets++

		scan := bufio.NewScanner(bytes.NewReader(udp.Payload))
		for scan.Scan() {
			m, err := ParseLine(scan.Text())
			if errors.Is(err, ErrEmptyLine) {
				continue
			}
			if err != nil {
				stats.BadLines++
				continue
			}
			out = append(out, m)
			stats.Measurements++
		}
	}

	monitoring.Logf("PCAP replay complete: %d packets, %d UDP, %d measurements, %d bad lines",
		stats.Packets, stats.UDPPackets, stats.Measurements, stats.BadLines)
	return out, stats, nil
}
