package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/hillas.stream/internal/pipeline"
)

// PcapSource replays a capture of the event stream: one JSON event per
// UDP datagram.
type PcapSource struct {
	dec     *Decoder
	r       *pcapgo.Reader
	port    layers.UDPPort
	packets int
}

// NewPcapSource reads a pcap stream from r, keeping UDP datagrams sent to
// port. Port 0 keeps every UDP datagram.
func NewPcapSource(r io.Reader, port int, dec *Decoder) (*PcapSource, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open pcap: %w", err)
	}
	return &PcapSource{dec: dec, r: pr, port: layers.UDPPort(port)}, nil
}

// Next implements pipeline.Source.
func (s *PcapSource) Next(ctx context.Context) (pipeline.RawEvent, error) {
	for {
		if err := ctx.Err(); err != nil {
			return pipeline.RawEvent{}, err
		}
		data, _, err := s.r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			diagf("pcap replay complete: %d packets", s.packets)
			return pipeline.RawEvent{}, io.EOF
		}
		if err != nil {
			return pipeline.RawEvent{}, fmt.Errorf("read packet %d: %w", s.packets+1, err)
		}
		s.packets++

		packet := gopacket.NewPacket(data, s.r.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		if s.port != 0 && udp.DstPort != s.port {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}

		ev, err := s.dec.Decode(udp.Payload)
		if err != nil {
			opsf("pcap packet %d skipped: %v", s.packets, err)
			continue
		}
		tracef("pcap packet %d: event %d", s.packets, ev.EventID)
		return ev, nil
	}
}
