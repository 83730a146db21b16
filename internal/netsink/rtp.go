package netsink

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"net"

	"github.com/pion/rtp"
)

// RTPSender packetizes mix-bus output as RTP, the send-side mirror of
// the teacher's audio.go receive path (it unmarshals rtp.Packet off a
// multicast group; this marshals one onto a unicast/UDP target).
type RTPSender struct {
	conn        *net.UDPConn
	ssrc        uint32
	seq         uint16
	timestamp   uint32
	payloadType uint8
}

// NewRTPSender dials target (host:port) and prepares a sender with a
// random SSRC and sequence start, per RFC 3550.
func NewRTPSender(target string, payloadType uint8) (*RTPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("netsink: resolving RTP target %s: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("netsink: dialing RTP target %s: %w", target, err)
	}

	return &RTPSender{
		conn:        conn,
		ssrc:        rand.Uint32(),
		seq:         uint16(rand.Uint32()),
		payloadType: payloadType,
	}, nil
}

// SendBlock packetizes samples (16-bit PCM, network byte order) as one
// RTP packet and advances the sequence number and timestamp.
func (s *RTPSender) SendBlock(samples []int16) error {
	payload := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.BigEndian.PutUint16(payload[i*2:], uint16(v))
	}
	return s.SendPayload(payload, uint32(len(samples)))
}

// SendPayload wraps an already-encoded payload (e.g. Opus) in one RTP
// packet, advancing the sequence number by one and the timestamp by
// sampleCount (the number of audio samples the payload represents, for
// RTP timestamp continuity regardless of the payload's encoded size).
func (s *RTPSender) SendPayload(payload []byte, sampleCount uint32) error {
	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    s.payloadType,
			SequenceNumber: s.seq,
			Timestamp:      s.timestamp,
			SSRC:           s.ssrc,
		},
		Payload: payload,
	}

	data, err := packet.Marshal()
	if err != nil {
		return fmt.Errorf("netsink: marshaling RTP packet: %w", err)
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("netsink: sending RTP packet: %w", err)
	}

	s.seq++
	s.timestamp += sampleCount
	return nil
}

// Close releases the underlying UDP socket.
func (s *RTPSender) Close() error {
	return s.conn.Close()
}
