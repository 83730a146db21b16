package netsink

import (
	"net"
	"testing"
	"time"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

func TestSendBlockProducesParsableRTPPacket(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer listener.Close()

	sender, err := NewRTPSender(listener.LocalAddr().String(), 96)
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, sender.SendBlock([]int16{100, -200, 300}))

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(time.Second))
	n, err := listener.Read(buf)
	require.NoError(t, err)

	var packet rtp.Packet
	require.NoError(t, packet.Unmarshal(buf[:n]))
	require.Equal(t, uint8(96), packet.PayloadType)
	require.Equal(t, uint8(2), packet.Version)
	require.Len(t, packet.Payload, 6)
}

func TestSendBlockAdvancesSequenceAndTimestamp(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer listener.Close()

	sender, err := NewRTPSender(listener.LocalAddr().String(), 96)
	require.NoError(t, err)
	defer sender.Close()

	firstSeq := sender.seq
	require.NoError(t, sender.SendBlock([]int16{1, 2}))
	require.Equal(t, firstSeq+1, sender.seq)
	require.Equal(t, uint32(2), sender.timestamp)
}

func TestSendPayloadAdvancesTimestampBySampleCount(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	defer listener.Close()

	sender, err := NewRTPSender(listener.LocalAddr().String(), 111)
	require.NoError(t, err)
	defer sender.Close()

	require.NoError(t, sender.SendPayload([]byte{0xde, 0xad, 0xbe, 0xef}, 960))
	require.Equal(t, uint32(960), sender.timestamp)

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(time.Second))
	n, err := listener.Read(buf)
	require.NoError(t, err)
	var packet rtp.Packet
	require.NoError(t, packet.Unmarshal(buf[:n]))
	require.Equal(t, uint8(111), packet.PayloadType)
	require.Len(t, packet.Payload, 4)
}
