package ledserial

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetPacketRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	pix := []uint8{1, 2, 3, 4, 5, 6}
	require.NoError(t, WriteIncomingPacket(&buf, SetPacket{Pix: pix}))

	// type + pixels + crc32
	assert.Equal(t, 1+len(pix)+4, buf.Len())

	p, err := ReadIncomingPacket(&buf, ReadContext{NumLEDs: 2})
	require.NoError(t, err)
	assert.Equal(t, SetPacket{Pix: pix}, p)
}

func TestIncomingPacketsInSequence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteIncomingPacket(&buf, InitializePacket{NumLEDs: 180}))
	require.NoError(t, WriteIncomingPacket(&buf, ClearPacket{}))

	p, err := ReadIncomingPacket(&buf, ReadContext{})
	require.NoError(t, err)
	assert.Equal(t, InitializePacket{NumLEDs: 180}, p)

	p, err = ReadIncomingPacket(&buf, ReadContext{NumLEDs: 180})
	require.NoError(t, err)
	assert.Equal(t, ClearPacket{}, p)
	assert.Zero(t, buf.Len())
}

func TestOutgoingPackets(t *testing.T) {
	packets := []OutgoingPacket{
		AckPacket{IncomingPacketType: TypeSetPacket},
		LogPacket{Message: "strip ready"},
		ErrorPacket{Message: "invalid number of pixels"},
		PanicPacket{Message: "out of memory"},
	}

	var buf bytes.Buffer
	for _, p := range packets {
		require.NoError(t, WriteOutgoingPacket(&buf, p))
	}
	for _, want := range packets {
		got, err := ReadOutgoingPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutgoingPacket(&buf, LogPacket{Message: "hello"}))

	b := buf.Bytes()
	b[3] ^= 0xFF // corrupt the message

	_, err := ReadOutgoingPacket(bytes.NewReader(b))
	assert.True(t, errors.Is(err, ErrChecksum))
}

func TestUnknownPacketType(t *testing.T) {
	_, err := ReadOutgoingPacket(bytes.NewReader([]byte{0xEE}))
	assert.Error(t, err)

	_, err = ReadIncomingPacket(bytes.NewReader([]byte{0xEE}), ReadContext{})
	assert.Error(t, err)
}
