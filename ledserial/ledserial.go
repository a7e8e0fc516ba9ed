// Package ledserial implements the LED serial protocol spoken between the
// emberglow daemon and the microcontroller driving the strip.
//
// Every packet is a one-byte type, a type-specific body and a little-endian
// CRC-32 (IEEE) of the type and body. Incoming packets flow from the host to
// the device; outgoing packets flow from the device back to the host. The
// device acknowledges every incoming packet it handled with an AckPacket.
package ledserial

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

// ErrChecksum is returned when a packet fails its checksum.
var ErrChecksum = fmt.Errorf("packet checksum mismatch")

// IncomingPacketType is a type of packet.
type IncomingPacketType uint8

const (
	TypeInitializePacket IncomingPacketType = iota
	TypeClearPacket
	TypeSetPacket
)

// String returns a string representation of the packet type.
func (t IncomingPacketType) String() string {
	switch t {
	case TypeInitializePacket:
		return "initialize"
	case TypeClearPacket:
		return "clear"
	case TypeSetPacket:
		return "set"
	default:
		return fmt.Sprintf("IncomingPacketType(%d)", t)
	}
}

// IncomingPacket is a packet sent from the host to the device.
type IncomingPacket interface {
	// Type returns the type of packet.
	Type() IncomingPacketType
}

// InitializePacket is a packet that initializes the LED strip.
type InitializePacket struct {
	NumLEDs uint16
}

// ClearPacket is a packet that clears the LED strip.
type ClearPacket struct{}

// SetPacket is a packet that sets the LED strip to the given colors. Pix
// holds three bytes per LED.
type SetPacket struct {
	Pix []uint8
}

func (p InitializePacket) Type() IncomingPacketType { return TypeInitializePacket }
func (p ClearPacket) Type() IncomingPacketType      { return TypeClearPacket }
func (p SetPacket) Type() IncomingPacketType        { return TypeSetPacket }

// OutgoingPacketType is a type of packet.
type OutgoingPacketType uint8

const (
	TypeErrorPacket OutgoingPacketType = iota
	TypePanicPacket
	TypeLogPacket
	TypeAckPacket
)

// String returns a string representation of the packet type.
func (t OutgoingPacketType) String() string {
	switch t {
	case TypeErrorPacket:
		return "error"
	case TypePanicPacket:
		return "panic"
	case TypeLogPacket:
		return "log"
	case TypeAckPacket:
		return "ack"
	default:
		return fmt.Sprintf("OutgoingPacketType(%d)", t)
	}
}

// OutgoingPacket is a packet sent from the device to the host.
type OutgoingPacket interface {
	// Type returns the type of packet.
	Type() OutgoingPacketType
}

// ErrorPacket is a packet that indicates an error occurred.
type ErrorPacket struct {
	Message string
}

// PanicPacket is a packet that indicates the program cannot recover.
type PanicPacket struct {
	Message string
}

// LogPacket is a packet that contains a log message.
type LogPacket struct {
	Message string
}

// AckPacket acknowledges that an incoming packet was handled.
type AckPacket struct {
	IncomingPacketType IncomingPacketType
}

func (p ErrorPacket) Type() OutgoingPacketType { return TypeErrorPacket }
func (p PanicPacket) Type() OutgoingPacketType { return TypePanicPacket }
func (p LogPacket) Type() OutgoingPacketType   { return TypeLogPacket }
func (p AckPacket) Type() OutgoingPacketType   { return TypeAckPacket }

// ReadContext is the state of the LED strip. Data in this structure are
// required for the device to read incoming packets.
type ReadContext struct {
	// NumLEDs is the number of LEDs in the strip.
	NumLEDs uint16
}

// ReadIncomingPacket reads an incoming packet from the given reader.
func ReadIncomingPacket(r io.Reader, context ReadContext) (IncomingPacket, error) {
	hash := crc32.NewIEEE()
	r = io.TeeReader(r, hash)

	var packet IncomingPacket
	var ptypeBuf [1]byte
	if _, err := io.ReadFull(r, ptypeBuf[:]); err != nil {
		return nil, fmt.Errorf("failed to read incoming packet type: %w", err)
	}

	switch ptype := IncomingPacketType(ptypeBuf[0]); ptype {
	case TypeInitializePacket:
		var p InitializePacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read number of LEDs: %w", err)
		}
		packet = p

	case TypeClearPacket:
		packet = ClearPacket{}

	case TypeSetPacket:
		var p SetPacket
		p.Pix = make([]uint8, 3*int(context.NumLEDs))
		if _, err := io.ReadFull(r, p.Pix); err != nil {
			return nil, fmt.Errorf("failed to read pixel data: %w", err)
		}
		packet = p

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := verifyChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteIncomingPacket writes an incoming packet to the given writer.
func WriteIncomingPacket(w io.Writer, p IncomingPacket) error {
	hash := crc32.NewIEEE()
	mw := io.MultiWriter(w, hash)

	if err := binary.Write(mw, Endianness, p.Type()); err != nil {
		return fmt.Errorf("failed to write packet type: %w", err)
	}

	switch p := p.(type) {
	case InitializePacket:
		if err := binary.Write(mw, Endianness, p); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	case ClearPacket:
	case SetPacket:
		if _, err := mw.Write(p.Pix); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	return writeChecksum(w, hash.Sum32())
}

// ReadOutgoingPacket reads an outgoing packet from the given reader.
func ReadOutgoingPacket(r io.Reader) (OutgoingPacket, error) {
	hash := crc32.NewIEEE()
	r = io.TeeReader(r, hash)

	var packet OutgoingPacket
	var ptypeBuf [1]byte
	if _, err := io.ReadFull(r, ptypeBuf[:]); err != nil {
		return nil, fmt.Errorf("failed to read outgoing packet type: %w", err)
	}

	switch ptype := OutgoingPacketType(ptypeBuf[0]); ptype {
	case TypeErrorPacket:
		msg, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read error message: %w", err)
		}
		packet = ErrorPacket{Message: msg}

	case TypePanicPacket:
		msg, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read panic message: %w", err)
		}
		packet = PanicPacket{Message: msg}

	case TypeLogPacket:
		msg, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read log message: %w", err)
		}
		packet = LogPacket{Message: msg}

	case TypeAckPacket:
		var p AckPacket
		if err := binary.Read(r, Endianness, &p.IncomingPacketType); err != nil {
			return nil, fmt.Errorf("failed to read acked packet type: %w", err)
		}
		packet = p

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := verifyChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteOutgoingPacket writes an outgoing packet to the given writer.
func WriteOutgoingPacket(w io.Writer, p OutgoingPacket) error {
	hash := crc32.NewIEEE()
	mw := io.MultiWriter(w, hash)

	if err := binary.Write(mw, Endianness, p.Type()); err != nil {
		return fmt.Errorf("failed to write packet type: %w", err)
	}

	var err error
	switch p := p.(type) {
	case ErrorPacket:
		err = writeString(mw, p.Message)
	case PanicPacket:
		err = writeString(mw, p.Message)
	case LogPacket:
		err = writeString(mw, p.Message)
	case AckPacket:
		err = binary.Write(mw, Endianness, p.IncomingPacketType)
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s packet: %w", p.Type(), err)
	}

	return writeChecksum(w, hash.Sum32())
}

func readString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, Endianness, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		s = s[:0xFFFF]
	}
	if err := binary.Write(w, Endianness, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// verifyChecksum reads the trailing checksum from r and compares it to sum.
func verifyChecksum(r io.Reader, sum uint32) error {
	var checksum uint32
	if err := binary.Read(r, Endianness, &checksum); err != nil {
		return fmt.Errorf("failed to read packet checksum: %w", err)
	}
	if checksum != sum {
		return ErrChecksum
	}
	return nil
}

func writeChecksum(w io.Writer, sum uint32) error {
	if err := binary.Write(w, Endianness, sum); err != nil {
		return fmt.Errorf("failed to write packet checksum: %w", err)
	}
	return nil
}
