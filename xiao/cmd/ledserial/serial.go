package main

import (
	"io"
	"machine"
	"runtime"
	"time"
)

// SerialReadWriter is a machine.Serialer that also satisfies io.ReadWriter.
type SerialReadWriter interface {
	io.ReadWriter
	Buffered() int
}

type serialIO struct {
	machine.Serialer
}

// WrapSerial wraps a machine.Serialer in an io.ReadWriter. Reads never block
// for long: they return whatever is buffered, possibly nothing, so callers
// should use io.ReadFull.
func WrapSerial(serial machine.Serialer) SerialReadWriter {
	return serialIO{Serialer: serial}
}

func (s serialIO) Read(b []byte) (int, error) {
	n := min(s.Buffered(), len(b))
	if n == 0 {
		// Sleep to reduce CPU usage.
		time.Sleep(time.Millisecond)
		return 0, nil
	}

	for i := 0; i < n; i++ {
		c, err := s.ReadByte()
		if err != nil {
			return i, err
		}
		b[i] = c
	}

	runtime.Gosched()
	return n, nil
}

func (s serialIO) Write(b []byte) (int, error) {
	for i, c := range b {
		if err := s.WriteByte(c); err != nil {
			return i, err
		}
	}
	runtime.Gosched()
	return len(b), nil
}
