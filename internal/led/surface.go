package led

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// ErrOutOfRange is returned when an LED index is outside of the strip.
var ErrOutOfRange = errors.New("LED index out of range")

// Surface owns the pixel buffer of a strip and the path to the hardware.
//
// Pixels may be set freely between flushes. Flush copies the buffer into a
// frame and writes it to the Output; flushes are serialized so that at most
// one is executing at any time, and concurrent callers wait their turn.
type Surface struct {
	out    Output
	logger *slog.Logger

	flushMu sync.Mutex
	frame   LEDs // only touched while holding flushMu

	mu   sync.RWMutex
	leds LEDs
}

// NewSurface creates a new surface of numLEDs black pixels that flushes to
// out.
func NewSurface(numLEDs int, out Output, logger *slog.Logger) *Surface {
	return &Surface{
		out:    out,
		logger: logger,
		frame:  NewLEDs(numLEDs),
		leds:   NewLEDs(numLEDs),
	}
}

// Len returns the number of LEDs in the surface.
func (s *Surface) Len() int {
	return len(s.leds)
}

// SetPixel sets the color of the LED at index i. An out-of-range index is
// logged and otherwise ignored.
func (s *Surface) SetPixel(i int, c RGBColor) {
	if err := s.checkIndex(i); err != nil {
		s.logger.Warn("ignoring pixel write", "index", i, "len", s.Len(), "err", err)
		return
	}

	s.mu.Lock()
	s.leds[i] = c
	s.mu.Unlock()
}

// Pixel returns the color of the LED at index i. An out-of-range index is
// logged and reads as black.
func (s *Surface) Pixel(i int) RGBColor {
	if err := s.checkIndex(i); err != nil {
		s.logger.Warn("ignoring pixel read", "index", i, "len", s.Len(), "err", err)
		return Black
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leds[i]
}

// Fill sets every LED to c.
func (s *Surface) Fill(c RGBColor) {
	s.mu.Lock()
	s.leds.Fill(c)
	s.mu.Unlock()
}

// Update calls f with the pixel buffer locked, for effects that rewrite the
// whole strip each frame. f must not retain leds.
func (s *Surface) Update(f func(leds LEDs)) {
	s.mu.Lock()
	f(s.leds)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current pixel buffer.
func (s *Surface) Snapshot() LEDs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.leds.Clone()
}

// Flush writes the current pixel buffer to the output. It blocks until the
// output has accepted the frame or ctx is done.
func (s *Surface) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.RLock()
	copy(s.frame, s.leds)
	s.mu.RUnlock()

	if err := s.out.WriteFrame(ctx, s.frame); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}
	return nil
}

func (s *Surface) checkIndex(i int) error {
	if i < 0 || i >= len(s.leds) {
		return errors.Wrapf(ErrOutOfRange, "index %d", i)
	}
	return nil
}
