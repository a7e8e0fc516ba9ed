package emberglow

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"libdb.so/emberglow/internal/led"
	"libdb.so/emberglow/ledserial"
)

// errControllerPanicked is returned by the serial link when the controller
// reports that it cannot recover.
var errControllerPanicked = errors.New("controller panicked")

// serialLink is an led.Output that sends frames to the LED controller over a
// serial port using the ledserial protocol.
type serialLink struct {
	rw         io.ReadWriteCloser
	numLEDs    int
	ackTimeout time.Duration
	logger     *slog.Logger

	writeMu sync.Mutex
	acks    chan ledserial.IncomingPacketType
	ready   chan struct{}
}

var _ led.Output = (*serialLink)(nil)

// openSerialLink opens the serial port described by cfg.
func openSerialLink(cfg SerialConfig, numLEDs int, logger *slog.Logger) (*serialLink, error) {
	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: cfg.Baud,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serial port")
	}

	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to reset read timeout")
	}

	return newSerialLink(port, numLEDs, time.Duration(cfg.AckTimeout), logger), nil
}

func newSerialLink(rw io.ReadWriteCloser, numLEDs int, ackTimeout time.Duration, logger *slog.Logger) *serialLink {
	return &serialLink{
		rw:         rw,
		numLEDs:    numLEDs,
		ackTimeout: ackTimeout,
		logger:     logger,
		acks:       make(chan ledserial.IncomingPacketType, 1),
		ready:      make(chan struct{}),
	}
}

// Run initializes the controller and then reads packets from it until ctx is
// canceled, at which point the port is closed.
func (l *serialLink) Run(ctx context.Context) error {
	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		<-ctx.Done()
		l.logger.Debug("closing serial port")
		if err := l.rw.Close(); err != nil {
			return errors.Wrap(err, "failed to close serial port")
		}
		return ctx.Err()
	})
	errg.Go(func() error {
		return l.readPackets(ctx)
	})
	errg.Go(func() error {
		l.logger.Debug("sending initialize packet", "num_leds", l.numLEDs)
		if err := l.send(ctx, ledserial.InitializePacket{NumLEDs: uint16(l.numLEDs)}); err != nil {
			return errors.Wrap(err, "failed to initialize LEDs")
		}
		close(l.ready)
		return nil
	})
	return errg.Wait()
}

// WriteFrame implements led.Output. It blocks until the controller has
// acknowledged the frame. All-black frames are sent as a clear packet.
func (l *serialLink) WriteFrame(ctx context.Context, frame led.LEDs) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ready:
	}

	if isDark(frame) {
		return l.send(ctx, ledserial.ClearPacket{})
	}
	return l.send(ctx, ledserial.SetPacket{Pix: frame.AsPixels()})
}

// isDark reports whether every LED of frame is off, in which case a clear
// packet replaces the full pixel payload.
func isDark(frame led.LEDs) bool {
	return len(frame) > 0 && frame.IsUniform() && frame[0].IsBlack()
}

// send writes a packet and waits for its acknowledgement.
func (l *serialLink) send(ctx context.Context, p ledserial.IncomingPacket) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	// Drop acks of packets that timed out earlier.
	for drained := false; !drained; {
		select {
		case <-l.acks:
		default:
			drained = true
		}
	}

	if err := ledserial.WriteIncomingPacket(l.rw, p); err != nil {
		l.logger.Warn(
			"failed to write packet",
			"packet", p.Type(),
			"err", err)
		return errors.Wrap(err, "failed to write packet")
	}

	if l.ackTimeout == 0 {
		return nil
	}

	timeout := time.NewTimer(l.ackTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return errors.Errorf("controller did not acknowledge %s packet within %v", p.Type(), l.ackTimeout)
		case t := <-l.acks:
			if t == p.Type() {
				return nil
			}
			l.logger.Debug("ignoring ack for other packet", "acked_for", t, "want", p.Type())
		}
	}
}

func (l *serialLink) readPackets(ctx context.Context) error {
	for ctx.Err() == nil {
		p, err := ledserial.ReadOutgoingPacket(l.rw)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A short read indicates a timeout. This is expected.
			// Ignore the error and try again.
			if errors.Is(err, io.EOF) {
				continue
			}
			return errors.Wrap(err, "failed to read packet")
		}

		l.logger.Debug(
			"received packet from controller",
			"type", p.Type())

		switch p := p.(type) {
		case ledserial.AckPacket:
			select {
			case l.acks <- p.IncomingPacketType:
			default:
				l.logger.Debug("dropping unexpected ack", "acked_for", p.IncomingPacketType)
			}

		case ledserial.ErrorPacket:
			l.logger.Warn(
				"received error packet from controller",
				"message", p.Message)

		case ledserial.PanicPacket:
			l.logger.Error(
				"controller unrecoverably panicked",
				"message", p.Message)
			return errControllerPanicked

		case ledserial.LogPacket:
			l.logger.Info(
				"received log packet from controller",
				"message", p.Message)
		}
	}

	return ctx.Err()
}
