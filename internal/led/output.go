package led

import (
	"context"
	"errors"
)

// Output is a sink for rendered frames. Usually this is the hardware, but
// previews implement it too. WriteFrame must not retain frame after it
// returns.
type Output interface {
	WriteFrame(ctx context.Context, frame LEDs) error
}

// OutputFunc is a function that implements Output.
type OutputFunc func(ctx context.Context, frame LEDs) error

// WriteFrame calls f.
func (f OutputFunc) WriteFrame(ctx context.Context, frame LEDs) error {
	return f(ctx, frame)
}

// Discard is an Output that drops every frame.
var Discard Output = OutputFunc(func(context.Context, LEDs) error { return nil })

// MultiOutput writes each frame to every output in order. All outputs are
// written even if one fails; the errors are joined.
type MultiOutput []Output

// WriteFrame implements Output.
func (m MultiOutput) WriteFrame(ctx context.Context, frame LEDs) error {
	var errs []error
	for _, o := range m {
		if err := o.WriteFrame(ctx, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
