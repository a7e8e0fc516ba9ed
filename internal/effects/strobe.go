package effects

import (
	"context"
	"time"

	"libdb.so/emberglow/internal/led"
)

const strobeDesc = "Strobe light: the whole strip flashes."

var strobeSchema = append(colorParams(60, 50, 70), Schema{
	{Name: "speed", Default: 0.1, Min: 0.01, Max: 1, Desc: "Seconds the strip stays dark"},
	{Name: "delay", Default: 0.2, Min: 0.01, Max: 1, Desc: "Seconds each flash lasts"},
	{Name: "intensity", Default: 255, Min: 0, Max: 255, Desc: "Flash brightness"},
}...)

type strobe struct {
	color led.RGBColor
	speed time.Duration
	delay time.Duration
}

func newStrobe(v Values) *strobe {
	return &strobe{
		color: v.Color().Scale(v.Byte("intensity")),
		speed: v.Seconds("speed"),
		delay: v.Seconds("delay"),
	}
}

func (s *strobe) Kind() Kind { return Strobe }

func (s *strobe) Run(ctx context.Context, surface *led.Surface) error {
	phases := [2]struct {
		color led.RGBColor
		hold  time.Duration
	}{
		{s.color, s.delay},
		{led.Black, s.speed},
	}

	for ctx.Err() == nil {
		for _, phase := range phases {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			surface.Fill(phase.color)
			if err := flushAndWait(ctx, surface, phase.hold); err != nil {
				return err
			}
		}
	}

	return ctx.Err()
}
