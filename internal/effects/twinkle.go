package effects

import (
	"context"
	"math/rand/v2"
	"time"

	"libdb.so/emberglow/internal/led"
)

const twinkleDesc = "A few random LEDs twinkle on and off."

var twinkleSchema = append(colorParams(60, 50, 70), Schema{
	{Name: "speed", Default: 0.2, Min: 0.01, Max: 1, Desc: "Seconds between twinkles"},
	{Name: "num_leds", Default: 5, Min: 1, Max: 60, Desc: "Number of twinkling LEDs"},
	{Name: "intensity", Default: 255, Min: 0, Max: 255, Desc: "Brightness"},
}...)

type twinkle struct {
	rng     *rand.Rand
	color   led.RGBColor
	speed   time.Duration
	numLEDs int
}

func newTwinkle(v Values, rng *rand.Rand) *twinkle {
	return &twinkle{
		rng:     rng,
		color:   v.Color().Scale(v.Byte("intensity")),
		speed:   v.Seconds("speed"),
		numLEDs: v.Int("num_leds"),
	}
}

func (t *twinkle) Kind() Kind { return Twinkle }

func (t *twinkle) Run(ctx context.Context, s *led.Surface) error {
	if s.Len() == 0 {
		return errEmptyStrip(Twinkle)
	}

	for ctx.Err() == nil {
		// The LEDs turned off are drawn independently of the ones turned on,
		// so some lit LEDs may stay lit for several cycles.
		for _, c := range [2]led.RGBColor{t.color, led.Black} {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.scatter(s, c)
			if err := flushAndWait(ctx, s, t.speed); err != nil {
				return err
			}
		}
	}

	return ctx.Err()
}

func (t *twinkle) scatter(s *led.Surface, c led.RGBColor) {
	n := s.Len()
	for i := 0; i < t.numLEDs; i++ {
		s.SetPixel(t.rng.IntN(n), c)
	}
}
