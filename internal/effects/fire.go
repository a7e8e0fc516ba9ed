package effects

import (
	"context"
	"math/rand/v2"
	"time"

	"libdb.so/emberglow/internal/led"
)

const fireDesc = "Simulates a flame: heat is injected at random spots, " +
	"drifts along the strip and cools down."

var fireSchema = append(colorParams(60, 50, 70), Schema{
	{Name: "intensity", Default: 0.5, Min: 0, Max: 1, Desc: "Brightness of injected heat"},
	{Name: "speed", Default: 0.1, Min: 0.01, Max: 1, Desc: "Seconds per frame"},
	{Name: "cooling", Default: 50, Min: 0, Max: 255, Desc: "How fast heat decays"},
}...)

// Palette maps a heat value to a color.
type Palette [256]led.RGBColor

// NewPalette creates a linear gradient from black to c.
func NewPalette(c led.RGBColor) Palette {
	var p Palette
	for i := range p {
		p[i] = led.RGB(
			uint8(uint(c[0])*uint(i)/255),
			uint8(uint(c[1])*uint(i)/255),
			uint8(uint(c[2])*uint(i)/255),
		)
	}
	return p
}

// At returns the palette color for a heat value in [0, 255].
func (p *Palette) At(heat int) led.RGBColor {
	return p[clampByte(heat*len(p)/255)]
}

type fire struct {
	rng       *rand.Rand
	palette   Palette
	intensity float64
	speed     time.Duration
	cooling   int
	heat      []int
}

func newFire(v Values, rng *rand.Rand) *fire {
	return &fire{
		rng:       rng,
		palette:   NewPalette(v.Color()),
		intensity: v.Float("intensity"),
		speed:     v.Seconds("speed"),
		cooling:   v.Int("cooling"),
	}
}

func (f *fire) Kind() Kind { return Fire }

func (f *fire) Run(ctx context.Context, s *led.Surface) error {
	n := s.Len()
	if n == 0 {
		return errEmptyStrip(Fire)
	}
	f.heat = make([]int, n)

	for ctx.Err() == nil {
		f.step()
		s.Update(func(leds led.LEDs) {
			for i, h := range f.heat {
				leds[i] = f.palette.At(h)
			}
		})
		if err := flushAndWait(ctx, s, f.speed); err != nil {
			return err
		}
	}

	return ctx.Err()
}

// step advances the heat simulation by one frame.
func (f *fire) step() {
	f.heat[f.rng.IntN(len(f.heat))] = int(255 * f.intensity)

	for i := len(f.heat) - 1; i > 0; i-- {
		decay := f.rng.IntN(f.cooling + 1)
		wave := f.rng.IntN(21) - 10
		h := float64(f.heat[i]+f.heat[i-1]+wave) * (1 - float64(decay)/255)
		f.heat[i] = clampByte(int(h))
	}
}

func clampByte(v int) int {
	return max(0, min(255, v))
}
