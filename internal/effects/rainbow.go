package effects

import (
	"context"
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"libdb.so/emberglow/internal/led"
)

const rainbowDesc = "A rainbow that scrolls along the strip."

var rainbowSchema = Schema{
	{Name: "speed", Default: 0.05, Min: 0.01, Max: 1, Desc: "Seconds per frame"},
	{Name: "step", Default: 5, Min: 0, Max: 60, Desc: "Hue shift per frame in degrees"},
	{Name: "spread", Default: 1, Min: 0, Max: 4, Desc: "Number of rainbows across the strip"},
	{Name: "brightness", Default: 0.5, Min: 0, Max: 1, Desc: "Brightness"},
}

type rainbow struct {
	speed      time.Duration
	step       float64
	spread     float64
	brightness float64
	hue        float64
}

func newRainbow(v Values) *rainbow {
	return &rainbow{
		speed:      v.Seconds("speed"),
		step:       v.Float("step"),
		spread:     v.Float("spread"),
		brightness: v.Float("brightness"),
	}
}

func (r *rainbow) Kind() Kind { return Rainbow }

func (r *rainbow) Run(ctx context.Context, s *led.Surface) error {
	for ctx.Err() == nil {
		s.Update(r.draw)
		if err := flushAndWait(ctx, s, r.speed); err != nil {
			return err
		}
		r.hue = math.Mod(r.hue+r.step, 360)
	}
	return ctx.Err()
}

func (r *rainbow) draw(leds led.LEDs) {
	n := float64(len(leds))
	for i := range leds {
		hue := math.Mod(r.hue+360*float64(i)/n*r.spread, 360)
		c := colorful.Hsv(hue, 1, r.brightness)
		leds[i] = led.RGB(c.RGB255())
	}
}
