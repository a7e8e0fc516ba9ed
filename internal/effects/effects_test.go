package effects

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/emberglow/internal/led"
)

// recorder is an output that remembers every frame written to it.
type recorder struct {
	mu     sync.Mutex
	frames []led.LEDs
	times  []time.Time
}

func (r *recorder) WriteFrame(_ context.Context, frame led.LEDs) error {
	r.mu.Lock()
	r.frames = append(r.frames, frame.Clone())
	r.times = append(r.times, time.Now())
	r.mu.Unlock()
	return nil
}

func (r *recorder) Times() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Time(nil), r.times...)
}

func (r *recorder) Frames() []led.LEDs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]led.LEDs(nil), r.frames...)
}

func newSurface(n int, out led.Output) *led.Surface {
	return led.NewSurface(n, out, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestParseKindIsCaseInsensitive(t *testing.T) {
	for name, want := range map[string]Kind{
		"fire_v2": Fire,
		"FIRE_V2": Fire,
		"Twinkle": Twinkle,
		"strobe":  Strobe,
		"RainBow": Rainbow,
	} {
		k, err := ParseKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, k, name)
	}
}

func TestParseKindUnknown(t *testing.T) {
	for _, name := range []string{"", "glow", "fire", "fire_v3"} {
		_, err := ParseKind(name)
		assert.True(t, errors.Is(err, ErrNotFound), name)
	}
}

func TestResolveClampsAndDefaults(t *testing.T) {
	values, ignored := fireSchema.Resolve(Params{
		"intensity": 5.0,
		"speed":     "0.0001",
		"r":         300,
		"g":         -4.0,
		"cooling":   "lots",
		"bogus":     1.0,
	})

	assert.Equal(t, 1.0, values.Float("intensity"))
	assert.Equal(t, 0.01, values.Float("speed"))
	assert.Equal(t, 255.0, values.Float("r"))
	assert.Equal(t, 0.0, values.Float("g"))
	assert.Equal(t, 70.0, values.Float("b"))
	assert.Equal(t, 50.0, values.Float("cooling"))
	assert.Equal(t, []string{"bogus", "cooling"}, ignored)
}

func TestResolveEverySchemaStaysInBounds(t *testing.T) {
	extremes := []any{-1e9, 1e9, 0.5, -0.5, "nope", nil}
	for _, d := range Descriptors() {
		for _, x := range extremes {
			raw := Params{}
			for _, p := range d.Params {
				raw[p.Name] = x
			}
			values, _ := d.Params.Resolve(raw)
			for _, p := range d.Params {
				v := values.Float(p.Name)
				assert.GreaterOrEqual(t, v, p.Min, "%s.%s=%v", d.Name, p.Name, x)
				assert.LessOrEqual(t, v, p.Max, "%s.%s=%v", d.Name, p.Name, x)
			}
		}
	}
}

func TestPaletteIsLinearGradient(t *testing.T) {
	p := NewPalette(led.RGB(255, 100, 0))
	assert.Equal(t, led.Black, p.At(0))
	assert.Equal(t, led.RGB(255, 100, 0), p.At(255))
	assert.Equal(t, led.RGB(128, 50, 0), p.At(128))
	assert.Equal(t, p[255], p.At(300))
}

func TestFireStepKeepsHeatInRange(t *testing.T) {
	values, _ := fireSchema.Resolve(Params{"intensity": 1, "cooling": 0})
	f := newFire(values, testRand())
	f.heat = make([]int, 30)

	for i := 0; i < 200; i++ {
		f.step()
		for _, h := range f.heat {
			require.GreaterOrEqual(t, h, 0)
			require.LessOrEqual(t, h, 255)
		}
	}
}

func TestFireStepPropagatesHeatBackward(t *testing.T) {
	values, _ := fireSchema.Resolve(Params{"intensity": 0.5, "cooling": 0})
	f := newFire(values, rand.New(rand.NewPCG(7, 11)))
	f.heat = []int{10, 20, 30, 40, 50, 60, 70, 80}

	// Replay the same random sequence to compute the expected frame.
	replay := rand.New(rand.NewPCG(7, 11))
	want := append([]int(nil), f.heat...)
	want[replay.IntN(len(want))] = 127
	for i := len(want) - 1; i > 0; i-- {
		assert.Equal(t, 0, replay.IntN(1), "decay must be 0 without cooling")
		wave := replay.IntN(21) - 10
		want[i] = clampByte(want[i] + want[i-1] + wave)
	}

	f.step()
	assert.Equal(t, want, f.heat)
}

func TestStrobeHoldsFlashForDelayAndDarkForSpeed(t *testing.T) {
	rec := &recorder{}
	s := newSurface(3, rec)

	c, err := New(Strobe, Params{"delay": 0.2, "speed": 0.01}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Effect.Run(ctx, s) }()

	require.Eventually(t, func() bool { return len(rec.Frames()) >= 4 }, 3*time.Second, 5*time.Millisecond)
	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))

	frames, times := rec.Frames(), rec.Times()
	require.False(t, frames[0][0].IsBlack(), "first frame must be the flash")
	require.True(t, frames[1][0].IsBlack())
	require.False(t, frames[2][0].IsBlack())

	lit := times[1].Sub(times[0])
	dark := times[2].Sub(times[1])
	assert.GreaterOrEqual(t, lit, 200*time.Millisecond, "flash held for %v", lit)
	assert.Less(t, dark, 150*time.Millisecond, "dark held for %v", dark)
	assert.Greater(t, lit, dark)
}

func TestStrobeAlternatesFlashAndDark(t *testing.T) {
	rec := &recorder{}
	s := newSurface(6, rec)

	c, err := New(Strobe, Params{"speed": 0.01, "delay": 0.01, "intensity": 255}, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Effect.Run(ctx, s) }()

	require.Eventually(t, func() bool { return len(rec.Frames()) >= 4 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))

	for i, frame := range rec.Frames() {
		assert.True(t, frame.IsUniform(), "frame %d is not uniform", i)
		want := led.RGB(60, 50, 70)
		if i%2 == 1 {
			want = led.Black
		}
		assert.Equal(t, want, frame[0], "frame %d", i)
	}
}

func TestTwinkleLightsAtMostNumLEDs(t *testing.T) {
	rec := &recorder{}
	s := newSurface(50, rec)

	c, err := New(Twinkle, Params{"num_leds": 3, "speed": 0.01, "intensity": 128}, Options{Rand: testRand()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Effect.Run(ctx, s) }()

	require.Eventually(t, func() bool { return len(rec.Frames()) >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	first := rec.Frames()[0]
	var lit int
	for _, px := range first {
		if !px.IsBlack() {
			lit++
			assert.Equal(t, led.RGB(60, 50, 70).Scale(128), px)
		}
	}
	assert.GreaterOrEqual(t, lit, 1)
	assert.LessOrEqual(t, lit, 3)
}

func TestEffectsStopPromptlyAndStopMutating(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			rec := &recorder{}
			s := newSurface(20, rec)

			c, err := New(k, Params{"speed": 0.01, "delay": 0.01}, Options{Rand: testRand()})
			require.NoError(t, err)
			assert.Equal(t, k, c.Effect.Kind())

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- c.Effect.Run(ctx, s) }()

			require.Eventually(t, func() bool { return len(rec.Frames()) >= 2 }, time.Second, 5*time.Millisecond)
			cancel()

			select {
			case err := <-done:
				assert.True(t, errors.Is(err, context.Canceled))
			case <-time.After(500 * time.Millisecond):
				t.Fatal("effect did not stop after cancellation")
			}

			after := s.Snapshot()
			frames := len(rec.Frames())
			time.Sleep(30 * time.Millisecond)
			assert.Equal(t, after, s.Snapshot())
			assert.Equal(t, frames, len(rec.Frames()))
		})
	}
}

func TestEffectFailsOnFlushError(t *testing.T) {
	boom := errors.New("boom")
	s := newSurface(4, led.OutputFunc(func(context.Context, led.LEDs) error { return boom }))

	c, err := New(Fire, nil, Options{Rand: testRand()})
	require.NoError(t, err)

	err = c.Effect.Run(context.Background(), s)
	assert.True(t, errors.Is(err, boom))
}

func TestEffectOnEmptyStripFails(t *testing.T) {
	s := newSurface(0, led.Discard)

	c, err := New(Fire, nil, Options{})
	require.NoError(t, err)
	assert.Error(t, c.Effect.Run(context.Background(), s))
}

func TestDescriptorsAdvertiseSchemas(t *testing.T) {
	descs := Descriptors()
	require.Len(t, descs, len(Kinds()))

	intensity, ok := descs[Fire].Params.Lookup("intensity")
	require.True(t, ok)
	assert.Equal(t, ParamSpec{Name: "intensity", Default: 0.5, Min: 0, Max: 1, Desc: "Brightness of injected heat"}, intensity)

	numLEDs, ok := descs[Twinkle].Params.Lookup("num_leds")
	require.True(t, ok)
	assert.Equal(t, 1.0, numLEDs.Min)
	assert.Equal(t, 60.0, numLEDs.Max)
}
