// Package effects implements the LED strip animations.
//
// The set of effects is closed: each one is a Kind, and every Kind knows its
// Descriptor and how to construct itself from user parameters.
package effects

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/pkg/errors"
	"libdb.so/emberglow/internal/led"
)

// ErrNotFound is returned when an effect name does not match any Kind.
var ErrNotFound = errors.New("effect not found")

// Effect is a running animation. Run renders frames onto the surface and
// flushes them until ctx is canceled, at which point it stops touching the
// surface and returns ctx.Err(). Any other returned error is a fault.
type Effect interface {
	Kind() Kind
	Run(ctx context.Context, s *led.Surface) error
}

// Kind is a kind of effect.
type Kind uint8

const (
	Fire Kind = iota
	Twinkle
	Strobe
	Rainbow
	numKinds
)

// Kinds returns all effect kinds in registration order.
func Kinds() []Kind {
	kinds := make([]Kind, numKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// String returns the name the effect is requested by.
func (k Kind) String() string {
	switch k {
	case Fire:
		return "fire_v2"
	case Twinkle:
		return "twinkle"
	case Strobe:
		return "strobe"
	case Rainbow:
		return "rainbow"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseKind looks up an effect by name. Names are case-insensitive.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(name, k.String()) {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrNotFound, "%q", name)
}

// Descriptor describes an effect and the parameters it accepts.
type Descriptor struct {
	Name   string `json:"name"`
	Desc   string `json:"desc"`
	Params Schema `json:"params"`
}

// Descriptor returns the descriptor of the effect kind.
func (k Kind) Descriptor() Descriptor {
	switch k {
	case Fire:
		return Descriptor{Name: k.String(), Desc: fireDesc, Params: fireSchema}
	case Twinkle:
		return Descriptor{Name: k.String(), Desc: twinkleDesc, Params: twinkleSchema}
	case Strobe:
		return Descriptor{Name: k.String(), Desc: strobeDesc, Params: strobeSchema}
	case Rainbow:
		return Descriptor{Name: k.String(), Desc: rainbowDesc, Params: rainbowSchema}
	default:
		panic("invalid effect kind")
	}
}

// Descriptors returns the descriptors of all effects.
func Descriptors() []Descriptor {
	descs := make([]Descriptor, 0, numKinds)
	for _, k := range Kinds() {
		descs = append(descs, k.Descriptor())
	}
	return descs
}

// Options are optional construction parameters.
type Options struct {
	// Rand is the random source of the effect. It is used only by the
	// effect's own goroutine. If nil, a randomly seeded source is used.
	Rand *rand.Rand
}

// Constructed is the result of New.
type Constructed struct {
	Effect Effect
	// Ignored lists the supplied parameters that were unknown or invalid.
	Ignored []string
}

// New constructs an effect of the given kind. All parameters are resolved
// against the kind's schema and clamped before the effect sees them.
func New(k Kind, params Params, opts Options) (Constructed, error) {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	values, ignored := k.Descriptor().Params.Resolve(params)

	var e Effect
	switch k {
	case Fire:
		e = newFire(values, rng)
	case Twinkle:
		e = newTwinkle(values, rng)
	case Strobe:
		e = newStrobe(values)
	case Rainbow:
		e = newRainbow(values)
	default:
		return Constructed{}, fmt.Errorf("invalid effect kind %d", k)
	}

	return Constructed{Effect: e, Ignored: ignored}, nil
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// flushAndWait flushes the surface and then holds the frame for d. It
// returns early if ctx is canceled.
func flushAndWait(ctx context.Context, s *led.Surface, d time.Duration) error {
	if err := s.Flush(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return sleep(ctx, d)
}

func errEmptyStrip(k Kind) error {
	return fmt.Errorf("%s: strip has no LEDs", k)
}
