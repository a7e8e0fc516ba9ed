package led

import "unsafe"

// LEDs describes a strip of LEDs. It is a preallocated slice of RGBColor.
type LEDs []RGBColor

// NewLEDs creates a new strip of LEDs. Colors are initialized to black
// (off).
func NewLEDs(numLEDs int) LEDs {
	return make(LEDs, numLEDs)
}

// AsPixels returns the LED strip as a slice of uint8 values. Each LED is
// represented by three values, one for each color channel. The returned slice
// aliases l.
func (l LEDs) AsPixels() []uint8 {
	if len(l) == 0 {
		return nil
	}
	return unsafe.Slice((*uint8)(unsafe.Pointer(&l[0])), 3*len(l))
}

// Fill sets every LED in the strip to c.
func (l LEDs) Fill(c RGBColor) {
	for i := range l {
		l[i] = c
	}
}

// Clone returns a copy of the strip.
func (l LEDs) Clone() LEDs {
	c := make(LEDs, len(l))
	copy(c, l)
	return c
}

// IsUniform returns true if every LED has the same color. An empty strip is
// uniform.
func (l LEDs) IsUniform() bool {
	for i := 1; i < len(l); i++ {
		if l[i] != l[0] {
			return false
		}
	}
	return true
}
