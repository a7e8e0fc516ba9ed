package led

import "fmt"

// RGBColor is a color in linear RGB, one byte per channel.
type RGBColor [3]uint8

// Black is the color of an LED that is off.
var Black RGBColor

// RGB creates a new RGBColor.
func RGB(r, g, b uint8) RGBColor {
	return RGBColor{r, g, b}
}

// Scale scales every channel by intensity/255. An intensity of 255 returns
// the color unchanged.
func (c RGBColor) Scale(intensity uint8) RGBColor {
	return RGBColor{
		uint8(uint(c[0]) * uint(intensity) / 255),
		uint8(uint(c[1]) * uint(intensity) / 255),
		uint8(uint(c[2]) * uint(intensity) / 255),
	}
}

// IsBlack returns true if all channels are zero.
func (c RGBColor) IsBlack() bool {
	return c == Black
}

func (c RGBColor) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
