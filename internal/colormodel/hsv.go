// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package colormodel converts 8-bit RGB pixels to and from the HSV color model,
// and computes BT.601 luma. All functions are pure and safe for concurrent use.
package colormodel

import (
	"math"
)

// An HSV color. Hue in degrees [0,360), saturation and value in [0,1]
type HSV struct {
	H float32
	S float32
	V float32
}

// Converts an 8-bit RGB color to HSV. Hue is 0 for achromatic colors,
// where it is undefined.
func RGBToHSV(r, g, b uint8) (h, s, v float32) {
	rf, gf, bf := float32(r)/255, float32(g)/255, float32(b)/255

	max := max3(rf, gf, bf)
	min := min3(rf, gf, bf)
	delta := max - min

	switch {
	case delta == 0:
		h = 0
	case max == rf:
		h = 60 * float32(math.Mod(float64((gf-bf)/delta), 6))
	case max == gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	if max != 0 {
		s = delta / max
	}
	v = max
	return h, s, v
}

// Converts an HSV color to 8-bit RGB, rounding to the nearest value.
// Hues outside of [0,360) yield black chroma, i.e. a gray of the match value.
func HSVToRGB(h, s, v float32) (r, g, b uint8) {
	c := v * s
	hp := h / 60
	x := c * (1 - float32(math.Abs(math.Mod(float64(hp), 2)-1)))

	var r1, g1, b1 float32
	if hp >= 0 && hp < 6 {
		switch int(hp) {
		case 0:
			r1, g1, b1 = c, x, 0
		case 1:
			r1, g1, b1 = x, c, 0
		case 2:
			r1, g1, b1 = 0, c, x
		case 3:
			r1, g1, b1 = 0, x, c
		case 4:
			r1, g1, b1 = x, 0, c
		case 5:
			r1, g1, b1 = c, 0, x
		}
	}

	m := v - c
	return toByte(r1 + m), toByte(g1 + m), toByte(b1 + m)
}

// Converts an 8-bit RGB color to an HSV value
func FromRGB(r, g, b uint8) HSV {
	h, s, v := RGBToHSV(r, g, b)
	return HSV{h, s, v}
}

// Converts the HSV value to an 8-bit RGB color
func (c HSV) RGB() (r, g, b uint8) {
	return HSVToRGB(c.H, c.S, c.V)
}

// Returns the BT.601 luma of the given channel values. Works on any
// scale, e.g. [0,255] or [0,1], without gamma correction.
func Luma(r, g, b float32) float32 {
	return 0.299*r + 0.587*g + 0.114*b
}

// scales a [0,1] value to [0,255], rounding to nearest and clamping
func toByte(x float32) uint8 {
	y := math.Round(float64(x) * 255)
	if y < 0 || math.IsNaN(y) {
		return 0
	}
	if y > 255 {
		return 255
	}
	return uint8(y)
}

func max3(a, b, c float32) float32 {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}

func min3(a, b, c float32) float32 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
