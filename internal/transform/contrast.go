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

package transform

import (
	"github.com/mlnoga/foto/internal/raster"
)

// Default contrast threshold, the center of the 8-bit range
const DefaultThreshold = 128

// Parameters for a contrast stretch
type ContrastParams struct {
	Ratio     float32 `json:"ratio"`     // stretch factor, >1 increases contrast, <1 reduces it
	Threshold float32 `json:"threshold"` // pivot value in (0,256), stays fixed
}

// Returns an error if the ratio is not positive, or the threshold is outside of (0,256)
func (p ContrastParams) Validate() error {
	if !isFinite(p.Ratio) || p.Ratio <= 0 {
		return &ParameterError{"ratio", p.Ratio, "must be greater than 0"}
	}
	if !(p.Threshold > 0 && p.Threshold < 256) {
		return &ParameterError{"threshold", p.Threshold, "must be between 0 and 256, exclusive"}
	}
	return nil
}

// Stretches a single channel value linearly around the threshold, clamping to [0,255]
func ContrastValue(v uint8, ratio, threshold float32) uint8 {
	// float64 keeps (v-threshold)+threshold exact, so ratio 1 is the identity
	x := (float64(v)-float64(threshold))*float64(ratio) + float64(threshold)
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return uint8(x)
}

// Returns a new image with contrast stretched by p.Ratio around p.Threshold,
// applied independently to each channel of each pixel. Uses all CPUs
func Contrast(img *raster.Image, p ContrastParams) (*raster.Image, error) {
	return ContrastWithThreads(img, p, 0)
}

// As Contrast, running at most maxThreads goroutines. maxThreads<=0 uses all CPUs
func ContrastWithThreads(img *raster.Image, p ContrastParams, maxThreads int) (*raster.Image, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := img.Check(); err != nil {
		return nil, err
	}

	// output depends on the input byte only
	var lut [256]uint8
	for i := range lut {
		lut[i] = ContrastValue(uint8(i), p.Ratio, p.Threshold)
	}

	out := raster.NewImageFromImage(img)
	raster.ApplyLUT(out, img, &lut, maxThreads)
	return out, nil
}
