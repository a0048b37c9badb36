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
	"github.com/ajroetker/go-highway/hwy"
)

// BT.601 luma weights
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Number of pixels the vectorized luminance path processes together on this CPU
func LaneWidth() int {
	return hwy.MaxLanes[float32]()
}

// Luminance saturation over channels normalized to [0,1], processing LaneWidth() pixels per
// vector. Pixels that do not fill a whole vector are handed to the scalar path.
func saturateLuminanceLanes(dst, src []uint8, amount float32) {
	numPixels := len(src) / 3
	if numPixels == 0 {
		return
	}

	// split interleaved pixels into normalized channel planes
	planes := make([]float32, 3*numPixels)
	r, g, b := planes[:numPixels], planes[numPixels:2*numPixels], planes[2*numPixels:]
	for p := 0; p < numPixels; p++ {
		r[p] = float32(src[p*3]) / 255
		g[p] = float32(src[p*3+1]) / 255
		b[p] = float32(src[p*3+2]) / 255
	}

	vLumaR, vLumaG, vLumaB := hwy.Set[float32](lumaR), hwy.Set[float32](lumaG), hwy.Set[float32](lumaB)
	vAmount := hwy.Set(amount)
	vZero, vOne, v255 := hwy.Zero[float32](), hwy.Set[float32](1), hwy.Set[float32](255)

	hwy.ProcessWithTail[float32](numPixels,
		func(offset int) {
			vr := hwy.Load(r[offset:])
			vg := hwy.Load(g[offset:])
			vb := hwy.Load(b[offset:])
			l := hwy.MulAdd(vLumaB, vb, hwy.MulAdd(vLumaG, vg, hwy.Mul(vLumaR, vr)))

			vr = hwy.MulAdd(hwy.Sub(vr, l), vAmount, l)
			vg = hwy.MulAdd(hwy.Sub(vg, l), vAmount, l)
			vb = hwy.MulAdd(hwy.Sub(vb, l), vAmount, l)

			// clamp, rescale and store back into the planes
			hwy.Store(hwy.Mul(hwy.Clamp(vr, vZero, vOne), v255), r[offset:])
			hwy.Store(hwy.Mul(hwy.Clamp(vg, vZero, vOne), v255), g[offset:])
			hwy.Store(hwy.Mul(hwy.Clamp(vb, vZero, vOne), v255), b[offset:])

			end := offset + vr.NumLanes()
			for p := offset; p < end; p++ {
				dst[p*3] = uint8(r[p])
				dst[p*3+1] = uint8(g[p])
				dst[p*3+2] = uint8(b[p])
			}
		},
		func(offset, count int) {
			saturateLuminance(dst[offset*3:(offset+count)*3], src[offset*3:(offset+count)*3], amount)
		},
	)
}
