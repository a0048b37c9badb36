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

package raster

import (
	"runtime"
)

// A pixel function. Reads whole RGB pixels from src and writes the same
// number of pixels to dst. For parallelization across CPUs.
type PixelFunction func(dst, src []uint8)

// Apply given pixel function to all pixels of src, storing results in dst, which must have the same dimensions.
// Runs at most maxThreads batches concurrently, or one per CPU if maxThreads<=0. Batch boundaries are
// multiples of align pixels, so only the final batch may hold a number of pixels that is not a multiple of align.
func ApplyPixelFunction(dst, src *Image, pf PixelFunction, align, maxThreads int) {
	numPixels := src.Pixels()
	if numPixels == 0 {
		return
	}
	if align < 1 {
		align = 1
	}
	if maxThreads <= 0 {
		maxThreads = runtime.NumCPU()
	}

	// split into 8*maxThreads work packages, limit parallelism to maxThreads
	numBatches := 8 * maxThreads
	batchSize := (numPixels + numBatches - 1) / numBatches
	batchSize = ((batchSize + align - 1) / align) * align
	sem := make(chan bool, maxThreads)
	for lower := 0; lower < numPixels; lower += batchSize {
		upper := lower + batchSize
		if upper > numPixels {
			upper = numPixels
		}

		sem <- true
		go func(d, s []uint8) {
			pf(d, s)
			<-sem
		}(dst.Data[lower*Channels:upper*Channels], src.Data[lower*Channels:upper*Channels])
	}

	for i := 0; i < cap(sem); i++ { // wait for goroutines to finish
		sem <- true
	}
}

// Applies a per-channel lookup table to all pixels of src, storing results in dst
func ApplyLUT(dst, src *Image, lut *[256]uint8, maxThreads int) {
	ApplyPixelFunction(dst, src, func(d, s []uint8) {
		for i, v := range s {
			d[i] = lut[v]
		}
	}, 1, maxThreads)
}
