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
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Images with more pixels than this are sampled for statistics
const MaxStatsSamples = 1 << 20

// Statistics of a single color channel, in [0,255]
type ChannelStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// Per-channel image statistics
type Stats struct {
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Samples int            `json:"samples"` // number of pixels evaluated
	R       ChannelStats   `json:"r"`
	G       ChannelStats   `json:"g"`
	B       ChannelStats   `json:"b"`
	Color   StatsMeanColor `json:"meanColor"`
}

// Mean color of an image in hex and HSV notation
type StatsMeanColor struct {
	Hex string  `json:"hex"`
	H   float64 `json:"h"`
	S   float64 `json:"s"`
	V   float64 `json:"v"`
}

// Calculates per-channel statistics. Evaluates all pixels of small images,
// and a random sample of MaxStatsSamples pixels of large ones.
func NewStats(f *Image) *Stats {
	st := &Stats{Width: f.Width, Height: f.Height}
	numPixels := f.Pixels()
	if numPixels == 0 || len(f.Data) < numPixels*Channels {
		return st
	}

	samples := numPixels
	if samples > MaxStatsSamples {
		samples = MaxStatsSamples
	}
	rs := make([]float64, samples)
	gs := make([]float64, samples)
	bs := make([]float64, samples)
	if samples == numPixels {
		for p := 0; p < numPixels; p++ {
			rs[p], gs[p], bs[p] = float64(f.Data[p*3]), float64(f.Data[p*3+1]), float64(f.Data[p*3+2])
		}
	} else {
		rng := fastrand.RNG{}
		for i := 0; i < samples; i++ {
			p := int(rng.Uint32n(uint32(numPixels)))
			rs[i], gs[i], bs[i] = float64(f.Data[p*3]), float64(f.Data[p*3+1]), float64(f.Data[p*3+2])
		}
	}

	st.Samples = samples
	st.R, st.G, st.B = newChannelStats(rs), newChannelStats(gs), newChannelStats(bs)

	col := colorful.Color{R: st.R.Mean / 255, G: st.G.Mean / 255, B: st.B.Mean / 255}
	h, s, v := col.Hsv()
	st.Color = StatsMeanColor{Hex: col.Hex(), H: h, S: s, V: v}
	return st
}

func newChannelStats(data []float64) ChannelStats {
	mean, stdDev := stat.MeanStdDev(data, nil)
	if len(data) < 2 {
		stdDev = 0
	}
	return ChannelStats{
		Min:    floats.Min(data),
		Max:    floats.Max(data),
		Mean:   mean,
		StdDev: stdDev,
	}
}

// Print channel statistics as a human-readable string
func (c ChannelStats) String() string {
	return fmt.Sprintf("%.1f±%.1f [%.0f,%.0f]", c.Mean, c.StdDev, c.Min, c.Max)
}

// Print image statistics as a human-readable string
func (s *Stats) String() string {
	if s.Samples == 0 {
		return "no pixels"
	}
	return fmt.Sprintf("R %v, G %v, B %v, mean color %s (hue %.0f sat %.2f val %.2f)",
		s.R, s.G, s.B, s.Color.Hex, s.Color.H, s.Color.S, s.Color.V)
}
