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
	"math"
	"strings"

	"github.com/mlnoga/foto/internal/colormodel"
	"github.com/mlnoga/foto/internal/raster"
)

// Color model used to adjust saturation
type Strategy int

const (
	StrategyHSV                 Strategy = iota // scale HSV saturation
	StrategyLuminance                           // scale each channel's distance from BT.601 luma
	StrategyLuminanceVectorized                 // as StrategyLuminance, processing pixels in lane groups
)

var strategyNames = map[Strategy]string{
	StrategyHSV:                 "hsv",
	StrategyLuminance:           "lum",
	StrategyLuminanceVectorized: "lumsimd",
}

var strategyTokens = map[string]Strategy{
	"hsv":       StrategyHSV,
	"lum":       StrategyLuminance,
	"luma":      StrategyLuminance,
	"luminance": StrategyLuminance,
	"lumsimd":   StrategyLuminanceVectorized,
	"luma-simd": StrategyLuminanceVectorized,
	"lumvec":    StrategyLuminanceVectorized,
}

// Parses a strategy token, case-insensitive: hsv, lum (luma, luminance) or lumsimd (luma-simd, lumvec)
func ParseStrategy(token string) (Strategy, error) {
	if s, ok := strategyTokens[strings.ToLower(strings.TrimSpace(token))]; ok {
		return s, nil
	}
	return 0, &ParameterError{"type", token, "use 'hsv', 'lum' or 'lumsimd'"}
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Strategy) valid() bool {
	_, ok := strategyNames[s]
	return ok
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, &ParameterError{"strategy", int(s), "unknown saturation strategy"}
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parameters for a saturation adjustment
type SaturationParams struct {
	Amount   float32  `json:"amount"`   // <1 desaturates, >1 saturates, 1 keeps colors
	Strategy Strategy `json:"strategy"` // color model to use
}

// Returns an error if the amount is not positive, or the strategy is unknown
func (p SaturationParams) Validate() error {
	if !isFinite(p.Amount) || p.Amount <= 0 {
		return &ParameterError{"amount", p.Amount, "must be greater than 0"}
	}
	if !p.Strategy.valid() {
		return &ParameterError{"strategy", int(p.Strategy), "unknown saturation strategy"}
	}
	return nil
}

// Returns a new image with saturation adjusted by p.Amount, using the color model of p.Strategy. Uses all CPUs
func Saturation(img *raster.Image, p SaturationParams) (*raster.Image, error) {
	return SaturationWithThreads(img, p, 0)
}

// As Saturation, running at most maxThreads goroutines. maxThreads<=0 uses all CPUs
func SaturationWithThreads(img *raster.Image, p SaturationParams, maxThreads int) (*raster.Image, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := img.Check(); err != nil {
		return nil, err
	}

	out := raster.NewImageFromImage(img)
	amount := p.Amount
	switch p.Strategy {
	case StrategyHSV:
		raster.ApplyPixelFunction(out, img, func(dst, src []uint8) {
			saturateHSV(dst, src, amount)
		}, 1, maxThreads)

	case StrategyLuminance:
		raster.ApplyPixelFunction(out, img, func(dst, src []uint8) {
			saturateLuminance(dst, src, amount)
		}, 1, maxThreads)

	case StrategyLuminanceVectorized:
		raster.ApplyPixelFunction(out, img, func(dst, src []uint8) {
			saturateLuminanceLanes(dst, src, amount)
		}, LaneWidth(), maxThreads)
	}
	return out, nil
}

// Scales the HSV saturation of a single pixel by amount, clamped to [0,1]
func SaturateHSV(r, g, b uint8, amount float32) (uint8, uint8, uint8) {
	h, s, v := colormodel.RGBToHSV(r, g, b)
	s = clamp01(s * amount)
	return colormodel.HSVToRGB(h, s, v)
}

// Scales the distance of each channel of a single pixel from its luma by amount.
// Results are clamped to [0,255] and rounded to nearest. An amount of 0 yields gray
func SaturateLuminance(r, g, b uint8, amount float32) (uint8, uint8, uint8) {
	rf, gf, bf := float32(r), float32(g), float32(b)
	l := colormodel.Luma(rf, gf, bf)
	return roundByte(l + (rf-l)*amount), roundByte(l + (gf-l)*amount), roundByte(l + (bf-l)*amount)
}

func roundByte(x float32) uint8 {
	return uint8(math.Round(float64(clamp255(x))))
}

func saturateHSV(dst, src []uint8, amount float32) {
	for i := 0; i+2 < len(src); i += 3 {
		dst[i], dst[i+1], dst[i+2] = SaturateHSV(src[i], src[i+1], src[i+2], amount)
	}
}

func saturateLuminance(dst, src []uint8, amount float32) {
	for i := 0; i+2 < len(src); i += 3 {
		dst[i], dst[i+1], dst[i+2] = SaturateLuminance(src[i], src[i+1], src[i+2], amount)
	}
}
