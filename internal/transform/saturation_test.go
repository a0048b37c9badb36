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
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/mlnoga/foto/internal/colormodel"
	"github.com/mlnoga/foto/internal/raster"
)

var allStrategies = []Strategy{StrategyHSV, StrategyLuminance, StrategyLuminanceVectorized}

func TestSaturationValidation(t *testing.T) {
	img := randomImage(3, 3)
	amounts := []float32{0, -1, -0.001, float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))}
	for _, s := range allStrategies {
		for _, a := range amounts {
			out, err := Saturation(img, SaturationParams{a, s})
			if !errors.Is(err, ErrInvalidParameter) || out != nil {
				t.Errorf("Saturation(%f, %s)=%v,%v; want ErrInvalidParameter", a, s, out, err)
			}
		}
	}

	out, err := Saturation(img, SaturationParams{1, Strategy(42)})
	if !errors.Is(err, ErrInvalidParameter) || out != nil {
		t.Errorf("Saturation(unknown strategy)=%v,%v; want ErrInvalidParameter", out, err)
	}

	bad := &raster.Image{Width: 2, Height: 2, Data: make([]uint8, 11)}
	for _, s := range allStrategies {
		if out, err := Saturation(bad, SaturationParams{1.5, s}); !errors.Is(err, raster.ErrShapeMismatch) || out != nil {
			t.Errorf("Saturation(bad shape, %s)=%v,%v; want ErrShapeMismatch", s, out, err)
		}
	}
}

func TestSaturationIdentity(t *testing.T) {
	img := randomImage(37, 11)
	for _, s := range allStrategies {
		out, err := Saturation(img, SaturationParams{1, s})
		if err != nil {
			t.Fatalf("Saturation(1, %s): %v", s, err)
		}
		for i, v := range img.Data {
			if d := absDiff(out.Data[i], v); d > 1 {
				t.Fatalf("Saturation(1, %s)[%d]=%d; want %d +/-1", s, i, out.Data[i], v)
			}
		}
	}
}

func TestSaturationShape(t *testing.T) {
	dims := [][2]int{{0, 0}, {1, 1}, {3, 1}, {7, 5}, {13, 13}, {100, 3}}
	for _, s := range allStrategies {
		for _, dim := range dims {
			img := randomImage(dim[0], dim[1])
			orig := append([]uint8(nil), img.Data...)
			out, err := Saturation(img, SaturationParams{1.8, s})
			if err != nil {
				t.Fatalf("Saturation(%s, %s): %v", img.DimensionsToString(), s, err)
			}
			if out.Width != img.Width || out.Height != img.Height || len(out.Data) != len(img.Data) {
				t.Errorf("Saturation(%s, %s) returned %s with %d bytes", img.DimensionsToString(), s, out.DimensionsToString(), len(out.Data))
			}
			if !bytes.Equal(orig, img.Data) {
				t.Errorf("Saturation(%s, %s) modified its input", img.DimensionsToString(), s)
			}
		}
	}
}

func TestTransformsWithThreads(t *testing.T) {
	img := randomImage(53, 29)
	wantC, err := Contrast(img, ContrastParams{1.3, 64})
	if err != nil {
		t.Fatal(err)
	}
	for _, threads := range []int{1, 2, 5, -1} {
		gotC, err := ContrastWithThreads(img, ContrastParams{1.3, 64}, threads)
		if err != nil {
			t.Fatal(err)
		}
		for i := range gotC.Data {
			if gotC.Data[i] != wantC.Data[i] {
				t.Fatalf("contrast threads=%d: byte %d is %d; want %d", threads, i, gotC.Data[i], wantC.Data[i])
			}
		}
		for _, s := range []Strategy{StrategyHSV, StrategyLuminance, StrategyLuminanceVectorized} {
			p := SaturationParams{0.6, s}
			wantS, err := Saturation(img, p)
			if err != nil {
				t.Fatal(err)
			}
			gotS, err := SaturationWithThreads(img, p, threads)
			if err != nil {
				t.Fatal(err)
			}
			for i := range gotS.Data {
				if gotS.Data[i] != wantS.Data[i] {
					t.Fatalf("%s threads=%d: byte %d is %d; want %d", s, threads, i, gotS.Data[i], wantS.Data[i])
				}
			}
		}
	}
}

func TestSaturateHSV(t *testing.T) {
	tcs := []struct {
		R, G, B    uint8
		Amount     float32
		WR, WG, WB uint8
	}{
		{51, 100, 222, 100, 0, 64, 222},
		{51, 100, 222, 0.5, 136, 161, 222},
		{51, 100, 222, 1, 51, 100, 222},
		{128, 128, 128, 10, 128, 128, 128},
		{0, 0, 0, 3, 0, 0, 0},
		{255, 0, 0, 0.5, 255, 128, 128},
	}
	for _, tc := range tcs {
		r, g, b := SaturateHSV(tc.R, tc.G, tc.B, tc.Amount)
		if r != tc.WR || g != tc.WG || b != tc.WB {
			t.Errorf("SaturateHSV(%d,%d,%d,%f)=%d,%d,%d; want %d,%d,%d", tc.R, tc.G, tc.B, tc.Amount, r, g, b, tc.WR, tc.WG, tc.WB)
		}
	}
}

func TestSaturateLuminance(t *testing.T) {
	tcs := []struct {
		R, G, B    uint8
		Amount     float32
		WR, WG, WB uint8
	}{
		{255, 0, 0, 2, 255, 0, 0},
		{255, 0, 0, 0.5, 166, 38, 38},
		{51, 100, 222, 0.5, 75, 100, 161},
		{51, 100, 222, 1, 51, 100, 222},
		{200, 200, 200, 5, 200, 200, 200},
	}
	for _, tc := range tcs {
		r, g, b := SaturateLuminance(tc.R, tc.G, tc.B, tc.Amount)
		if r != tc.WR || g != tc.WG || b != tc.WB {
			t.Errorf("SaturateLuminance(%d,%d,%d,%f)=%d,%d,%d; want %d,%d,%d", tc.R, tc.G, tc.B, tc.Amount, r, g, b, tc.WR, tc.WG, tc.WB)
		}
	}
}

func TestSaturateLuminanceGrayscale(t *testing.T) {
	for r := 0; r < 256; r += 5 {
		for g := 0; g < 256; g += 7 {
			for b := 0; b < 256; b += 11 {
				want := uint8(math.Round(float64(colormodel.Luma(float32(r), float32(g), float32(b)))))
				gr, gg, gb := SaturateLuminance(uint8(r), uint8(g), uint8(b), 0)
				if gr != want || gg != want || gb != want {
					t.Fatalf("SaturateLuminance(%d,%d,%d,0)=%d,%d,%d; want gray %d", r, g, b, gr, gg, gb, want)
				}
			}
		}
	}
}

func TestSaturationStrategiesDiffer(t *testing.T) {
	img := raster.NewImage(1, 1)
	img.Set(0, 0, 51, 100, 222)
	hsv, err := Saturation(img, SaturationParams{0.5, StrategyHSV})
	if err != nil {
		t.Fatal(err)
	}
	lum, err := Saturation(img, SaturationParams{0.5, StrategyLuminance})
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(hsv.Data, lum.Data) {
		t.Errorf("HSV and luminance saturation both gave %v", hsv.Data)
	}
}

func TestParseStrategy(t *testing.T) {
	tcs := []struct {
		Token string
		Want  Strategy
		Err   bool
	}{
		{"hsv", StrategyHSV, false},
		{"HSV", StrategyHSV, false},
		{" lum ", StrategyLuminance, false},
		{"luma", StrategyLuminance, false},
		{"luminance", StrategyLuminance, false},
		{"lumsimd", StrategyLuminanceVectorized, false},
		{"luma-simd", StrategyLuminanceVectorized, false},
		{"lumvec", StrategyLuminanceVectorized, false},
		{"", 0, true},
		{"hsl", 0, true},
		{"lab", 0, true},
	}
	for _, tc := range tcs {
		got, err := ParseStrategy(tc.Token)
		if tc.Err {
			if !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("ParseStrategy(%q) err=%v; want ErrInvalidParameter", tc.Token, err)
			}
			continue
		}
		if err != nil || got != tc.Want {
			t.Errorf("ParseStrategy(%q)=%v,%v; want %v", tc.Token, got, err, tc.Want)
		}
	}
	if s := Strategy(42).String(); s != "unknown" {
		t.Errorf("Strategy(42).String()=%q; want unknown", s)
	}
}

func TestSaturationParamsJSON(t *testing.T) {
	data, err := json.Marshal(SaturationParams{1.5, StrategyLuminance})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"amount":1.5,"strategy":"lum"}` {
		t.Errorf("Marshal gave %s", data)
	}

	var p SaturationParams
	if err := json.Unmarshal([]byte(`{"amount":0.25,"strategy":"lumvec"}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Amount != 0.25 || p.Strategy != StrategyLuminanceVectorized {
		t.Errorf("Unmarshal gave %+v", p)
	}
	if err := json.Unmarshal([]byte(`{"amount":1,"strategy":"cmyk"}`), &p); err == nil {
		t.Errorf("Unmarshal accepted strategy cmyk")
	}
	if _, err := json.Marshal(SaturationParams{1, Strategy(7)}); err == nil {
		t.Errorf("Marshal accepted an unknown strategy")
	}
}
