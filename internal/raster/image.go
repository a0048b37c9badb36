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

// Package raster holds 8-bit RGB image buffers, reads and writes them in
// common image formats, and applies pixel functions in parallel.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Returned when an image's data does not match its dimensions
var ErrShapeMismatch = errors.New("image shape mismatch")

// An 8-bit RGB image without alpha. Pixels are stored row-major as
// interleaved R, G, B bytes, so len(Data)==Width*Height*3.
type Image struct {
	ID       int     // Sequential ID number, for log output
	FileName string  // Original file name, if any, for log output
	Width    int     // Width in pixels
	Height   int     // Height in pixels
	Data     []uint8 // The image data
}

// Number of channels per pixel
const Channels = 3

// Creates a black image of given dimensions
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{
		Width:  width,
		Height: height,
		Data:   make([]uint8, width*height*Channels),
	}
}

// Creates an image with the same ID, file name and dimensions as the given one.
// New data array will be allocated
func NewImageFromImage(img *Image) *Image {
	return &Image{
		ID:       img.ID,
		FileName: img.FileName,
		Width:    img.Width,
		Height:   img.Height,
		Data:     make([]uint8, img.Width*img.Height*Channels),
	}
}

// Number of pixels in the image
func (f *Image) Pixels() int {
	return f.Width * f.Height
}

// Verifies that the data length matches the dimensions
func (f *Image) Check() error {
	if f.Width < 0 || f.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %s", ErrShapeMismatch, f.DimensionsToString())
	}
	if len(f.Data) != f.Width*f.Height*Channels {
		return fmt.Errorf("%w: %s pixels need %d bytes, have %d",
			ErrShapeMismatch, f.DimensionsToString(), f.Width*f.Height*Channels, len(f.Data))
	}
	return nil
}

func (f *Image) DimensionsToString() string {
	return fmt.Sprintf("%dx%d", f.Width, f.Height)
}

// Returns the pixel at given coordinates
func (f *Image) At(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * Channels
	return f.Data[i], f.Data[i+1], f.Data[i+2]
}

// Sets the pixel at given coordinates
func (f *Image) Set(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * Channels
	f.Data[i], f.Data[i+1], f.Data[i+2] = r, g, b
}

// Creates an RGB image from a decoded Go image. Alpha is discarded,
// color values are taken non-premultiplied.
func FromGoImage(src image.Image) *Image {
	bounds := src.Bounds()
	f := NewImage(bounds.Dx(), bounds.Dy())

	switch s := src.(type) {
	case *image.NRGBA:
		for y := 0; y < f.Height; y++ {
			row := s.Pix[(y+bounds.Min.Y-s.Rect.Min.Y)*s.Stride+(bounds.Min.X-s.Rect.Min.X)*4:]
			dest := f.Data[y*f.Width*Channels : (y+1)*f.Width*Channels]
			for x := 0; x < f.Width; x++ {
				dest[x*3], dest[x*3+1], dest[x*3+2] = row[x*4], row[x*4+1], row[x*4+2]
			}
		}
	default:
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
				f.Data[i], f.Data[i+1], f.Data[i+2] = c.R, c.G, c.B
				i += Channels
			}
		}
	}
	return f
}

// Converts the image into an opaque Go image
func (f *Image) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for p := 0; p < f.Pixels(); p++ {
		img.Pix[p*4] = f.Data[p*3]
		img.Pix[p*4+1] = f.Data[p*3+1]
		img.Pix[p*4+2] = f.Data[p*3+2]
		img.Pix[p*4+3] = 255
	}
	return img
}
