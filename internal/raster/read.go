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
	"image"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Reads an image from the given file, applying any EXIF orientation.
// Supports JPEG, PNG, GIF, TIFF, BMP and WebP
func ReadFile(fileName string, id int) (*Image, error) {
	img, err := imaging.Open(fileName, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	f := FromGoImage(img)
	f.ID, f.FileName = id, fileName
	return f, nil
}

// Reads an encoded image from the given reader, applying any EXIF orientation
func Read(r io.Reader, id int) (*Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	f := FromGoImage(img)
	f.ID = id
	return f, nil
}

// Returns the dimensions of an encoded image without decoding the pixels
func ReadConfig(r io.Reader) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, "", fmt.Errorf("unable to read image header: %s", err.Error())
	}
	return cfg.Width, cfg.Height, format, nil
}
