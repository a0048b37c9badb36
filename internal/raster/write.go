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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
)

// JPEG quality for saved images
const JPEGQuality = 95

// Writes the image to a file, with the format selected by the file name suffix:
// .jpg, .jpeg, .png, .gif, .bmp, .tif or .tiff
func (f *Image) WriteFile(fileName string) error {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !IsWritableSuffix(ext) {
		return errors.New(fmt.Sprintf("unknown suffix '%s'", ext))
	}

	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	return f.writeAndClose(file, ext)
}

// Writes the image in the given format through a buffer, then closes the target.
// Returns the first error from encoding, flushing or closing
func (f *Image) writeAndClose(file io.WriteCloser, ext string) error {
	writer := bufio.NewWriter(file)
	err := f.Write(writer, ext)
	if err == nil {
		err = writer.Flush()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Writes the image in the format given by a file suffix, e.g. ".png"
func (f *Image) Write(writer io.Writer, ext string) error {
	if err := f.Check(); err != nil {
		return err
	}
	img := f.ToNRGBA()

	switch strings.ToLower(ext) {
	case ".tif", ".tiff":
		return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case ".jpg", ".jpeg":
		return imaging.Encode(writer, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
	case ".png":
		return imaging.Encode(writer, img, imaging.PNG)
	case ".gif":
		return imaging.Encode(writer, img, imaging.GIF)
	case ".bmp":
		return imaging.Encode(writer, img, imaging.BMP)
	default:
		return errors.New(fmt.Sprintf("unknown suffix '%s'", ext))
	}
}

// Returns true if images can be written to files with the given suffix
func IsWritableSuffix(ext string) bool {
	switch strings.ToLower(ext) {
	case ".tif", ".tiff":
		return true
	}
	_, err := imaging.FormatFromExtension(ext)
	return err == nil
}
