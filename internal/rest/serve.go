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

// Package rest serves the image transforms over HTTP.
package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mlnoga/foto/internal/ops"
	"github.com/mlnoga/foto/internal/raster"
	"github.com/mlnoga/foto/internal/transform"
)

// Largest accepted request body
const MaxBodyBytes = 64 << 20

// Name of the response header carrying the request ID
const RequestIDHeader = "X-Request-ID"

// Listens on addr and serves the API until the listener fails
func Serve(addr string, c *ops.Context) error {
	fmt.Fprintf(c.Log, "Listening on %s\n", addr)
	return NewRouter(c).Run(addr)
}

type handlers struct {
	ctx *ops.Context
}

// Returns the API routes, logging requests to c.Log
func NewRouter(c *ops.Context) *gin.Engine {
	h := &handlers{ctx: c}
	r := gin.New()
	r.Use(gin.LoggerWithWriter(c.Log), gin.Recovery(), requestID)
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/contrast", h.postContrast)
			v1.POST("/saturation", h.postSaturation)
			v1.POST("/stats", h.postStats)
			v1.POST("/run", h.postRun)
		}
	}
	return r
}

// Tags each request with a fresh ID, reusing one supplied by the client
func requestID(c *gin.Context) {
	id := c.GetHeader(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Set("requestID", id)
	c.Header(RequestIDHeader, id)
	c.Next()
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "requestID": c.GetString("requestID")})
}

// Parses an optional float query parameter
func queryFloat32(c *gin.Context, name string, def float32) (float32, error) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil {
		return 0, &transform.ParameterError{Name: name, Value: raw, Reason: "not a number"}
	}
	return float32(v), nil
}

// Parses a mandatory float query parameter
func requireFloat32(c *gin.Context, name string) (float32, error) {
	if _, ok := c.GetQuery(name); !ok {
		return 0, &transform.ParameterError{Name: name, Value: "", Reason: "missing"}
	}
	return queryFloat32(c, name, 0)
}

// Decodes the request body into an image, refusing bodies and images too large for memory
func (h *handlers) readImage(c *gin.Context) (*raster.Image, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	width, height, format, err := raster.ReadConfig(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decoding request body: %w", err)
	}
	if h.ctx.MemoryMB > 0 && int64(width)*int64(height)*(4+2*raster.Channels)>>20 > int64(h.ctx.MemoryMB) {
		return nil, fmt.Errorf("%dx%d %s image exceeds available memory", width, height, format)
	}
	f, err := raster.Read(bytes.NewReader(body), 0)
	if err != nil {
		return nil, fmt.Errorf("decoding request body: %w", err)
	}
	f.FileName = c.GetString("requestID")
	return f, nil
}

// Writes the image in the format selected by the format query parameter, PNG by default
func writeImage(c *gin.Context, f *raster.Image) {
	ext := "." + strings.ToLower(c.DefaultQuery("format", "png"))
	if !raster.IsWritableSuffix(ext) {
		badRequest(c, &transform.ParameterError{Name: "format", Value: ext[1:], Reason: "unsupported image format"})
		return
	}
	buf := &bytes.Buffer{}
	if err := f.Write(buf, ext); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "requestID": c.GetString("requestID")})
		return
	}
	c.Data(http.StatusOK, contentType(ext), buf.Bytes())
}

func contentType(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	}
	return "image/png"
}

func (h *handlers) postContrast(c *gin.Context) {
	ratio, err := requireFloat32(c, "ratio")
	if err != nil {
		badRequest(c, err)
		return
	}
	threshold, err := queryFloat32(c, "threshold", transform.DefaultThreshold)
	if err != nil {
		badRequest(c, err)
		return
	}
	p := transform.ContrastParams{Ratio: ratio, Threshold: threshold}
	if err := p.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	f, err := h.readImage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	out, err := transform.ContrastWithThreads(f, p, h.ctx.MaxThreads)
	if err != nil {
		badRequest(c, err)
		return
	}
	fmt.Fprintf(h.ctx.Log, "%s: Applied contrast ratio %g around threshold %g to %s pixels\n",
		f.FileName, ratio, threshold, f.DimensionsToString())
	writeImage(c, out)
}

func (h *handlers) postSaturation(c *gin.Context) {
	amount, err := requireFloat32(c, "amount")
	if err != nil {
		badRequest(c, err)
		return
	}
	strategy, err := transform.ParseStrategy(c.DefaultQuery("type", "hsv"))
	if err != nil {
		badRequest(c, err)
		return
	}
	p := transform.SaturationParams{Amount: amount, Strategy: strategy}
	if err := p.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	f, err := h.readImage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	out, err := transform.SaturationWithThreads(f, p, h.ctx.MaxThreads)
	if err != nil {
		badRequest(c, err)
		return
	}
	fmt.Fprintf(h.ctx.Log, "%s: Applied %s saturation %g to %s pixels\n",
		f.FileName, strategy, amount, f.DimensionsToString())
	writeImage(c, out)
}

func (h *handlers) postStats(c *gin.Context) {
	f, err := h.readImage(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, raster.NewStats(f))
}

func printArgs(logWriter io.Writer, prefix, suffix string, args interface{}) error {
	m, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "%s%s%s", prefix, string(m), suffix)
	return nil
}

// Runs an operator sequence on files below the working directory, streaming the log as plain text
func (h *handlers) postRun(c *gin.Context) {
	logWriter := c.Writer
	var seq ops.OpSequence
	if err := c.ShouldBindJSON(&seq); err != nil {
		badRequest(c, err)
		return
	}

	header := logWriter.Header()
	header.Set("Content-Type", "text/plain")
	logWriter.WriteHeader(http.StatusOK)

	if err := printArgs(logWriter, "Arguments:\n", "\n", &seq); err != nil {
		fmt.Fprintf(logWriter, "Error printing arguments: %s\n", err.Error())
		return
	}

	rc := *h.ctx
	rc.Log = logWriter
	rc.RestrictPaths = true
	promises, err := seq.MakePromises(nil, &rc)
	if err == nil {
		_, err = ops.MaterializeOne(promises)
	}
	if err != nil {
		fmt.Fprintf(logWriter, "error: %s\n", err.Error())
	}
	logWriter.Flush()
}
