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

package ops

import (
	"encoding/json"
	"fmt"

	"github.com/mlnoga/foto/internal/raster"
)

// Logs per-channel statistics of each image. Takes n inputs, produces the same n outputs
type OpStats struct {
	OpUnaryBase
	Last *raster.Stats `json:"-"` // statistics of the most recently processed image
}

func init() { SetOperatorFactory(func() Operator { return NewOpStatsDefault() }) } // register the operator for JSON decoding

func NewOpStatsDefault() *OpStats { return NewOpStats(true) }

func NewOpStats(active bool) *OpStats {
	op := &OpStats{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "stats", Active: active}},
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpStats) UnmarshalJSON(data []byte) error {
	type defaults OpStats
	def := defaults(*NewOpStatsDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpStats(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpStats) Apply(f *raster.Image, c *Context) (fOut *raster.Image, err error) {
	if err = f.Check(); err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	op.Last = raster.NewStats(f)
	fmt.Fprintf(c.Log, "%d: %s image %s\n%v\n", f.ID, f.DimensionsToString(), f.FileName, op.Last)
	return f, nil
}
