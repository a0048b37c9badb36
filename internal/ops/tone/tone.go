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

// Package tone wraps the contrast and saturation transforms as operators.
package tone

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mlnoga/foto/internal/ops"
	"github.com/mlnoga/foto/internal/raster"
	"github.com/mlnoga/foto/internal/transform"
)

// Stretches contrast linearly around a threshold
type OpContrast struct {
	ops.OpUnaryBase
	Ratio     float32 `json:"ratio"`
	Threshold float32 `json:"threshold"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpContrastDefault() }) } // register the operator for JSON decoding

func NewOpContrastDefault() *OpContrast { return NewOpContrast(1, transform.DefaultThreshold) }

func NewOpContrast(ratio, threshold float32) *OpContrast {
	op := &OpContrast{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "contrast", Active: true}},
		Ratio:       ratio,
		Threshold:   threshold,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpContrast) UnmarshalJSON(data []byte) error {
	type defaults OpContrast
	def := defaults(*NewOpContrastDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpContrast(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpContrast) Params() transform.ContrastParams {
	return transform.ContrastParams{Ratio: op.Ratio, Threshold: op.Threshold}
}

func (op *OpContrast) Apply(f *raster.Image, c *ops.Context) (fOut *raster.Image, err error) {
	start := time.Now()
	fOut, err = transform.ContrastWithThreads(f, op.Params(), c.MaxThreads)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	fmt.Fprintf(c.Log, "%d: Applied contrast ratio %g around threshold %g to %s pixels in %v\n",
		f.ID, op.Ratio, op.Threshold, f.DimensionsToString(), time.Since(start))
	return fOut, nil
}

// Adjusts color saturation with a selectable color model
type OpSaturation struct {
	ops.OpUnaryBase
	Amount   float32            `json:"amount"`
	Strategy transform.Strategy `json:"strategy"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpSaturationDefault() }) } // register the operator for JSON decoding

func NewOpSaturationDefault() *OpSaturation { return NewOpSaturation(1, transform.StrategyHSV) }

func NewOpSaturation(amount float32, strategy transform.Strategy) *OpSaturation {
	op := &OpSaturation{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "saturation", Active: true}},
		Amount:      amount,
		Strategy:    strategy,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return op
}

// Unmarshal the type from JSON with default values for missing entries
func (op *OpSaturation) UnmarshalJSON(data []byte) error {
	type defaults OpSaturation
	def := defaults(*NewOpSaturationDefault())
	if err := json.Unmarshal(data, &def); err != nil {
		return err
	}
	*op = OpSaturation(def)
	op.OpUnaryBase.Apply = op.Apply // make method receiver point to op, not def
	return nil
}

func (op *OpSaturation) Params() transform.SaturationParams {
	return transform.SaturationParams{Amount: op.Amount, Strategy: op.Strategy}
}

func (op *OpSaturation) Apply(f *raster.Image, c *ops.Context) (fOut *raster.Image, err error) {
	start := time.Now()
	fOut, err = transform.SaturationWithThreads(f, op.Params(), c.MaxThreads)
	if err != nil {
		return nil, fmt.Errorf("%d: %w", f.ID, err)
	}
	lanes := ""
	if op.Strategy == transform.StrategyLuminanceVectorized {
		lanes = fmt.Sprintf(" with %d lanes", transform.LaneWidth())
	}
	fmt.Fprintf(c.Log, "%d: Applied %s saturation %g%s to %s pixels in %v\n",
		f.ID, op.Strategy, op.Amount, lanes, f.DimensionsToString(), time.Since(start))
	return fOut, nil
}
