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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlnoga/foto/internal/raster"
)

func testContext() (*Context, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	c := NewContext(buf)
	return c, buf
}

func writeTestImage(t *testing.T, fileName string, width, height int) *raster.Image {
	t.Helper()
	f := raster.NewImage(width, height)
	for i := range f.Data {
		f.Data[i] = uint8(i * 7)
	}
	if err := f.WriteFile(fileName); err != nil {
		t.Fatalf("writing %s: %v", fileName, err)
	}
	return f
}

func TestIsPathAllowed(t *testing.T) {
	tcs := []struct {
		Path string
		Want bool
	}{
		{"in.png", true},
		{"sub/dir/in.png", true},
		{"/etc/passwd", false},
		{"../in.png", false},
		{"sub/../../in.png", false},
	}
	for _, tc := range tcs {
		if got := isPathAllowed(tc.Path); got != tc.Want {
			t.Errorf("isPathAllowed(%q)=%v; want %v", tc.Path, got, tc.Want)
		}
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	inName := filepath.Join(dir, "in.png")
	orig := writeTestImage(t, inName, 7, 5)
	outName := filepath.Join(dir, "out%d.tif")

	c, log := testContext()
	seq := NewOpSequence(NewOpLoad(3, inName), NewOpStats(true), NewOpSave(outName))
	promises, err := seq.MakePromises(nil, c)
	if err != nil {
		t.Fatal(err)
	}
	f, err := MaterializeOne(promises)
	if err != nil {
		t.Fatal(err)
	}
	if f.ID != 3 || f.Width != 7 || f.Height != 5 || !bytes.Equal(f.Data, orig.Data) {
		t.Errorf("loaded image %d %s differs from written one", f.ID, f.DimensionsToString())
	}

	saved, err := raster.ReadFile(filepath.Join(dir, "out3.tif"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(saved.Data, orig.Data) {
		t.Errorf("saved TIFF differs from input")
	}

	for _, want := range []string{"3: Loaded 7x5 image", "3: Writing 7x5 pixel TIF to", "mean color"} {
		if !strings.Contains(log.String(), want) {
			t.Errorf("log %q lacks %q", log.String(), want)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	c, _ := testContext()

	if _, err := NewOpLoad(0, "").MakePromises(nil, c); err == nil {
		t.Errorf("load without file name succeeded")
	}
	if _, err := NewOpLoad(0, "a.png").MakePromises([]Promise{nil}, c); err == nil {
		t.Errorf("load with an input succeeded")
	}

	promises, err := NewOpLoad(0, filepath.Join(dir, "missing.png")).MakePromises(nil, c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := MaterializeOne(promises); err == nil {
		t.Errorf("loading a missing file succeeded")
	}

	notImage := filepath.Join(dir, "text.png")
	if err := os.WriteFile(notImage, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	promises, _ = NewOpLoad(0, notImage).MakePromises(nil, c)
	if _, err := MaterializeOne(promises); err == nil {
		t.Errorf("loading a text file succeeded")
	}
}

func TestLoadMemoryGuard(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "big.png")
	writeTestImage(t, fileName, 1024, 512)

	c, _ := testContext()
	c.MemoryMB = 1
	promises, err := NewOpLoad(0, fileName).MakePromises(nil, c)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := MaterializeOne(promises); err == nil || !strings.Contains(err.Error(), "needs 5 MB") {
		t.Errorf("memory guard err=%v; want needs 5 MB", err)
	}

	c.MemoryMB = 0
	if _, err := MaterializeOne(promises); err != nil {
		t.Errorf("unlimited memory: %v", err)
	}
}

func TestRestrictPaths(t *testing.T) {
	c, _ := testContext()
	c.RestrictPaths = true
	if _, err := NewOpLoad(0, "/tmp/in.png").MakePromises(nil, c); err == nil {
		t.Errorf("absolute load path accepted")
	}
	in := func() (*raster.Image, error) { return raster.NewImage(1, 1), nil }
	if _, err := NewOpSave("../out.png").MakePromises([]Promise{in}, c); err == nil {
		t.Errorf("parent save path accepted")
	}
	if _, err := NewOpSave("out.png").MakePromises([]Promise{in}, c); err != nil {
		t.Errorf("relative save path rejected: %v", err)
	}
}

func TestSaveUnknownSuffix(t *testing.T) {
	c, _ := testContext()
	f := raster.NewImage(2, 2)
	if _, err := NewOpSave(filepath.Join(t.TempDir(), "out.fits")).Apply(f, c); err == nil {
		t.Errorf("saving with suffix .fits succeeded")
	}
	if g, err := NewOpSave("").Apply(f, c); err != nil || g != f {
		t.Errorf("inactive save=%v,%v; want passthrough", g, err)
	}
}

func TestUnaryWithoutInputs(t *testing.T) {
	c, _ := testContext()
	if _, err := NewOpStats(true).MakePromises(nil, c); err == nil {
		t.Errorf("unary operator without inputs succeeded")
	}
}

func TestMaterializeOne(t *testing.T) {
	if _, err := MaterializeOne(nil); err == nil {
		t.Errorf("MaterializeOne(nil) succeeded")
	}
	p := func() (*raster.Image, error) { return raster.NewImage(1, 1), nil }
	if _, err := MaterializeOne([]Promise{p, p}); err == nil {
		t.Errorf("MaterializeOne with two promises succeeded")
	}
}

func TestSequenceJSON(t *testing.T) {
	seq := NewOpSequence(NewOpLoad(1, "in.png"), NewOpStats(true), NewOpSave("out.jpg"))
	data, err := json.Marshal(seq)
	if err != nil {
		t.Fatal(err)
	}

	var back OpSequence
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal(%s): %v", data, err)
	}
	if len(back.Steps) != 3 {
		t.Fatalf("Unmarshal(%s) gave %d steps", data, len(back.Steps))
	}
	if load, ok := back.Steps[0].(*OpLoad); !ok || load.ID != 1 || load.FileName != "in.png" {
		t.Errorf("step 0 is %#v", back.Steps[0])
	}
	if _, ok := back.Steps[1].(*OpStats); !ok {
		t.Errorf("step 1 is %#v", back.Steps[1])
	}
	save, ok := back.Steps[2].(*OpSave)
	if !ok || save.FilePattern != "out.jpg" || !save.Active || save.OpUnaryBase.Apply == nil {
		t.Errorf("step 2 is %#v", back.Steps[2])
	}
}

func TestSequenceJSONDefaults(t *testing.T) {
	var seq OpSequence
	err := json.Unmarshal([]byte(`{"steps":[{"type":"load","fileName":"a.png"},{"type":"save","filePattern":"b.png"}]}`), &seq)
	if err != nil {
		t.Fatal(err)
	}
	if seq.Type != "seq" || !seq.Active || len(seq.Steps) != 2 {
		t.Fatalf("got %+v", seq)
	}
	if !seq.Steps[0].IsActive() || !seq.Steps[1].IsActive() {
		t.Errorf("steps not active by default")
	}

	err = json.Unmarshal([]byte(`{"type":"seq","steps":[{"type":"stack"}]}`), &seq)
	if err == nil || !strings.Contains(err.Error(), "unknown operator type 'stack'") {
		t.Errorf("unknown operator err=%v", err)
	}
}

func TestOperatorFactoryReregistration(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("re-registering the load operator did not panic")
		}
	}()
	SetOperatorFactory(func() Operator { return NewOpLoadDefault() })
}
