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

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/ajroetker/go-highway/hwy"
	"github.com/klauspost/cpuid"
	nl "github.com/mlnoga/foto/internal"
	"github.com/mlnoga/foto/internal/ops"
	"github.com/mlnoga/foto/internal/ops/tone"
	"github.com/mlnoga/foto/internal/raster"
	"github.com/mlnoga/foto/internal/rest"
	"github.com/mlnoga/foto/internal/transform"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")
var threads = flag.Int("threads", 0, "maximum number of worker threads, 0=all CPUs")
var logName = flag.String("log", "", "save log output to `file`. `%auto` replaces suffix of output file with .log")

var ratio = flag.Float64("ratio", 0, "contrast ratio, must be greater than 0. <1 reduces, >1 increases contrast")
var threshold = flag.Float64("threshold", transform.DefaultThreshold, "contrast threshold, between 0 and 256 exclusive")

var sat = flag.Float64("sat", 0, "saturation amount, must be greater than 0. <1 desaturates, >1 saturates")
var satType = flag.String("type", "hsv", "saturation type, one of hsv, lum (luminance preserving) or lumsimd (vectorized lum)")

var config = flag.String("config", "", "run the operator sequence from JSON `file`")

var addr = flag.String("addr", ":8080", "listen on `address` when serving")
var chroot = flag.String("chroot", "", "change filesystem root to `dir` when serving, requires root")
var setuid = flag.Int("setuid", -1, "change user ID to `uid` when serving, -1=keep")

const usageHeader = `Foto Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (contrast|saturation|stats|run|serve|legal|version) [in.jpg [out.jpg]]

Commands:
  contrast   Stretch contrast of in around -threshold by -ratio, save to out
  saturation Scale saturation of in by -sat using color model -type, save to out
  stats      Show input image statistics
  run        Run the JSON operator sequence from -config, optionally loading in and saving to out
  serve      Serve the REST API on -addr
  legal      Show license and attribution information
  version    Show version information

Flags:
`

func printUsage(w io.Writer, name string) {
	fmt.Fprintf(w, usageHeader, name)
	out := flag.CommandLine.Output()
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
	flag.CommandLine.SetOutput(out)
}

func main() {
	logWriter := nl.LogWriter()
	flag.CommandLine.SetOutput(logWriter)
	start := time.Now()
	flag.Usage = func() { printUsage(logWriter, os.Args[0]) }
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}
	cmd, files := args[0], args[1:]

	// Initialize logging to file in addition to stdout, if selected
	if *logName == "%auto" {
		*logName = ""
		if len(files) > 1 {
			*logName = strings.TrimSuffix(files[1], filepath.Ext(files[1])) + ".log"
		}
	}
	if *logName != "" {
		if err := nl.LogAlsoToFile(*logName); err != nil {
			nl.LogFatalf("Unable to open logfile '%s': %s\n", *logName, err.Error())
		}
	}

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			nl.LogFatal("Could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			nl.LogFatal("Could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	c := ops.NewContext(logWriter)
	if *threads > 0 {
		c.MaxThreads = *threads
	}
	var err error
	timed := true
	switch cmd {
	case "contrast":
		var in, out string
		if in, out, err = inOut(cmd, files); err == nil {
			err = cmdContrast(in, out, float32(*ratio), float32(*threshold), c)
		}

	case "saturation":
		var in, out string
		if in, out, err = inOut(cmd, files); err == nil {
			err = cmdSaturation(in, out, float32(*sat), *satType, c)
		}

	case "stats":
		err = cmdStats(files, c)

	case "run":
		err = cmdRun(*config, files, c)

	case "serve":
		timed = false
		if err = rest.MakeSandbox(logWriter, *chroot, *setuid); err == nil {
			err = rest.Serve(*addr, c)
		}

	case "legal":
		timed = false
		nl.LogPrint(legal)

	case "version":
		timed = false
		cmdVersion(logWriter)

	case "readme":
		timed = false
		err = cmdReadme("README.md", logWriter)

	case "help", "?":
		timed = false
		flag.Usage()

	default:
		fmt.Fprintf(logWriter, "Unknown command '%s'\n\n", cmd)
		flag.Usage()
		nl.LogSync()
		os.Exit(1)
	}

	if timed && err == nil {
		fmt.Fprintf(logWriter, "\nDone after %v\n", time.Since(start))
	}

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			nl.LogFatal("Could not create memory profile: ", err)
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			nl.LogFatal("Could not write allocation profile: ", err)
		}
	}

	if err != nil {
		pprof.StopCPUProfile()
		nl.LogFatalf("Error: %s\n", err.Error())
	}
	nl.LogSync()
}

// Returns input and output file names for single-image commands
func inOut(cmd string, files []string) (in, out string, err error) {
	if len(files) != 2 {
		return "", "", fmt.Errorf("%s needs an input and an output file, got %d file names", cmd, len(files))
	}
	return files[0], files[1], nil
}

// Checks that an output file name has a suffix we can write
func checkOutput(out string) error {
	if ext := strings.ToLower(filepath.Ext(out)); !raster.IsWritableSuffix(ext) {
		return fmt.Errorf("unsupported output suffix '%s' for %s", ext, out)
	}
	return nil
}

// Prints the settings and materializes the single image the sequence produces
func runSequence(seq *ops.OpSequence, c *ops.Context) error {
	m, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Log, "Running with these settings:\n%s\n", string(m))

	promises, err := seq.MakePromises(nil, c)
	if err != nil {
		return err
	}
	_, err = ops.MaterializeOne(promises)
	return err
}

func cmdContrast(in, out string, ratio, threshold float32, c *ops.Context) error {
	op := tone.NewOpContrast(ratio, threshold)
	if err := op.Params().Validate(); err != nil {
		return err
	}
	if err := checkOutput(out); err != nil {
		return err
	}
	seq := ops.NewOpSequence(ops.NewOpLoad(0, in), op, ops.NewOpSave(out))
	if err := runSequence(seq, c); err != nil {
		return err
	}

	fmt.Fprintf(c.Log, "Image processed successfully!\nInput: %s\nOutput: %s\nContrast ratio: %g\nThreshold: %g\n",
		in, out, ratio, threshold)
	return nil
}

func cmdSaturation(in, out string, amount float32, strategyToken string, c *ops.Context) error {
	strategy, err := transform.ParseStrategy(strategyToken)
	if err != nil {
		return err
	}
	op := tone.NewOpSaturation(amount, strategy)
	if err := op.Params().Validate(); err != nil {
		return err
	}
	if err := checkOutput(out); err != nil {
		return err
	}
	seq := ops.NewOpSequence(ops.NewOpLoad(0, in), op, ops.NewOpSave(out))
	if err := runSequence(seq, c); err != nil {
		return err
	}

	fmt.Fprintf(c.Log, "Image processed successfully!\nInput: %s\nOutput: %s\nSaturation amount: %g\nSaturation type: %s\n",
		in, out, amount, strategy)
	return nil
}

func cmdStats(files []string, c *ops.Context) error {
	if len(files) == 0 {
		return errors.New("stats needs at least one input file")
	}
	for i, file := range files {
		seq := ops.NewOpSequence(ops.NewOpLoad(i, file), ops.NewOpStats(true))
		promises, err := seq.MakePromises(nil, c)
		if err != nil {
			return err
		}
		if _, err := ops.MaterializeOne(promises); err != nil {
			return err
		}
	}
	return nil
}

// Runs a JSON operator sequence. An input file is loaded before the first step,
// and the result saved to an output file after the last one
func cmdRun(configFile string, files []string, c *ops.Context) error {
	if configFile == "" {
		return errors.New("run needs an operator sequence, use -config file.json")
	}
	if len(files) > 2 {
		return fmt.Errorf("run takes at most an input and an output file, got %d file names", len(files))
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	seq := ops.NewOpSequenceDefault()
	if err := json.Unmarshal(data, seq); err != nil {
		return fmt.Errorf("parsing %s: %w", configFile, err)
	}

	if len(files) > 0 {
		seq.Steps = append([]ops.Operator{ops.NewOpLoad(0, files[0])}, seq.Steps...)
	}
	if len(files) > 1 {
		if err := checkOutput(files[1]); err != nil {
			return err
		}
		seq.Append(ops.NewOpSave(files[1]))
	}
	return runSequence(seq, c)
}

// Prints version, CPU and SIMD target information
func cmdVersion(w io.Writer) {
	fmt.Fprintf(w, "Version %s\n", version)
	fmt.Fprintf(w, "CPU %s with %d physical and %d logical cores, AVX2 %v\n",
		strings.TrimSpace(cpuid.CPU.BrandName), cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores, cpuid.CPU.AVX2())
	fmt.Fprintf(w, "SIMD target %s with %d float32 lanes\n", hwy.CurrentName(), hwy.MaxLanes[float32]())
}
