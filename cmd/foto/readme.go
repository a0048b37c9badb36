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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Markers delimiting the generated usage block in the README
const (
	usageStartMarker = "<!-- start: CLI USAGE -->"
	usageEndMarker   = "<!-- end: CLI USAGE -->"
)

// Replaces the text between the usage markers with the given usage, as a code block
func replaceUsage(content, usage string) (string, error) {
	start := strings.Index(content, usageStartMarker)
	if start < 0 {
		return "", errors.New("could not find start marker " + usageStartMarker)
	}
	start += len(usageStartMarker)
	end := strings.Index(content[start:], usageEndMarker)
	if end < 0 {
		return "", errors.New("could not find end marker " + usageEndMarker)
	}
	end += start
	return content[:start] + "\n\n```\n" + strings.TrimRight(usage, "\n") + "\n```\n\n" + content[end:], nil
}

// Writes the CLI usage into the given README file
func cmdReadme(fileName string, logWriter io.Writer) error {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}
	usage := &strings.Builder{}
	printUsage(usage, "foto")
	updated, err := replaceUsage(string(content), usage.String())
	if err != nil {
		return fmt.Errorf("%s: %w", fileName, err)
	}
	if err := os.WriteFile(fileName, []byte(updated), 0644); err != nil {
		return err
	}
	fmt.Fprintf(logWriter, "Usage written to %s\n", fileName)
	return nil
}
