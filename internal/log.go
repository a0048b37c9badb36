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

package internal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Singleton log writer. Writes to stdout, and optionally to a rotating file.
// Does not add prefixes, or force newlines.

// Size in megabytes after which the log file is rotated
const LogFileMaxSizeMB = 16

// Number of rotated log files to keep
const LogFileMaxBackups = 3

var logMutex sync.Mutex

// The optional additional file to log into
var logFile *lumberjack.Logger

// Enables logging to file, closing any previously opened log file
func LogAlsoToFile(fileName string) (err error) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		if err = logFile.Close(); err != nil {
			return err
		}
		logFile = nil
	}
	if fileName == "" {
		return nil
	}
	lf := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    LogFileMaxSizeMB,
		MaxBackups: LogFileMaxBackups,
	}
	// lumberjack opens lazily; fail early on unwritable destinations
	if _, err = lf.Write(nil); err != nil {
		return err
	}
	logFile = lf
	return nil
}

type logWriter struct{}

// Returns an io.Writer which writes to stdout and the log file, if any
func LogWriter() io.Writer { return logWriter{} }

func (logWriter) Write(p []byte) (n int, err error) {
	logMutex.Lock()
	defer logMutex.Unlock()
	n, err = os.Stdout.Write(p)
	if err != nil || logFile == nil {
		return n, err
	}
	return logFile.Write(p)
}

func LogPrint(args ...interface{}) (n int, err error) {
	return fmt.Fprint(LogWriter(), args...)
}

func LogPrintln(args ...interface{}) (n int, err error) {
	return fmt.Fprintln(LogWriter(), args...)
}

func LogPrintf(format string, args ...interface{}) (n int, err error) {
	return fmt.Fprintf(LogWriter(), format, args...)
}

func LogFatal(args ...interface{}) {
	fmt.Fprintln(LogWriter(), args...)
	LogSync()
	os.Exit(1)
}

func LogFatalf(format string, args ...interface{}) {
	fmt.Fprintf(LogWriter(), format, args...)
	LogSync()
	os.Exit(1)
}

// Closes the log file, if any. Further writes go to stdout only
func LogSync() {
	logMutex.Lock()
	defer logMutex.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
