// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func stringToBool(s string) (bool, error) {
	s = strings.ToLower(s)
	switch s {
	case "0", "false", "off":
		return false, nil
	case "1", "true", "on":
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value '%s'", s)
	}
}

// parseNumber accepts decimal, 0x, 0o and 0b numbers that fit in 32 bits.
func parseNumber(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil || v > math.MaxUint32 {
		return 0, errors.Errorf("Invalid number \"%s\"", s)
	}
	return uint32(v), nil
}

// numberFlag is a flag.Value holding a 32-bit number.
type numberFlag struct {
	value uint32
	set   bool
}

func (f *numberFlag) String() string {
	return fmt.Sprintf("0x%X", f.value)
}

func (f *numberFlag) Set(s string) (err error) {
	f.value, err = parseNumber(s)
	f.set = err == nil
	return err
}

// or returns the flag value if it was given, def otherwise.
func (f *numberFlag) or(def uint32) uint32 {
	if f.set {
		return f.value
	}
	return def
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

// replaceExt swaps the extension of a file name.
func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

// An outputFile is removed on Close unless Commit was called first.
type outputFile struct {
	*os.File
	committed bool
}

func createOutput(name string) (*outputFile, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Errorf("Cannot open \"%s\"", name)
	}
	return &outputFile{File: f}, nil
}

func (f *outputFile) Commit() error {
	f.committed = true
	return f.File.Close()
}

func (f *outputFile) Close() error {
	if f.committed {
		return nil
	}
	f.File.Close()
	return os.Remove(f.Name())
}

// indentWrap indents s by the given number of spaces and wraps it at 80
// columns.
func indentWrap(indent int, s string) string {
	const width = 80
	pad := strings.Repeat(" ", indent)

	var b strings.Builder
	col := 0
	for _, word := range strings.Fields(s) {
		switch {
		case col == 0:
			b.WriteString(pad)
			col = indent
		case col+1+len(word) > width:
			b.WriteString("\n")
			b.WriteString(pad)
			col = indent
		default:
			b.WriteByte(' ')
			col++
		}
		b.WriteString(word)
		col += len(word)
	}
	return b.String()
}
