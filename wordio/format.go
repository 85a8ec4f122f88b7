// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wordio reads and writes streams of LXP32 words in the image
// formats understood by the toolchain: raw little-endian binary, and three
// text formats holding one word per line.
package wordio

import (
	"io"
	"strings"

	"github.com/beevik/prefixtree/v2"
	"github.com/pkg/errors"
)

// A Format selects the encoding of a word stream.
type Format int

// Supported formats.
const (
	Bin    Format = iota // raw little-endian bytes
	Textio               // 32 binary digits per line
	Dec                  // decimal literal per line
	Hex                  // 8 hexadecimal digits per line
)

var formatNames = []string{"bin", "textio", "dec", "hex"}

var formatTree = prefixtree.New[Format]()

func init() {
	for i, name := range formatNames {
		formatTree.Add(name, Format(i))
	}
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return "unknown"
	}
	return formatNames[f]
}

// IsText reports whether the format is line oriented.
func (f Format) IsText() bool {
	return f != Bin
}

// ParseFormat returns the format whose name is s or starts with s.
func ParseFormat(s string) (Format, error) {
	f, err := formatTree.FindValue(strings.ToLower(s))
	switch err {
	case nil:
		return f, nil
	case prefixtree.ErrPrefixAmbiguous:
		return Bin, errors.Errorf("Ambiguous format: \"%s\"", s)
	default:
		return Bin, errors.Errorf("Unrecognized format: \"%s\"", s)
	}
}

const detectSize = 256

// Detect guesses the format of a word stream from its first bytes. The
// guess starts at textio and widens to dec, hex and finally bin as bytes
// fall outside each format's alphabet.
func Detect(r io.Reader) (Format, error) {
	buf := make([]byte, detectSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Bin, err
	}
	return detect(buf[:n]), nil
}

var alphabets = [...]string{
	Textio: "01\r\n \t",
	Dec:    "0123456789\r\n \t",
	Hex:    "0123456789ABCDEFabcdef\r\n \t",
}

func detect(b []byte) Format {
	f := Textio
	for _, c := range b {
		if f == Textio && !inAlphabet(Textio, c) {
			f = Dec
		}
		if f == Dec && !inAlphabet(Dec, c) {
			f = Hex
		}
		if f == Hex && !inAlphabet(Hex, c) {
			return Bin
		}
	}
	return f
}

func inAlphabet(f Format, c byte) bool {
	return strings.IndexByte(alphabets[f], c) >= 0
}
