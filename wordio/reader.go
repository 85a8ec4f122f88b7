// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wordio

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrTruncated is returned together with a zero-padded word when a binary
// stream ends in the middle of a word.
var ErrTruncated = errors.New("last word is truncated")

// A WordReader reads consecutive words from an image. ReadWord returns
// io.EOF when no words remain.
type WordReader interface {
	ReadWord() (uint32, error)
}

// NewReader returns a WordReader decoding format f from r.
func NewReader(r io.Reader, f Format) WordReader {
	if f == Bin {
		return &binaryReader{r: r}
	}
	base := map[Format]int{Textio: 2, Dec: 10, Hex: 16}[f]
	return &textReader{s: bufio.NewScanner(r), base: base}
}

type binaryReader struct {
	r io.Reader
}

func (b *binaryReader) ReadWord() (uint32, error) {
	var buf [4]byte
	n, err := io.ReadFull(b.r, buf[:])
	switch {
	case n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF):
		return 0, io.EOF
	case err == io.ErrUnexpectedEOF:
		err = ErrTruncated
	case err != nil:
		return 0, errors.Wrap(err, "read failed")
	}
	w := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
	return w, err
}

type textReader struct {
	s    *bufio.Scanner
	base int
	line int
}

func (t *textReader) ReadWord() (uint32, error) {
	if !t.s.Scan() {
		if err := t.s.Err(); err != nil {
			return 0, errors.Wrap(err, "read failed")
		}
		return 0, io.EOF
	}
	t.line++

	s := strings.TrimSpace(t.s.Text())
	if t.base == 16 {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	}
	v, err := strconv.ParseUint(s, t.base, 32)
	if err != nil {
		return 0, errors.Errorf("Bad literal at line %d", t.line)
	}
	return uint32(v), nil
}
