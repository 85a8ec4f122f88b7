// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wordio

import (
	"fmt"
	"io"

	"github.com/beevik/lxp32/internal/lxio"
)

// A Writer emits an image byte stream in one of the supported formats.
type Writer interface {
	io.Writer

	// Pad writes n zero bytes.
	Pad(n int64) error

	// Size returns the number of image bytes written so far.
	Size() int64

	// Close flushes any partially assembled word, padding it with zeros.
	// It does not close the underlying writer.
	Close() error
}

// NewWriter returns a Writer emitting format f to w.
func NewWriter(w io.Writer, f Format) Writer {
	ew := lxio.NewErrWriter(w)
	if f == Bin {
		return &binaryWriter{w: ew}
	}
	return &textWriter{w: ew, format: f}
}

type binaryWriter struct {
	w    *lxio.ErrWriter
	size int64
}

func (b *binaryWriter) Write(p []byte) (n int, err error) {
	n, err = b.w.Write(p)
	b.size += int64(n)
	return n, err
}

func (b *binaryWriter) Pad(n int64) error {
	return pad(b, n)
}

func (b *binaryWriter) Size() int64 {
	return b.size
}

func (b *binaryWriter) Close() error {
	return b.w.Err
}

// textWriter assembles bytes into little-endian words and writes one
// formatted word per line.
type textWriter struct {
	w      *lxio.ErrWriter
	format Format
	buf    [4]byte
	n      int
	size   int64
}

func (t *textWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		t.buf[t.n] = c
		t.n++
		if t.n == 4 {
			t.n = 0
			t.emit(uint32(t.buf[0]) | uint32(t.buf[1])<<8 | uint32(t.buf[2])<<16 | uint32(t.buf[3])<<24)
			if t.w.Err != nil {
				return n, t.w.Err
			}
		}
		n++
		t.size++
	}
	return n, nil
}

func (t *textWriter) emit(w uint32) {
	switch t.format {
	case Textio:
		fmt.Fprintf(t.w, "%032b\n", w)
	case Dec:
		fmt.Fprintf(t.w, "%d\n", w)
	default:
		fmt.Fprintf(t.w, "%08X\n", w)
	}
}

func (t *textWriter) Pad(n int64) error {
	return pad(t, n)
}

func (t *textWriter) Size() int64 {
	return t.size
}

func (t *textWriter) Close() error {
	if t.n > 0 {
		t.Pad(int64(4 - t.n))
	}
	return t.w.Err
}

var zeros [256]byte

func pad(w io.Writer, n int64) error {
	for n > 0 {
		chunk := min(n, int64(len(zeros)))
		if _, err := w.Write(zeros[:chunk]); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
