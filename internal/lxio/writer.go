// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lxio holds small io helpers shared by the toolchain packages.
package lxio

import (
	"io"

	"github.com/pkg/errors"
)

// ErrWriter wraps a writer and tracks the first write error. Once an error
// has occurred, Write keeps returning it without writing anything. N counts
// the bytes successfully written.
type ErrWriter struct {
	w   io.Writer
	N   int64
	Err error
}

// NewErrWriter returns a new ErrWriter writing to w.
func NewErrWriter(w io.Writer) *ErrWriter {
	return &ErrWriter{w: w}
}

func (w *ErrWriter) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	w.N += int64(n)
	if err != nil {
		w.Err = errors.Wrap(err, "write failed")
	}
	return n, w.Err
}
