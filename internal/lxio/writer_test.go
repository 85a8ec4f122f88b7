// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lxio

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
)

type limitedWriter struct {
	left int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if len(p) > w.left {
		n := w.left
		w.left = 0
		return n, io.ErrShortWrite
	}
	w.left -= len(p)
	return len(p), nil
}

func TestErrWriter(t *testing.T) {
	var buf bytes.Buffer
	ew := NewErrWriter(&buf)
	io.WriteString(ew, "hello ")
	io.WriteString(ew, "world")
	if ew.Err != nil || ew.N != 11 || buf.String() != "hello world" {
		t.Errorf("unexpected state: %v %d %q", ew.Err, ew.N, buf.String())
	}

	ew = NewErrWriter(&limitedWriter{left: 4})
	io.WriteString(ew, "abc")
	io.WriteString(ew, "def")
	if _, err := io.WriteString(ew, "ghi"); err == nil {
		t.Error("expected sticky error")
	}
	if errors.Cause(ew.Err) != io.ErrShortWrite {
		t.Errorf("unexpected cause: %v", ew.Err)
	}
	if ew.N != 4 {
		t.Errorf("byte count incorrect. exp: 4, got: %d", ew.N)
	}
}
