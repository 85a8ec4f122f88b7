// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wordio

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		ok   bool
	}{
		{"bin", Bin, true},
		{"textio", Textio, true},
		{"tex", Textio, true},
		{"DEC", Dec, true},
		{"hex", Hex, true},
		{"h", Hex, true},
		{"oct", Bin, false},
	}
	for _, test := range tests {
		f, err := ParseFormat(test.name)
		if (err == nil) != test.ok || (test.ok && f != test.f) {
			t.Errorf("ParseFormat(%q) = %v, %v", test.name, f, err)
		}
	}
}

func TestWriters(t *testing.T) {
	data := []byte{0x78, 0x56, 0x34, 0x12, 0x01, 0x00}
	tests := []struct {
		f   Format
		exp string
	}{
		{Bin, "\x78\x56\x34\x12\x01\x00"},
		{Textio, "00010010001101000101011001111000\n00000000000000000000000000000001\n"},
		{Dec, "305419896\n1\n"},
		{Hex, "12345678\n00000001\n"},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf, test.f)
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		if buf.String() != test.exp {
			t.Errorf("%v output incorrect.\nexp: %q\ngot: %q", test.f, test.exp, buf.String())
		}
		if w.Size() != int64(len(data)) && !test.f.IsText() {
			t.Errorf("%v size incorrect. got: %d", test.f, w.Size())
		}
	}
}

func TestWriterPad(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Hex)
	w.Write([]byte{1, 0, 0, 0})
	w.Pad(600)
	w.Close()
	if w.Size() != 604 {
		t.Errorf("size incorrect. exp: 604, got: %d", w.Size())
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 151 {
		t.Errorf("line count incorrect. exp: 151, got: %d", lines)
	}
}

func readAll(t *testing.T, r WordReader) ([]uint32, error) {
	t.Helper()
	var words []uint32
	for {
		w, err := r.ReadWord()
		if err == io.EOF {
			return words, nil
		}
		if err != nil && err != ErrTruncated {
			return words, err
		}
		words = append(words, w)
	}
}

func TestReaders(t *testing.T) {
	tests := []struct {
		f    Format
		in   string
		exp  []uint32
		fail bool
	}{
		{Bin, "\x00\x00\x00\x08\x01\x02\x03\x04", []uint32{0x08000000, 0x04030201}, false},
		{Bin, "\x00\x00\x00\x08\xFF", []uint32{0x08000000, 0xFF}, false},
		{Textio, "00001000000000000000000000000000\r\n11\n", []uint32{0x08000000, 3}, false},
		{Dec, "134217728\n42\n", []uint32{0x08000000, 42}, false},
		{Hex, "08000000\n0xdeadbeef\n", []uint32{0x08000000, 0xDEADBEEF}, false},
		{Hex, "08000000\nxyz\n", nil, true},
	}
	for _, test := range tests {
		words, err := readAll(t, NewReader(strings.NewReader(test.in), test.f))
		if test.fail {
			if err == nil || !strings.Contains(err.Error(), "Bad literal at line 2") {
				t.Errorf("%v: expected bad literal error, got %v", test.f, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%v: %v", test.f, err)
			continue
		}
		if len(words) != len(test.exp) {
			t.Errorf("%v: word count incorrect. exp: %d, got: %d", test.f, len(test.exp), len(words))
			continue
		}
		for i := range words {
			if words[i] != test.exp[i] {
				t.Errorf("%v: word %d incorrect. exp: %08X, got: %08X", test.f, i, test.exp[i], words[i])
			}
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		in  string
		exp Format
	}{
		{"0101\n1100\n", Textio},
		{"0101\n1192\n", Dec},
		{"12345678\nDEADBEEF\n", Hex},
		{"\x00\x00\x00\x08", Bin},
		{"", Textio},
		{strings.Repeat("0", 300) + "xyz", Textio},
	}
	for _, test := range tests {
		f, err := Detect(strings.NewReader(test.in))
		if err != nil {
			t.Fatal(err)
		}
		if f != test.exp {
			t.Errorf("Detect(%q) = %v, exp %v", test.in, f, test.exp)
		}
	}
}
