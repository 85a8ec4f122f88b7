// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/beevik/lxp32/cpu"
	"github.com/beevik/lxp32/wordio"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		w         cpu.Word
		alias     string
		canonical string
	}{
		{0x00000000, "nop", "nop"},
		{0x00000001, ".word 0x00000001", ".word 0x00000001"},
		{0x08000000, "hlt", "hlt"},
		{0x08000001, ".word 0x08000001", ".word 0x08000001"},
		{0x43010203, "add r1, r2, r3", "add r1, r2, r3"},
		{0x42010200, "mov r1, r2", "add r1, r2, 0"},
		{0x42F0FC00, "mov iv0, cr", "add r240, r252, 0"},
		{0x45030004, "neg r3, r4", "sub r3, 0, r4"},
		{0x4401FF05, "sub r1, -1, 5", "sub r1, -1, 5"},
		{0x6A0102FF, "not r1, r2", "xor r1, r2, -1"},
		{0x4B0A0B0C, "mul r10, r11, r12", "mul r10, r11, r12"},
		{0x5EFFFE7F, "mods sp, rp, 127", "mods r255, r254, 127"},
		{0x52000100, ".word 0x52000100", ".word 0x52000100"},
		{0x72010203, "sl r1, r2, 3", "sl r1, r2, 3"},
		{0x7A010228, ".word 0x7A010228", ".word 0x7A010228"},
		{0x7E0102FF, ".word 0x7E0102FF", ".word 0x7E0102FF"},
		{0x8200FE00, "ret", "jmp r254"},
		{0x8200FD00, "iret", "jmp r253"},
		{0x82000500, "jmp r5", "jmp r5"},
		{0x82010500, ".word 0x82010500", ".word 0x82010500"},
		{0x86FE0600, "call r6", "call r6"},
		{0x86FE0601, ".word 0x86FE0601", ".word 0x86FE0601"},
		{0xE3010203, "cjmpe r1, r2, r3", "cjmpe r1, r2, r3"},
		{0xCB010203, "cjmpug r1, r2, r3", "cjmpug r1, r2, r3"},
		{0xE5010502, "cjmpsge r1, 5, r2", "cjmpsge r1, 5, r2"},
		{0xCC000000, ".word 0xCC000000", ".word 0xCC000000"},
		{0xBF01FFFF, "lcs r1, 0xFFFFFFFF", "lcs r1, 0xFFFFFFFF"},
		{0xAF02FFFF, "lcs r2, 0x000FFFFF", "lcs r2, 0x000FFFFF"},
		{0xA0FF0010, "lcs sp, 0x00000010", "lcs r255, 0x00000010"},
		{0x22010200, "lw r1, r2", "lw r1, r2"},
		{0x2A030400, "lub r3, r4", "lub r3, r4"},
		{0x2E03FF00, "lsb r3, sp", "lsb r3, r255"},
		{0x20010200, ".word 0x20010200", ".word 0x20010200"},
		{0x33000102, "sw r1, r2", "sw r1, r2"},
		{0x3A0001C8, "sb r1, -56", "sb r1, -56"},
		{0x3A0101C8, ".word 0x3A0101C8", ".word 0x3A0101C8"},
		{0xFFFFFFFF, ".word 0xFFFFFFFF", ".word 0xFFFFFFFF"},
	}

	alias := &Disassembler{}
	canonical := &Disassembler{NoAliases: true}
	for _, test := range tests {
		if s := alias.DecodeWord(test.w); s != test.alias {
			t.Errorf("%08X: got %q, expected %q", test.w, s, test.alias)
		}
		if s := canonical.DecodeWord(test.w); s != test.canonical {
			t.Errorf("%08X (no aliases): got %q, expected %q", test.w, s, test.canonical)
		}
	}
}

func TestDecodeLc(t *testing.T) {
	d := &Disassembler{}
	next := func() (cpu.Word, error) { return 0x12345678, nil }

	text, words, err := d.Decode(0x04FF0000, next)
	if err != nil {
		t.Fatal(err)
	}
	if text != "lc sp, 0x12345678" || len(words) != 2 || words[1] != 0x12345678 {
		t.Errorf("lc decoded incorrectly: %q %v", text, words)
	}

	// Operand fields must be zero.
	if text, words, _ = d.Decode(0x04000100, next); text != ".word 0x04000100" || len(words) != 1 {
		t.Errorf("malformed lc decoded incorrectly: %q", text)
	}

	if s := d.DecodeWord(0x04000000); s != ".word 0x04000000" {
		t.Errorf("lc without constant decoded incorrectly: %q", s)
	}
}

func line(text, rest string) string {
	return "\t" + text + strings.Repeat(" ", 32-len(text)) + "// " + rest + "\n"
}

func TestDump(t *testing.T) {
	in := "04000000\n12345678\n42010200\n08000000\n"
	var out bytes.Buffer
	d := &Disassembler{Diag: io.Discard}
	if err := d.Dump(wordio.NewReader(strings.NewReader(in), wordio.Hex), &out, 0x100); err != nil {
		t.Fatal(err)
	}

	exp := line("lc r0, 0x12345678", "00000100: 04000000 12345678") +
		line("mov r1, r2", "00000108: 42010200") +
		line("hlt", "0000010C: 08000000")
	if out.String() != exp {
		t.Errorf("listing incorrect.\ngot:\n%s\nexp:\n%s", out.String(), exp)
	}
}

func TestDumpTruncated(t *testing.T) {
	in := []byte{0x00, 0x00, 0x00, 0x08, 0x01, 0x02}
	var out, diag bytes.Buffer
	d := &Disassembler{Diag: &diag}
	if err := d.Dump(wordio.NewReader(bytes.NewReader(in), wordio.Bin), &out, 0); err != nil {
		t.Fatal(err)
	}

	exp := line("hlt", "00000000: 08000000") +
		line(".word 0x00000201", "00000004: 00000201")
	if out.String() != exp {
		t.Errorf("listing incorrect.\ngot:\n%s\nexp:\n%s", out.String(), exp)
	}
	if diag.String() != "Warning: last word is truncated\n" {
		t.Errorf("missing truncation warning, got %q", diag.String())
	}
}

func TestDumpLcAtEnd(t *testing.T) {
	in := []byte{0x00, 0x00, 0x01, 0x04}
	var out bytes.Buffer
	d := &Disassembler{Diag: io.Discard}
	if err := d.Dump(wordio.NewReader(bytes.NewReader(in), wordio.Bin), &out, 0); err != nil {
		t.Fatal(err)
	}
	if exp := line(".word 0x04010000", "00000000: 04010000"); out.String() != exp {
		t.Errorf("listing incorrect.\ngot:\n%s\nexp:\n%s", out.String(), exp)
	}
}

func TestDumpBadLiteral(t *testing.T) {
	d := &Disassembler{Diag: io.Discard}
	err := d.Dump(wordio.NewReader(strings.NewReader("08000000\nzz\n"), wordio.Hex), io.Discard, 0)
	if err == nil || err.Error() != "Bad literal at line 2" {
		t.Errorf("expected bad literal error, got %v", err)
	}

	err = d.Dump(wordio.NewReader(strings.NewReader("04000000\nzz\n"), wordio.Hex), io.Discard, 0)
	if err == nil || err.Error() != "Bad literal at line 2" {
		t.Errorf("expected bad literal error after lc, got %v", err)
	}
}
