// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements an LXP32 instruction set disassembler.
package disasm

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/beevik/lxp32/cpu"
	"github.com/beevik/lxp32/internal/lxio"
	"github.com/beevik/lxp32/wordio"
)

// A Disassembler turns instruction words back into assembly text. The
// zero value prefers instruction and register aliases.
type Disassembler struct {
	NoAliases bool // render canonical mnemonics and rN register names

	// Diag receives warnings. Defaults to os.Stderr.
	Diag io.Writer
}

// An operand is a decoded register or direct value field.
type operand struct {
	value int
	reg   bool
}

func (d *Disassembler) str(o operand) string {
	if o.reg {
		return cpu.RegisterName(o.value, !d.NoAliases)
	}
	return strconv.Itoa(o.value)
}

func dst(w cpu.Word) operand {
	return operand{cpu.Dst(w), true}
}

func rd1(w cpu.Word) operand {
	v, reg := cpu.Rd1(w)
	return operand{v, reg}
}

func rd2(w cpu.Word) operand {
	v, reg := cpu.Rd2(w)
	return operand{v, reg}
}

func (o operand) is(v int) bool {
	return !o.reg && o.value == v
}

type decoder func(d *Disassembler, w cpu.Word) string

var decoders = map[cpu.Opcode]decoder{
	cpu.OpNop:  (*Disassembler).decodeNop,
	cpu.OpHlt:  (*Disassembler).decodeHlt,
	cpu.OpLw:   load("lw"),
	cpu.OpLub:  load("lub"),
	cpu.OpLsb:  load("lsb"),
	cpu.OpSw:   store("sw"),
	cpu.OpSb:   store("sb"),
	cpu.OpAdd:  (*Disassembler).decodeAdd,
	cpu.OpSub:  (*Disassembler).decodeSub,
	cpu.OpMul:  simple("mul"),
	cpu.OpDivu: division("divu"),
	cpu.OpDivs: division("divs"),
	cpu.OpModu: division("modu"),
	cpu.OpMods: division("mods"),
	cpu.OpAnd:  simple("and"),
	cpu.OpOr:   simple("or"),
	cpu.OpXor:  (*Disassembler).decodeXor,
	cpu.OpSl:   shift("sl"),
	cpu.OpSru:  shift("sru"),
	cpu.OpSrs:  shift("srs"),
	cpu.OpJmp:  (*Disassembler).decodeJmp,
	cpu.OpCall: (*Disassembler).decodeCall,
}

var cjmpNames = map[int]string{
	cpu.CondE:   "cjmpe",
	cpu.CondNE:  "cjmpne",
	cpu.CondUG:  "cjmpug",
	cpu.CondUGE: "cjmpuge",
	cpu.CondSG:  "cjmpsg",
	cpu.CondSGE: "cjmpsge",
}

// Decode returns the assembly text of the instruction word w. The lc
// instruction carries its constant in the following word, which Decode
// fetches by calling next. The returned words are the instruction's
// words: w alone, or w followed by the lc constant. If next returns
// io.EOF, the lc word is rendered as data.
func (d *Disassembler) Decode(w cpu.Word, next func() (cpu.Word, error)) (text string, words []cpu.Word, err error) {
	op := cpu.PrimaryOpcode(w)
	switch {
	case op == cpu.OpLc:
		return d.decodeLc(w, next)
	case cpu.IsCjmp(op):
		text = d.decodeCjmp(w)
	case cpu.IsLcs(op):
		text = d.decodeLcs(w)
	default:
		if fn, ok := decoders[op]; ok {
			text = fn(d, w)
		} else {
			text = dataWord(w)
		}
	}
	return text, []cpu.Word{w}, nil
}

// DecodeWord returns the assembly text of a single-word instruction. The
// lc instruction, which needs a second word, is rendered as data.
func (d *Disassembler) DecodeWord(w cpu.Word) string {
	text, _, _ := d.Decode(w, func() (cpu.Word, error) { return 0, io.EOF })
	return text
}

func dataWord(w cpu.Word) string {
	return fmt.Sprintf(".word 0x%08X", w)
}

func simple(name string) decoder {
	return func(d *Disassembler, w cpu.Word) string {
		return fmt.Sprintf("%s %s, %s, %s", name, d.str(dst(w)), d.str(rd1(w)), d.str(rd2(w)))
	}
}

// Division by a zero direct value is not a valid encoding.
func division(name string) decoder {
	return func(d *Disassembler, w cpu.Word) string {
		if rd2(w).is(0) {
			return dataWord(w)
		}
		return simple(name)(d, w)
	}
}

func shift(name string) decoder {
	return func(d *Disassembler, w cpu.Word) string {
		if o := rd2(w); !o.reg && (o.value < 0 || o.value > 31) {
			return dataWord(w)
		}
		return simple(name)(d, w)
	}
}

func load(name string) decoder {
	return func(d *Disassembler, w cpu.Word) string {
		if !rd1(w).reg || !rd2(w).is(0) {
			return dataWord(w)
		}
		return fmt.Sprintf("%s %s, %s", name, d.str(dst(w)), d.str(rd1(w)))
	}
}

func store(name string) decoder {
	return func(d *Disassembler, w cpu.Word) string {
		if dst(w).value != 0 || !rd1(w).reg {
			return dataWord(w)
		}
		return fmt.Sprintf("%s %s, %s", name, d.str(rd1(w)), d.str(rd2(w)))
	}
}

func (d *Disassembler) decodeNop(w cpu.Word) string {
	if w != cpu.TmplNop {
		return dataWord(w)
	}
	return "nop"
}

func (d *Disassembler) decodeHlt(w cpu.Word) string {
	if w != cpu.TmplHlt {
		return dataWord(w)
	}
	return "hlt"
}

func (d *Disassembler) decodeAdd(w cpu.Word) string {
	if rd2(w).is(0) && !d.NoAliases {
		return fmt.Sprintf("mov %s, %s", d.str(dst(w)), d.str(rd1(w)))
	}
	return simple("add")(d, w)
}

func (d *Disassembler) decodeSub(w cpu.Word) string {
	if rd1(w).is(0) && !d.NoAliases {
		return fmt.Sprintf("neg %s, %s", d.str(dst(w)), d.str(rd2(w)))
	}
	return simple("sub")(d, w)
}

func (d *Disassembler) decodeXor(w cpu.Word) string {
	if rd2(w).is(-1) && !d.NoAliases {
		return fmt.Sprintf("not %s, %s", d.str(dst(w)), d.str(rd1(w)))
	}
	return simple("xor")(d, w)
}

func (d *Disassembler) decodeJmp(w cpu.Word) string {
	r := rd1(w)
	if dst(w).value != 0 || !r.reg || !rd2(w).is(0) {
		return dataWord(w)
	}
	if !d.NoAliases {
		switch r.value {
		case cpu.RegIRP:
			return "iret"
		case cpu.RegRP:
			return "ret"
		}
	}
	return "jmp " + d.str(r)
}

func (d *Disassembler) decodeCall(w cpu.Word) string {
	r := rd1(w)
	if dst(w).value != cpu.RegRP || !r.reg || !rd2(w).is(0) {
		return dataWord(w)
	}
	return "call " + d.str(r)
}

func (d *Disassembler) decodeCjmp(w cpu.Word) string {
	name, ok := cjmpNames[cpu.CjmpCond(w)]
	if !ok {
		return dataWord(w)
	}
	return simple(name)(d, w)
}

func (d *Disassembler) decodeLcs(w cpu.Word) string {
	return fmt.Sprintf("lcs %s, 0x%08X", d.str(dst(w)), cpu.UnpackShort(w))
}

func (d *Disassembler) decodeLc(w cpu.Word, next func() (cpu.Word, error)) (string, []cpu.Word, error) {
	if !rd1(w).is(0) || !rd2(w).is(0) {
		return dataWord(w), []cpu.Word{w}, nil
	}
	c, err := next()
	switch {
	case err == io.EOF:
		return dataWord(w), []cpu.Word{w}, nil
	case err != nil:
		return "", nil, err
	}
	return fmt.Sprintf("lc %s, 0x%08X", d.str(dst(w)), c), []cpu.Word{w, c}, nil
}

// Dump reads words from r until the end of the stream and writes one
// listing line per instruction to w. Base is the address of the first
// word and only appears in the listing comments.
func (d *Disassembler) Dump(r wordio.WordReader, w io.Writer, base uint32) error {
	diag := d.Diag
	if diag == nil {
		diag = os.Stderr
	}

	pos := base
	next := func() (cpu.Word, error) {
		word, err := r.ReadWord()
		if err == wordio.ErrTruncated {
			fmt.Fprintln(diag, "Warning: last word is truncated")
			err = nil
		}
		if err == nil {
			pos += 4
		}
		return word, err
	}

	ew := lxio.NewErrWriter(w)
	for {
		addr := pos
		word, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		text, words, err := d.Decode(word, next)
		if err != nil {
			return err
		}

		fmt.Fprintf(ew, "\t%-32s// %08X: %08X", text, addr, word)
		if len(words) > 1 {
			fmt.Fprintf(ew, " %08X", words[1])
		}
		fmt.Fprintln(ew)
		if ew.Err != nil {
			return ew.Err
		}
	}
	return nil
}
