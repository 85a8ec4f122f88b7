// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu describes the LXP32 instruction set: register ids, opcode
// templates and the layout of the fields packed into an instruction word.
//
// Every instruction is one 32-bit little-endian word, except lc, which is
// followed by a second word holding the constant. The primary opcode
// occupies bits 26 through 31. Most instructions carry a destination
// register in bits 16-23, a first source operand in bits 8-15 and a second
// source operand in bits 0-7. Bits 25 and 24 select whether the first and
// second source operand is a register (set) or a signed byte immediate
// (clear).
package cpu

// A Word is one 32-bit instruction or data word.
type Word = uint32

// An Opcode is the 6-bit primary opcode held in the top bits of a word.
type Opcode byte

// Primary opcodes.
const (
	OpNop  Opcode = 0x00
	OpLc   Opcode = 0x01
	OpHlt  Opcode = 0x02
	OpLw   Opcode = 0x08
	OpLub  Opcode = 0x0A
	OpLsb  Opcode = 0x0B
	OpSw   Opcode = 0x0C
	OpSb   Opcode = 0x0E
	OpAdd  Opcode = 0x10
	OpSub  Opcode = 0x11
	OpMul  Opcode = 0x12
	OpDivu Opcode = 0x14
	OpDivs Opcode = 0x15
	OpModu Opcode = 0x16
	OpMods Opcode = 0x17
	OpAnd  Opcode = 0x18
	OpOr   Opcode = 0x19
	OpXor  Opcode = 0x1A
	OpSl   Opcode = 0x1C
	OpSru  Opcode = 0x1E
	OpSrs  Opcode = 0x1F
	OpJmp  Opcode = 0x20
	OpCall Opcode = 0x21
)

// Word templates for each mnemonic, before operand fields are merged in.
const (
	TmplNop     Word = 0x00000000
	TmplLc      Word = 0x04000000
	TmplHlt     Word = 0x08000000
	TmplLw      Word = 0x22000000
	TmplLub     Word = 0x2A000000
	TmplLsb     Word = 0x2E000000
	TmplSw      Word = 0x32000000
	TmplSb      Word = 0x3A000000
	TmplAdd     Word = 0x40000000
	TmplSub     Word = 0x44000000
	TmplMul     Word = 0x48000000
	TmplDivu    Word = 0x50000000
	TmplDivs    Word = 0x54000000
	TmplModu    Word = 0x58000000
	TmplMods    Word = 0x5C000000
	TmplAnd     Word = 0x60000000
	TmplOr      Word = 0x64000000
	TmplXor     Word = 0x68000000
	TmplSl      Word = 0x70000000
	TmplSru     Word = 0x78000000
	TmplSrs     Word = 0x7C000000
	TmplJmp     Word = 0x82000000
	TmplCall    Word = 0x86FE0000
	TmplLcs     Word = 0xA0000000
	TmplCjmpsg  Word = 0xC4000000
	TmplCjmpug  Word = 0xC8000000
	TmplCjmpne  Word = 0xD0000000
	TmplCjmpe   Word = 0xE0000000
	TmplCjmpsge Word = 0xE4000000
	TmplCjmpuge Word = 0xE8000000
)

// Operand mode flags.
const (
	Rd1Reg Word = 0x02000000
	Rd2Reg Word = 0x01000000
)

// Conditions of the cjmpxx family, taken from bits 26-29 of the word.
const (
	CondSG  = 0x1
	CondUG  = 0x2
	CondNE  = 0x4
	CondE   = 0x8
	CondSGE = 0x9
	CondUGE = 0xA
)

// Limits of the signed 21-bit constant loaded by lcs.
const (
	ShortMin = -1 << 20
	ShortMax = 1<<20 - 1
)

// PrimaryOpcode returns the 6-bit primary opcode of w.
func PrimaryOpcode(w Word) Opcode {
	return Opcode(w >> 26)
}

// IsCjmp reports whether op belongs to the conditional jump family.
func IsCjmp(op Opcode) bool {
	return op>>4 == 0x3
}

// IsLcs reports whether op belongs to the short constant load family.
func IsLcs(op Opcode) bool {
	return op>>3 == 0x5
}

// CjmpCond returns the condition code of a cjmpxx word.
func CjmpCond(w Word) int {
	return int(w>>26) & 0xF
}

// Dst returns the destination register field of w.
func Dst(w Word) int {
	return int(w>>16) & 0xFF
}

// Rd1 returns the first source field of w and whether it names a register.
// Immediates are sign-extended from 8 bits.
func Rd1(w Word) (value int, reg bool) {
	return field(int(w>>8)&0xFF, w&Rd1Reg != 0)
}

// Rd2 returns the second source field of w and whether it names a register.
func Rd2(w Word) (value int, reg bool) {
	return field(int(w)&0xFF, w&Rd2Reg != 0)
}

func field(v int, reg bool) (int, bool) {
	if !reg && v > 127 {
		v -= 256
	}
	return v, reg
}

// PackShort merges the low 21 bits of c into w using the lcs layout: bits
// 0-15 of the constant go to bits 0-15 of the word and bits 16-20 go to
// bits 24-28. All other bits of w are preserved.
func PackShort(w Word, c Word) Word {
	c &= 0x1FFFFF
	w &^= 0x1F00FFFF
	return w | c&0xFFFF | (c<<8)&0x1F000000
}

// UnpackShort extracts the sign-extended 21-bit constant of an lcs word.
func UnpackShort(w Word) Word {
	c := w&0xFFFF | (w>>8)&0x1F0000
	if c&0x100000 != 0 {
		c |= 0xFFE00000
	}
	return c
}

// FitsShort reports whether the 32-bit value v, read as a two's complement
// integer, fits the signed 21-bit lcs range.
func FitsShort(v Word) bool {
	return v <= ShortMax || v >= 0xFFF00000
}
