// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"github.com/beevik/lxp32/cpu"
	"github.com/beevik/lxp32/object"
	"github.com/pkg/errors"
)

// A form describes the operand list of an instruction and how the
// operands are packed into the word.
type form byte

const (
	formNone form = iota // no operands
	formArith            // dst, rd1, rd2
	formShift            // dst, rd1, rd2 with a shift amount check
	formCjmp             // dst, rd1, rd2
	formCjmpSwap         // dst, rd2, rd1
	formDstRd1           // dst, rd1
	formDstRd2           // dst, rd2
	formJump             // rd1 register
	formLoad             // dst, rd1 register
	formStore            // rd1 register, rd2
	formStoreByte        // rd1 register, rd2 with byte literals folded
	formLoadConst        // dst, 32-bit constant in a second word
	formLoadShort        // dst, signed 21-bit constant
)

var operandCount = []int{
	formNone:      0,
	formArith:     3,
	formShift:     3,
	formCjmp:      3,
	formCjmpSwap:  3,
	formDstRd1:    2,
	formDstRd2:    2,
	formJump:      1,
	formLoad:      2,
	formStore:     2,
	formStoreByte: 2,
	formLoadConst: 2,
	formLoadShort: 2,
}

type instruction struct {
	tmpl cpu.Word
	form form
}

var instructions = map[string]instruction{
	"add":     {cpu.TmplAdd, formArith},
	"and":     {cpu.TmplAnd, formArith},
	"call":    {cpu.TmplCall, formJump},
	"cjmpe":   {cpu.TmplCjmpe, formCjmp},
	"cjmpne":  {cpu.TmplCjmpne, formCjmp},
	"cjmpug":  {cpu.TmplCjmpug, formCjmp},
	"cjmpuge": {cpu.TmplCjmpuge, formCjmp},
	"cjmpsg":  {cpu.TmplCjmpsg, formCjmp},
	"cjmpsge": {cpu.TmplCjmpsge, formCjmp},
	"cjmpul":  {cpu.TmplCjmpug, formCjmpSwap},
	"cjmpule": {cpu.TmplCjmpuge, formCjmpSwap},
	"cjmpsl":  {cpu.TmplCjmpsg, formCjmpSwap},
	"cjmpsle": {cpu.TmplCjmpsge, formCjmpSwap},
	"divs":    {cpu.TmplDivs, formArith},
	"divu":    {cpu.TmplDivu, formArith},
	"hlt":     {cpu.TmplHlt, formNone},
	"iret":    {cpu.TmplJmp | cpu.RegIRP<<8, formNone},
	"jmp":     {cpu.TmplJmp, formJump},
	"lc":      {cpu.TmplLc, formLoadConst},
	"lcs":     {cpu.TmplLcs, formLoadShort},
	"lsb":     {cpu.TmplLsb, formLoad},
	"lub":     {cpu.TmplLub, formLoad},
	"lw":      {cpu.TmplLw, formLoad},
	"mods":    {cpu.TmplMods, formArith},
	"modu":    {cpu.TmplModu, formArith},
	"mov":     {cpu.TmplAdd, formDstRd1},
	"mul":     {cpu.TmplMul, formArith},
	"neg":     {cpu.TmplSub, formDstRd2},
	"nop":     {cpu.TmplNop, formNone},
	"not":     {cpu.TmplXor | 0xFF, formDstRd1},
	"or":      {cpu.TmplOr, formArith},
	"ret":     {cpu.TmplJmp | cpu.RegRP<<8, formNone},
	"sb":      {cpu.TmplSb, formStoreByte},
	"sl":      {cpu.TmplSl, formShift},
	"srs":     {cpu.TmplSrs, formShift},
	"sru":     {cpu.TmplSru, formShift},
	"sub":     {cpu.TmplSub, formArith},
	"sw":      {cpu.TmplSw, formStore},
	"xor":     {cpu.TmplXor, formArith},
}

// elaborateInstruction encodes one instruction statement and returns the
// offset of its first word.
func (a *assembler) elaborateInstruction(tokens []string) (uint32, error) {
	rva := a.obj.AddPadding(4)

	name := tokens[0]
	inst, ok := instructions[name]
	if !ok {
		return 0, errors.Errorf("Unrecognized instruction: \"%s\"", name)
	}

	ops, err := parseOperands(tokens)
	if err != nil {
		return 0, err
	}
	if n := operandCount[inst.form]; len(ops) != n {
		switch n {
		case 0:
			return 0, errors.Errorf("%s instruction doesn't take operands", name)
		case 1:
			return 0, errors.Errorf("%s instruction requires 1 operand", name)
		default:
			return 0, errors.Errorf("%s instruction requires %d operands", name, n)
		}
	}

	if err := a.encode(inst, ops); err != nil {
		return 0, err
	}
	return rva, nil
}

func (a *assembler) encode(inst instruction, ops []operand) error {
	w := inst.tmpl
	var err error

	switch inst.form {
	case formNone:

	case formShift:
		if amt := ops[2]; amt.kind == kindLiteral && (amt.i < 0 || amt.i > 31) {
			a.warn("Bitwise shift result is undefined when the second operand is negative or greater than 31")
		}
		fallthrough
	case formArith, formCjmp:
		err = firstError(encodeDst(&w, ops[0]), encodeRd1(&w, ops[1]), encodeRd2(&w, ops[2]))

	case formCjmpSwap:
		err = firstError(encodeDst(&w, ops[0]), encodeRd1(&w, ops[2]), encodeRd2(&w, ops[1]))

	case formDstRd1:
		err = firstError(encodeDst(&w, ops[0]), encodeRd1(&w, ops[1]))

	case formDstRd2:
		err = firstError(encodeDst(&w, ops[0]), encodeRd2(&w, ops[1]))

	case formJump:
		err = firstError(requireRegister(ops[0]), encodeRd1(&w, ops[0]))

	case formLoad:
		err = firstError(requireRegister(ops[1]), encodeDst(&w, ops[0]), encodeRd1(&w, ops[1]))

	case formStoreByte:
		if v := &ops[1]; v.kind == kindLiteral && v.i >= 128 && v.i <= 255 {
			v.i -= 256
		}
		fallthrough
	case formStore:
		err = firstError(requireRegister(ops[0]), encodeRd1(&w, ops[0]), encodeRd2(&w, ops[1]))

	case formLoadConst:
		return a.encodeLc(w, ops)

	case formLoadShort:
		return a.encodeLcs(w, ops)
	}

	if err != nil {
		return err
	}
	a.obj.AddWord(w)
	return nil
}

// lc emits the instruction word followed by the constant word. A symbolic
// constant leaves a zero word for the linker to patch.
func (a *assembler) encodeLc(w cpu.Word, ops []operand) error {
	if err := encodeDst(&w, ops[0]); err != nil {
		return err
	}
	switch c := ops[1]; c.kind {
	case kindIdentifier:
		a.obj.AddWord(w)
		a.reference(c, a.obj.AddWord(0), object.Regular)
	case kindLiteral:
		a.obj.AddWord(w)
		a.obj.AddWord(uint32(c.i))
	default:
		return badArgument(c)
	}
	return nil
}

// lcs packs a signed 21-bit constant into the instruction word.
func (a *assembler) encodeLcs(w cpu.Word, ops []operand) error {
	if err := encodeDst(&w, ops[0]); err != nil {
		return err
	}
	switch c := ops[1]; c.kind {
	case kindLiteral:
		if (c.i < cpu.ShortMin || c.i > cpu.ShortMax) && (c.i < 0xFFF00000 || c.i > 0xFFFFFFFF) {
			return outOfRange(c)
		}
		a.obj.AddWord(cpu.PackShort(w, uint32(c.i)))
	case kindIdentifier:
		a.reference(c, a.obj.AddWord(w), object.Short)
	default:
		return badArgument(c)
	}
	return nil
}

func encodeDst(w *cpu.Word, o operand) error {
	if o.kind != kindRegister {
		return errors.Errorf("\"%s\": must be a register", o.str)
	}
	*w |= cpu.Word(o.reg) << 16
	return nil
}

func encodeRd1(w *cpu.Word, o operand) error {
	b, reg, err := sourceField(o)
	if err == nil {
		if reg {
			*w |= cpu.Rd1Reg
		}
		*w |= cpu.Word(b) << 8
	}
	return err
}

func encodeRd2(w *cpu.Word, o operand) error {
	b, reg, err := sourceField(o)
	if err == nil {
		if reg {
			*w |= cpu.Rd2Reg
		}
		*w |= cpu.Word(b)
	}
	return err
}

// sourceField returns the 8-bit field value of a source operand. Literals
// must fit a signed byte, given either as a small signed value or as its
// 32-bit two's complement.
func sourceField(o operand) (b byte, reg bool, err error) {
	switch o.kind {
	case kindRegister:
		return byte(o.reg), true, nil
	case kindLiteral:
		if (o.i < -128 || o.i > 127) && (o.i < 0xFFFFFF80 || o.i > 0xFFFFFFFF) {
			return 0, false, outOfRange(o)
		}
		return byte(o.i), false, nil
	default:
		return 0, false, badArgument(o)
	}
}

func requireRegister(o operand) error {
	if o.kind != kindRegister {
		return errors.Errorf("\"%s\": must be a register", o.str)
	}
	return nil
}

func outOfRange(o operand) error {
	return errors.Errorf("\"%s\": out of range", o.str)
}

func badArgument(o operand) error {
	return errors.Errorf("\"%s\": bad argument", o.str)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
