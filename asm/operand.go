// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"math"
	"strconv"
	"strings"

	"github.com/beevik/lxp32/cpu"
	"github.com/pkg/errors"
)

type operandKind byte

const (
	kindRegister operandKind = iota
	kindIdentifier
	kindLiteral
)

// An operand is one comma-separated argument of an instruction.
type operand struct {
	kind operandKind
	str  string // source text, or the symbol name of an identifier
	reg  int    // register id
	i    int64  // literal value, or identifier offset
}

// validIdentifier reports whether s is a well-formed symbol or macro name:
// a letter or underscore followed by letters, digits and underscores.
func validIdentifier(s string) bool {
	if s == "" || !identifierStartChar(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !identifierChar(s[i]) {
			return false
		}
	}
	return true
}

// numericLiteral parses a signed integer literal using C conventions: a
// 0x prefix selects hexadecimal and a leading 0 selects octal. The value
// must be representable as a signed or unsigned 32-bit word.
func numericLiteral(s string) (int64, error) {
	if strings.IndexByte(s, '_') >= 0 || hasRadixPrefix(s, "bBoO") {
		return 0, errors.Errorf("Ill-formed numeric literal: \"%s\"", s)
	}
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, errors.Errorf("\"%s\": out of range", s)
		}
		return 0, errors.Errorf("Ill-formed numeric literal: \"%s\"", s)
	}
	if v > math.MaxUint32 || v < math.MinInt32 {
		return 0, errors.Errorf("\"%s\": out of range", s)
	}
	return v, nil
}

// hasRadixPrefix reports whether the literal, after an optional sign,
// starts with a 0 followed by one of the given radix letters.
func hasRadixPrefix(s, letters string) bool {
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	return len(s) > 1 && s[0] == '0' && strings.IndexByte(letters, s[1]) >= 0
}

// parseOperand classifies one operand token.
func parseOperand(s string) (operand, error) {
	o := operand{str: s}
	if id, ok := cpu.LookupRegister(s); ok {
		o.kind, o.reg = kindRegister, id
		return o, nil
	}
	if validIdentifier(s) {
		o.kind = kindIdentifier
		return o, nil
	}

	if at := strings.IndexByte(s, '@'); at >= 0 {
		o.kind, o.str = kindIdentifier, s[:at]
		if !validIdentifier(o.str) {
			return o, errors.Errorf("Ill-formed identifier: \"%s\"", o.str)
		}
		v, err := numericLiteral(s[at+1:])
		if err != nil {
			return o, err
		}
		o.i = v
		return o, nil
	}

	v, err := numericLiteral(s)
	if err != nil {
		return o, err
	}
	o.kind, o.i = kindLiteral, v
	return o, nil
}

// parseOperands parses the comma-separated operands that follow the
// mnemonic in tokens[0].
func parseOperands(tokens []string) ([]operand, error) {
	var ops []operand
	for i := 1; i < len(tokens); i++ {
		if i%2 == 0 {
			if tokens[i] != "," {
				return nil, errors.New("Comma expected")
			}
			if i+1 == len(tokens) {
				return nil, errors.New("Unexpected end of line")
			}
			continue
		}
		o, err := parseOperand(tokens[i])
		if err != nil {
			return nil, err
		}
		ops = append(ops, o)
	}
	return ops, nil
}

// dequote strips the quotes of a string literal token.
func dequote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", errors.New("String literal expected")
	}
	return s[1 : len(s)-1], nil
}
