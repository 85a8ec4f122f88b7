// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "strconv"

// Register ids with a dedicated role. Registers 0 through 239 are general
// purpose.
const (
	RegIV0 = 240 // interrupt vectors iv0 through iv7
	RegIV7 = 247
	RegCR  = 252 // control register
	RegIRP = 253 // interrupt return pointer
	RegRP  = 254 // return pointer
	RegSP  = 255 // stack pointer
)

var regAliases = map[string]int{
	"sp":  RegSP,
	"rp":  RegRP,
	"irp": RegIRP,
	"cr":  RegCR,
}

// LookupRegister returns the id of the register named by s. Accepted names
// are r0 through r255 and the aliases sp, rp, irp, cr and iv0 through iv7.
func LookupRegister(s string) (id int, ok bool) {
	if len(s) > 1 && s[0] == 'r' && allDigits(s[1:]) {
		n, err := strconv.Atoi(s[1:])
		if err == nil && n <= 255 {
			return n, true
		}
		return 0, false
	}
	if id, ok := regAliases[s]; ok {
		return id, true
	}
	if len(s) == 3 && s[:2] == "iv" && s[2] >= '0' && s[2] <= '7' {
		return RegIV0 + int(s[2]-'0'), true
	}
	return 0, false
}

// RegisterName returns the assembly name of a register. When alias is
// true, registers with a dedicated role are given their alias name.
func RegisterName(id int, alias bool) string {
	if alias {
		switch {
		case id >= RegIV0 && id <= RegIV7:
			return "iv" + strconv.Itoa(id-RegIV0)
		case id == RegCR:
			return "cr"
		case id == RegIRP:
			return "irp"
		case id == RegRP:
			return "rp"
		case id == RegSP:
			return "sp"
		}
	}
	return "r" + strconv.Itoa(id)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
