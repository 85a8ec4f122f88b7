// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/lxp32/object"
)

func assemble(code string) (*object.Object, error) {
	as := &Assembler{Out: io.Discard, Diag: io.Discard}
	return as.Assemble(strings.NewReader(code), "test")
}

// codeWords formats the object code as a sequence of words.
func codeWords(o *object.Object) string {
	var words []string
	for rva := 0; rva < o.CodeSize(); rva += 4 {
		words = append(words, fmt.Sprintf("%08X", o.Word(uint32(rva))))
	}
	return strings.Join(words, " ")
}

func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	o, err := assemble(asm)
	if err != nil {
		t.Error(err)
		return
	}

	s := codeWords(o)
	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

func checkASMError(t *testing.T, asm string, errString string) {
	t.Helper()
	_, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if errString != err.Error() {
		t.Errorf("Expected '%s', got '%v'\n", errString, err)
	}
}

func TestArithmetic(t *testing.T) {
	asm := `
	add r1, r2, r3
	add r1, r2, 0
	sub r1, -1, 5
	and r4, r5, 0xFFFFFF80
	mul r10, r11, r12
	divu r0, r1, 2
	mods sp, rp, 127`

	checkASM(t, asm, "43010203 42010200 4401FF05 62040580 4B0A0B0C 52000102 5EFFFE7F")
}

func TestAliases(t *testing.T) {
	asm := `
	mov r1, r2
	neg r3, r4
	not r1, r2
	ret
	iret
	jmp r5
	call r6`

	checkASM(t, asm, "42010200 45030004 6A0102FF 8200FE00 8200FD00 82000500 86FE0600")
}

func TestConditionalJumps(t *testing.T) {
	asm := `
	cjmpe r1, r2, r3
	cjmpug r1, r2, r3
	cjmpul r1, r2, r3
	cjmpsle r1, r2, 5
	cjmpne r0, 1, 2`

	checkASM(t, asm, "E3010203 CB010203 CB010302 E5010502 D0000102")
}

func TestMemoryAccess(t *testing.T) {
	asm := `
	lw r1, r2
	lub r3, r4
	lsb r3, sp
	sw r1, r2
	sb r1, 200
	sb r1, -1`

	checkASM(t, asm, "22010200 2A030400 2E03FF00 33000102 3A0001C8 3A0001FF")
}

func TestLoadConstant(t *testing.T) {
	checkASM(t, "lc r0, 0x12345678", "04000000 12345678")
	checkASM(t, "lc r1, -1", "04010000 FFFFFFFF")
	checkASM(t, "lcs r1, -1", "BF01FFFF")
	checkASM(t, "lcs r2, 0xFFFFF", "AF02FFFF")
	checkASM(t, "lcs r2, 0xFFF00000", "B0020000")
	checkASMError(t, "lcs r2, 0x100000", "test:1: \"0x100000\": out of range")
	checkASMError(t, "lc r0, r1", "test:1: \"r1\": bad argument")
}

func TestNoOperands(t *testing.T) {
	checkASM(t, "nop\nhlt", "00000000 08000000")
}

func TestShift(t *testing.T) {
	checkASM(t, "sl r1, r2, 3\nsru r1, r2, 40", "72010203 7A010228")

	var diag bytes.Buffer
	as := &Assembler{Out: io.Discard, Diag: &diag}
	if _, err := as.Assemble(strings.NewReader("nop\nsrs r1, r2, -1"), "test"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(diag.String(), "test:2: Warning: Bitwise shift") {
		t.Errorf("missing shift warning, got %q", diag.String())
	}
}

func TestLabels(t *testing.T) {
	asm := `start:
.byte 1, 2
data: .word 0x11223344
lbl1:
lbl2: nop`

	o, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	if s := codeWords(o); s != "00000201 11223344 00000000" {
		t.Errorf("code incorrect: %s", s)
	}

	exp := map[string]uint32{"start": 0, "data": 4, "lbl1": 8, "lbl2": 8}
	for name, rva := range exp {
		s, ok := o.Lookup(name)
		if !ok || s.Type != object.Local || s.RVA != rva {
			t.Errorf("symbol %s incorrect: %+v", name, s)
		}
	}
}

func TestLabelBeforeDirective(t *testing.T) {
	// A directive line does not consume a pending label.
	o, err := assemble(".word 1\nlbl: #define V 5\nnop\nadd r1, r2, V")
	if err != nil {
		t.Fatal(err)
	}
	if s := codeWords(o); s != "00000001 00000000 42010205" {
		t.Errorf("code incorrect: %s", s)
	}
	if s, ok := o.Lookup("lbl"); !ok || s.RVA != 4 {
		t.Errorf("symbol lbl incorrect: %+v", s)
	}
}

func TestData(t *testing.T) {
	o, err := assemble(".byte \"AB\", 0xFF, -1\n.reserve 3\n.word 1, 2")
	if err != nil {
		t.Fatal(err)
	}
	exp := []byte{'A', 'B', 0xFF, 0xFF, 0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0}
	if !bytes.Equal(o.Code, exp) {
		t.Errorf("code incorrect: % X", o.Code)
	}

	checkASMError(t, ".byte 256", "test:1: \"256\": out of range")
	checkASMError(t, ".byte -129", "test:1: \"-129\": out of range")
	checkASMError(t, ".word 1 2", "test:1: Comma expected")
	checkASMError(t, ".word 1,", "test:1: Unexpected end of statement")
	checkASMError(t, ".word r1", "test:1: \"r1\": bad argument")
	checkASMError(t, ".reserve -1", "test:1: \"-1\": out of range")
	checkASMError(t, ".bogus 1", "test:1: Unrecognized statement: \".bogus\"")
}

func TestAlign(t *testing.T) {
	o, err := assemble(".byte 1\n.align 8\nhere: .byte 2\n.align\n.byte 3")
	if err != nil {
		t.Fatal(err)
	}
	if o.CodeSize() != 13 {
		t.Errorf("code size incorrect: %d", o.CodeSize())
	}
	if s, _ := o.Lookup("here"); s == nil || s.RVA != 8 {
		t.Errorf("aligned label incorrect: %+v", s)
	}

	for _, n := range []int{4, 8, 16} {
		if o, err := assemble(fmt.Sprintf(".byte 1\n.align %d", n)); err != nil {
			t.Errorf(".align %d failed: %v", n, err)
		} else if o.CodeSize() != n {
			t.Errorf(".align %d produced %d bytes", n, o.CodeSize())
		}
	}
	checkASMError(t, ".align 3", "test:1: Alignment must be a power of 2")
	checkASMError(t, ".align 5", "test:1: Alignment must be a power of 2")
	checkASMError(t, ".align 6", "test:1: Alignment must be a power of 2")
	checkASMError(t, ".align 1", "test:1: Alignment must be at least 4")
	checkASMError(t, ".align 2", "test:1: Alignment must be at least 4")
}

func TestInstructionPadding(t *testing.T) {
	o, err := assemble(".byte 1\nlbl: hlt")
	if err != nil {
		t.Fatal(err)
	}
	if s := codeWords(o); s != "00000001 08000000" {
		t.Errorf("code incorrect: %s", s)
	}
	if s, _ := o.Lookup("lbl"); s == nil || s.RVA != 4 {
		t.Errorf("label incorrect: %+v", s)
	}
}

func TestMacros(t *testing.T) {
	asm := `
#define VAL 42
#define REG r3
	add REG, REG, VAL`

	checkASM(t, asm, "4203032A")

	// The replacement is not rescanned for further macros.
	checkASMError(t, "#define A B\n#define B r1\nmov A, r2", "test:3: \"B\": must be a register")
	checkASMError(t, "#define A 1\n#define A 2", "test:2: Macro \"A\" has been already defined")
	checkASMError(t, "#define A", "test:1: Wrong number of tokens in the directive")
	checkASMError(t, "#define 1A 2", "test:1: Ill-formed identifier: \"1A\"")
}

func TestReferences(t *testing.T) {
	asm := `lc r1, target
lcs r2, target@8
target: .word target`

	o, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	if s := codeWords(o); s != "04010000 00000000 A0020000 00000000" {
		t.Errorf("code incorrect: %s", s)
	}

	s, ok := o.Lookup("target")
	if !ok || s.Type != object.Local || s.RVA != 12 {
		t.Fatalf("symbol incorrect: %+v", s)
	}
	exp := []object.Reference{
		{Source: "test", Line: 1, RVA: 4, Offset: 0, Type: object.Regular},
		{Source: "test", Line: 2, RVA: 8, Offset: 8, Type: object.Short},
		{Source: "test", Line: 3, RVA: 12, Offset: 0, Type: object.Regular},
	}
	if len(s.Refs) != len(exp) {
		t.Fatalf("got %d references, expected %d", len(s.Refs), len(exp))
	}
	for i := range exp {
		if s.Refs[i] != exp[i] {
			t.Errorf("reference %d: got %+v, expected %+v", i, s.Refs[i], exp[i])
		}
	}
}

func TestExportImport(t *testing.T) {
	asm := `#export main
#import ext
main: lc r0, ext
	call r0`

	o, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := o.Lookup("main"); s == nil || s.Type != object.Exported || s.RVA != 0 {
		t.Errorf("main incorrect: %+v", s)
	}
	if s, _ := o.Lookup("ext"); s == nil || s.Type != object.Imported || len(s.Refs) != 1 {
		t.Errorf("ext incorrect: %+v", s)
	}

	checkASMError(t, "#export nothing\nnop", "test: Undefined symbol \"nothing\"")
	checkASMError(t, "#import x\nx: nop", "test:2: Symbol \"x\" is already defined")
	checkASMError(t, "#export a b", "test:1: Wrong number of tokens in the directive")
	checkASMError(t, "#import", "test:1: Wrong number of tokens in the directive")
}

func TestMessage(t *testing.T) {
	var out bytes.Buffer
	as := &Assembler{Out: &out, Diag: io.Discard}
	if _, err := as.Assemble(strings.NewReader("nop\n#message \"hello\""), "test"); err != nil {
		t.Fatal(err)
	}
	if out.String() != "test:2: hello\n" {
		t.Errorf("message incorrect: %q", out.String())
	}
	checkASMError(t, "#message", "test:1: Wrong number of tokens in the directive")
	checkASMError(t, "#message hello", "test:1: String literal expected")
}

func TestVerbose(t *testing.T) {
	var out bytes.Buffer
	as := &Assembler{Out: &out, Diag: io.Discard, Options: Verbose}
	if _, err := as.Assemble(strings.NewReader("hlt"), "test"); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.Contains(s, "-- Assembling test --") || !strings.Contains(s, "08000000") {
		t.Errorf("verbose output incorrect:\n%s", s)
	}
}

func TestErrors(t *testing.T) {
	checkASMError(t, "nop\nadd r1, r2", "test:2: add instruction requires 3 operands")
	checkASMError(t, "jmp", "test:1: jmp instruction requires 1 operand")
	checkASMError(t, "nop r1", "test:1: nop instruction doesn't take operands")
	checkASMError(t, "add r1, r2, 200", "test:1: \"200\": out of range")
	checkASMError(t, "mov 5, r1", "test:1: \"5\": must be a register")
	checkASMError(t, "jmp label", "test:1: \"label\": must be a register")
	checkASMError(t, "frob r1", "test:1: Unrecognized instruction: \"frob\"")
	checkASMError(t, "add r1 r2, r3", "test:1: Comma expected")
	checkASMError(t, "add r1, r2,", "test:1: Unexpected end of line")
	checkASMError(t, "#bogus", "test:1: Unrecognized directive: \"#bogus\"")
	checkASMError(t, "1abc: nop", "test:1: Ill-formed identifier: \"1abc\"")
	checkASMError(t, "a: nop\na: nop", "test:2: Symbol \"a\" is already defined")
	checkASMError(t, "nop\nlbl:", "test: Symbol definition must be followed by an instruction or data definition statement")
	checkASMError(t, "lc r0, missing", "test: Undefined symbol \"missing\" (referenced from test:1)")
	checkASMError(t, "nop /* never closed", "test:1: Unexpected end of file")
	checkASMError(t, "add r1, r2, 0x1_0", "test:1: Ill-formed numeric literal: \"0x1_0\"")
	checkASMError(t, "add r1, r2, 0b101", "test:1: Ill-formed numeric literal: \"0b101\"")
	checkASMError(t, "add r1, r2, 0o7", "test:1: Ill-formed numeric literal: \"0o7\"")
	checkASMError(t, ".word -0B1", "test:1: Ill-formed numeric literal: \"-0B1\"")
}

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "inc", "defs.inc"), "#define X 7\nincluded: .word X\n")
	writeFile(t, filepath.Join(dir, "lib", "other.inc"), "lcs r1, X\n")
	main := filepath.Join(dir, "main.asm")
	writeFile(t, main, "#include \"inc/defs.inc\"\n#include \"other.inc\"\nhlt\n")

	as := &Assembler{IncludeDirs: []string{filepath.Join(dir, "lib")}, Out: io.Discard, Diag: io.Discard}
	o, err := as.AssembleFile(main)
	if err != nil {
		t.Fatal(err)
	}
	if o.Name != "main.asm" {
		t.Errorf("object name incorrect: %s", o.Name)
	}
	if s := codeWords(o); s != "00000007 A0010007 08000000" {
		t.Errorf("code incorrect: %s", s)
	}
	if s, _ := o.Lookup("included"); s == nil || s.RVA != 0 {
		t.Errorf("included label incorrect: %+v", s)
	}
}

func TestIncludeErrors(t *testing.T) {
	dir := t.TempDir()
	as := &Assembler{Out: io.Discard, Diag: io.Discard}

	// Errors inside an included file report that file's position, and
	// the includer's line count resumes afterwards.
	inc := filepath.Join(dir, "bad.inc")
	writeFile(t, inc, "nop\nbogus\n")
	main := filepath.Join(dir, "main.asm")
	writeFile(t, main, "#include \"bad.inc\"\n")
	_, err := as.AssembleFile(main)
	if err == nil || err.Error() != inc+":2: Unrecognized instruction: \"bogus\"" {
		t.Errorf("unexpected error: %v", err)
	}

	writeFile(t, inc, "nop\n")
	writeFile(t, main, "#include \"bad.inc\"\nnop\nbogus\n")
	_, err = as.AssembleFile(main)
	if err == nil || err.Error() != main+":3: Unrecognized instruction: \"bogus\"" {
		t.Errorf("unexpected error: %v", err)
	}

	self := filepath.Join(dir, "self.asm")
	writeFile(t, self, "nop\n#include \"self.asm\"\n")
	_, err = as.AssembleFile(self)
	if err == nil || !strings.Contains(err.Error(), "Recursive inclusion") {
		t.Errorf("expected recursive inclusion error, got %v", err)
	}

	writeFile(t, main, "#include \"missing.inc\"\n")
	_, err = as.AssembleFile(main)
	if err == nil || err.Error() != main+":1: Cannot locate include file \"missing.inc\"" {
		t.Errorf("unexpected error: %v", err)
	}
}
