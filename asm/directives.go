// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/beevik/lxp32/object"
	"github.com/pkg/errors"
)

var directives = map[string]func(a *assembler, tokens []string) error{
	"#define":  (*assembler).parseDefine,
	"#export":  (*assembler).parseExport,
	"#import":  (*assembler).parseImport,
	"#message": (*assembler).parseMessage,
}

func init() {
	// The #include directive must be initialized here to bypass go's
	// overly aggressive initialization loop detection.
	directives["#include"] = (*assembler).parseInclude
}

var dataDefinitions = map[string]func(a *assembler, tokens []string) (uint32, error){
	".align":   (*assembler).parseAlign,
	".reserve": (*assembler).parseReserve,
	".word":    (*assembler).parseWord,
	".byte":    (*assembler).parseByte,
}

func (a *assembler) elaborateDirective(tokens []string) error {
	fn, ok := directives[tokens[0]]
	if !ok {
		return errors.Errorf("Unrecognized directive: \"%s\"", tokens[0])
	}
	return fn(a, tokens)
}

func (a *assembler) elaborateData(tokens []string) (uint32, error) {
	fn, ok := dataDefinitions[tokens[0]]
	if !ok {
		return 0, errors.Errorf("Unrecognized statement: \"%s\"", tokens[0])
	}
	return fn(a, tokens)
}

// Directives taking a single argument.
func singleArgument(tokens []string) (string, error) {
	if len(tokens) != 2 {
		return "", errors.New("Wrong number of tokens in the directive")
	}
	return tokens[1], nil
}

func singleIdentifier(tokens []string) (string, error) {
	name, err := singleArgument(tokens)
	if err != nil {
		return "", err
	}
	if !validIdentifier(name) {
		return "", errors.Errorf("Ill-formed identifier: \"%s\"", name)
	}
	return name, nil
}

// #define name tokens...
func (a *assembler) parseDefine(tokens []string) error {
	if len(tokens) < 3 {
		return errors.New("Wrong number of tokens in the directive")
	}
	name := tokens[1]
	if _, ok := a.macros[name]; ok {
		return errors.Errorf("Macro \"%s\" has been already defined", name)
	}
	if !validIdentifier(name) {
		return errors.Errorf("Ill-formed identifier: \"%s\"", name)
	}
	a.macros[name] = append([]string(nil), tokens[2:]...)
	return nil
}

// #export name
func (a *assembler) parseExport(tokens []string) error {
	name, err := singleIdentifier(tokens)
	if err != nil {
		return err
	}
	a.exports = append(a.exports, name)
	return nil
}

// #import name
func (a *assembler) parseImport(tokens []string) error {
	name, err := singleIdentifier(tokens)
	if err != nil {
		return err
	}
	return a.obj.AddImportedSymbol(name)
}

// #message "text"
func (a *assembler) parseMessage(tokens []string) error {
	arg, err := singleArgument(tokens)
	if err != nil {
		return err
	}
	msg, err := dequote(arg)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s:%d: %s\n", a.ctx.file, a.ctx.line, msg)
	return nil
}

// #include "path"
func (a *assembler) parseInclude(tokens []string) error {
	arg, err := singleArgument(tokens)
	if err != nil {
		return err
	}
	filename, err := dequote(arg)
	if err != nil {
		return err
	}

	path, ok := a.locateInclude(filename)
	if !ok {
		return errors.Errorf("Cannot locate include file \"%s\"", filename)
	}
	return a.processFile(path)
}

// locateInclude resolves an include path. Absolute paths are used as is.
// Relative paths are tried against the including file's directory and
// then against each include directory.
func (a *assembler) locateInclude(filename string) (string, bool) {
	if filepath.IsAbs(filename) {
		return filename, true
	}
	candidates := []string{filepath.Join(filepath.Dir(a.ctx.file), filename)}
	for _, dir := range a.includeDirs {
		candidates = append(candidates, filepath.Join(dir, filename))
	}
	for _, path := range candidates {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path, true
		}
	}
	return "", false
}

// .align [n]
func (a *assembler) parseAlign(tokens []string) (uint32, error) {
	if len(tokens) > 2 {
		return 0, errors.Errorf("Unexpected token: \"%s\"", tokens[2])
	}
	align := int64(4)
	if len(tokens) > 1 {
		v, err := numericLiteral(tokens[1])
		if err != nil {
			return 0, err
		}
		align = v
	}
	if align <= 0 || align&(align-1) != 0 {
		return 0, errors.New("Alignment must be a power of 2")
	}
	if align < 4 {
		return 0, errors.New("Alignment must be at least 4")
	}
	return a.obj.AddPadding(int(align)), nil
}

// .reserve n
func (a *assembler) parseReserve(tokens []string) (uint32, error) {
	switch {
	case len(tokens) < 2:
		return 0, errors.New("Unexpected end of statement")
	case len(tokens) > 2:
		return 0, errors.Errorf("Unexpected token: \"%s\"", tokens[2])
	}
	n, err := numericLiteral(tokens[1])
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Errorf("\"%s\": out of range", tokens[1])
	}
	return a.obj.AddZeros(int(n)), nil
}

// forEachItem calls fn for every item of a comma-separated list that
// follows the statement keyword. It returns the offset reported by fn for
// the first item.
func forEachItem(tokens []string, fn func(item string) (uint32, error)) (uint32, error) {
	if len(tokens) < 2 {
		return 0, errors.New("Unexpected end of statement")
	}
	var first uint32
	for i := 1; i < len(tokens); i++ {
		if i%2 == 0 {
			if tokens[i] != "," {
				return 0, errors.New("Comma expected")
			}
			if i+1 == len(tokens) {
				return 0, errors.New("Unexpected end of statement")
			}
			continue
		}
		rva, err := fn(tokens[i])
		if err != nil {
			return 0, err
		}
		if i == 1 {
			first = rva
		}
	}
	return first, nil
}

// .word v1[, v2...]
func (a *assembler) parseWord(tokens []string) (uint32, error) {
	return forEachItem(tokens, func(item string) (uint32, error) {
		o, err := parseOperand(item)
		if err != nil {
			return 0, err
		}
		switch o.kind {
		case kindLiteral:
			return a.obj.AddWord(uint32(o.i)), nil
		case kindIdentifier:
			rva := a.obj.AddWord(0)
			a.reference(o, rva, object.Regular)
			return rva, nil
		default:
			return 0, errors.Errorf("\"%s\": bad argument", item)
		}
	})
}

// .byte v1[, v2...]
func (a *assembler) parseByte(tokens []string) (uint32, error) {
	return forEachItem(tokens, func(item string) (uint32, error) {
		if item[0] == '"' {
			s, err := dequote(item)
			if err != nil {
				return 0, err
			}
			return a.obj.AddBytes([]byte(s)), nil
		}
		n, err := numericLiteral(item)
		if err != nil {
			return 0, err
		}
		if n < -128 || n > 255 {
			return 0, errors.Errorf("\"%s\": out of range", item)
		}
		return a.obj.AddByte(byte(n)), nil
	})
}
