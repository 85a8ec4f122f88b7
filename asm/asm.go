// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements the LXP32 assembler. It compiles one source file,
// together with the files it includes, into a linkable object. Symbolic
// addresses are never resolved by the assembler; every use of a symbol is
// recorded as a reference and patched later by the linker.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/beevik/lxp32/object"
	"github.com/pkg/errors"
)

// Option type used by the Assembler.
type Option uint

// Options for the Assembler.
const (
	Verbose Option = 1 << iota // log every statement and the words it emits
)

// An Assembler compiles LXP32 source files into linkable objects. The zero
// value is ready to use.
type Assembler struct {
	// IncludeDirs are searched, in order, for #include files that cannot
	// be found relative to the including file.
	IncludeDirs []string

	Options Option

	// Out receives #message text and verbose output. Defaults to
	// os.Stdout.
	Out io.Writer

	// Diag receives warnings. Defaults to os.Stderr.
	Diag io.Writer
}

// An Error is an assembly failure together with the source position that
// caused it. Line is zero when the failure concerns the file as a whole.
type Error struct {
	File string
	Line int
	Err  error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

// Cause returns the underlying error.
func (e *Error) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// context is the per-file processing state that is saved and restored
// around an #include.
type context struct {
	file string
	line int
	lex  lexer
}

// The assembler is a state object used during the assembly of a single
// source file into a linkable object.
type assembler struct {
	obj         *object.Object
	ctx         context
	macros      map[string][]string // macro name -> replacement tokens
	labels      []string            // labels waiting for a statement
	exports     []string            // symbols to export once the file is done
	includeDirs []string
	including   []string // absolute paths of the files being processed
	out         io.Writer
	diag        io.Writer
	verbose     bool
}

// AssembleFile reads the file at path and assembles it into a linkable
// object.
func (as *Assembler) AssembleFile(path string) (*object.Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{File: path, Err: errors.Errorf("Cannot open file \"%s\"", path)}
	}
	defer f.Close()
	return as.Assemble(f, path)
}

// Assemble reads LXP32 assembly code from r and compiles it into a
// linkable object. The filename names the source in diagnostics and is
// the base for resolving relative #include paths.
func (as *Assembler) Assemble(r io.Reader, filename string) (*object.Object, error) {
	a := &assembler{
		obj:         object.New(path.Base(filepath.ToSlash(filename))),
		macros:      make(map[string][]string),
		includeDirs: as.IncludeDirs,
		out:         as.Out,
		diag:        as.Diag,
		verbose:     as.Options&Verbose != 0,
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.diag == nil {
		a.diag = os.Stderr
	}

	a.logSection("Assembling " + filename)

	if err := a.process(r, filename); err != nil {
		return nil, err
	}

	// Once the whole file is processed, every referenced symbol must be
	// bound and deferred exports can be applied.
	steps := []func(a *assembler) error{
		(*assembler).checkUndefined,
		(*assembler).applyExports,
	}
	for _, step := range steps {
		if err := step(a); err != nil {
			return nil, &Error{File: filename, Err: err}
		}
	}
	return a.obj, nil
}

// process assembles the lines read from r within a fresh file context.
// The caller's context is restored on return.
func (a *assembler) process(r io.Reader, filename string) error {
	abs, err := filepath.Abs(filename)
	if err != nil {
		abs = filepath.Clean(filename)
	}
	if slices.Contains(a.including, abs) {
		return a.errorf("Recursive inclusion of \"%s\"", filename)
	}
	a.including = append(a.including, abs)

	saved := a.ctx
	a.ctx = context{file: filename}
	defer func() {
		a.ctx = saved
		a.including = a.including[:len(a.including)-1]
	}()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		a.ctx.line++
		if err := a.processLine(scanner.Text()); err != nil {
			return a.wrap(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return a.wrap(errors.Wrap(err, "read failed"))
	}
	if a.ctx.lex.state != stateInitial {
		return a.wrap(errors.New("Unexpected end of file"))
	}
	if len(a.labels) > 0 {
		return &Error{File: filename, Err: errors.New("Symbol definition must be followed by an instruction or data definition statement")}
	}
	return nil
}

// processFile opens an included file and processes it.
func (a *assembler) processFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Errorf("Cannot open file \"%s\"", path)
	}
	defer f.Close()
	return a.process(f, path)
}

// processLine tokenizes, expands and elaborates one source line.
func (a *assembler) processLine(line string) error {
	tokens, err := a.ctx.lex.tokenize(line)
	if err != nil {
		return err
	}
	tokens = a.expand(tokens)

	start := a.obj.CodeSize()
	if err := a.elaborate(tokens); err != nil {
		return err
	}
	if len(tokens) > 0 {
		a.logLine(tokens, start)
	}
	return nil
}

// expand replaces every token naming a macro by the macro's tokens. The
// replacement is not rescanned. The name being defined by a #define
// statement is left alone.
func (a *assembler) expand(tokens []string) []string {
	if len(a.macros) == 0 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		body, ok := a.macros[t]
		if !ok || definesMacro(out) {
			out = append(out, t)
			continue
		}
		out = append(out, body...)
	}
	return out
}

func definesMacro(prefix []string) bool {
	switch len(prefix) {
	case 1:
		return prefix[0] == "#define"
	case 3:
		return prefix[1] == ":" && prefix[2] == "#define"
	default:
		return false
	}
}

// elaborate classifies a statement and dispatches it. Pending labels are
// bound to the offset at which a data definition or instruction starts.
func (a *assembler) elaborate(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	if len(tokens) >= 2 && tokens[1] == ":" {
		if !validIdentifier(tokens[0]) {
			return errors.Errorf("Ill-formed identifier: \"%s\"", tokens[0])
		}
		a.labels = append(a.labels, tokens[0])
		tokens = tokens[2:]
		if len(tokens) == 0 {
			return nil
		}
	}

	var rva uint32
	var err error
	switch tokens[0][0] {
	case '#':
		return a.elaborateDirective(tokens)
	case '.':
		rva, err = a.elaborateData(tokens)
	default:
		rva, err = a.elaborateInstruction(tokens)
	}
	if err != nil {
		return err
	}

	for _, label := range a.labels {
		if err := a.obj.AddSymbol(label, rva); err != nil {
			return err
		}
	}
	a.labels = a.labels[:0]
	return nil
}

func (a *assembler) checkUndefined() error {
	for _, name := range a.obj.SymbolNames() {
		s := a.obj.Symbols[name]
		if s.Type == object.Unknown && len(s.Refs) > 0 {
			return errors.Errorf("Undefined symbol \"%s\" (referenced from %s:%d)",
				name, s.Refs[0].Source, s.Refs[0].Line)
		}
	}
	return nil
}

func (a *assembler) applyExports() error {
	for _, name := range a.exports {
		if err := a.obj.ExportSymbol(name); err != nil {
			return err
		}
	}
	return nil
}

// reference records a reference to a symbol from the current line.
func (a *assembler) reference(o operand, rva uint32, typ object.RefType) {
	a.obj.AddReference(o.str, object.Reference{
		Source: a.ctx.file,
		Line:   a.ctx.line,
		RVA:    rva,
		Offset: o.i,
		Type:   typ,
	})
}

// wrap attaches the current source position to err unless it already
// carries one from a nested file.
func (a *assembler) wrap(err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	return &Error{File: a.ctx.file, Line: a.ctx.line, Err: err}
}

func (a *assembler) errorf(format string, args ...any) error {
	return a.wrap(errors.Errorf(format, args...))
}

// Write a warning about the current line to the diagnostic output.
func (a *assembler) warn(format string, args ...any) {
	fmt.Fprintf(a.diag, "%s:%d: Warning: ", a.ctx.file, a.ctx.line)
	fmt.Fprintf(a.diag, format, args...)
	fmt.Fprintln(a.diag)
}

// In verbose mode, log a statement and the bytes it emitted.
func (a *assembler) logLine(tokens []string, start int) {
	if a.verbose {
		code := a.obj.Code[start:]
		fmt.Fprintf(a.out, "%-16s %4d | %08X | %-26s | %s\n",
			path.Base(filepath.ToSlash(a.ctx.file)), a.ctx.line, start,
			wordString(code), strings.Join(tokens, " "))
	}
}

// In verbose mode, log a section header.
func (a *assembler) logSection(name string) {
	if a.verbose {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}
