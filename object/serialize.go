// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/lxp32/internal/lxio"
	"github.com/pkg/errors"
)

// Signature is the first line of every serialized object.
const Signature = "LinkableObject"

// IsObject reports whether b starts like a serialized linkable object.
func IsObject(b []byte) bool {
	return bytes.HasPrefix(b, []byte(Signature))
}

// WriteTo writes the object in its line-oriented text form.
func (o *Object) WriteTo(w io.Writer) (n int64, err error) {
	names := o.SymbolNames()
	for _, name := range names {
		if o.Symbols[name].Type == Unknown {
			return 0, errors.Errorf("Undefined symbol: \"%s\"", name)
		}
	}

	ew := lxio.NewErrWriter(w)
	fmt.Fprintln(ew, Signature)
	if o.Name != "" {
		fmt.Fprintf(ew, "Name %s\n", urlEncode(o.Name))
	}
	fmt.Fprintf(ew, "VirtualAddress 0x%08X\n", o.VirtualAddress)

	fmt.Fprintln(ew)
	fmt.Fprintln(ew, "Start Code")
	for rva := 0; rva < len(o.Code); rva += 4 {
		fmt.Fprintf(ew, "\t0x%08X\n", o.Word(uint32(rva)))
	}
	fmt.Fprintln(ew, "End Code")

	for _, name := range names {
		s := o.Symbols[name]
		fmt.Fprintln(ew)
		fmt.Fprintln(ew, "Start Symbol")
		fmt.Fprintf(ew, "\tName %s\n", urlEncode(name))
		fmt.Fprintf(ew, "\tType %s\n", s.Type)
		if s.Type != Imported {
			fmt.Fprintf(ew, "\tRVA 0x%08X\n", s.RVA)
		}
		for _, ref := range s.Refs {
			fmt.Fprintf(ew, "\tRef %s %d 0x%08X %d %s\n",
				urlEncode(ref.Source), ref.Line, ref.RVA, ref.Offset, ref.Type)
		}
		fmt.Fprintln(ew, "End Symbol")
	}
	return ew.N, ew.Err
}

// ReadFrom replaces the contents of the object with a serialized object
// read from r.
func (o *Object) ReadFrom(r io.Reader) (n int64, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	n = int64(len(b))

	*o = Object{Symbols: make(map[string]*Symbol)}
	d := &decoder{lines: strings.Split(string(b), "\n"), obj: o}
	if err := d.decode(); err != nil {
		if d.line > 0 {
			return n, errors.Wrapf(err, "line %d", d.line)
		}
		return n, err
	}
	return n, nil
}

type decoder struct {
	lines []string
	line  int
	obj   *Object
}

// next returns the fields of the next non-blank line.
func (d *decoder) next() ([]string, bool) {
	for d.line < len(d.lines) {
		fields := strings.Fields(d.lines[d.line])
		d.line++
		if len(fields) > 0 {
			return fields, true
		}
	}
	return nil, false
}

func (d *decoder) decode() error {
	tokens, ok := d.next()
	if !ok || tokens[0] != Signature {
		return errors.New("Bad object format")
	}

	for {
		tokens, ok := d.next()
		if !ok {
			return nil
		}
		if len(tokens) < 2 {
			return errors.New("Unexpected end of line")
		}

		switch tokens[0] {
		case "Name":
			name, err := urlDecode(tokens[1])
			if err != nil {
				return err
			}
			d.obj.Name = name
		case "VirtualAddress":
			v, err := parseUint32(tokens[1])
			if err != nil {
				return err
			}
			d.obj.VirtualAddress = v
		case "Start":
			var err error
			switch tokens[1] {
			case "Code":
				err = d.decodeCode()
			case "Symbol":
				err = d.decodeSymbol()
			default:
				err = errors.Errorf("Unexpected token: \"%s\"", tokens[1])
			}
			if err != nil {
				return err
			}
		default:
			return errors.Errorf("Unexpected token: \"%s\"", tokens[0])
		}
	}
}

// isEnd checks for an "End <block>" line.
func isEnd(tokens []string, block string) (bool, error) {
	if tokens[0] != "End" {
		return false, nil
	}
	if len(tokens) < 2 {
		return false, errors.New("Unexpected end of line")
	}
	if tokens[1] != block {
		return false, errors.Errorf("Unexpected token: \"%s\"", tokens[1])
	}
	return true, nil
}

func (d *decoder) decodeCode() error {
	for {
		tokens, ok := d.next()
		if !ok {
			return errors.New("Unexpected end of file")
		}
		if end, err := isEnd(tokens, "Code"); end || err != nil {
			return err
		}
		w, err := parseUint32(tokens[0])
		if err != nil {
			return err
		}
		d.obj.AddWord(w)
	}
}

func (d *decoder) decodeSymbol() error {
	var name string
	sym := &Symbol{}
	for {
		tokens, ok := d.next()
		if !ok {
			return errors.New("Unexpected end of file")
		}
		end, err := isEnd(tokens, "Symbol")
		if err != nil {
			return err
		}
		if end {
			switch {
			case name == "":
				return errors.New("Symbol name is not defined")
			case sym.Type == Unknown:
				return errors.New("Bad symbol type")
			}
			d.obj.Symbols[name] = sym
			return nil
		}

		switch tokens[0] {
		case "Name":
			if len(tokens) < 2 {
				return errors.New("Unexpected end of line")
			}
			if name, err = urlDecode(tokens[1]); err != nil {
				return err
			}
		case "Type":
			if len(tokens) < 2 {
				return errors.New("Unexpected end of line")
			}
			switch tokens[1] {
			case "Local":
				sym.Type = Local
			case "Exported":
				sym.Type = Exported
			case "Imported":
				sym.Type = Imported
			default:
				return errors.New("Bad symbol type")
			}
		case "RVA":
			if len(tokens) < 2 {
				return errors.New("Unexpected end of line")
			}
			if sym.RVA, err = parseUint32(tokens[1]); err != nil {
				return err
			}
			if uint64(sym.RVA) > uint64(len(d.obj.Code)) {
				return errors.Errorf("Symbol RVA 0x%08X is outside the code", sym.RVA)
			}
		case "Ref":
			ref, err := decodeRef(tokens)
			if err != nil {
				return err
			}
			if uint64(ref.RVA)+4 > uint64(len(d.obj.Code)) {
				return errors.Errorf("Reference RVA 0x%08X is outside the code", ref.RVA)
			}
			sym.Refs = append(sym.Refs, ref)
		default:
			return errors.Errorf("Unexpected token: \"%s\"", tokens[0])
		}
	}
}

func decodeRef(tokens []string) (ref Reference, err error) {
	if len(tokens) < 6 {
		return ref, errors.New("Unexpected end of line")
	}
	if ref.Source, err = urlDecode(tokens[1]); err != nil {
		return ref, err
	}
	line, err := strconv.ParseUint(tokens[2], 0, 31)
	if err != nil {
		return ref, errors.Errorf("Bad line number: \"%s\"", tokens[2])
	}
	ref.Line = int(line)
	if ref.RVA, err = parseUint32(tokens[3]); err != nil {
		return ref, err
	}
	if ref.Offset, err = strconv.ParseInt(tokens[4], 0, 64); err != nil {
		return ref, errors.Errorf("Bad offset: \"%s\"", tokens[4])
	}
	switch tokens[5] {
	case "Regular":
		ref.Type = Regular
	case "Short":
		ref.Type = Short
	default:
		return ref, errors.Errorf("Invalid reference type: \"%s\"", tokens[5])
	}
	return ref, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, errors.Errorf("Bad numeric value: \"%s\"", s)
	}
	return uint32(v), nil
}
