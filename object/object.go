// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package object implements the LXP32 linkable object: the code bytes of
// one compiled unit, its symbol table and the symbolic references that the
// linker resolves.
package object

import (
	"sort"

	"github.com/pkg/errors"
)

// A SymbolType describes how a symbol is bound within an object.
type SymbolType int

// Symbol types.
const (
	Unknown  SymbolType = iota // referenced but not yet defined
	Local                      // defined in this object
	Exported                   // defined in this object and visible to others
	Imported                   // defined in another object
)

func (t SymbolType) String() string {
	switch t {
	case Local:
		return "Local"
	case Exported:
		return "Exported"
	case Imported:
		return "Imported"
	default:
		return "Unknown"
	}
}

// A RefType selects how the linker patches a reference.
type RefType int

// Reference types.
const (
	Regular RefType = iota // 32-bit absolute address
	Short                  // signed 21-bit address packed into an lcs word
)

func (t RefType) String() string {
	if t == Short {
		return "Short"
	}
	return "Regular"
}

// A Reference is a patch site within an object's code.
type Reference struct {
	Source string  // source file that produced the reference
	Line   int     // source line
	RVA    uint32  // offset of the word to patch
	Offset int64   // added to the resolved address
	Type   RefType // patch algorithm
}

// A Symbol is an entry in an object's symbol table.
type Symbol struct {
	Type SymbolType
	RVA  uint32 // meaningless for imported symbols
	Refs []Reference
}

// An Object is one linkable compilation unit.
type Object struct {
	Name           string
	VirtualAddress uint32
	Code           []byte
	Symbols        map[string]*Symbol
}

// New creates an empty object with the given name.
func New(name string) *Object {
	return &Object{
		Name:    name,
		Symbols: make(map[string]*Symbol),
	}
}

// CodeSize returns the number of code bytes in the object.
func (o *Object) CodeSize() int {
	return len(o.Code)
}

// AddWord pads the code to a word boundary and appends a little-endian
// word. It returns the offset of the word.
func (o *Object) AddWord(w uint32) uint32 {
	rva := o.AddPadding(4)
	o.Code = append(o.Code, byte(w), byte(w>>8), byte(w>>16), byte(w>>24))
	return rva
}

// AddByte appends a single byte and returns its offset.
func (o *Object) AddByte(b byte) uint32 {
	rva := uint32(len(o.Code))
	o.Code = append(o.Code, b)
	return rva
}

// AddBytes appends a sequence of bytes and returns the offset of the first.
func (o *Object) AddBytes(b []byte) uint32 {
	rva := uint32(len(o.Code))
	o.Code = append(o.Code, b...)
	return rva
}

// AddZeros appends n zero bytes and returns the offset of the first.
func (o *Object) AddZeros(n int) uint32 {
	rva := uint32(len(o.Code))
	o.Code = append(o.Code, make([]byte, n)...)
	return rva
}

// AddPadding appends zero bytes until the code size is a multiple of size
// and returns the new code size.
func (o *Object) AddPadding(size int) uint32 {
	if pad := (size - len(o.Code)%size) % size; pad > 0 {
		o.Code = append(o.Code, make([]byte, pad)...)
	}
	return uint32(len(o.Code))
}

// Word returns the little-endian word at offset rva. Bytes beyond the end
// of the code read as zero.
func (o *Object) Word(rva uint32) uint32 {
	var w uint32
	for i := uint32(0); i < 4; i++ {
		if int(rva+i) < len(o.Code) {
			w |= uint32(o.Code[rva+i]) << (8 * i)
		}
	}
	return w
}

// ReplaceWord overwrites the word at offset rva.
func (o *Object) ReplaceWord(rva uint32, w uint32) {
	o.Code[rva] = byte(w)
	o.Code[rva+1] = byte(w >> 8)
	o.Code[rva+2] = byte(w >> 16)
	o.Code[rva+3] = byte(w >> 24)
}

// Symbol returns the symbol table entry for name, creating an Unknown
// entry if none exists.
func (o *Object) Symbol(name string) *Symbol {
	s, ok := o.Symbols[name]
	if !ok {
		s = &Symbol{}
		o.Symbols[name] = s
	}
	return s
}

// Lookup returns the symbol table entry for name without creating one.
func (o *Object) Lookup(name string) (*Symbol, bool) {
	s, ok := o.Symbols[name]
	return s, ok
}

// SymbolNames returns the names in the symbol table in sorted order.
func (o *Object) SymbolNames() []string {
	names := make([]string, 0, len(o.Symbols))
	for name := range o.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddSymbol defines a local symbol at offset rva.
func (o *Object) AddSymbol(name string, rva uint32) error {
	s := o.Symbol(name)
	if s.Type != Unknown {
		return errors.Errorf("Symbol \"%s\" is already defined", name)
	}
	s.Type = Local
	s.RVA = rva
	return nil
}

// AddImportedSymbol declares a symbol defined by another object.
func (o *Object) AddImportedSymbol(name string) error {
	s := o.Symbol(name)
	if s.Type != Unknown {
		return errors.Errorf("Symbol \"%s\" is already defined", name)
	}
	s.Type = Imported
	return nil
}

// ExportSymbol makes a locally defined symbol visible to other objects.
func (o *Object) ExportSymbol(name string) error {
	s, ok := o.Symbols[name]
	switch {
	case !ok || s.Type == Unknown:
		return errors.Errorf("Undefined symbol \"%s\"", name)
	case s.Type == Imported:
		return errors.Errorf("Symbol \"%s\" can't be both imported and exported at the same time", name)
	case s.Type == Exported:
		return errors.Errorf("Symbol \"%s\" has been already exported", name)
	}
	s.Type = Exported
	return nil
}

// AddReference records a reference to the named symbol.
func (o *Object) AddReference(name string, ref Reference) {
	s := o.Symbol(name)
	s.Refs = append(s.Refs, ref)
}
