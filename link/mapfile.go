// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/beevik/lxp32/internal/lxio"
	"github.com/beevik/lxp32/object"
)

// A Map describes the layout of a linked image.
type Map struct {
	Base    uint32
	Align   uint32
	Size    int64            // image size in bytes, including padding
	Objects []*object.Object // placed objects in image order
}

// A MapSymbol is one defined symbol of a placed object.
type MapSymbol struct {
	Name string
	RVA  uint32
	Type object.SymbolType
}

// Symbols returns the non-imported symbols of o sorted by address.
func Symbols(o *object.Object) []MapSymbol {
	var syms []MapSymbol
	for _, name := range o.SymbolNames() {
		s := o.Symbols[name]
		if s.Type == object.Local || s.Type == object.Exported {
			syms = append(syms, MapSymbol{name, s.RVA, s.Type})
		}
	}
	slices.SortStableFunc(syms, func(a, b MapSymbol) int {
		return cmp.Compare(a.RVA, b.RVA)
	})
	return syms
}

// Search returns the object placed at the virtual address addr and the
// closest symbol at or below addr. The symbol is empty if none precedes
// addr within the object.
func (m *Map) Search(addr uint32) (obj *object.Object, symbol string) {
	for _, o := range m.Objects {
		if addr < o.VirtualAddress || addr-o.VirtualAddress >= uint32(o.CodeSize()) {
			continue
		}
		for _, s := range Symbols(o) {
			if o.VirtualAddress+s.RVA > addr {
				break
			}
			symbol = s.Name
		}
		return o, symbol
	}
	return nil, ""
}

// WriteTo writes the map in its text form.
func (m *Map) WriteTo(w io.Writer) (n int64, err error) {
	ew := lxio.NewErrWriter(w)

	width := 8
	for _, o := range m.Objects {
		for _, s := range Symbols(o) {
			width = max(width, len(s.Name)+3)
		}
	}

	fmt.Fprintf(ew, "Image base address: %08X\n", m.Base)
	fmt.Fprintf(ew, "Object alignment: %d\n", m.Align)
	fmt.Fprintf(ew, "Image size: %d words\n", m.Size/4)
	fmt.Fprintf(ew, "Number of objects: %d\n", len(m.Objects))
	fmt.Fprintln(ew)

	for _, o := range m.Objects {
		fmt.Fprintf(ew, "Object \"%s\" at address %08X\n", o.Name, o.VirtualAddress)
		fmt.Fprintln(ew)
		for _, s := range Symbols(o) {
			fmt.Fprintf(ew, "%s%s%08X %s\n", s.Name, strings.Repeat(" ", width-len(s.Name)),
				o.VirtualAddress+s.RVA, s.Type)
		}
		fmt.Fprintln(ew)
	}

	return ew.N, ew.Err
}
