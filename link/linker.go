// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link merges LXP32 linkable objects into a flat memory image.
//
// Linking builds a global symbol table from the objects' exported symbols,
// selects the entry object, drops objects that the entry object cannot
// reach through symbol references, assigns consecutive virtual addresses
// and patches every recorded reference.
package link

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/beevik/lxp32/cpu"
	"github.com/beevik/lxp32/object"
	"github.com/beevik/lxp32/wordio"
	"github.com/pkg/errors"
)

// Option type used by the Linker.
type Option uint

// Options for the Linker.
const (
	Verbose Option = 1 << iota // log symbol resolution and object placement
)

// DefaultAlign is the object alignment used when Linker.Align is zero.
const DefaultAlign = 4

// A Linker places and relocates a set of objects. The zero value links at
// base address 0 with word alignment.
type Linker struct {
	Base      uint32 // virtual address of the first object
	Align     uint32 // alignment of every object but the last
	ImageSize uint32 // pad the image to this many bytes, 0 for no padding
	Options   Option

	// Out receives verbose output. Defaults to os.Stdout.
	Out io.Writer

	// Diag receives warnings. Defaults to os.Stderr.
	Diag io.Writer
}

// A global symbol table entry. The refs slice holds each referencing
// object once, in link order.
type globalSymbol struct {
	obj  *object.Object
	rva  uint32
	refs []*object.Object
}

func (g *globalSymbol) referencedBy(o *object.Object) bool {
	return slices.Contains(g.refs, o)
}

// The linker is a state object used during a single Link call.
type linker struct {
	cfg     *Linker
	objects []*object.Object
	entry   *object.Object
	globals map[string]*globalSymbol
	out     io.Writer
	diag    io.Writer
	verbose bool
}

// Validate checks the linker options.
func (l *Linker) Validate() error {
	align := l.align()
	if align < 4 || align&(align-1) != 0 {
		return errors.New("Object alignment must be a power of two not less than 4")
	}
	if l.Base%align != 0 {
		return errors.New("Base address must be a multiple of object alignment")
	}
	if l.ImageSize%4 != 0 {
		return errors.New("Image size must be a multiple of 4")
	}
	return nil
}

func (l *Linker) align() uint32 {
	if l.Align == 0 {
		return DefaultAlign
	}
	return l.Align
}

// Link links objs and writes the resulting image to w. The objects are
// modified in place: they receive virtual addresses, padding and patched
// references. The returned Map describes the placement of the objects
// that made it into the image.
func (l *Linker) Link(objs []*object.Object, w wordio.Writer) (*Map, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, errors.New("Object set is empty")
	}

	k := &linker{
		cfg:     l,
		objects: slices.Clone(objs),
		globals: make(map[string]*globalSymbol),
		out:     l.Out,
		diag:    l.Diag,
		verbose: l.Options&Verbose != 0,
	}
	if k.out == nil {
		k.out = os.Stdout
	}
	if k.diag == nil {
		k.diag = os.Stderr
	}

	steps := []func(k *linker) error{
		(*linker).buildSymbolTable,
		(*linker).selectEntry,
		(*linker).placeObjects,
		(*linker).relocate,
	}
	for _, step := range steps {
		if err := step(k); err != nil {
			return nil, err
		}
	}

	size, err := k.writeObjects(w)
	if err != nil {
		return nil, err
	}

	return &Map{
		Base:    l.Base,
		Align:   l.align(),
		Size:    size,
		Objects: k.objects,
	}, nil
}

func isEntrySymbol(name string) bool {
	return name == "entry" || name == "Entry"
}

// buildSymbolTable merges the public symbols of all objects into the
// global symbol table.
func (k *linker) buildSymbolTable() error {
	for _, o := range k.objects {
		for _, name := range o.SymbolNames() {
			s := o.Symbols[name]

			if isEntrySymbol(name) && s.Type != object.Imported {
				if k.entry != nil {
					return errors.Errorf("%s: Duplicate definition of the entry symbol (previously defined in %s)",
						o.Name, k.entry.Name)
				}
				if s.RVA != 0 {
					return errors.Errorf("%s: Entry point must refer to the start of the object", o.Name)
				}
				k.entry = o
			}

			if s.Type == object.Local {
				continue
			}

			g, ok := k.globals[name]
			if !ok {
				g = &globalSymbol{}
				k.globals[name] = g
			}
			if s.Type == object.Exported {
				if g.obj != nil {
					return errors.Errorf("%s: Duplicate definition of \"%s\" (previously defined in %s)",
						o.Name, name, g.obj.Name)
				}
				g.obj, g.rva = o, s.RVA
			}
			if len(s.Refs) > 0 && !g.referencedBy(o) {
				g.refs = append(g.refs, o)
			}
		}
	}

	for _, o := range k.objects {
		for _, name := range o.SymbolNames() {
			if o.Symbols[name].Type != object.Local {
				continue
			}
			if g, ok := k.globals[name]; ok && g.obj != nil {
				return errors.Errorf("%s: Local symbol \"%s\" shadows the public one (defined in %s)",
					o.Name, name, g.obj.Name)
			}
		}
	}

	for _, name := range k.globalNames() {
		g := k.globals[name]
		if g.obj == nil && len(g.refs) > 0 {
			return errors.Errorf("Undefined symbol: \"%s\" (referenced from %s)", name, g.refs[0].Name)
		}
	}
	return nil
}

func (k *linker) globalNames() []string {
	names := make([]string, 0, len(k.globals))
	for name := range k.globals {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (k *linker) selectEntry() error {
	if len(k.objects) == 1 {
		k.entry = k.objects[0]
	}
	if k.entry == nil {
		return errors.New("Entry point not defined: cannot find \"entry\" or \"Entry\" symbol")
	}
	return nil
}

// placeObjects moves the entry object to the front, drops objects that
// are not reachable from it and assigns virtual addresses.
func (k *linker) placeObjects() error {
	i := slices.Index(k.objects, k.entry)
	k.objects = slices.Delete(k.objects, i, i+1)
	k.objects = slices.Insert(k.objects, 0, k.entry)

	if len(k.objects) > 1 {
		used := map[*object.Object]bool{k.entry: true}
		k.markAsUsed(k.entry, used)

		kept := k.objects[:0]
		for _, o := range k.objects {
			if used[o] {
				kept = append(kept, o)
				continue
			}
			fmt.Fprintf(k.diag, "Linker warning: skipping an unreferenced object \"%s\"\n", o.Name)
			k.purge(o)
		}
		k.objects = kept
	}

	k.logSection("Placing objects")
	base := k.cfg.Base
	for i, o := range k.objects {
		o.VirtualAddress = base
		if i+1 < len(k.objects) {
			o.AddPadding(int(k.cfg.align()))
		} else {
			o.AddPadding(4)
		}
		k.log("%08X %8d  %s", o.VirtualAddress, o.CodeSize(), o.Name)
		base += uint32(o.CodeSize())
	}
	return nil
}

// markAsUsed marks, transitively, every object that defines a global
// symbol referenced from o.
func (k *linker) markAsUsed(o *object.Object, used map[*object.Object]bool) {
	for _, name := range k.globalNames() {
		g := k.globals[name]
		if g.obj == nil || used[g.obj] || !g.referencedBy(o) {
			continue
		}
		used[g.obj] = true
		k.markAsUsed(g.obj, used)
	}
}

// purge removes every trace of a dropped object from the global table.
func (k *linker) purge(o *object.Object) {
	for name, g := range k.globals {
		if g.obj == o {
			delete(k.globals, name)
			continue
		}
		if i := slices.Index(g.refs, o); i >= 0 {
			g.refs = slices.Delete(g.refs, i, i+1)
		}
	}
}

// relocate patches the references of every placed object.
func (k *linker) relocate() error {
	for _, o := range k.objects {
		for _, name := range o.SymbolNames() {
			s := o.Symbols[name]
			if len(s.Refs) == 0 {
				continue
			}

			var addr uint32
			if s.Type == object.Local {
				addr = o.VirtualAddress + s.RVA
			} else {
				g := k.globals[name]
				addr = g.obj.VirtualAddress + g.rva
			}
			k.log("%-24s %08X  %d reference(s) in %s", name, addr, len(s.Refs), o.Name)

			for _, ref := range s.Refs {
				if uint64(ref.RVA)+4 > uint64(len(o.Code)) {
					return errors.Errorf("Reference RVA 0x%08X is outside object \"%s\" (referenced from %s:%d)",
						ref.RVA, o.Name, ref.Source, ref.Line)
				}
				target := addr + uint32(ref.Offset)
				switch ref.Type {
				case object.Regular:
					o.ReplaceWord(ref.RVA, target)
				case object.Short:
					if !cpu.FitsShort(target) {
						return errors.Errorf("Address 0x%08X is out of range for a signed 21-bit constant (referenced from %s:%d)",
							target, ref.Source, ref.Line)
					}
					o.ReplaceWord(ref.RVA, cpu.PackShort(o.Word(ref.RVA), target))
				}
			}
		}
	}
	return nil
}

// writeObjects emits the placed objects, entry object first, and pads the
// image to the requested size. It returns the image size in bytes.
func (k *linker) writeObjects(w wordio.Writer) (int64, error) {
	for _, o := range k.objects {
		if _, err := w.Write(o.Code); err != nil {
			return 0, err
		}
	}

	size := w.Size()
	if limit := int64(k.cfg.ImageSize); limit > 0 {
		if size > limit {
			return 0, errors.New("Image size exceeds the specified value")
		}
		if err := w.Pad(limit - size); err != nil {
			return 0, err
		}
		size = limit
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return size, nil
}

// In verbose mode, log a formatted line.
func (k *linker) log(format string, args ...any) {
	if k.verbose {
		fmt.Fprintf(k.out, format, args...)
		fmt.Fprintln(k.out)
	}
}

// In verbose mode, log a section header.
func (k *linker) logSection(name string) {
	if k.verbose {
		fmt.Fprintln(k.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(k.out, "-- %s --\n", name)
		fmt.Fprintln(k.out, strings.Repeat("-", len(name)+6))
	}
}
