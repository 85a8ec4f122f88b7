// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/lxp32/wordio"
	"github.com/beevik/prefixtree/v2"
	"github.com/pkg/errors"
)

// settings hold the defaults applied by the asm and dump commands when an
// option is not given on the command line.
type settings struct {
	Align   uint32 `doc:"default object alignment"`
	Base    uint32 `doc:"default image base address"`
	Format  string `doc:"default output image format"`
	Aliases bool   `doc:"disassemble using aliases"`
	Verbose bool   `doc:"verbose assembly and link output"`
}

func newSettings() *settings {
	return &settings{
		Align:   4,
		Base:    0,
		Format:  "bin",
		Aliases: true,
		Verbose: false,
	}
}

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := 0; i < len(settingsFields); i++ {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var s string
		switch f.kind {
		case reflect.String:
			s = fmt.Sprintf("    %-16s \"%s\"", f.name, v.String())
		case reflect.Uint32:
			s = fmt.Sprintf("    %-16s 0x%08X", f.name, uint32(v.Uint()))
		default:
			s = fmt.Sprintf("    %-16s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-32s (%s)\n", s, f.doc)
	}
}

// Set parses value according to the type of the named setting and stores
// it. Names may be abbreviated to any unambiguous prefix.
func (s *settings) Set(key, value string) (name string, err error) {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return "", errors.Errorf("Setting '%s' not found", key)
	}

	var v any
	switch f.kind {
	case reflect.String:
		format, err := wordio.ParseFormat(value)
		if err != nil {
			return "", err
		}
		v = format.String()
	case reflect.Bool:
		v, err = stringToBool(value)
	default:
		v, err = parseNumber(value)
	}
	if err != nil {
		return "", err
	}

	vIn := reflect.ValueOf(v)
	if !vIn.Type().ConvertibleTo(f.typ) {
		return "", errors.New("invalid type")
	}
	reflect.ValueOf(s).Elem().Field(f.index).Set(vIn.Convert(f.typ))
	return f.name, nil
}
