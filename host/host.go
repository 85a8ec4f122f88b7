// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements the command host of the LXP32 toolchain. The
// host drives the assembler, linker and disassembler, either from a single
// command-line invocation or from a stream of commands read line by line.
package host

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/beevik/cmd"
	"github.com/beevik/lxp32/asm"
	"github.com/beevik/lxp32/disasm"
	"github.com/beevik/lxp32/link"
	"github.com/beevik/lxp32/object"
	"github.com/beevik/lxp32/wordio"
	"github.com/beevik/term"
	"github.com/k0kubun/pp/v3"
	"github.com/pkg/errors"
)

var errQuit = errors.New("Exiting program")

// A Host runs toolchain commands.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	diag        io.Writer
	interactive bool
	tty         bool
	lastCmd     *cmd.Selection
	settings    *settings
	failed      bool
}

// New creates a new command host. Diagnostics go to os.Stderr.
func New() *Host {
	return &Host{
		output:   bufio.NewWriter(os.Stdout),
		diag:     os.Stderr,
		settings: newSettings(),
	}
}

// Failed reports whether any command run by the host has failed.
func (h *Host) Failed() bool {
	return h.failed
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.output = bufio.NewWriter(w)
	h.tty = isTerminal(w)
	h.interactive = interactive

	if interactive {
		h.println()
	}

	h.processCommands(r)
	h.flush()
}

// Execute runs a single command given as a list of arguments, the first
// of which names the command.
func (h *Host) Execute(w io.Writer, args []string) error {
	h.output = bufio.NewWriter(w)
	h.tty = isTerminal(w)
	defer h.flush()

	if len(args) == 0 {
		return errors.New("No command specified")
	}

	c, err := cmds.Lookup(args[0])
	switch {
	case err == cmd.ErrNotFound:
		return errors.Errorf("Command \"%s\" not found", args[0])
	case err == cmd.ErrAmbiguous:
		return errors.Errorf("Command \"%s\" is ambiguous", args[0])
	case err != nil:
		return err
	}
	c.Args = args[1:]

	err = h.run(c)
	if err == errQuit {
		return nil
	}
	return err
}

func (h *Host) processCommands(r io.Reader) error {
	h.input = bufio.NewScanner(r)

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			return nil
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.interactive && h.lastCmd != nil {
			c = *h.lastCmd
		}

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		err = h.run(c)
		switch {
		case err == errQuit:
			return err
		case err != nil:
			h.flush()
			fmt.Fprintf(h.diag, "ERROR: %v\n", err)
		}
	}
}

func (h *Host) run(c cmd.Selection) error {
	err := c.Command.Data.(*command).run(h, c)
	if err != nil && err != errQuit {
		h.failed = true
	}
	return err
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

// warn writes a non-fatal diagnostic.
func (h *Host) warn(format string, args ...any) {
	h.flush()
	fmt.Fprintf(h.diag, format, args...)
	fmt.Fprintln(h.diag)
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return strings.TrimSpace(h.input.Text()), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
		h.flush()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newFlagSet returns a flag set whose errors are reported through the
// returned error only.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (h *Host) cmdAsm(c cmd.Selection) error {
	var align, base, size numberFlag
	var includeDirs stringList

	fs := newFlagSet("asm")
	fs.Var(&align, "a", "object alignment")
	fs.Var(&base, "b", "base address")
	compileOnly := fs.Bool("c", false, "compile only")
	formatName := fs.String("f", h.settings.Format, "output format")
	fs.Var(&includeDirs, "i", "include directory")
	mapName := fs.String("m", "", "map file")
	outName := fs.String("o", "", "output file")
	fs.Var(&size, "s", "image size")
	verbose := fs.Bool("v", h.settings.Verbose, "verbose output")
	if err := fs.Parse(c.Args); err != nil {
		h.displayUsage(c)
		return err
	}

	specified := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { specified[f.Name] = true })

	format, err := wordio.ParseFormat(*formatName)
	if err != nil {
		return err
	}
	if specified["s"] && size.value == 0 {
		return errors.New("Invalid image size")
	}

	l := &link.Linker{
		Base:      base.or(h.settings.Base),
		Align:     align.or(h.settings.Align),
		ImageSize: size.value,
		Out:       h.output,
		Diag:      h.diag,
	}
	if err := l.Validate(); err != nil {
		return err
	}

	if *compileOnly {
		if specified["a"] {
			h.warn("Warning: Object alignment is ignored in compile-only mode")
		}
		if specified["b"] {
			h.warn("Warning: Base address is ignored in compile-only mode")
		}
		if specified["f"] {
			h.warn("Warning: Output format is ignored in compile-only mode")
		}
		if size.value > 0 {
			h.warn("Warning: Image size is ignored in compile-only mode")
		}
		if *mapName != "" {
			h.warn("Warning: Map file is not generated in compile-only mode")
		}
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		return errors.New("No input files were specified")
	}
	if *compileOnly && len(inputs) > 1 && *outName != "" {
		return errors.New("Output file name cannot be specified for multiple files in compile-only mode")
	}

	as := &asm.Assembler{
		IncludeDirs: includeDirs,
		Out:         h.output,
		Diag:        h.diag,
	}
	if *verbose {
		as.Options |= asm.Verbose
		l.Options |= link.Verbose
	}

	// Objects loaded from .lo files are linked before assembled ones.
	var loaded, assembled []*object.Object
	for _, filename := range inputs {
		if !*compileOnly && isObjectFile(filename) {
			o, err := loadObject(filename)
			if err != nil {
				return errors.Wrapf(err, "Error reading object file %s", filename)
			}
			loaded = append(loaded, o)
			continue
		}

		o, err := as.AssembleFile(filename)
		if err != nil {
			h.flush()
			return errors.Errorf("Assembler error in %v", err)
		}
		if !*compileOnly {
			assembled = append(assembled, o)
			continue
		}

		name := *outName
		if name == "" {
			name = replaceExt(filename, ".lo")
		}
		if err := saveObject(o, name); err != nil {
			return err
		}
	}
	if *compileOnly {
		return nil
	}

	name := *outName
	if name == "" {
		name = replaceExt(inputs[0], ".bin")
		if format.IsText() {
			name = replaceExt(inputs[0], ".txt")
		}
	}

	objs := append(loaded, assembled...)
	m, err := h.linkImage(l, objs, name, format)
	if err != nil {
		return err
	}
	if name == "-" {
		h.warn("%d words written", m.Size/4)
	} else {
		h.printf("%d words written\n", m.Size/4)
	}

	if *mapName != "" {
		if err := writeMap(m, *mapName); err != nil {
			return err
		}
	}
	return nil
}

// linkImage links objs into the named output file, or to the host output
// when the name is "-". A partially written file is removed on failure.
func (h *Host) linkImage(l *link.Linker, objs []*object.Object, name string, format wordio.Format) (*link.Map, error) {
	if name == "-" {
		if format == wordio.Bin && h.tty {
			return nil, errors.New("Refusing to write a binary image to a terminal")
		}
		m, err := l.Link(objs, wordio.NewWriter(h.output, format))
		h.flush()
		if err != nil {
			return nil, errors.Wrap(err, "Linker error")
		}
		return m, nil
	}

	f, err := createOutput(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	m, err := l.Link(objs, wordio.NewWriter(w, format))
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		return nil, errors.Wrap(err, "Linker error")
	}
	return m, f.Commit()
}

func writeMap(m *link.Map, name string) error {
	f, err := os.Create(name)
	if err != nil {
		return errors.Errorf("Cannot open file \"%s\" for writing", name)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := m.WriteTo(w); err != nil {
		return err
	}
	return w.Flush()
}

// isObjectFile reports whether the named file starts with the linkable
// object signature.
func isObjectFile(name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	b := make([]byte, len(object.Signature))
	n, _ := io.ReadFull(f, b)
	return object.IsObject(b[:n])
}

func loadObject(name string) (*object.Object, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Errorf("Cannot open file \"%s\"", name)
	}
	defer f.Close()

	o := &object.Object{}
	if _, err := o.ReadFrom(bufio.NewReader(f)); err != nil {
		return nil, err
	}
	return o, nil
}

func saveObject(o *object.Object, name string) error {
	f, err := createOutput(name)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := o.WriteTo(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Commit()
}

func (h *Host) cmdDump(c cmd.Selection) error {
	var base numberFlag

	fs := newFlagSet("dump")
	fs.Var(&base, "b", "base address")
	formatName := fs.String("f", "", "input format")
	noAliases := fs.Bool("na", !h.settings.Aliases, "do not use aliases")
	outName := fs.String("o", "", "output file")
	if err := fs.Parse(c.Args); err != nil {
		h.displayUsage(c)
		return err
	}

	addr := base.or(h.settings.Base)
	if addr%4 != 0 {
		return errors.New("Invalid base address")
	}

	switch fs.NArg() {
	case 0:
		h.displayUsage(c)
		return errors.New("No input file was specified")
	case 1:
	default:
		return errors.New("Only one input file name can be specified")
	}
	inName := fs.Arg(0)

	in, err := os.ReadFile(inName)
	if err != nil {
		return errors.Errorf("Cannot open \"%s\"", inName)
	}

	var format wordio.Format
	detected := *formatName == ""
	if detected {
		format, _ = wordio.Detect(bytes.NewReader(in))
	} else {
		format, err = wordio.ParseFormat(*formatName)
		if err != nil {
			return errors.New("Unrecognized input format")
		}
	}

	dump := func(w io.Writer) error {
		fmt.Fprintln(w, "/*")
		fmt.Fprintf(w, " * Input file: %s\n", inName)
		fmt.Fprintf(w, " * Input format: %s", format)
		if detected {
			fmt.Fprint(w, " (autodetected)")
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, " * Base address: 0x%08X\n", addr)
		fmt.Fprintf(w, " * Disassembled by lxp32 dump at %s\n", time.Now().Format(time.ANSIC))
		fmt.Fprintln(w, " */")
		fmt.Fprintln(w)

		d := &disasm.Disassembler{NoAliases: *noAliases, Diag: h.diag}
		return d.Dump(wordio.NewReader(bytes.NewReader(in), format), w, addr)
	}

	if *outName == "" {
		err = dump(h.output)
		h.flush()
		return err
	}

	f, err := createOutput(*outName)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := dump(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Commit()
}

func (h *Host) cmdObjdump(c cmd.Selection) error {
	if len(c.Args) != 1 {
		h.displayUsage(c)
		return nil
	}

	o, err := loadObject(c.Args[0])
	if err != nil {
		return errors.Wrapf(err, "Error reading object file %s", c.Args[0])
	}

	h.printf("Object \"%s\": %d bytes, %d symbols\n", o.Name, o.CodeSize(), len(o.Symbols))

	p := pp.New()
	p.SetOutput(h.output)
	p.SetColoringEnabled(h.tty)
	p.Println(o)
	h.flush()
	return nil
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayUsage(c)

	default:
		name, err := h.settings.Set(c.Args[0], strings.Join(c.Args[1:], " "))
		if err != nil {
			return err
		}
		h.printf("Setting %s updated.\n", name)
	}
	return nil
}

func (h *Host) cmdExecute(c cmd.Selection) error {
	if len(c.Args) != 1 {
		h.displayUsage(c)
		return nil
	}

	f, err := os.Open(c.Args[0])
	if err != nil {
		return errors.Errorf("Cannot open \"%s\"", c.Args[0])
	}
	defer f.Close()

	input, interactive := h.input, h.interactive
	h.interactive = false
	err = h.processCommands(f)
	h.input, h.interactive = input, interactive
	return err
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands()
		return nil
	}

	s, err := cmds.Lookup(strings.Join(c.Args, " "))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	sc := s.Command.Data.(*command)
	h.printf("Syntax: %s\n\n", sc.usage)
	switch {
	case sc.description != "":
		h.printf("Description:\n%s\n\n", indentWrap(3, sc.description))
	case sc.brief != "":
		h.printf("Description:\n%s.\n\n", indentWrap(3, sc.brief))
	}
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) displayUsage(c cmd.Selection) {
	h.printf("Syntax: %s\n", c.Command.Data.(*command).usage)
}

func (h *Host) displayCommands() {
	h.println("lxp32 commands:")
	for _, c := range commands {
		if c.brief != "" {
			h.printf("    %-15s  %s\n", c.name, c.brief)
		}
	}
}
