// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/beevik/lxp32/host"
	"github.com/beevik/term"
)

var scripts []string

func init() {
	flag.Func("x", "execute commands from a script `file` (repeatable)", func(s string) error {
		scripts = append(scripts, s)
		return nil
	})
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: lxp32 [options] [command [arguments]]")
		fmt.Println("Commands: asm, dump, objdump, help. Without a command, commands")
		fmt.Println("are read from the standard input.\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	h := host.New()

	// Run a single command given on the command line.
	if args := flag.Args(); len(args) > 0 {
		if err := h.Execute(os.Stdout, args); err != nil {
			exitOnError(err)
		}
		return
	}

	// Run commands contained in script files.
	if len(scripts) > 0 {
		for _, filename := range scripts {
			file, err := os.Open(filename)
			if err != nil {
				exitOnError(err)
			}
			h.RunCommands(file, os.Stdout, false)
			file.Close()
		}
		if h.Failed() {
			os.Exit(1)
		}
		return
	}

	// Run commands from the standard input.
	h.RunCommands(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
	if h.Failed() {
		os.Exit(1)
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
