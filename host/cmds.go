// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import "github.com/beevik/cmd"

// A command is a host command together with its help text.
type command struct {
	name        string
	brief       string
	description string
	usage       string
	run         func(*Host, cmd.Selection) error
}

var cmds *cmd.Tree

// commands lists every host command in help order.
var commands []*command

func init() {
	commands = []*command{
		{
			name:        "help",
			brief:       "Display help for a command",
			description: "Display help for a command.",
			usage:       "help [<command>]",
			run:         (*Host).cmdHelp,
		},
		{
			name:  "asm",
			brief: "Assemble and link source files",
			description: "Assemble each source file into a linkable object and" +
				" link the objects into an executable image. Input files that" +
				" are already linkable objects are loaded rather than assembled." +
				" With -c, each source file is compiled into a .lo object file" +
				" and nothing is linked. Options: -a <align> object alignment," +
				" -b <base> base address, -c compile only, -f <format> output" +
				" format (bin, textio, dec, hex), -i <dir> add an include" +
				" directory, -m <file> write a map file, -o <file> output file," +
				" -s <size> pad the image to this many bytes, -v verbose output.",
			usage: "asm [<options>] <file> ...",
			run:   (*Host).cmdAsm,
		},
		{
			name:  "dump",
			brief: "Disassemble an executable image",
			description: "Disassemble an image produced by the asm command." +
				" The input format is detected automatically unless -f is" +
				" given. Options: -b <base> base address of the first word," +
				" -f <format> input format (bin, textio, dec, hex), -na do not" +
				" use instruction and register aliases, -o <file> output file.",
			usage: "dump [<options>] <file>",
			run:   (*Host).cmdDump,
		},
		{
			name:        "objdump",
			brief:       "Display the contents of a linkable object",
			description: "Load a .lo linkable object file and display its structure.",
			usage:       "objdump <file>",
			run:         (*Host).cmdObjdump,
		},
		{
			name:  "set",
			brief: "Set a configuration variable",
			description: "Set the value of a configuration variable. Variables" +
				" provide the defaults used by the asm and dump commands. To see" +
				" the current values of all variables, type set without any" +
				" arguments.",
			usage: "set [<var> <value>]",
			run:   (*Host).cmdSet,
		},
		{
			name:        "execute",
			brief:       "Execute a command script",
			description: "Read host commands from a file and execute them one line at a time.",
			usage:       "execute <file>",
			run:         (*Host).cmdExecute,
		},
		{
			name:        "quit",
			brief:       "Quit the program",
			description: "Quit the program.",
			usage:       "quit",
			run:         (*Host).cmdQuit,
		},
	}

	root := cmd.NewTree(cmd.TreeDescriptor{Name: "lxp32", Brief: "LXP32 toolchain"})
	for _, c := range commands {
		root.AddCommand(cmd.CommandDescriptor{
			Name:        c.name,
			Brief:       c.brief,
			Description: c.description,
			Usage:       c.usage,
			Data:        c,
		})
	}

	root.AddShortcut("a", "asm")
	root.AddShortcut("d", "dump")
	root.AddShortcut("o", "objdump")
	root.AddShortcut("x", "execute")
	root.AddShortcut("q", "quit")
	root.AddShortcut("?", "help")

	cmds = root
}
