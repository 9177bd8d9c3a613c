package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"crowbc/compiler"
	"crowbc/debug"
	"crowbc/vm"

	"github.com/google/subcommands"
)

type disasmCmd struct {
	out string
}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "Compile a file and print its disassembled bytecode" }
func (*disasmCmd) Usage() string {
	return `disasm <file>:
  Compile a Crow source file and print its bytecode, without running it.
`
}

func (cmd *disasmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.out, "out", "", "write the disassembly to this file instead of stdout")
}

func (cmd *disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "💥 Too many arguments: disasm takes a single file\n")
		return subcommands.ExitUsageError
	}

	source, status := readSourceFile(args[0])
	if status != subcommands.ExitSuccess {
		return status
	}

	machine := vm.New()
	c, errs := compiler.Compile(source, machine)
	if errs != nil {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return exitCompileError
	}

	rendered := debug.DisassembleChunk(c, args[0])
	if cmd.out == "" {
		fmt.Print(rendered)
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(cmd.out, []byte(rendered), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to write disassembly:\n\t%v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
