package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"crowbc/compiler"
	"crowbc/vm"

	"github.com/google/subcommands"
)

type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "Compile and execute a Crow source file" }
func (*runCmd) Usage() string {
	return `run <file>:
  Compile and run a Crow source file.
`
}
func (r *runCmd) SetFlags(f *flag.FlagSet) {}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "💥 Too many arguments: run takes a single file\n")
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

	if err := machine.Run(c); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return exitRuntimeError
	}
	return subcommands.ExitSuccess
}
