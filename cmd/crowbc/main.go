// Command crowbc is Crow's command-line entry point: subcommands to
// compile-and-run a source file, disassemble its bytecode, or drop into an
// interactive REPL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&disasmCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

// exit codes beyond subcommands' own ExitSuccess/ExitFailure/ExitUsageError,
// distinguishing why a run failed for scripting callers.
const (
	exitCompileError subcommands.ExitStatus = 65
	exitRuntimeError subcommands.ExitStatus = 70
	exitFileError    subcommands.ExitStatus = 74
)

func readSourceFile(path string) (string, subcommands.ExitStatus) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to read file:\n\t%v\n", err)
		return "", exitFileError
	}
	return string(data), subcommands.ExitSuccess
}
