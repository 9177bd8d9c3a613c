package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"crowbc/compiler"
	"crowbc/debug"
	"crowbc/scanner"
	"crowbc/token"
	"crowbc/vm"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"
)

type replCmd struct {
	diassemble bool
}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "Start an interactive Crow session" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive read-eval-print loop.
`
}

func (cmd *replCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.diassemble, "diassemble", false, "print disassembled bytecode before running each entry")
	f.BoolVar(&cmd.diassemble, "di", false, "shorthand for -diassemble")
}

func (cmd *replCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New("> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 %v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	machine := vm.New()
	var buffer strings.Builder

	for {
		if buffer.Len() == 0 {
			rl.SetPrompt("> ")
		} else {
			rl.SetPrompt("... ")
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buffer.Reset()
			continue
		}
		if err == io.EOF {
			return subcommands.ExitSuccess
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 %v\n", err)
			return subcommands.ExitFailure
		}

		if strings.TrimSpace(line) == "exit" && buffer.Len() == 0 {
			return subcommands.ExitSuccess
		}

		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
		source := buffer.String()

		if !isInputReady(source) {
			continue
		}

		c, errs := compiler.Compile(source, machine)
		if errs != nil {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e.Error())
			}
			buffer.Reset()
			continue
		}

		if cmd.diassemble {
			fmt.Print(debug.DisassembleChunk(c, "repl"))
		}

		if err := machine.Run(c); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		buffer.Reset()
	}
}

// isInputReady reports whether source looks like a complete statement: its
// braces balance and it does not end on a token that plainly expects more
// to follow. This lets the REPL accept a multi-line block (an `if` whose
// body spans several Enter presses) without trying to compile it early and
// reporting a spurious "Expect ... after ..." error.
func isInputReady(source string) bool {
	sc := scanner.New(source)

	braceBalance := 0
	var last token.Token
	for {
		tok := sc.ScanToken()
		if tok.Type == token.EOF {
			break
		}
		if tok.Type == token.LBRACE {
			braceBalance++
		}
		if tok.Type == token.RBRACE {
			braceBalance--
		}
		last = tok
	}

	if braceBalance > 0 {
		return false
	}

	switch last.Type {
	case token.EQUAL, token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.BANG, token.EQUAL_EQUAL, token.BANG_EQUAL,
		token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL,
		token.LESS_LESS, token.GREATER_GREATER, token.CARET, token.PIPE, token.AMP,
		token.COMMA, token.LPAREN, token.LBRACE,
		token.IF, token.ELSE, token.WHILE, token.FOR, token.FUN, token.RETURN,
		token.VAR, token.AND, token.OR, token.PRINT:
		return false
	}

	return true
}
