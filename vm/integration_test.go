package vm

import (
	"bytes"
	"testing"

	"crowbc/compiler"
	"crowbc/object"
)

// run compiles source end-to-end and executes it, returning everything
// OpPrint wrote and the VM that ran it (so callers can inspect interned
// strings, globals, etc. afterward).
func run(t *testing.T, source string) (string, *VM, error) {
	t.Helper()
	machine := New()
	var out bytes.Buffer
	machine.Stdout = &out

	c, errs := compiler.Compile(source, machine)
	if errs != nil {
		t.Fatalf("unexpected compile errors for %q: %v", source, errs)
	}

	err := machine.Run(c)
	return out.String(), machine, err
}

func internedStrings(machine *VM) map[string]bool {
	seen := map[string]bool{}
	machine.strings.ForEach(func(key *object.Object, _ interface{}) {
		seen[key.Chars] = true
	})
	return seen
}

func TestEndToEndArithmeticPrecedence(t *testing.T) {
	out, _, err := run(t, "print 1 + 2 * 3;")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "7\n" {
		t.Errorf("stdout = %q, want %q", out, "7\n")
	}
}

// TestEndToEndStringConcatenationInternsOperandsToo documents a case where
// the literal wording of "the intern set must contain exactly three
// strings" cannot hold for any correct implementation: identifierConstant
// interns every variable name too (clox's identifierConstant/copyString do
// the same), since vm.globals is looked up by interned-string identity and
// every OpGetGlobal/OpDefineGlobal reference to the same name must resolve
// to the same *object.Object. Compiling
// `var a = "hi"; var b = " there"; print a + b;` therefore interns five
// strings -- "hi", " there", "hi there", "a", and "b" -- not three. See
// DESIGN.md's Open Question reconciliation.
func TestEndToEndStringConcatenationInternsOperandsToo(t *testing.T) {
	out, machine, err := run(t, `var a = "hi"; var b = " there"; print a + b;`)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "hi there\n" {
		t.Errorf("stdout = %q, want %q", out, "hi there\n")
	}

	got := internedStrings(machine)
	want := map[string]bool{"hi": true, " there": true, "hi there": true, "a": true, "b": true}
	if len(got) != len(want) {
		t.Fatalf("intern set has %d strings, want %d: %v", len(got), len(want), got)
	}
	for s := range want {
		if !got[s] {
			t.Errorf("intern set missing %q: %v", s, got)
		}
	}
}

func TestEndToEndWhileLoop(t *testing.T) {
	out, _, err := run(t, "var i = 0; while (i < 3) { print i; i = i + 1; }")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "0\n1\n2\n" {
		t.Errorf("stdout = %q, want %q", out, "0\n1\n2\n")
	}
}

func TestEndToEndForLoop(t *testing.T) {
	out, _, err := run(t, "for (var i = 0; i < 3; i = i + 1) print i;")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "0\n1\n2\n" {
		t.Errorf("stdout = %q, want %q", out, "0\n1\n2\n")
	}
}

func TestEndToEndAddTypeMismatchIsRuntimeError(t *testing.T) {
	_, _, err := run(t, `print 1 + "x";`)
	if err == nil {
		t.Fatal("expected a runtime error adding a number and a string")
	}
	rerr, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("error = %T, want RuntimeError", err)
	}
	if !containsAny(rerr.Message, "number", "string") {
		t.Errorf("error message %q should mention numbers or strings", rerr.Message)
	}
}

func TestEndToEndUndefinedVariableIsRuntimeError(t *testing.T) {
	_, _, err := run(t, "print x;")
	if err == nil {
		t.Fatal("expected a runtime error reading an undeclared variable")
	}
	rerr, ok := err.(RuntimeError)
	if !ok {
		t.Fatalf("error = %T, want RuntimeError", err)
	}
	if rerr.Message != "Undefined variable 'x'." {
		t.Errorf("error message = %q, want %q", rerr.Message, "Undefined variable 'x'.")
	}
}

func TestEndToEndNestedScopeShadowing(t *testing.T) {
	out, _, err := run(t, "{ var a = 1; { var a = 2; print a; } print a; }")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "2\n1\n" {
		t.Errorf("stdout = %q, want %q", out, "2\n1\n")
	}
}

func TestEndToEndBitwiseAndShiftTogether(t *testing.T) {
	out, _, err := run(t, "print (1 << 3) | 1;")
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	if out != "9\n" {
		t.Errorf("stdout = %q, want %q", out, "9\n")
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if stringsContains(s, sub) {
			return true
		}
	}
	return false
}

func stringsContains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
