// Package vm implements Crow's bytecode interpreter: a fixed-size stack
// machine that fetches, decodes and executes one chunk.Chunk instruction at
// a time.
package vm

import (
	"fmt"
	"io"
	"os"

	"crowbc/chunk"
	"crowbc/object"
	"crowbc/table"
	"crowbc/value"
)

// VM is a single bytecode interpreter. It owns the object heap (every
// *object.Object allocated while running is linked into objects, and freed
// en masse when the VM is discarded -- there is no garbage collector), the
// global variable table, and the string intern set every string-creation
// path -- literals compiled by compiler.Compiler and runtime concatenation
// alike -- must go through.
type VM struct {
	chunk   *chunk.Chunk
	ip      int
	stack   stack
	globals table.Table
	strings table.Table
	objects *object.Object

	// Stdout is where OpPrint writes. Defaults to os.Stdout; tests swap it
	// out (e.g. for a bytes.Buffer) to capture output.
	Stdout io.Writer
}

// New returns a fresh VM with an empty stack, empty globals, and an empty
// string intern set.
func New() *VM {
	return &VM{Stdout: os.Stdout}
}

// InternString returns the canonical *object.Object for chars, allocating
// and linking a new one into the heap only if these bytes have never been
// seen before. It implements compiler.Interner, so the same interning path
// serves both compile-time string literals and runtime concatenation.
func (vm *VM) InternString(chars string) *object.Object {
	hash := object.HashBytes(chars)
	if existing := vm.strings.FindString(chars, hash); existing != nil {
		return existing
	}
	obj := object.NewString(chars, vm.objects)
	vm.objects = obj
	vm.strings.Set(obj, true)
	return obj
}

// Run executes c from its first instruction until OpReturn or a runtime
// error. The returned error, if any, is a RuntimeError naming the source
// line the failing instruction came from.
func (vm *VM) Run(c *chunk.Chunk) (err error) {
	vm.chunk = c
	vm.ip = 0
	vm.stack.reset()

	// A stack overflow is detected deep inside push, several call frames
	// below any opcode case that could sensibly return it as an error. It
	// panics with a RuntimeError instead; recovered here and turned back
	// into a normal return, rather than threading an error return through
	// every push call site.
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(RuntimeError); ok {
				err = rerr
				return
			}
			panic(r)
		}
	}()

	for {
		op := chunk.OpCode(vm.readByte())

		switch op {
		case chunk.OpConstant:
			vm.push(vm.chunk.Constants[vm.readByte()])

		case chunk.OpConstantLong:
			index := int(vm.readByte()) | int(vm.readByte())<<8 | int(vm.readByte())<<16
			vm.push(vm.chunk.Constants[index])

		case chunk.OpNil:
			vm.push(value.Nil)
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))

		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := int(vm.readByte())
			vm.push(vm.stack.get(slot))

		case chunk.OpSetLocal:
			slot := int(vm.readByte())
			v, _ := vm.peek(0)
			vm.stack.set(slot, v)

		case chunk.OpGetGlobal:
			name := vm.readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.push(v.(value.Value))

		case chunk.OpDefineGlobal:
			name := vm.readString()
			v, _ := vm.pop()
			vm.globals.Set(name, v)

		case chunk.OpSetGlobal:
			name := vm.readString()
			v, _ := vm.peek(0)
			if _, ok := vm.globals.Get(name); !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Chars)
			}
			vm.globals.Set(name, v)

		case chunk.OpEqual:
			b, _ := vm.pop()
			a, _ := vm.pop()
			vm.push(value.Bool(a.Equals(b)))

		case chunk.OpGreater:
			if err := vm.binaryCompare(func(a, b float64) bool { return a > b }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := vm.binaryCompare(func(a, b float64) bool { return a < b }); err != nil {
				return err
			}

		case chunk.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case chunk.OpSubtract:
			if err := vm.binaryArithmetic(func(a, b float64) float64 { return a - b }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := vm.binaryArithmetic(func(a, b float64) float64 { return a * b }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := vm.binaryArithmetic(func(a, b float64) float64 { return a / b }); err != nil {
				return err
			}
		case chunk.OpModulo:
			if err := vm.modulo(); err != nil {
				return err
			}

		case chunk.OpShiftLeft:
			if err := vm.binaryIntArithmetic(func(a, b int64) int64 { return a << uint(b) }); err != nil {
				return err
			}
		case chunk.OpShiftRight:
			if err := vm.binaryIntArithmetic(func(a, b int64) int64 { return a >> uint(b) }); err != nil {
				return err
			}
		case chunk.OpBitOr:
			if err := vm.binaryIntArithmetic(func(a, b int64) int64 { return a | b }); err != nil {
				return err
			}
		case chunk.OpBitXor:
			if err := vm.binaryIntArithmetic(func(a, b int64) int64 { return a ^ b }); err != nil {
				return err
			}
		case chunk.OpBitAnd:
			if err := vm.binaryIntArithmetic(func(a, b int64) int64 { return a & b }); err != nil {
				return err
			}

		case chunk.OpNot:
			v, _ := vm.pop()
			vm.push(value.Bool(v.Falsy()))

		case chunk.OpNegate:
			v, _ := vm.peek(0)
			if !v.IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.pop()
			vm.push(value.Number(-v.AsNumber()))

		case chunk.OpBitNot:
			v, _ := vm.peek(0)
			if !v.IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.pop()
			vm.push(value.Number(float64(^int64(v.AsNumber()))))

		case chunk.OpPrint:
			v, _ := vm.pop()
			fmt.Fprintln(vm.Stdout, v.String())

		case chunk.OpJump:
			offset := vm.readShort()
			vm.ip += offset

		case chunk.OpJumpIfFalse:
			offset := vm.readShort()
			v, _ := vm.peek(0)
			if v.Falsy() {
				vm.ip += offset
			}

		case chunk.OpLoop:
			offset := vm.readShort()
			vm.ip -= offset

		case chunk.OpReturn:
			return nil

		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readShort() int {
	hi := vm.readByte()
	lo := vm.readByte()
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readString() *object.Object {
	return vm.chunk.Constants[vm.readByte()].AsObject()
}

func (vm *VM) push(v value.Value) {
	if !vm.stack.push(v) {
		panic(vm.runtimeError("Stack overflow."))
	}
}

func (vm *VM) pop() (value.Value, bool) {
	return vm.stack.pop()
}

func (vm *VM) peek(distance int) (value.Value, bool) {
	return vm.stack.peek(distance)
}

func (vm *VM) runtimeError(format string, args ...interface{}) error {
	line := 0
	if vm.chunk != nil {
		line = vm.chunk.GetLine(vm.ip - 1)
	}
	return RuntimeError{Line: line, Message: fmt.Sprintf(format, args...)}
}

// add implements Crow's `+`: number+number, string+string, and any mix of
// string/char promote the char operand to a one-byte string before
// concatenating. Anything else is a type error.
func (vm *VM) add() error {
	b, _ := vm.peek(0)
	a, _ := vm.peek(1)

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
	case isStringOrChar(a) && isStringOrChar(b):
		vm.pop()
		vm.pop()
		concatenated := stringBytes(a) + stringBytes(b)
		vm.push(value.Obj(vm.InternString(concatenated)))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

func isStringOrChar(v value.Value) bool {
	return v.IsString() || v.IsChar()
}

func stringBytes(v value.Value) string {
	if v.IsChar() {
		return string(v.AsChar())
	}
	return v.AsString().Chars
}

func (vm *VM) binaryArithmetic(op func(a, b float64) float64) error {
	b, _ := vm.peek(0)
	a, _ := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	vm.push(value.Number(op(a.AsNumber(), b.AsNumber())))
	return nil
}

func (vm *VM) modulo() error {
	b, _ := vm.peek(0)
	a, _ := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	if b.AsNumber() == 0 {
		return vm.runtimeError("Division by zero.")
	}
	vm.pop()
	vm.pop()
	vm.push(value.Number(float64(int64(a.AsNumber()) % int64(b.AsNumber()))))
	return nil
}

func (vm *VM) binaryCompare(op func(a, b float64) bool) error {
	b, _ := vm.peek(0)
	a, _ := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	vm.push(value.Bool(op(a.AsNumber(), b.AsNumber())))
	return nil
}

// binaryIntArithmetic backs the bitwise and shift operators, which clox has
// no equivalent of: Crow's numbers are float64, so these opcodes truncate
// both operands to int64 for the duration of the operation.
func (vm *VM) binaryIntArithmetic(op func(a, b int64) int64) error {
	b, _ := vm.peek(0)
	a, _ := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	vm.push(value.Number(float64(op(int64(a.AsNumber()), int64(b.AsNumber())))))
	return nil
}
