// Package debug implements Crow's bytecode disassembler: human-readable
// text dumps of a chunk.Chunk's instruction stream, used by the CLI's
// disasm subcommand and the repl's -diassemble flag.
package debug

import (
	"fmt"
	"strings"

	"crowbc/chunk"
)

// DisassembleChunk renders every instruction in c, one line per
// instruction, prefixed with name as a header.
func DisassembleChunk(c *chunk.Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)

	offset := 0
	for offset < len(c.Code) {
		line, next := DisassembleInstruction(c, offset)
		b.WriteString(line)
		b.WriteByte('\n')
		offset = next
	}
	return b.String()
}

// DisassembleInstruction renders the single instruction at offset and
// returns the offset of the instruction that follows it.
func DisassembleInstruction(c *chunk.Chunk, offset int) (string, int) {
	var b strings.Builder
	fmt.Fprintf(&b, "%04d ", offset)

	line := c.GetLine(offset)
	if offset > 0 && line == c.GetLine(offset-1) {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(&b, "%4d ", line)
	}

	op := chunk.OpCode(c.Code[offset])
	switch op {
	case chunk.OpConstant:
		return constantInstruction(&b, "OP_CONSTANT", c, offset)
	case chunk.OpConstantLong:
		return constantLongInstruction(&b, "OP_CONSTANT_LONG", c, offset)
	case chunk.OpNil:
		return simpleInstruction(&b, "OP_NIL", offset)
	case chunk.OpTrue:
		return simpleInstruction(&b, "OP_TRUE", offset)
	case chunk.OpFalse:
		return simpleInstruction(&b, "OP_FALSE", offset)
	case chunk.OpPop:
		return simpleInstruction(&b, "OP_POP", offset)
	case chunk.OpGetLocal:
		return byteInstruction(&b, "OP_GET_LOCAL", c, offset)
	case chunk.OpSetLocal:
		return byteInstruction(&b, "OP_SET_LOCAL", c, offset)
	case chunk.OpGetGlobal:
		return constantInstruction(&b, "OP_GET_GLOBAL", c, offset)
	case chunk.OpDefineGlobal:
		return constantInstruction(&b, "OP_DEFINE_GLOBAL", c, offset)
	case chunk.OpSetGlobal:
		return constantInstruction(&b, "OP_SET_GLOBAL", c, offset)
	case chunk.OpEqual:
		return simpleInstruction(&b, "OP_EQUAL", offset)
	case chunk.OpGreater:
		return simpleInstruction(&b, "OP_GREATER", offset)
	case chunk.OpLess:
		return simpleInstruction(&b, "OP_LESS", offset)
	case chunk.OpAdd:
		return simpleInstruction(&b, "OP_ADD", offset)
	case chunk.OpSubtract:
		return simpleInstruction(&b, "OP_SUBTRACT", offset)
	case chunk.OpMultiply:
		return simpleInstruction(&b, "OP_MULTIPLY", offset)
	case chunk.OpDivide:
		return simpleInstruction(&b, "OP_DIVIDE", offset)
	case chunk.OpModulo:
		return simpleInstruction(&b, "OP_MODULO", offset)
	case chunk.OpShiftLeft:
		return simpleInstruction(&b, "OP_SHIFT_LEFT", offset)
	case chunk.OpShiftRight:
		return simpleInstruction(&b, "OP_SHIFT_RIGHT", offset)
	case chunk.OpBitOr:
		return simpleInstruction(&b, "OP_BIT_OR", offset)
	case chunk.OpBitXor:
		return simpleInstruction(&b, "OP_BIT_XOR", offset)
	case chunk.OpBitAnd:
		return simpleInstruction(&b, "OP_BIT_AND", offset)
	case chunk.OpNot:
		return simpleInstruction(&b, "OP_NOT", offset)
	case chunk.OpNegate:
		return simpleInstruction(&b, "OP_NEGATE", offset)
	case chunk.OpBitNot:
		return simpleInstruction(&b, "OP_BIT_NOT", offset)
	case chunk.OpPrint:
		return simpleInstruction(&b, "OP_PRINT", offset)
	case chunk.OpJump:
		return jumpInstruction(&b, "OP_JUMP", 1, c, offset)
	case chunk.OpJumpIfFalse:
		return jumpInstruction(&b, "OP_JUMP_IF_FALSE", 1, c, offset)
	case chunk.OpLoop:
		return jumpInstruction(&b, "OP_LOOP", -1, c, offset)
	case chunk.OpReturn:
		return simpleInstruction(&b, "OP_RETURN", offset)
	default:
		fmt.Fprintf(&b, "Unknown opcode %d", op)
		return b.String(), offset + 1
	}
}

func simpleInstruction(b *strings.Builder, name string, offset int) (string, int) {
	b.WriteString(name)
	return b.String(), offset + 1
}

func byteInstruction(b *strings.Builder, name string, c *chunk.Chunk, offset int) (string, int) {
	slot := c.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d", name, slot)
	return b.String(), offset + 2
}

func constantInstruction(b *strings.Builder, name string, c *chunk.Chunk, offset int) (string, int) {
	index := c.Code[offset+1]
	fmt.Fprintf(b, "%-16s %4d '%s'", name, index, c.Constants[index].String())
	return b.String(), offset + 2
}

func constantLongInstruction(b *strings.Builder, name string, c *chunk.Chunk, offset int) (string, int) {
	index := int(c.Code[offset+1]) | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])<<16
	fmt.Fprintf(b, "%-16s %4d '%s'", name, index, c.Constants[index].String())
	return b.String(), offset + 4
}

func jumpInstruction(b *strings.Builder, name string, sign int, c *chunk.Chunk, offset int) (string, int) {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	target := offset + 3 + sign*jump
	fmt.Fprintf(b, "%-16s %4d -> %d", name, offset, target)
	return b.String(), offset + 3
}
