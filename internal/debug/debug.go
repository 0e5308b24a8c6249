// Package debug implements the bytecode disassembler and execution tracer
// spec.md §6 exposes via --dump and --trace. It is grounded in smog's
// cmd/smog/main.go disassembleFile/formatConstant helpers and the reference
// C implementation's debug.c, generalized from smog's Instruction{Op,
// Operand} one-operand-per-instruction shape to this VM's variable-width
// operand encoding (0-3 raw operand bytes depending on opcode, 2-byte jump
// offsets, OP_CLOSURE's trailing upvalue descriptor bytes).
package debug

import (
	"fmt"
	"io"

	"github.com/kristofer/loxgo/pkg/chunk"
	"github.com/kristofer/loxgo/pkg/value"
)

// DisassembleChunk prints every instruction in c, labeled with name (the
// function's name, or "<script>" at the top level).
func DisassembleChunk(w io.Writer, c *chunk.Chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = DisassembleInstruction(w, c, offset)
	}
}

// DisassembleInstruction prints the instruction at offset and returns the
// offset of the next instruction.
func DisassembleInstruction(w io.Writer, c *chunk.Chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	line := c.GetLine(offset)
	if offset > 0 && line == c.GetLine(offset-1) {
		fmt.Fprint(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", line)
	}

	op := chunk.OpCode(c.Code[offset])
	switch op {
	case chunk.OpConstant, chunk.OpAddC, chunk.OpSubtractC, chunk.OpLessC:
		return constantInstruction(w, op, c, offset)
	case chunk.OpGetLocal, chunk.OpSetLocal, chunk.OpGetUpvalue, chunk.OpSetUpvalue:
		return byteInstruction(w, op, c, offset)
	case chunk.OpGetGlobal, chunk.OpSetGlobal, chunk.OpGetGlobalI, chunk.OpSetGlobalI,
		chunk.OpDefineGlobal, chunk.OpGetProperty, chunk.OpSetProperty,
		chunk.OpGetSuper, chunk.OpClass, chunk.OpMethod:
		return constantInstruction(w, op, c, offset)
	case chunk.OpJump, chunk.OpJumpIfFalse, chunk.OpPopJumpIfFalse:
		return jumpInstruction(w, op, 1, c, offset)
	case chunk.OpLoop:
		return jumpInstruction(w, op, -1, c, offset)
	case chunk.OpCall, chunk.OpListData, chunk.OpMapData:
		return byteInstruction(w, op, c, offset)
	case chunk.OpInvoke, chunk.OpSuperInvoke:
		return invokeInstruction(w, op, c, offset)
	case chunk.OpClosure:
		return closureInstruction(w, c, offset)
	default:
		fmt.Fprintln(w, op)
		return offset + 1
	}
}

func constantInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	idx := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", op, idx, formatConstant(c.Constants[idx]))
	return offset + 2
}

func byteInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	slot := c.Code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", op, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, op chunk.OpCode, sign int, c *chunk.Chunk, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}

func invokeInstruction(w io.Writer, op chunk.OpCode, c *chunk.Chunk, offset int) int {
	idx := c.Code[offset+1]
	argCount := c.Code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", op, argCount, idx, formatConstant(c.Constants[idx]))
	return offset + 3
}

func closureInstruction(w io.Writer, c *chunk.Chunk, offset int) int {
	offset++
	idx := c.Code[offset]
	offset++
	fmt.Fprintf(w, "%-16s %4d '%s'\n", chunk.OpClosure, idx, formatConstant(c.Constants[idx]))

	if fn, ok := c.Constants[idx].AsObj().(*value.ObjFunction); ok {
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := c.Code[offset]
			index := c.Code[offset+1]
			offset += 2
			kind := "upvalue"
			if isLocal != 0 {
				kind = "local"
			}
			fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-2, kind, index)
		}
	}
	return offset
}

func formatConstant(v value.Value) string { return v.String() }
