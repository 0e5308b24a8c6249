// Package chunk implements the append-only bytecode buffer that backs every
// compiled function: the instruction stream itself, a run-length-encoded
// source-line table, and the function's constant pool.
//
// This mirrors smog's pkg/bytecode.Bytecode (instructions + constant pool)
// generalized to the spec's byte-oriented opcodes (rather than smog's
// struct-per-instruction Instruction{Op, Operand}) and to the
// run-length-encoded line table the reference C implementation (chunk.c)
// uses instead of one line number per instruction byte.
package chunk

import "github.com/kristofer/loxgo/pkg/value"

// OpCode is a single bytecode instruction tag. One instruction is one
// opcode byte optionally followed by operand bytes, matching spec.md's
// "Emitted bytecode" table in §4.2.
type OpCode byte

const (
	OpConstant OpCode = iota
	OpNil
	OpTrue
	OpFalse

	OpPop

	OpGetLocal
	OpSetLocal
	OpGetUpvalue
	OpSetUpvalue
	OpGetGlobal
	OpSetGlobal
	OpGetGlobalI // inline-cached variant: see Chunk.CachedGlobalSlot
	OpSetGlobalI
	OpDefineGlobal

	OpGetProperty
	OpSetProperty
	OpGetSuper
	OpGetIndex
	OpSetIndex

	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpAddC      // ADD with an inline constant-pool operand (peephole fold)
	OpSubtractC // SUBTRACT with an inline constant-pool operand
	OpLessC     // LESS with an inline constant-pool operand
	OpNot
	OpNegate

	OpPrint

	OpJump
	OpJumpIfFalse  // leaves the condition on the stack (used by and/or)
	OpPopJumpIfFalse
	OpLoop

	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpCloseUpvalue
	OpReturn

	OpClass
	OpInherit
	OpMethod

	OpListInit
	OpListData
	OpMapInit
	OpMapData
)

var names = [...]string{
	OpConstant:       "OP_CONSTANT",
	OpNil:            "OP_NIL",
	OpTrue:           "OP_TRUE",
	OpFalse:          "OP_FALSE",
	OpPop:            "OP_POP",
	OpGetLocal:       "OP_GET_LOCAL",
	OpSetLocal:       "OP_SET_LOCAL",
	OpGetUpvalue:     "OP_GET_UPVALUE",
	OpSetUpvalue:     "OP_SET_UPVALUE",
	OpGetGlobal:      "OP_GET_GLOBAL",
	OpSetGlobal:      "OP_SET_GLOBAL",
	OpGetGlobalI:     "OP_GET_GLOBAL_I",
	OpSetGlobalI:     "OP_SET_GLOBAL_I",
	OpDefineGlobal:   "OP_DEFINE_GLOBAL",
	OpGetProperty:    "OP_GET_PROPERTY",
	OpSetProperty:    "OP_SET_PROPERTY",
	OpGetSuper:       "OP_GET_SUPER",
	OpGetIndex:       "OP_GET_INDEX",
	OpSetIndex:       "OP_SET_INDEX",
	OpEqual:          "OP_EQUAL",
	OpGreater:        "OP_GREATER",
	OpLess:           "OP_LESS",
	OpAdd:            "OP_ADD",
	OpSubtract:       "OP_SUBTRACT",
	OpMultiply:       "OP_MULTIPLY",
	OpDivide:         "OP_DIVIDE",
	OpModulo:         "OP_MODULO",
	OpAddC:           "OP_ADD_C",
	OpSubtractC:      "OP_SUBTRACT_C",
	OpLessC:          "OP_LESS_C",
	OpNot:            "OP_NOT",
	OpNegate:         "OP_NEGATE",
	OpPrint:          "OP_PRINT",
	OpJump:           "OP_JUMP",
	OpJumpIfFalse:    "OP_JUMP_IF_FALSE",
	OpPopJumpIfFalse: "OP_PJMP_IF_FALSE",
	OpLoop:           "OP_LOOP",
	OpCall:           "OP_CALL",
	OpInvoke:         "OP_INVOKE",
	OpSuperInvoke:    "OP_SUPER_INVOKE",
	OpClosure:        "OP_CLOSURE",
	OpCloseUpvalue:   "OP_CLOSE_UPVALUE",
	OpReturn:         "OP_RETURN",
	OpClass:          "OP_CLASS",
	OpInherit:        "OP_INHERIT",
	OpMethod:         "OP_METHOD",
	OpListInit:       "OP_LIST_INIT",
	OpListData:       "OP_LIST_DATA",
	OpMapInit:        "OP_MAP_INIT",
	OpMapData:        "OP_MAP_DATA",
}

func (op OpCode) String() string {
	if int(op) < len(names) && names[op] != "" {
		return names[op]
	}
	return "OP_UNKNOWN"
}

// lineRun records that `Count` consecutive instruction bytes belong to
// source `Line`, the same run-length scheme chunk.c uses instead of
// storing one line number per code byte.
type lineRun struct {
	Line  int
	Count int
}

// Chunk is one function's compiled bytecode: code, constants and a
// compact line map. Growth is amortized the way smog's append-based
// Instructions slice grows, via Go's own slice doubling.
type Chunk struct {
	Code      []byte
	Constants []value.Value
	lines     []lineRun

	// globalSlot caches, per OP_GET_GLOBAL_I/OP_SET_GLOBAL_I call site (keyed
	// by the opcode byte's own offset in Code), the last table slot index
	// pkg/table.Table resolved that name to — the inline cache the _I
	// variants exist for. -1 (the zero-length-slice default) means "not yet
	// resolved"; the VM falls back to a hashed probe and repopulates it
	// either way, and pkg/table.Table.FastGet/FastSet independently guard
	// against a stale entry (e.g. after a table grow relocated everything).
	globalSlot []int
}

// New returns an empty Chunk.
func New() *Chunk {
	return &Chunk{}
}

// InstructionCount implements value.Chunk, letting *ObjFunction hold a
// *Chunk without value importing this package.
func (c *Chunk) InstructionCount() int { return len(c.Code) }

// ConstantValues implements value.Chunk, giving the collector a way to
// trace every constant (string and nested-function literals) a function's
// chunk embeds without value importing this package.
func (c *Chunk) ConstantValues() []value.Value { return c.Constants }

// Write appends a single bytecode byte, recording that it belongs to the
// given source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	if n := len(c.lines); n > 0 && c.lines[n-1].Line == line {
		c.lines[n-1].Count++
		return
	}
	c.lines = append(c.lines, lineRun{Line: line, Count: 1})
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool unconditionally (no
// deduplication — see compiler.makeConstant, which is where the
// 256-constant limit, indices 0 to 255, is enforced) and returns its index.
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// CachedGlobalSlot returns the table slot last resolved for the
// OP_GET_GLOBAL_I/OP_SET_GLOBAL_I instruction at opOffset (its opcode
// byte's own index in Code), or -1 if none has been cached yet.
func (c *Chunk) CachedGlobalSlot(opOffset int) int {
	if opOffset >= len(c.globalSlot) {
		return -1
	}
	return c.globalSlot[opOffset]
}

// SetCachedGlobalSlot records the table slot resolved for the instruction
// at opOffset, growing the cache (lazily, since most instructions never
// need a slot at all) on first use.
func (c *Chunk) SetCachedGlobalSlot(opOffset, slot int) {
	if opOffset >= len(c.globalSlot) {
		grown := make([]int, len(c.Code))
		for i := len(c.globalSlot); i < len(grown); i++ {
			grown[i] = -1
		}
		copy(grown, c.globalSlot)
		c.globalSlot = grown
	}
	c.globalSlot[opOffset] = slot
}

// GetLine walks the run-length line table to find the source line for a
// given code offset. It is monotonic non-decreasing in offset by
// construction, since runs are appended in code order.
func (c *Chunk) GetLine(offset int) int {
	remaining := offset
	for _, run := range c.lines {
		if remaining < run.Count {
			return run.Line
		}
		remaining -= run.Count
	}
	if len(c.lines) == 0 {
		return 0
	}
	return c.lines[len(c.lines)-1].Line
}
