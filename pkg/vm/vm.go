// Package vm implements the stack-based bytecode interpreter: a fixed
// value stack, a parallel call-frame stack, and a fetch-dispatch loop over
// every opcode pkg/chunk defines.
//
// There is no teacher file this adapts line-for-line (smog's pkg/vm runs a
// tree-walking Smalltalk interpreter over ast.Node, not bytecode), so the
// dispatch loop's shape is grounded in the reference C implementation
// (original_source/src/vm.c) while its Go surface — callFrame as a plain
// struct slice rather than a C array of structs, an error-compatible
// RuntimeError, an explicit options.Debug instead of global booleans —
// follows the idiom the rest of this module already established in
// pkg/compiler and pkg/gc.
package vm

import (
	"fmt"
	"io"
	"math"

	"github.com/kristofer/loxgo/pkg/chunk"
	"github.com/kristofer/loxgo/pkg/compiler"
	"github.com/kristofer/loxgo/pkg/gc"
	"github.com/kristofer/loxgo/pkg/options"
	"github.com/kristofer/loxgo/pkg/table"
	"github.com/kristofer/loxgo/pkg/value"

	"github.com/kristofer/loxgo/internal/debug"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// InterpretResult reports how a run ended, the three outcomes spec.md §6
// maps to the CLI's exit codes (0/65/70).
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// callFrame is one active function invocation: the closure being run, the
// instruction pointer into its chunk, and the base stack slot its locals
// (including the callee itself, or `this` for a method) start at.
type callFrame struct {
	closure   *value.ObjClosure
	ip        int
	slotsBase int
}

// openUpvalue pairs a captured-but-still-open upvalue with the stack slot
// it reads through, so closeUpvalues can find every upvalue at or above a
// given slot without comparing raw pointers (Go forbids ordering
// comparisons between pointers, unlike the reference implementation's
// address arithmetic).
type openUpvalue struct {
	slot int
	uv   *value.ObjUpvalue
}

// VM owns the heap (via gc), the globals table, the string-interning pool,
// and the stacks the dispatch loop runs against.
type VM struct {
	stack [stackMax]value.Value
	sp    int

	frames     [framesMax]callFrame
	frameCount int

	open []openUpvalue // open upvalues, kept sorted by slot descending

	globals *table.Table
	strings *table.Strings
	gc      *gc.Collector

	initString *value.ObjString

	opts   options.Debug
	stdout io.Writer
	stderr io.Writer
}

// New builds a VM with its own heap and globals, ready for Interpret.
func New(opts options.Debug, stdout, stderr io.Writer) *VM {
	vm := &VM{
		globals: table.New(),
		strings: table.NewStrings(),
		opts:    opts,
		stdout:  stdout,
		stderr:  stderr,
	}
	vm.gc = gc.New(opts.StressGC, opts.LogGC)
	vm.gc.SetStrings(vm.strings)
	vm.gc.SetLogOutput(vm.stderr)
	vm.gc.MarkRoots = vm.markRoots
	vm.initString = vm.strings.Intern(vm.gc, "init")
	vm.defineNatives()
	return vm
}

// Interpret compiles and runs source, returning which of the three outcomes
// spec.md §6 distinguishes.
func (vm *VM) Interpret(source string) InterpretResult {
	comp := compiler.New(source, vm.gc, vm.strings, vm.stderr, vm.opts)
	fn, ok := comp.Compile()
	if !ok {
		return InterpretCompileError
	}

	closure := value.NewClosure(vm.gc, fn)
	vm.push(value.FromObj(closure))
	vm.gc.MaybeCollect()
	vm.call(closure, 0)

	return vm.run()
}

// ---- stack helpers -----------------------------------------------------

func (vm *VM) push(v value.Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.open = nil
}

// ---- upvalues ------------------------------------------------------------

// captureUpvalue returns the open upvalue for the given absolute stack
// slot, reusing one already open over that slot if one exists.
func (vm *VM) captureUpvalue(slot int) *value.ObjUpvalue {
	i := 0
	for i < len(vm.open) && vm.open[i].slot > slot {
		i++
	}
	if i < len(vm.open) && vm.open[i].slot == slot {
		return vm.open[i].uv
	}

	created := value.NewUpvalue(vm.gc, &vm.stack[slot])
	vm.open = append(vm.open, openUpvalue{})
	copy(vm.open[i+1:], vm.open[i:])
	vm.open[i] = openUpvalue{slot: slot, uv: created}
	return created
}

// closeUpvalues closes every open upvalue at or above the given absolute
// stack slot, copying the slot's current value into the upvalue so it
// survives the slot being reused by the next call frame.
func (vm *VM) closeUpvalues(fromSlot int) {
	i := 0
	for i < len(vm.open) && vm.open[i].slot >= fromSlot {
		entry := vm.open[i]
		entry.uv.Closed = entry.uv.Get()
		entry.uv.Location = nil
		i++
	}
	vm.open = vm.open[i:]
}

// ---- calling ---------------------------------------------------------

func (vm *VM) callValue(callee value.Value, argCount int) bool {
	if callee.IsObj() {
		switch obj := callee.AsObj().(type) {
		case *value.ObjClosure:
			return vm.call(obj, argCount)
		case *value.ObjNative:
			return vm.callNative(obj, argCount)
		case *value.ObjClass:
			return vm.callClass(obj, argCount)
		case *value.ObjBoundMethod:
			vm.stack[vm.sp-argCount-1] = obj.Receiver
			return vm.call(obj.Method, argCount)
		}
	}
	vm.runtimeError("Can only call functions and classes.")
	return false
}

func (vm *VM) callNative(native *value.ObjNative, argCount int) bool {
	if argCount != native.Arity {
		vm.runtimeError("Expected %d arguments but got %d.", native.Arity, argCount)
		return false
	}
	args := vm.stack[vm.sp-argCount : vm.sp]
	result, ok := native.Fn(args)
	if !ok {
		vm.runtimeError("%s", result.String())
		return false
	}
	vm.sp -= argCount + 1
	vm.push(result)
	return true
}

func (vm *VM) callClass(class *value.ObjClass, argCount int) bool {
	instance := value.NewInstance(vm.gc, class)
	vm.stack[vm.sp-argCount-1] = value.FromObj(instance)
	vm.gc.MaybeCollect()

	if init, ok := class.Methods[vm.initString.Chars]; ok {
		return vm.call(init, argCount)
	}
	if argCount != 0 {
		vm.runtimeError("Expected 0 arguments but got %d.", argCount)
		return false
	}
	return true
}

func (vm *VM) call(closure *value.ObjClosure, argCount int) bool {
	if argCount != closure.Function.Arity {
		vm.runtimeError("Expected %d arguments but got %d.", closure.Function.Arity, argCount)
		return false
	}
	if vm.frameCount == framesMax {
		vm.runtimeError("Stack overflow.")
		return false
	}
	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.slotsBase = vm.sp - argCount - 1
	return true
}

func (vm *VM) bindMethod(class *value.ObjClass, name string) bool {
	method, ok := class.Methods[name]
	if !ok {
		vm.runtimeError("Undefined property '%s'.", name)
		return false
	}
	bound := value.NewBoundMethod(vm.gc, vm.peek(0), method)
	vm.pop()
	vm.push(value.FromObj(bound))
	vm.gc.MaybeCollect()
	return true
}

func (vm *VM) invoke(name string, argCount int) bool {
	receiver := vm.peek(argCount)
	if !receiver.IsObjKind(value.ObjKindInstance) {
		vm.runtimeError("Only instances have methods.")
		return false
	}
	instance := receiver.AsObj().(*value.ObjInstance)
	if field, ok := instance.Fields[name]; ok {
		vm.stack[vm.sp-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(instance.Class, name, argCount)
}

func (vm *VM) invokeFromClass(class *value.ObjClass, name string, argCount int) bool {
	method, ok := class.Methods[name]
	if !ok {
		vm.runtimeError("Undefined property '%s'.", name)
		return false
	}
	return vm.call(method, argCount)
}

// ---- errors ------------------------------------------------------------

func (vm *VM) runtimeError(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	trace := make([]StackFrame, vm.frameCount)
	for i := 0; i < vm.frameCount; i++ {
		frame := vm.frames[i]
		name := ""
		if frame.closure.Function.Name != nil {
			name = frame.closure.Function.Name.Chars
		}
		line := frame.closure.Function.Chunk.(*chunk.Chunk).GetLine(frame.ip - 1)
		trace[i] = StackFrame{FuncName: name, Line: line}
	}

	fmt.Fprintln(vm.stderr, newRuntimeError(message, trace).Error())
	vm.resetStack()
}

// ---- GC roots ----------------------------------------------------------

func (vm *VM) markRoots(mark func(value.Value)) {
	for i := 0; i < vm.sp; i++ {
		mark(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(value.FromObj(vm.frames[i].closure))
	}
	for _, entry := range vm.open {
		mark(value.FromObj(entry.uv))
	}
	for _, k := range vm.globals.Keys() {
		mark(value.FromObj(k))
	}
	for _, v := range vm.globals.Values() {
		mark(v)
	}
	if vm.initString != nil {
		mark(value.FromObj(vm.initString))
	}
}

// ---- dispatch loop -------------------------------------------------------

func (vm *VM) run() InterpretResult {
	frame := &vm.frames[vm.frameCount-1]
	code := frame.closure.Function.Chunk.(*chunk.Chunk)

	readByte := func() byte {
		b := code.Code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		hi := code.Code[frame.ip]
		lo := code.Code[frame.ip+1]
		frame.ip += 2
		return int(hi)<<8 | int(lo)
	}
	readConstant := func() value.Value {
		return code.Constants[readByte()]
	}
	readString := func() string {
		return readConstant().AsString()
	}

	for {
		if vm.opts.TraceExecution {
			vm.traceStack()
			debug.DisassembleInstruction(vm.stderr, code, frame.ip)
		}

		op := chunk.OpCode(readByte())
		switch op {
		case chunk.OpConstant:
			vm.push(readConstant())

		case chunk.OpNil:
			vm.push(value.Nil)
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))

		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := int(readByte())
			vm.push(vm.stack[frame.slotsBase+slot])
		case chunk.OpSetLocal:
			slot := int(readByte())
			vm.stack[frame.slotsBase+slot] = vm.peek(0)

		case chunk.OpGetUpvalue:
			idx := readByte()
			vm.push(frame.closure.Upvalues[idx].Get())
		case chunk.OpSetUpvalue:
			idx := readByte()
			frame.closure.Upvalues[idx].Set(vm.peek(0))

		case chunk.OpGetGlobal:
			name := readConstant().AsObj().(*value.ObjString)
			v, ok := vm.globals.Get(name)
			if !ok {
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError
			}
			vm.push(v)

		case chunk.OpGetGlobalI:
			opStart := frame.ip - 1
			name := readConstant().AsObj().(*value.ObjString)
			if slot := code.CachedGlobalSlot(opStart); slot >= 0 {
				if v, ok := vm.globals.FastGet(slot, name); ok {
					vm.push(v)
					break
				}
			}
			v, ok := vm.globals.Get(name)
			if !ok {
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError
			}
			if slot, ok := vm.globals.SlotOf(name); ok {
				code.SetCachedGlobalSlot(opStart, slot)
			}
			vm.push(v)

		case chunk.OpSetGlobal:
			name := readConstant().AsObj().(*value.ObjString)
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError
			}

		case chunk.OpSetGlobalI:
			opStart := frame.ip - 1
			name := readConstant().AsObj().(*value.ObjString)
			if slot := code.CachedGlobalSlot(opStart); slot >= 0 {
				if vm.globals.FastSet(slot, name, vm.peek(0)) {
					break
				}
			}
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				vm.runtimeError("Undefined variable '%s'.", name.Chars)
				return InterpretRuntimeError
			}
			if slot, ok := vm.globals.SlotOf(name); ok {
				code.SetCachedGlobalSlot(opStart, slot)
			}

		case chunk.OpDefineGlobal:
			name := readConstant().AsObj().(*value.ObjString)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()

		case chunk.OpGetProperty:
			if !vm.peek(0).IsObjKind(value.ObjKindInstance) {
				vm.runtimeError("Only instances have properties.")
				return InterpretRuntimeError
			}
			instance := vm.peek(0).AsObj().(*value.ObjInstance)
			name := readString()
			if field, ok := instance.Fields[name]; ok {
				vm.pop()
				vm.push(field)
				break
			}
			if !vm.bindMethod(instance.Class, name) {
				return InterpretRuntimeError
			}

		case chunk.OpSetProperty:
			if !vm.peek(1).IsObjKind(value.ObjKindInstance) {
				vm.runtimeError("Only instances have fields.")
				return InterpretRuntimeError
			}
			instance := vm.peek(1).AsObj().(*value.ObjInstance)
			name := readString()
			instance.Fields[name] = vm.peek(0)
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case chunk.OpGetSuper:
			name := readString()
			superclass := vm.pop().AsObj().(*value.ObjClass)
			if !vm.bindMethod(superclass, name) {
				return InterpretRuntimeError
			}

		case chunk.OpGetIndex:
			if !vm.execGetIndex() {
				return InterpretRuntimeError
			}
		case chunk.OpSetIndex:
			if !vm.execSetIndex() {
				return InterpretRuntimeError
			}

		case chunk.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case chunk.OpGreater:
			if !vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a > b) }) {
				return InterpretRuntimeError
			}
		case chunk.OpLess:
			if !vm.binaryNumberOp(func(a, b float64) value.Value { return value.Bool(a < b) }) {
				return InterpretRuntimeError
			}
		case chunk.OpLessC:
			rhs := readConstant().AsNumber()
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operands must be numbers.")
				return InterpretRuntimeError
			}
			vm.push(value.Bool(vm.pop().AsNumber() < rhs))

		case chunk.OpAdd:
			if !vm.execAdd() {
				return InterpretRuntimeError
			}
		case chunk.OpAddC:
			if !vm.execAddConstant(readConstant()) {
				return InterpretRuntimeError
			}
		case chunk.OpSubtract:
			if !vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a - b) }) {
				return InterpretRuntimeError
			}
		case chunk.OpSubtractC:
			rhs := readConstant().AsNumber()
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operands must be numbers.")
				return InterpretRuntimeError
			}
			vm.push(value.Number(vm.pop().AsNumber() - rhs))
		case chunk.OpMultiply:
			if !vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a * b) }) {
				return InterpretRuntimeError
			}
		case chunk.OpDivide:
			if !vm.binaryNumberOp(func(a, b float64) value.Value { return value.Number(a / b) }) {
				return InterpretRuntimeError
			}
		case chunk.OpModulo:
			// math.Mod, not a truncating int64 round-trip: zero and
			// fractional operands must flow through IEEE semantics the same
			// way OpDivide's `/` does (5 % 0 is NaN, not a crash; 5.5 % 2 is
			// 1.5, not 1), since this VM's only numeric type is float64.
			if !vm.binaryNumberOp(func(a, b float64) value.Value {
				return value.Number(math.Mod(a, b))
			}) {
				return InterpretRuntimeError
			}

		case chunk.OpNot:
			vm.push(value.Bool(!vm.pop().Truthy()))
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				vm.runtimeError("Operand must be a number.")
				return InterpretRuntimeError
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case chunk.OpJump:
			offset := readShort()
			frame.ip += offset
		case chunk.OpJumpIfFalse:
			offset := readShort()
			if !vm.peek(0).Truthy() {
				frame.ip += offset
			}
		case chunk.OpPopJumpIfFalse:
			offset := readShort()
			if !vm.pop().Truthy() {
				frame.ip += offset
			}
		case chunk.OpLoop:
			offset := readShort()
			frame.ip -= offset

		case chunk.OpCall:
			argCount := int(readByte())
			if !vm.callValue(vm.peek(argCount), argCount) {
				return InterpretRuntimeError
			}
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Function.Chunk.(*chunk.Chunk)

		case chunk.OpInvoke:
			name := readString()
			argCount := int(readByte())
			if !vm.invoke(name, argCount) {
				return InterpretRuntimeError
			}
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Function.Chunk.(*chunk.Chunk)

		case chunk.OpSuperInvoke:
			name := readString()
			argCount := int(readByte())
			superclass := vm.pop().AsObj().(*value.ObjClass)
			if !vm.invokeFromClass(superclass, name, argCount) {
				return InterpretRuntimeError
			}
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Function.Chunk.(*chunk.Chunk)

		case chunk.OpClosure:
			fn := readConstant().AsObj().(*value.ObjFunction)
			closure := value.NewClosure(vm.gc, fn)
			for i := range closure.Upvalues {
				isLocal := readByte()
				index := int(readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slotsBase + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}
			vm.push(value.FromObj(closure))
			vm.gc.MaybeCollect()

		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return InterpretOK
			}
			vm.sp = frame.slotsBase
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]
			code = frame.closure.Function.Chunk.(*chunk.Chunk)

		case chunk.OpClass:
			name := readConstant().AsObj().(*value.ObjString)
			vm.push(value.FromObj(value.NewClass(vm.gc, name)))
			vm.gc.MaybeCollect()

		case chunk.OpInherit:
			subclassVal := vm.pop()
			superclassVal := vm.peek(0)
			if !superclassVal.IsObjKind(value.ObjKindClass) {
				vm.runtimeError("Superclass must be a class.")
				return InterpretRuntimeError
			}
			subclass := subclassVal.AsObj().(*value.ObjClass)
			superclass := superclassVal.AsObj().(*value.ObjClass)
			for k, m := range superclass.Methods {
				subclass.Methods[k] = m
			}

		case chunk.OpMethod:
			name := readConstant().AsObj().(*value.ObjString)
			closure := vm.pop().AsObj().(*value.ObjClosure)
			class := vm.peek(0).AsObj().(*value.ObjClass)
			class.Methods[name.Chars] = closure

		case chunk.OpListInit:
			vm.push(value.FromObj(value.NewList(vm.gc, nil)))
			vm.gc.MaybeCollect()
		case chunk.OpListData:
			count := int(readByte())
			list := vm.peek(0).AsObj().(*value.ObjList)
			base := vm.sp - 1 - count
			items := make([]value.Value, count)
			copy(items, vm.stack[base:base+count])
			list.Items = items
			copy(vm.stack[base:], vm.stack[vm.sp-1:vm.sp])
			vm.sp = base + 1

		case chunk.OpMapInit:
			vm.push(value.FromObj(value.NewMap(vm.gc)))
			vm.gc.MaybeCollect()
		case chunk.OpMapData:
			count := int(readByte())
			m := vm.peek(0).AsObj().(*value.ObjMap)
			base := vm.sp - 1 - 2*count
			for i := 0; i < count; i++ {
				m.Set(vm.stack[base+2*i], vm.stack[base+2*i+1])
			}
			copy(vm.stack[base:], vm.stack[vm.sp-1:vm.sp])
			vm.sp = base + 1

		default:
			vm.runtimeError("Unknown opcode %s.", op)
			return InterpretRuntimeError
		}
	}
}

// ---- arithmetic helpers --------------------------------------------------

func (vm *VM) binaryNumberOp(op func(a, b float64) value.Value) bool {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		vm.runtimeError("Operands must be numbers.")
		return false
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return true
}

func (vm *VM) execAdd() bool {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
	case a.IsString() && b.IsString():
		vm.pop()
		vm.pop()
		result := vm.strings.Intern(vm.gc, a.AsString()+b.AsString())
		vm.push(value.FromObj(result))
		vm.gc.MaybeCollect()
	default:
		vm.runtimeError("Operands must be two numbers or two strings.")
		return false
	}
	return true
}

// execAddConstant implements OP_ADD_C, the peephole fold of a trailing
// literal operand into ADD: `a + <constant>` where the constant's value is
// read straight out of the chunk instead of coming off the stack.
func (vm *VM) execAddConstant(rhs value.Value) bool {
	lhs := vm.peek(0)
	switch {
	case lhs.IsNumber() && rhs.IsNumber():
		vm.pop()
		vm.push(value.Number(lhs.AsNumber() + rhs.AsNumber()))
	case lhs.IsString() && rhs.IsString():
		vm.pop()
		result := vm.strings.Intern(vm.gc, lhs.AsString()+rhs.AsString())
		vm.push(value.FromObj(result))
		vm.gc.MaybeCollect()
	default:
		vm.runtimeError("Operands must be two numbers or two strings.")
		return false
	}
	return true
}

func (vm *VM) execGetIndex() bool {
	idx := vm.pop()
	container := vm.pop()
	if !container.IsObj() {
		vm.runtimeError("Only lists and maps support indexing.")
		return false
	}
	switch obj := container.AsObj().(type) {
	case *value.ObjList:
		i, ok := listIndex(idx, len(obj.Items))
		if !ok {
			vm.runtimeError("Index out of range.")
			return false
		}
		vm.push(obj.Items[i])
	case *value.ObjMap:
		v, ok := obj.Get(idx)
		if !ok {
			vm.runtimeError("Undefined key.")
			return false
		}
		vm.push(v)
	default:
		vm.runtimeError("Only lists and maps support indexing.")
		return false
	}
	return true
}

func (vm *VM) execSetIndex() bool {
	val := vm.pop()
	idx := vm.pop()
	container := vm.pop()
	if !container.IsObj() {
		vm.runtimeError("Only lists and maps support indexing.")
		return false
	}
	switch obj := container.AsObj().(type) {
	case *value.ObjList:
		i, ok := listIndex(idx, len(obj.Items))
		if !ok {
			vm.runtimeError("Index out of range.")
			return false
		}
		obj.Items[i] = val
	case *value.ObjMap:
		obj.Set(idx, val)
	default:
		vm.runtimeError("Only lists and maps support indexing.")
		return false
	}
	vm.push(val)
	return true
}

func listIndex(idx value.Value, length int) (int, bool) {
	if !idx.IsNumber() {
		return 0, false
	}
	n := idx.AsNumber()
	i := int(n)
	if float64(i) != n || i < 0 || i >= length {
		return 0, false
	}
	return i, true
}

// traceStack prints the live value stack before each instruction, the
// --trace output spec.md §6 describes.
func (vm *VM) traceStack() {
	fmt.Fprint(vm.stderr, "          ")
	for i := 0; i < vm.sp; i++ {
		fmt.Fprintf(vm.stderr, "[ %s ]", vm.stack[i].String())
	}
	fmt.Fprintln(vm.stderr)
}
