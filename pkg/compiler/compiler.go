// Package compiler implements the single-pass compiler spec.md §4.2
// requires: scanning and codegen interleaved behind a Pratt expression
// parser, with no separate AST stage. Structurally this merges two teacher
// shapes: nilan's legacy direct-emit compiler.go (the ParseFunc/precedence
// table, itself superseded there by an AST path — this student keeps the
// pattern nilan dropped) and smog's pkg/parser curTok/peekTok-and-advance
// idiom plus its accumulate-errors-and-keep-going recovery style.
package compiler

import (
	"fmt"
	"io"
	"strconv"

	"github.com/kristofer/loxgo/internal/debug"
	"github.com/kristofer/loxgo/pkg/chunk"
	"github.com/kristofer/loxgo/pkg/lexer"
	"github.com/kristofer/loxgo/pkg/options"
	"github.com/kristofer/loxgo/pkg/table"
	"github.com/kristofer/loxgo/pkg/value"
)

const maxLocals = 256
const maxUpvalues = 256
const maxArity = 255

// FuncType distinguishes the handful of ways a compiled function body comes
// into being, each with slightly different rules for slot 0 and `return`.
type FuncType int

const (
	FuncTypeScript FuncType = iota
	FuncTypeFunction
	FuncTypeMethod
	FuncTypeInitializer
)

type local struct {
	name       lexer.Token
	depth      int
	isCaptured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

// loopCtx tracks enough about the innermost enclosing loop for `continue`
// to know where to jump and how many block-scoped locals to unwind.
type loopCtx struct {
	continueTarget int
	scopeDepth     int
	enclosing      *loopCtx
}

// funcState is one call frame's worth of compile-time bookkeeping: the
// function being built, its local/upvalue tables, and the loop stack
// active while compiling its body. A new one is pushed per nested
// function/method and popped when its body finishes compiling.
type funcState struct {
	enclosing *funcState
	function  *value.ObjFunction
	chunk     *chunk.Chunk
	funcType  FuncType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
	loop       *loopCtx
}

// classState tracks the innermost enclosing class declaration, so `this`
// and `super` can be validated and `super`'s hidden local resolved.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler turns source text into a top-level *value.ObjFunction ready for
// the VM to wrap in a closure and call. One Compiler compiles one source
// unit; nested functions and methods are separate funcState frames within
// the same Compiler.
type Compiler struct {
	lex     *lexer.Lexer
	current lexer.Token
	prev    lexer.Token

	hadError  bool
	panicMode bool
	errOut    io.Writer

	alloc   value.Allocator
	strings *table.Strings
	opts    options.Debug

	fs          *funcState
	cs          *classState
	seenGlobals map[string]bool
}

// New returns a Compiler ready to compile source. alloc and strings are the
// same allocator/interning pool the VM uses, since constants the compiler
// builds (interned strings, nested function objects) live on the same heap
// the VM later runs against.
func New(source string, alloc value.Allocator, strings *table.Strings, errOut io.Writer, opts options.Debug) *Compiler {
	return &Compiler{
		lex:         lexer.New(source),
		errOut:      errOut,
		alloc:       alloc,
		strings:     strings,
		opts:        opts,
		seenGlobals: make(map[string]bool),
	}
}

// Compile runs the whole compile and returns the top-level script function
// plus whether compilation succeeded. A false return means diagnostics were
// already written to errOut; the caller should exit with the compile-error
// status (spec.md §6: exit code 65).
func (c *Compiler) Compile() (*value.ObjFunction, bool) {
	c.fs = &funcState{funcType: FuncTypeScript, chunk: chunk.New()}
	c.fs.function = value.NewFunction(c.alloc)
	c.fs.function.Chunk = c.fs.chunk
	c.fs.locals = append(c.fs.locals, local{depth: 0})

	c.advance()
	for !c.match(lexer.TokenEOF) {
		c.declaration()
	}
	fn := c.endFunction()
	return fn, !c.hadError
}

// ---- token stream helpers ------------------------------------------------

func (c *Compiler) advance() {
	c.prev = c.current
	for {
		c.current = c.lex.NextToken()
		if c.current.Type != lexer.TokenError {
			break
		}
		c.errorAtCurrent(c.current.Message)
	}
}

func (c *Compiler) check(t lexer.TokenType) bool { return c.current.Type == t }

func (c *Compiler) match(t lexer.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t lexer.TokenType, msg string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) errorMsg(msg string)       { c.errorAt(c.prev, msg) }

func (c *Compiler) errorAt(tok lexer.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	fmt.Fprintf(c.errOut, "[line %d] Error", tok.Line)
	switch tok.Type {
	case lexer.TokenEOF:
		fmt.Fprint(c.errOut, " at end")
	case lexer.TokenError:
		// message is self-contained
	default:
		fmt.Fprintf(c.errOut, " at '%s'", tok.Lexeme)
	}
	fmt.Fprintf(c.errOut, ": %s\n", msg)
}

// synchronize discards tokens until a likely statement boundary, the same
// panic-mode recovery clox's compiler.c uses, so one syntax error reports
// once instead of cascading into dozens of spurious follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != lexer.TokenEOF {
		if c.prev.Type == lexer.TokenSemicolon {
			return
		}
		switch c.current.Type {
		case lexer.TokenClass, lexer.TokenFun, lexer.TokenVar, lexer.TokenFor,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenPrint, lexer.TokenReturn:
			return
		}
		c.advance()
	}
}

// ---- bytecode emission ---------------------------------------------------

func (c *Compiler) line() int { return c.prev.Line }

func (c *Compiler) emitByte(b byte) { c.fs.chunk.Write(b, c.line()) }

func (c *Compiler) emitOp(op chunk.OpCode) { c.fs.chunk.WriteOp(op, c.line()) }

func (c *Compiler) emitBytes(op chunk.OpCode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(chunk.OpLoop)
	offset := len(c.fs.chunk.Code) - loopStart + 2
	if offset > 0xffff {
		c.errorMsg("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset & 0xff))
}

// emitJump emits a jump opcode with a two-byte placeholder offset and
// returns the offset of the first placeholder byte, for patchJump to fill
// in once the jump target is known.
func (c *Compiler) emitJump(op chunk.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.fs.chunk.Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.fs.chunk.Code) - offset - 2
	if jump > 0xffff {
		c.errorMsg("Too much code to jump over.")
	}
	c.fs.chunk.Code[offset] = byte(jump >> 8)
	c.fs.chunk.Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.fs.chunk.AddConstant(v)
	if idx > 255 {
		c.errorMsg("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) { c.emitBytes(chunk.OpConstant, c.makeConstant(v)) }

func (c *Compiler) emitReturn() {
	if c.fs.funcType == FuncTypeInitializer {
		c.emitBytes(chunk.OpGetLocal, 0)
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.emitOp(chunk.OpReturn)
}

// endFunction closes out the current funcState: emits the implicit final
// return, optionally dumps the chunk's disassembly (--dump), and pops back
// to the enclosing frame (nil at the top level).
func (c *Compiler) endFunction() *value.ObjFunction {
	c.emitReturn()
	fn := c.fs.function
	if c.opts.DumpChunks {
		name := "<script>"
		if fn.Name != nil {
			name = fn.Name.Chars
		}
		debug.DisassembleChunk(c.errOut, c.fs.chunk, name)
	}
	c.fs = c.fs.enclosing
	return fn
}

// ---- scopes, locals, upvalues --------------------------------------------

func (c *Compiler) beginScope() { c.fs.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fs.scopeDepth--
	locals := c.fs.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > c.fs.scopeDepth {
		if locals[len(locals)-1].isCaptured {
			c.emitOp(chunk.OpCloseUpvalue)
		} else {
			c.emitOp(chunk.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	c.fs.locals = locals
}

func identifiersEqual(a, b lexer.Token) bool { return a.Lexeme == b.Lexeme }

func (c *Compiler) addLocal(name lexer.Token) {
	if len(c.fs.locals) >= maxLocals {
		c.errorMsg("Too many local variables in function.")
		return
	}
	c.fs.locals = append(c.fs.locals, local{name: name, depth: -1})
}

func (c *Compiler) declareVariable(name lexer.Token) {
	if c.fs.scopeDepth == 0 {
		return
	}
	for i := len(c.fs.locals) - 1; i >= 0; i-- {
		l := c.fs.locals[i]
		if l.depth != -1 && l.depth < c.fs.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			c.errorMsg("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	if c.fs.scopeDepth == 0 {
		return
	}
	c.fs.locals[len(c.fs.locals)-1].depth = c.fs.scopeDepth
}

func (c *Compiler) identifierConstant(name lexer.Token) byte {
	str := c.strings.Intern(c.alloc, name.Lexeme)
	return c.makeConstant(value.FromObj(str))
}

func resolveLocal(fs *funcState, name lexer.Token) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if identifiersEqual(name, fs.locals[i].name) {
			if fs.locals[i].depth == -1 {
				return -2 // sentinel: "own initializer" error, checked by caller
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) resolveLocal(fs *funcState, name lexer.Token) int {
	idx := resolveLocal(fs, name)
	if idx == -2 {
		c.errorMsg("Can't read local variable in its own initializer.")
		return -1
	}
	return idx
}

func (c *Compiler) addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) >= maxUpvalues {
		c.errorMsg("Too many closure variables in function.")
		return 0
	}
	fs.upvalues = append(fs.upvalues, upvalueRef{index: index, isLocal: isLocal})
	fs.function.UpvalueCount = len(fs.upvalues)
	return len(fs.upvalues) - 1
}

func (c *Compiler) resolveUpvalue(fs *funcState, name lexer.Token) int {
	if fs.enclosing == nil {
		return -1
	}
	if local := c.resolveLocal(fs.enclosing, name); local != -1 {
		fs.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(fs, byte(local), true)
	}
	if up := c.resolveUpvalue(fs.enclosing, name); up != -1 {
		return c.addUpvalue(fs, byte(up), false)
	}
	return -1
}

func syntheticToken(text string) lexer.Token {
	return lexer.Token{Type: lexer.TokenIdentifier, Lexeme: text}
}

// namedVariable emits the get (or, in an assignment position, set)
// instruction for an identifier, choosing local/upvalue/global addressing
// and the plain-vs-interning-cache opcode variant.
func (c *Compiler) namedVariable(name lexer.Token, canAssign bool) {
	var getOp, getOpI, setOp, setOpI chunk.OpCode
	isGlobal := false
	arg := c.resolveLocal(c.fs, name)
	if arg != -1 {
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
	} else if arg = c.resolveUpvalue(c.fs, name); arg != -1 {
		getOp, setOp = chunk.OpGetUpvalue, chunk.OpSetUpvalue
	} else {
		arg = int(c.identifierConstant(name))
		getOp, getOpI = chunk.OpGetGlobal, chunk.OpGetGlobalI
		setOp, setOpI = chunk.OpSetGlobal, chunk.OpSetGlobalI
		isGlobal = true
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.expression()
		op := setOp
		if isGlobal && c.seenGlobals[name.Lexeme] {
			op = setOpI
		}
		c.emitBytes(op, byte(arg))
	} else {
		op := getOp
		if isGlobal && c.seenGlobals[name.Lexeme] {
			op = getOpI
		}
		c.emitBytes(op, byte(arg))
	}
	if isGlobal {
		c.seenGlobals[name.Lexeme] = true
	}
}

// ---- declarations ---------------------------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.match(lexer.TokenClass):
		c.classDeclaration()
	case c.match(lexer.TokenFun):
		c.funDeclaration()
	case c.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) parseVariable(msg string) byte {
	c.consume(lexer.TokenIdentifier, msg)
	name := c.prev
	c.declareVariable(name)
	if c.fs.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global byte) {
	if c.fs.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(chunk.OpDefineGlobal, global)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(lexer.TokenEqual) {
		c.expression()
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.consume(lexer.TokenSemicolon, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.compileFunction(FuncTypeFunction, c.prev.Lexeme)
	c.defineVariable(global)
}

// compileFunction compiles one function/method body into its own funcState
// and, back in the enclosing frame, emits the OP_CLOSURE instruction (plus
// one isLocal/index byte pair per captured upvalue) that turns the compiled
// template into a runtime closure.
func (c *Compiler) compileFunction(ftype FuncType, name string) {
	enclosing := c.fs
	fs := &funcState{enclosing: enclosing, funcType: ftype, chunk: chunk.New()}
	fs.function = value.NewFunction(c.alloc)
	fs.function.Chunk = fs.chunk
	fs.function.Name = c.strings.Intern(c.alloc, name)
	recv := ""
	if ftype == FuncTypeMethod || ftype == FuncTypeInitializer {
		recv = "this"
	}
	fs.locals = append(fs.locals, local{name: syntheticToken(recv), depth: 0})
	c.fs = fs
	c.beginScope()

	c.consume(lexer.TokenLeftParen, "Expect '(' after function name.")
	if !c.check(lexer.TokenRightParen) {
		for {
			fs.function.Arity++
			if fs.function.Arity > maxArity {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			param := c.parseVariable("Expect parameter name.")
			c.defineVariable(param)
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightParen, "Expect ')' after parameters.")
	c.consume(lexer.TokenLeftBrace, "Expect '{' before function body.")
	c.block()

	fn := c.endFunction()
	upvalues := fs.upvalues
	constIdx := c.makeConstant(value.FromObj(fn))
	c.emitBytes(chunk.OpClosure, constIdx)
	for _, uv := range upvalues {
		isLocal := byte(0)
		if uv.isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal)
		c.emitByte(uv.index)
	}
}

func (c *Compiler) classDeclaration() {
	c.consume(lexer.TokenIdentifier, "Expect class name.")
	nameTok := c.prev
	nameConst := c.identifierConstant(nameTok)
	c.declareVariable(nameTok)
	c.emitBytes(chunk.OpClass, nameConst)
	c.defineVariable(nameConst)

	cs := &classState{enclosing: c.cs}
	c.cs = cs

	if c.match(lexer.TokenLess) {
		c.consume(lexer.TokenIdentifier, "Expect superclass name.")
		superTok := c.prev
		if identifiersEqual(nameTok, superTok) {
			c.errorMsg("A class can't inherit from itself.")
		}
		c.namedVariable(superTok, false)
		c.beginScope()
		c.addLocal(syntheticToken("super"))
		c.defineVariable(0)
		c.namedVariable(nameTok, false)
		c.emitOp(chunk.OpInherit)
		cs.hasSuperclass = true
	}

	c.namedVariable(nameTok, false)
	c.consume(lexer.TokenLeftBrace, "Expect '{' before class body.")
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.method()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after class body.")
	c.emitOp(chunk.OpPop)

	if cs.hasSuperclass {
		c.endScope()
	}
	c.cs = cs.enclosing
}

func (c *Compiler) method() {
	c.consume(lexer.TokenIdentifier, "Expect method name.")
	nameTok := c.prev
	constant := c.identifierConstant(nameTok)
	ftype := FuncTypeMethod
	if nameTok.Lexeme == "init" {
		ftype = FuncTypeInitializer
	}
	c.compileFunction(ftype, nameTok.Lexeme)
	c.emitBytes(chunk.OpMethod, constant)
}

// ---- statements ------------------------------------------------------------

func (c *Compiler) statement() {
	switch {
	case c.match(lexer.TokenPrint):
		c.printStatement()
	case c.match(lexer.TokenIf):
		c.ifStatement()
	case c.match(lexer.TokenReturn):
		c.returnStatement()
	case c.match(lexer.TokenWhile):
		c.whileStatement()
	case c.match(lexer.TokenFor):
		c.forStatement()
	case c.match(lexer.TokenSwitch):
		c.switchStatement()
	case c.match(lexer.TokenContinue):
		c.continueStatement()
	case c.match(lexer.TokenLeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		c.declaration()
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after value.")
	c.emitOp(chunk.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after expression.")
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(chunk.OpPopJumpIfFalse)
	c.statement()
	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	if c.match(lexer.TokenElse) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.fs.chunk.Code)
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(chunk.OpPopJumpIfFalse)
	loop := &loopCtx{continueTarget: loopStart, scopeDepth: c.fs.scopeDepth, enclosing: c.fs.loop}
	c.fs.loop = loop
	c.statement()
	c.fs.loop = loop.enclosing
	c.emitLoop(loopStart)
	c.patchJump(exitJump)
}

// forStatement desugars `for (init; cond; incr) body` into the
// while-plus-extra-jumps shape clox's compiler.c builds, recorded in
// spec.md §4.2 as the emitted-bytecode pattern readers should expect from
// `--dump` output.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'for'.")
	switch {
	case c.match(lexer.TokenSemicolon):
		// no initializer
	case c.match(lexer.TokenVar):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopScopeDepth := c.fs.scopeDepth
	loopStart := len(c.fs.chunk.Code)
	exitJump := -1
	if !c.match(lexer.TokenSemicolon) {
		c.expression()
		c.consume(lexer.TokenSemicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(chunk.OpPopJumpIfFalse)
	}

	if !c.match(lexer.TokenRightParen) {
		bodyJump := c.emitJump(chunk.OpJump)
		incrStart := len(c.fs.chunk.Code)
		c.expression()
		c.emitOp(chunk.OpPop)
		c.consume(lexer.TokenRightParen, "Expect ')' after for clauses.")
		c.emitLoop(loopStart)
		loopStart = incrStart
		c.patchJump(bodyJump)
	}

	loop := &loopCtx{continueTarget: loopStart, scopeDepth: loopScopeDepth, enclosing: c.fs.loop}
	c.fs.loop = loop
	c.statement()
	c.fs.loop = loop.enclosing
	c.emitLoop(loopStart)
	if exitJump != -1 {
		c.patchJump(exitJump)
	}
	c.endScope()
}

func (c *Compiler) continueStatement() {
	if c.fs.loop == nil {
		c.errorMsg("Can't use 'continue' outside of a loop.")
	}
	c.consume(lexer.TokenSemicolon, "Expect ';' after 'continue'.")
	if c.fs.loop == nil {
		return
	}
	loop := c.fs.loop
	for i := len(c.fs.locals) - 1; i >= 0 && c.fs.locals[i].depth > loop.scopeDepth; i-- {
		if c.fs.locals[i].isCaptured {
			c.emitOp(chunk.OpCloseUpvalue)
		} else {
			c.emitOp(chunk.OpPop)
		}
	}
	c.emitLoop(loop.continueTarget)
}

func (c *Compiler) returnStatement() {
	if c.fs.funcType == FuncTypeScript {
		c.errorMsg("Can't return from top-level code.")
	}
	if c.match(lexer.TokenSemicolon) {
		c.emitReturn()
		return
	}
	if c.fs.funcType == FuncTypeInitializer {
		c.errorMsg("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(lexer.TokenSemicolon, "Expect ';' after return value.")
	c.emitOp(chunk.OpReturn)
}

// switchStatement compiles `switch (expr) { case v: stmts... default:
// stmts... }`. The switch value is evaluated once and kept in a hidden
// block-scoped local (rather than duplicated on the stack with a DUP
// instruction, which the opcode set spec.md §4.2 defines has no room for)
// so each case's OP_EQUAL/OP_PJMP_IF_FALSE pair can re-read it. Case bodies
// fall through by default: there is no implicit jump to the end of the
// switch after a matched body, only the per-case skip-if-not-equal jump.
func (c *Compiler) switchStatement() {
	c.consume(lexer.TokenLeftParen, "Expect '(' after 'switch'.")
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after switch value.")

	c.beginScope()
	c.addLocal(syntheticToken("switch value"))
	c.markInitialized()
	switchSlot := byte(len(c.fs.locals) - 1)

	c.consume(lexer.TokenLeftBrace, "Expect '{' before switch body.")
	sawDefault := false
	for !c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
		if c.match(lexer.TokenDefault) {
			sawDefault = true
			c.consume(lexer.TokenColon, "Expect ':' after 'default'.")
			for !c.check(lexer.TokenCase) && !c.check(lexer.TokenDefault) &&
				!c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
				c.statement()
			}
			continue
		}
		c.consume(lexer.TokenCase, "Expect 'case' or 'default'.")
		if sawDefault {
			c.errorMsg("Can't have a case after the default case.")
		}
		c.expression()
		c.emitBytes(chunk.OpGetLocal, switchSlot)
		c.emitOp(chunk.OpEqual)
		nextArm := c.emitJump(chunk.OpPopJumpIfFalse)
		c.consume(lexer.TokenColon, "Expect ':' after case value.")
		for !c.check(lexer.TokenCase) && !c.check(lexer.TokenDefault) &&
			!c.check(lexer.TokenRightBrace) && !c.check(lexer.TokenEOF) {
			c.statement()
		}
		c.patchJump(nextArm)
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after switch body.")
	c.endScope()
}

// ---- expressions -----------------------------------------------------------

func (c *Compiler) expression() { c.parsePrecedence(PrecAssignment) }

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.prev.Type).prefix
	if prefix == nil {
		c.errorMsg("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.prev.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.errorMsg("Invalid assignment target.")
	}
}

func (c *Compiler) number(canAssign bool) {
	n, err := strconv.ParseFloat(c.prev.Lexeme, 64)
	if err != nil {
		c.errorMsg("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(n))
}

func (c *Compiler) string(canAssign bool) {
	raw := c.prev.Lexeme
	literal := raw[1 : len(raw)-1]
	str := c.strings.Intern(c.alloc, literal)
	c.emitConstant(value.FromObj(str))
}

func (c *Compiler) literal(canAssign bool) {
	switch c.prev.Type {
	case lexer.TokenFalse:
		c.emitOp(chunk.OpFalse)
	case lexer.TokenTrue:
		c.emitOp(chunk.OpTrue)
	case lexer.TokenNil:
		c.emitOp(chunk.OpNil)
	}
}

func (c *Compiler) grouping(canAssign bool) {
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(canAssign bool) {
	opType := c.prev.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case lexer.TokenMinus:
		c.emitOp(chunk.OpNegate)
	case lexer.TokenBang:
		c.emitOp(chunk.OpNot)
	}
}

// foldConstantRHS implements the OP_ADD_C/OP_SUBTRACT_C/OP_LESS_C peephole
// described in spec.md's Open Question resolution (see DESIGN.md): when the
// right-hand operand just compiled down to a single bare OP_CONSTANT, fuse
// it into the binary op's own instruction instead of emitting two
// instructions back to back. rhsStart is the code offset at which the
// right-hand operand began.
func (c *Compiler) foldConstantRHS(plain, folded chunk.OpCode, rhsStart int) {
	code := c.fs.chunk.Code
	n := len(code)
	if n == rhsStart+2 && chunk.OpCode(code[rhsStart]) == chunk.OpConstant {
		idx := code[n-1]
		c.fs.chunk.Code = code[:n-2]
		c.emitBytes(folded, idx)
		return
	}
	c.emitOp(plain)
}

func (c *Compiler) binary(canAssign bool) {
	opType := c.prev.Type
	rule := getRule(opType)
	rhsStart := len(c.fs.chunk.Code)
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case lexer.TokenPlus:
		c.foldConstantRHS(chunk.OpAdd, chunk.OpAddC, rhsStart)
	case lexer.TokenMinus:
		c.foldConstantRHS(chunk.OpSubtract, chunk.OpSubtractC, rhsStart)
	case lexer.TokenStar:
		c.emitOp(chunk.OpMultiply)
	case lexer.TokenSlash:
		c.emitOp(chunk.OpDivide)
	case lexer.TokenPercent:
		c.emitOp(chunk.OpModulo)
	case lexer.TokenBangEqual:
		c.emitOp(chunk.OpEqual)
		c.emitOp(chunk.OpNot)
	case lexer.TokenEqualEqual:
		c.emitOp(chunk.OpEqual)
	case lexer.TokenGreater:
		c.emitOp(chunk.OpGreater)
	case lexer.TokenGreaterEqual:
		c.emitOp(chunk.OpLess)
		c.emitOp(chunk.OpNot)
	case lexer.TokenLess:
		c.foldConstantRHS(chunk.OpLess, chunk.OpLessC, rhsStart)
	case lexer.TokenLessEqual:
		c.emitOp(chunk.OpGreater)
		c.emitOp(chunk.OpNot)
	}
}

// ternary compiles `cond ? then : else`, right-associative so a nested
// ternary on the else side (`a ? b : c ? d : e`) parses as `a ? b : (c ? d
// : e)`.
func (c *Compiler) ternary(canAssign bool) {
	thenJump := c.emitJump(chunk.OpPopJumpIfFalse)
	c.parsePrecedence(PrecAssignment)
	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.consume(lexer.TokenColon, "Expect ':' in ternary expression.")
	c.parsePrecedence(PrecTernary)
	c.patchJump(elseJump)
}

func (c *Compiler) and(canAssign bool) {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or(canAssign bool) {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)
	c.patchJump(elseJump)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) variable(canAssign bool) { c.namedVariable(c.prev, canAssign) }

func (c *Compiler) this(canAssign bool) {
	if c.cs == nil {
		c.errorMsg("Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable(syntheticToken("this"), false)
}

func (c *Compiler) super(canAssign bool) {
	if c.cs == nil {
		c.errorMsg("Can't use 'super' outside of a class.")
	} else if !c.cs.hasSuperclass {
		c.errorMsg("Can't use 'super' in a class with no superclass.")
	}
	c.consume(lexer.TokenDot, "Expect '.' after 'super'.")
	c.consume(lexer.TokenIdentifier, "Expect superclass method name.")
	name := c.identifierConstant(c.prev)

	c.namedVariable(syntheticToken("this"), false)
	if c.match(lexer.TokenLeftParen) {
		argCount := c.argumentList()
		c.namedVariable(syntheticToken("super"), false)
		c.emitBytes(chunk.OpSuperInvoke, name)
		c.emitByte(argCount)
	} else {
		c.namedVariable(syntheticToken("super"), false)
		c.emitBytes(chunk.OpGetSuper, name)
	}
}

func (c *Compiler) argumentList() byte {
	count := 0
	if !c.check(lexer.TokenRightParen) {
		for {
			c.expression()
			count++
			if count > maxArity {
				c.errorMsg("Can't have more than 255 arguments.")
			}
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightParen, "Expect ')' after arguments.")
	return byte(count)
}

func (c *Compiler) call(canAssign bool) {
	argCount := c.argumentList()
	c.emitBytes(chunk.OpCall, argCount)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(lexer.TokenIdentifier, "Expect property name after '.'.")
	name := c.identifierConstant(c.prev)

	switch {
	case canAssign && c.match(lexer.TokenEqual):
		c.expression()
		c.emitBytes(chunk.OpSetProperty, name)
	case c.match(lexer.TokenLeftParen):
		argCount := c.argumentList()
		c.emitBytes(chunk.OpInvoke, name)
		c.emitByte(argCount)
	default:
		c.emitBytes(chunk.OpGetProperty, name)
	}
}

func (c *Compiler) index(canAssign bool) {
	c.expression()
	c.consume(lexer.TokenRightBracket, "Expect ']' after index.")
	if canAssign && c.match(lexer.TokenEqual) {
		c.expression()
		c.emitOp(chunk.OpSetIndex)
	} else {
		c.emitOp(chunk.OpGetIndex)
	}
}

// list compiles a list literal `[a, b, c]`. Its syntax is an Open Question
// resolution (spec.md names list/map values but not literal syntax); see
// DESIGN.md.
func (c *Compiler) list(canAssign bool) {
	count := 0
	if !c.check(lexer.TokenRightBracket) {
		for {
			c.expression()
			count++
			if count > maxArity {
				c.errorMsg("Can't have more than 255 elements in a list literal.")
			}
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightBracket, "Expect ']' after list elements.")
	c.emitOp(chunk.OpListInit)
	if count > 0 {
		c.emitBytes(chunk.OpListData, byte(count))
	}
}

// mapLiteral compiles a map literal `{k: v, ...}`.
func (c *Compiler) mapLiteral(canAssign bool) {
	count := 0
	if !c.check(lexer.TokenRightBrace) {
		for {
			c.expression()
			c.consume(lexer.TokenColon, "Expect ':' after map key.")
			c.expression()
			count++
			if count > maxArity {
				c.errorMsg("Can't have more than 255 entries in a map literal.")
			}
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightBrace, "Expect '}' after map entries.")
	c.emitOp(chunk.OpMapInit)
	if count > 0 {
		c.emitBytes(chunk.OpMapData, byte(count))
	}
}
