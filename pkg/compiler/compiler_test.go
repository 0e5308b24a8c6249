package compiler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/loxgo/pkg/chunk"
	"github.com/kristofer/loxgo/pkg/gc"
	"github.com/kristofer/loxgo/pkg/options"
	"github.com/kristofer/loxgo/pkg/table"
	"github.com/kristofer/loxgo/pkg/value"
)

// compile is the shared test harness: a fresh allocator/interning pool per
// call, matching how vm.New wires a Compiler to its own heap.
func compile(t *testing.T, source string) (*chunk.Chunk, bool, string) {
	t.Helper()
	var errBuf bytes.Buffer
	alloc := gc.New(false, false)
	strings := table.NewStrings()
	c := New(source, alloc, strings, &errBuf, options.Debug{})
	fn, ok := c.Compile()
	return fn.Chunk.(*chunk.Chunk), ok, errBuf.String()
}

func lastOp(t *testing.T, code []byte, skipTrailingReturn bool) chunk.OpCode {
	t.Helper()
	require.NotEmpty(t, code)
	n := len(code)
	if skipTrailingReturn {
		// endFunction ends a script chunk with NIL + RETURN; callers that
		// want the statement's own last opcode skip those two bytes.
		n -= 2
	}
	require.Greater(t, n, 0)
	return chunk.OpCode(code[n-1])
}

func TestCompile_SimpleArithmeticFolds(t *testing.T) {
	// `1 + 2` should fold into OP_ADD_C since the RHS is a bare constant.
	c, ok, errOut := compile(t, "print 1 + 2;")
	require.True(t, ok, errOut)
	assert.Contains(t, c.Code, byte(chunk.OpAddC))
	assert.NotContains(t, c.Code, byte(chunk.OpAdd))
}

func TestCompile_GlobalDefineAndGet(t *testing.T) {
	c, ok, errOut := compile(t, "var x = 1; print x;")
	require.True(t, ok, errOut)
	assert.Contains(t, c.Code, byte(chunk.OpDefineGlobal))
	assert.Contains(t, c.Code, byte(chunk.OpGetGlobal))
}

func TestCompile_OwnInitializerIsCompileError(t *testing.T) {
	_, ok, errOut := compile(t, "{ var a = a; }")
	assert.False(t, ok)
	assert.Contains(t, errOut, "Can't read local variable in its own initializer.")
}

func TestCompile_RedeclarationInSameScopeIsCompileError(t *testing.T) {
	// spec.md §8 scenario 8.
	_, ok, errOut := compile(t, "var x;{var x;var x;}")
	assert.False(t, ok)
	assert.Contains(t, errOut, "Already a variable with this name in this scope.")
}

func TestCompile_ContinueOutsideLoopIsCompileError(t *testing.T) {
	_, ok, errOut := compile(t, "continue;")
	assert.False(t, ok)
	assert.Contains(t, errOut, "Can't use 'continue' outside of a loop.")
}

func TestCompile_ClassCannotInheritFromItself(t *testing.T) {
	_, ok, errOut := compile(t, "class A < A {}")
	assert.False(t, ok)
	assert.Contains(t, errOut, "A class can't inherit from itself.")
}

func TestCompile_CaseAfterDefaultIsCompileError(t *testing.T) {
	src := `switch (1) { default: print 1; case 2: print 2; }`
	_, ok, errOut := compile(t, src)
	assert.False(t, ok)
	assert.Contains(t, errOut, "Can't have a case after the default case.")
}

func TestCompile_ThisOutsideClassIsCompileError(t *testing.T) {
	_, ok, errOut := compile(t, "print this;")
	assert.False(t, ok)
	assert.Contains(t, errOut, "Can't use 'this' outside of a class.")
}

func TestCompile_SuperOutsideClassIsCompileError(t *testing.T) {
	_, ok, errOut := compile(t, "fun f() { super.x(); }")
	assert.False(t, ok)
	assert.Contains(t, errOut, "Can't use 'super' outside of a class.")
}

func TestCompile_IsIdempotent(t *testing.T) {
	// Compiling the same source twice into fresh state yields identical
	// bytecode (spec.md §8).
	src := "fun outer(){var a=1;fun inner(){a=a+1;return a;}return inner;}var f=outer();print f();print f();"
	c1, ok1, _ := compile(t, src)
	c2, ok2, _ := compile(t, src)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, c1.Code, c2.Code)
}

func TestCompile_ClosureCapturesUpvalue(t *testing.T) {
	src := "fun outer(){var a=1;fun inner(){a=a+1;return a;}return inner;}"
	c, ok, errOut := compile(t, src)
	require.True(t, ok, errOut)
	assert.Contains(t, c.Code, byte(chunk.OpClosure))

	var inner *value.ObjFunction
	for _, k := range c.Constants {
		if outer, isFn := k.AsObj().(*value.ObjFunction); isFn {
			for _, k2 := range outer.Chunk.ConstantValues() {
				if fn, isFn := k2.AsObj().(*value.ObjFunction); isFn {
					inner = fn
				}
			}
		}
	}
	require.NotNil(t, inner)
	assert.Equal(t, 1, inner.UpvalueCount, "inner captures outer's local a")
}
