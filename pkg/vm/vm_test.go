package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/loxgo/pkg/options"
)

// run compiles and interprets source against a fresh VM, returning
// everything written to stdout/stderr and the interpret result.
func run(source string) (stdout, stderr string, result InterpretResult) {
	var out, errOut bytes.Buffer
	machine := New(options.Debug{}, &out, &errOut)
	result = machine.Interpret(source)
	return out.String(), errOut.String(), result
}

// The table below is spec.md §8's literal end-to-end scenario table.
func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name   string
		source string
		stdout string
		result InterpretResult
	}{
		{"arithmetic precedence", `print 1 + 2 * 3;`, "7\n", InterpretOK},
		{"block shadowing", `var x=1;{var x=2;print x;}print x;`, "2\n1\n", InterpretOK},
		{"closure captures mutable local", `fun outer(){var a=1;fun inner(){a=a+1;return a;}return inner;}var f=outer();print f();print f();`, "2\n3\n", InterpretOK},
		{"method call", `class A{greet(){print "hi";}}A().greet();`, "hi\n", InterpretOK},
		{"super init chaining", `class A{init(){this.x=1;}}class B<A{init(){super.init();this.x=this.x+1;}}print B().x;`, "2\n", InterpretOK},
		{"for loop with continue", `for(var i=0;i<6;i=i+1){if(i<3)continue;print i;}`, "3\n4\n5\n", InterpretOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr, result := run(tc.source)
			assert.Equal(t, tc.result, result, "stderr: %s", stderr)
			assert.Equal(t, tc.stdout, stdout)
		})
	}
}

func TestEndToEnd_NegateNonNumberIsRuntimeError(t *testing.T) {
	_, stderr, result := run(`-nil;`)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, stderr, "Operand must be a number.")
}

func TestEndToEnd_RedeclarationIsCompileError(t *testing.T) {
	_, stderr, result := run(`var x;{var x;var x;}`)
	assert.Equal(t, InterpretCompileError, result)
	assert.Contains(t, stderr, "Already a variable with this name in this scope.")
}

func TestEndToEnd_DivisionByZeroIsNotAnError(t *testing.T) {
	stdout, _, result := run(`print 1 / 0; print -1 / 0; print 0 / 0;`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "+Inf\n-Inf\nnan\n", stdout)
}

func TestEndToEnd_StringConcatenation(t *testing.T) {
	stdout, _, result := run(`print "foo" + "bar";`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "foobar\n", stdout)
}

func TestEndToEnd_MixedAddOperandsIsRuntimeError(t *testing.T) {
	_, stderr, result := run(`print 1 + "x";`)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, stderr, "Operands must be two numbers or two strings.")
}

func TestEndToEnd_UndefinedGlobalIsRuntimeError(t *testing.T) {
	_, stderr, result := run(`print missing;`)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, stderr, "Undefined variable 'missing'.")
}

func TestEndToEnd_CallingNonCallableIsRuntimeError(t *testing.T) {
	_, stderr, result := run(`var x = 1; x();`)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, stderr, "Can only call functions and classes.")
}

func TestEndToEnd_ArityMismatchIsRuntimeError(t *testing.T) {
	_, stderr, result := run(`fun f(a,b){} f(1);`)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, stderr, "Expected 2 arguments but got 1.")
}

func TestEndToEnd_StackOverflow(t *testing.T) {
	_, stderr, result := run(`fun rec(n) { return rec(n+1); } rec(0);`)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, stderr, "Stack overflow.")
}

func TestEndToEnd_RuntimeErrorPrintsFrameTrace(t *testing.T) {
	src := `fun a() { b(); }
fun b() { c(); }
fun c() { c_undefined(); }
a();`
	_, stderr, result := run(src)
	require.Equal(t, InterpretRuntimeError, result)
	assert.Contains(t, stderr, "[line 3] in c")
	assert.Contains(t, stderr, "[line 2] in b")
	assert.Contains(t, stderr, "[line 1] in a")
	assert.Contains(t, stderr, "[line 4] in script")
}

func TestEndToEnd_LogicalAndOrShortCircuit(t *testing.T) {
	stdout, _, result := run(`
fun sideEffect(v) { print v; return v; }
print false and sideEffect("and-rhs");
print true or sideEffect("or-rhs");
`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "false\ntrue\n", stdout)
}

// Each case re-checks its own value even when reached by falling out of the
// previous case's body (there is no jump-to-end after a matched case, only
// the per-case skip-if-not-equal jump), so a match on case 1 does not also
// run case 2's body — only the unguarded default runs unconditionally.
func TestEndToEnd_SwitchFallsThroughByDefault(t *testing.T) {
	stdout, _, result := run(`
switch (1) {
case 1:
	print "one";
case 2:
	print "two";
default:
	print "other";
}
`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "one\nother\n", stdout)
}

func TestEndToEnd_ListsAreIndexable(t *testing.T) {
	stdout, stderr, result := run(`
var l = [1, 2, 3];
print l[1];
l[1] = 9;
print l[1];
print l[5];
`)
	assert.Equal(t, InterpretRuntimeError, result)
	assert.Equal(t, "2\n9\n", stdout)
	assert.Contains(t, stderr, "Index out of range.")
}

func TestEndToEnd_MapsAreIndexable(t *testing.T) {
	stdout, _, result := run(`
var m = {"a": 1, "b": 2};
print m["a"];
m["c"] = 3;
print m["c"];
`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "1\n3\n", stdout)
}

func TestEndToEnd_RepeatedGlobalAccessUsesInlineCache(t *testing.T) {
	// `count` is read/written far more than once, so the compiler emits
	// OP_GET_GLOBAL_I/OP_SET_GLOBAL_I after the first reference — this
	// exercises the VM's cached-slot fast path on every loop iteration
	// after the first.
	stdout, _, result := run(`
var count = 0;
for (var i = 0; i < 50; i = i + 1) {
	count = count + i;
}
print count;
`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "1225\n", stdout)
}

func TestEndToEnd_ClockReturnsNumber(t *testing.T) {
	stdout, _, result := run(`print clock() >= 0;`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "true\n", stdout)
}

func TestEndToEnd_LogGCWritesCycleSummaryToStderr(t *testing.T) {
	var out, errOut bytes.Buffer
	machine := New(options.Debug{StressGC: true, LogGC: true}, &out, &errOut)
	result := machine.Interpret(`var s = "force an allocation";`)
	require.Equal(t, InterpretOK, result)
	assert.Contains(t, errOut.String(), "-- gc begin")
	assert.Contains(t, errOut.String(), "-- gc end")
	assert.Contains(t, errOut.String(), "next at")
}

func TestEndToEnd_StackIsEmptyAfterScriptReturn(t *testing.T) {
	var out, errOut bytes.Buffer
	machine := New(options.Debug{}, &out, &errOut)
	result := machine.Interpret(`var a = 1; { var b = 2; print a + b; } print a;`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, 0, machine.sp, "the value stack must be empty after the script's final RETURN")
}

func TestEndToEnd_ModuloOfWholeNumbers(t *testing.T) {
	stdout, _, result := run(`print 7 % 3;`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "1\n", stdout)
}

func TestEndToEnd_ModuloByZeroIsNotAnError(t *testing.T) {
	// Mirrors division by zero: IEEE 754 semantics flow through rather
	// than a runtime error or a crash.
	stdout, _, result := run(`print 5 % 0;`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "nan\n", stdout)
}

func TestEndToEnd_ModuloOfFractionalOperands(t *testing.T) {
	stdout, _, result := run(`print 5.5 % 2;`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "1.5\n", stdout)
}

func TestEndToEnd_TernaryExpression(t *testing.T) {
	stdout, _, result := run(`print true ? "yes" : "no"; print 1 < 2 ? 1 < 3 ? "a" : "b" : "c";`)
	require.Equal(t, InterpretOK, result)
	assert.Equal(t, "yes\na\n", stdout)
}
