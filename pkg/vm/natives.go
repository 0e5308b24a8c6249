package vm

import (
	"time"

	"github.com/kristofer/loxgo/pkg/value"
)

// start is the process-start instant clock() measures against, read once
// at package init so repeated calls return a monotonically increasing
// seconds-since-start value, per spec.md §4.9.
var start = time.Now()

func clockNative(args []value.Value) (value.Value, bool) {
	return value.Number(time.Since(start).Seconds()), true
}

// defineNatives interns each native's name and installs an ObjNative under
// it in globals, mirroring spec.md §4.9's defineNative(name, arity, fn).
func (vm *VM) defineNatives() {
	vm.defineNative("clock", 0, clockNative)
}

func (vm *VM) defineNative(name string, arity int, fn value.NativeFn) {
	nameObj := vm.strings.Intern(vm.gc, name)
	native := value.NewNative(vm.gc, name, arity, fn)
	vm.globals.Set(nameObj, value.FromObj(native))
}
