// Package options carries the process-wide diagnostic toggles spec.md's
// Design Notes (§9) ask to be turned into an explicit configuration value
// rather than the reference implementation's package-level globals
// (debugPrintCode, debugTraceExecution, debugLogGC, debugStressGC).
package options

// Debug bundles the four diagnostic flags the CLI exposes
// (--dump/--trace/--log-gc/--stress-gc) and passes explicitly to the
// compiler and VM instead of relying on globals.
type Debug struct {
	DumpChunks     bool // --dump: print each function's disassembly after compiling
	TraceExecution bool // --trace: print the stack and current instruction before each dispatch
	LogGC          bool // --log-gc: print begin/end lines and a summary line for every collection cycle
	StressGC       bool // --stress-gc: collect at every VM allocation site, whatever the heap size
}
