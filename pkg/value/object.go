package value

import (
	"fmt"
	"strings"
)

// ObjKind tags the variant of a heap Object, the same role smog's
// bytecode.ClassDefinition/MethodDefinition pairing plays for its two
// constant-pool payload kinds, generalized here to every heap variant the
// spec names (string, function, closure, upvalue, class, instance, bound
// method, list, map, native).
type ObjKind uint8

const (
	ObjKindString ObjKind = iota
	ObjKindFunction
	ObjKindClosure
	ObjKindUpvalue
	ObjKindClass
	ObjKindInstance
	ObjKindBoundMethod
	ObjKindList
	ObjKindMap
	ObjKindNative
)

func (k ObjKind) String() string {
	switch k {
	case ObjKindString:
		return "string"
	case ObjKindFunction:
		return "function"
	case ObjKindClosure:
		return "closure"
	case ObjKindUpvalue:
		return "upvalue"
	case ObjKindClass:
		return "class"
	case ObjKindInstance:
		return "instance"
	case ObjKindBoundMethod:
		return "bound method"
	case ObjKindList:
		return "list"
	case ObjKindMap:
		return "map"
	case ObjKindNative:
		return "native function"
	default:
		return "unknown"
	}
}

// Obj is implemented by every heap-allocated object. The GC only ever needs
// the header: mark bit plus the intrusive all-objects link.
type Obj interface {
	Kind() ObjKind
	Header() *ObjHeader
	String() string
}

// ObjHeader is embedded in every concrete Obj. Next threads the object
// onto the heap's singly linked all-objects list, the structure gc.Collect
// walks during sweep; Marked is the current cycle's color bit. Size is the
// estimated byte cost passed to Allocator.Track, kept here so sweep can
// subtract it back out of the heap total when the object is freed.
type ObjHeader struct {
	Marked bool
	Size   int
	Next   Obj
}

func (h *ObjHeader) Header() *ObjHeader { return h }

// Allocator is the minimal interface concrete Obj constructors need: track
// a freshly built object on the heap's all-objects list. The constructors
// here only call Track; MaybeCollect is left to pkg/vm, which calls it
// once the new object is on its stack. gc.Collector implements it; value
// itself never imports the gc package, so object construction stays free
// of an import cycle.
type Allocator interface {
	Track(o Obj, size int)
	MaybeCollect()
}

// ---- String ----------------------------------------------------------

// ObjString is an interned string: length, bytes, and a cached FNV-1a
// hash. Two ObjStrings with equal content are always the same pointer
// once interning is in effect (see pkg/table), so string equality is
// pointer equality.
type ObjString struct {
	ObjHeader
	Chars string
	Hash  uint32
}

func (s *ObjString) Kind() ObjKind { return ObjKindString }
func (s *ObjString) String() string { return s.Chars }

// HashString computes the 32-bit FNV-1a hash used for string interning
// and as the Value hash function for string keys (spec §4.7).
func HashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// NewString allocates a *fresh*, uninterned ObjString. Callers that want
// interning semantics go through pkg/table's Strings.Intern instead; this
// constructor exists for the table itself and for values that are known
// not to need interning (rare; in practice every string in this VM is
// interned).
func NewString(a Allocator, s string) *ObjString {
	o := &ObjString{Chars: s, Hash: HashString(s)}
	a.Track(o, len(s)+16)
	return o
}

// ---- Function / Closure / Upvalue ------------------------------------

// Chunk is satisfied by *chunk.Chunk; value can't import chunk directly
// (chunk need not import value either, but keeping the dependency
// one-directional — chunk depends on value for the constant pool — avoids
// the cycle outright) so ObjFunction stores it behind this interface.
// ConstantValues is exposed so the collector can trace every constant a
// function's chunk embeds (string and nested-function literals chiefly)
// without value needing the concrete *chunk.Chunk type.
type Chunk interface {
	InstructionCount() int
	ConstantValues() []Value
}

type ObjFunction struct {
	ObjHeader
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *ObjString // nil for the top-level script
}

func (f *ObjFunction) Kind() ObjKind { return ObjKindFunction }
func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.Chars)
}

func NewFunction(a Allocator) *ObjFunction {
	o := &ObjFunction{}
	a.Track(o, 64)
	return o
}

// ObjUpvalue is a captured variable. While Location points into a live
// value-stack slot the upvalue is "open"; closeUpvalues in pkg/vm copies
// *Location into Closed and nils Location out, after which Location is
// ignored and Closed is authoritative.
type ObjUpvalue struct {
	ObjHeader
	Location *Value
	Closed   Value
	Next     *ObjUpvalue // unused: pkg/vm keeps its open upvalues in VM.open
}

func (u *ObjUpvalue) Kind() ObjKind  { return ObjKindUpvalue }
func (u *ObjUpvalue) String() string { return "<upvalue>" }

func (u *ObjUpvalue) Get() Value {
	if u.Location != nil {
		return *u.Location
	}
	return u.Closed
}

func (u *ObjUpvalue) Set(v Value) {
	if u.Location != nil {
		*u.Location = v
		return
	}
	u.Closed = v
}

func NewUpvalue(a Allocator, slot *Value) *ObjUpvalue {
	o := &ObjUpvalue{Location: slot}
	a.Track(o, 32)
	return o
}

type ObjClosure struct {
	ObjHeader
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Kind() ObjKind  { return ObjKindClosure }
func (c *ObjClosure) String() string { return c.Function.String() }

func NewClosure(a Allocator, fn *ObjFunction) *ObjClosure {
	o := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	a.Track(o, 32+8*fn.UpvalueCount)
	return o
}

// ---- Class / Instance / BoundMethod -----------------------------------

type ObjClass struct {
	ObjHeader
	Name    *ObjString
	Methods map[string]*ObjClosure
}

func (c *ObjClass) Kind() ObjKind  { return ObjKindClass }
func (c *ObjClass) String() string { return fmt.Sprintf("<class %s>", c.Name.Chars) }

func NewClass(a Allocator, name *ObjString) *ObjClass {
	o := &ObjClass{Name: name, Methods: make(map[string]*ObjClosure)}
	a.Track(o, 48)
	return o
}

type ObjInstance struct {
	ObjHeader
	Class  *ObjClass
	Fields map[string]Value
}

func (i *ObjInstance) Kind() ObjKind { return ObjKindInstance }
func (i *ObjInstance) String() string {
	return fmt.Sprintf("<%s instance>", i.Class.Name.Chars)
}

func NewInstance(a Allocator, class *ObjClass) *ObjInstance {
	o := &ObjInstance{Class: class, Fields: make(map[string]Value)}
	a.Track(o, 48)
	return o
}

type ObjBoundMethod struct {
	ObjHeader
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) Kind() ObjKind  { return ObjKindBoundMethod }
func (b *ObjBoundMethod) String() string { return b.Method.String() }

func NewBoundMethod(a Allocator, receiver Value, method *ObjClosure) *ObjBoundMethod {
	o := &ObjBoundMethod{Receiver: receiver, Method: method}
	a.Track(o, 32)
	return o
}

// ---- List / Map --------------------------------------------------------

type ObjList struct {
	ObjHeader
	Items []Value
}

func (l *ObjList) Kind() ObjKind { return ObjKindList }
func (l *ObjList) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range l.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

func NewList(a Allocator, items []Value) *ObjList {
	o := &ObjList{Items: items}
	a.Track(o, 24+16*len(items))
	return o
}

// ObjMap is an indexable key/value container. It reuses the same hashing
// and identity rules as the interning table (spec §4.7). nil is accepted
// as a key like any other value: neither Set nor the VM's map literal and
// index operations reject it. Implemented with a plain Go map keyed by a comparable
// projection of Value (mapKey below) since Go's built-in map already gives
// the open-addressed-equivalent amortized O(1) access the spec calls for,
// without reimplementing probing for a container that (unlike the
// interning table) is never weak and never needs FindString-style
// pre-allocation lookups.
type ObjMap struct {
	ObjHeader
	keys   map[mapKey]Value // key projection -> original key Value
	values map[mapKey]Value
	order  []mapKey // preserves insertion order for deterministic iteration/printing
}

type mapKey struct {
	kind Kind
	num  float64
	obj  Obj
}

func keyOf(v Value) mapKey { return mapKey{kind: v.kind, num: v.num, obj: v.obj} }

func (m *ObjMap) Kind() ObjKind { return ObjKindMap }
func (m *ObjMap) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range m.order {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.keys[k].String())
		b.WriteString(": ")
		b.WriteString(m.values[k].String())
	}
	b.WriteByte('}')
	return b.String()
}

func NewMap(a Allocator) *ObjMap {
	o := &ObjMap{keys: make(map[mapKey]Value), values: make(map[mapKey]Value)}
	a.Track(o, 48)
	return o
}

func (m *ObjMap) Set(key, val Value) {
	k := keyOf(key)
	if _, ok := m.values[k]; !ok {
		m.order = append(m.order, k)
	}
	m.keys[k] = key
	m.values[k] = val
}

func (m *ObjMap) Get(key Value) (Value, bool) {
	v, ok := m.values[keyOf(key)]
	return v, ok
}

func (m *ObjMap) Len() int { return len(m.order) }

// MarkChildren visits every key and value Value the map holds. Exported
// so the collector (package gc) can trace a map's contents without
// reaching into its unexported fields.
func (m *ObjMap) MarkChildren(mark func(Value)) {
	for _, k := range m.order {
		mark(m.keys[k])
		mark(m.values[k])
	}
}

// ---- Native -------------------------------------------------------------

// NativeFn is a builtin implemented in Go. It receives its arguments as a
// slice and returns a Value plus an ok flag; ok=false signals a runtime
// error whose message is the returned Value's string form.
type NativeFn func(args []Value) (Value, bool)

type ObjNative struct {
	ObjHeader
	Name  string
	Arity int
	Fn    NativeFn
}

func (n *ObjNative) Kind() ObjKind  { return ObjKindNative }
func (n *ObjNative) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

func NewNative(a Allocator, name string, arity int, fn NativeFn) *ObjNative {
	o := &ObjNative{Name: name, Arity: arity, Fn: fn}
	a.Track(o, 32)
	return o
}
