package ir

import (
	"fmt"
	"math"

	"github.com/slowlang/minicc/compiler/token"
	"github.com/slowlang/minicc/compiler/tp"
)

type (
	ValueID  int32
	InstrID  int32
	BlockID  int32
	FuncID   int32
	GlobalID int32

	ValueKind uint8
	Op        uint8

	Value struct {
		Kind ValueKind
		Type tp.ID

		Int   int64   // ConstInt
		Float float64 // ConstFloat

		Global GlobalID // Global, the value is its address

		Func  FuncID  // Param, Result
		Index int     // Param
		Instr InstrID // Result
	}

	// Instr is a single operation. Phi takes Args[i] when entered from Targets[i].
	Instr struct {
		Op   Op
		Type tp.ID // result type, Void if none

		Args    []ValueID
		Result  ValueID
		Block   BlockID
		Targets []BlockID
		Callee  FuncID

		Name string
		Pos  token.Pos
	}

	Block struct {
		ID   BlockID
		Name string

		Code []InstrID

		Preds []BlockID
		Succs []BlockID
	}

	Func struct {
		ID   FuncID
		Name string
		Type tp.ID

		Params     []ValueID
		ParamNames []string

		Blocks []Block
		Instrs []Instr

		Decl   bool
		Static bool
	}

	Global struct {
		ID   GlobalID
		Name string
		Type tp.ID // object type

		Value ValueID // address
		Init  ValueID // constant initializer or None

		Data string // Str contents without the terminating zero
		Str  bool

		Const  bool
		Static bool
		Extern bool
	}

	// Module owns every arena of one compilation unit.
	Module struct {
		Name  string
		Types *tp.Table

		Values  []Value
		Globals []Global
		Funcs   []*Func

		consts  map[constKey]ValueID
		strs    map[string]GlobalID
		funcs   map[string]FuncID
		globals map[string]GlobalID
	}

	constKey struct {
		typ  tp.ID
		kind ValueKind
		bits uint64
	}
)

const (
	None      ValueID  = -1
	NoBlock   BlockID  = -1
	NoFunc    FuncID   = -1
	NoGlobal  GlobalID = -1
	NoInstr   InstrID  = -1
	EntryName          = "entry"
)

const (
	ConstInt ValueKind = iota
	ConstFloat
	GlobalAddr
	Param
	Result
)

const (
	Nop Op = iota

	Add
	Sub
	Mul
	Div
	Rem
	And
	Or
	Xor
	Shl
	Shr
	Neg
	Not

	FAdd
	FSub
	FMul
	FDiv
	FNeg

	Eq
	Ne
	Lt
	Le
	Gt
	Ge

	FEq
	FNe
	FLt
	FLe
	FGt
	FGe

	Alloca
	Load
	Store
	Elem

	Conv
	IToF
	FToI
	FConv
	Bitcast

	Call
	Ret
	Br
	CondBr
	Phi

	numOps
)

var opNames = [...]string{
	Nop: "nop",
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Rem: "rem",
	And: "and", Or: "or", Xor: "xor", Shl: "shl", Shr: "shr",
	Neg: "neg", Not: "not",
	FAdd: "fadd", FSub: "fsub", FMul: "fmul", FDiv: "fdiv", FNeg: "fneg",
	Eq: "eq", Ne: "ne", Lt: "lt", Le: "le", Gt: "gt", Ge: "ge",
	FEq: "feq", FNe: "fne", FLt: "flt", FLe: "fle", FGt: "fgt", FGe: "fge",
	Alloca: "alloca", Load: "load", Store: "store", Elem: "elem",
	Conv: "conv", IToF: "itof", FToI: "ftoi", FConv: "fconv", Bitcast: "bitcast",
	Call: "call", Ret: "ret", Br: "br", CondBr: "condbr", Phi: "phi",
}

func (op Op) String() string {
	if op < numOps {
		return opNames[op]
	}

	return fmt.Sprintf("op(%d)", int(op))
}

func (op Op) IsTerminator() bool {
	return op == Ret || op == Br || op == CondBr
}

func (op Op) IsCompare() bool {
	return op >= Eq && op <= FGe
}

func (k ValueKind) String() string {
	switch k {
	case ConstInt:
		return "const_int"
	case ConstFloat:
		return "const_float"
	case GlobalAddr:
		return "global"
	case Param:
		return "param"
	case Result:
		return "result"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func NewModule(name string) *Module {
	return &Module{
		Name:    name,
		Types:   tp.NewTable(),
		consts:  map[constKey]ValueID{},
		strs:    map[string]GlobalID{},
		funcs:   map[string]FuncID{},
		globals: map[string]GlobalID{},
	}
}

func (m *Module) Value(id ValueID) *Value {
	return &m.Values[id]
}

func (m *Module) ValidValue(id ValueID) bool {
	return id >= 0 && int(id) < len(m.Values)
}

func (m *Module) TypeOf(id ValueID) tp.ID {
	return m.Values[id].Type
}

func (m *Module) newValue(v Value) ValueID {
	id := ValueID(len(m.Values))
	m.Values = append(m.Values, v)

	return id
}

// ConstInt returns the interned integer constant of type typ.
// The value is truncated to the type width and extended by its signedness.
func (m *Module) ConstInt(typ tp.ID, x int64) ValueID {
	if it, ok := m.Types.Get(typ).(tp.Int); ok && it.Bits < 64 {
		sh := 64 - uint(it.Bits)

		if it.Signed {
			x = x << sh >> sh
		} else {
			x = int64(uint64(x) << sh >> sh)
		}
	}

	k := constKey{typ: typ, kind: ConstInt, bits: uint64(x)}

	if id, ok := m.consts[k]; ok {
		return id
	}

	id := m.newValue(Value{Kind: ConstInt, Type: typ, Int: x})
	m.consts[k] = id

	return id
}

func (m *Module) ConstFloat(typ tp.ID, x float64) ValueID {
	if ft, ok := m.Types.Get(typ).(tp.Float); ok && ft.Bits == 32 {
		x = float64(float32(x))
	}

	k := constKey{typ: typ, kind: ConstFloat, bits: math.Float64bits(x)}

	if id, ok := m.consts[k]; ok {
		return id
	}

	id := m.newValue(Value{Kind: ConstFloat, Type: typ, Float: x})
	m.consts[k] = id

	return id
}

// AddrOf returns the address of global g typed as pointer type typ.
// Retyped addresses are interned like constants.
func (m *Module) AddrOf(g GlobalID, typ tp.ID) ValueID {
	if v := m.Globals[g].Value; m.Values[v].Type == typ {
		return v
	}

	k := constKey{typ: typ, kind: GlobalAddr, bits: uint64(g)}

	if id, ok := m.consts[k]; ok {
		return id
	}

	id := m.newValue(Value{Kind: GlobalAddr, Type: typ, Global: g})
	m.consts[k] = id

	return id
}

func (m *Module) IsConst(id ValueID) bool {
	k := m.Values[id].Kind

	return k == ConstInt || k == ConstFloat
}

// AddGlobal defines a named object. The caller checks for redefinition.
func (m *Module) AddGlobal(name string, typ tp.ID) *Global {
	id := GlobalID(len(m.Globals))

	g := Global{
		ID:   id,
		Name: name,
		Type: typ,
		Init: None,
	}

	g.Value = m.newValue(Value{Kind: GlobalAddr, Type: m.Types.Ptr(typ), Global: id})

	m.Globals = append(m.Globals, g)

	if name != "" {
		m.globals[name] = id
	}

	return &m.Globals[id]
}

// String returns the anonymous constant holding s, zero terminated.
// Equal strings share one global.
func (m *Module) String(s string) *Global {
	if id, ok := m.strs[s]; ok {
		return &m.Globals[id]
	}

	i8 := m.Types.Int(8, true)

	g := m.AddGlobal("", m.Types.Array(i8, int64(len(s))+1))
	g.Data = s
	g.Str = true
	g.Const = true

	m.strs[s] = g.ID

	return g
}

func (m *Module) LookupGlobal(name string) (*Global, bool) {
	id, ok := m.globals[name]
	if !ok {
		return nil, false
	}

	return &m.Globals[id], true
}

// NewFunc adds a function declaration. Parameter values are created from typ.
func (m *Module) NewFunc(name string, typ tp.ID) *Func {
	ft := m.Types.Get(typ).(tp.Func)

	f := &Func{
		ID:   FuncID(len(m.Funcs)),
		Name: name,
		Type: typ,
		Decl: true,
	}

	for i, p := range ft.Params {
		v := m.newValue(Value{Kind: Param, Type: p, Func: f.ID, Index: i})

		f.Params = append(f.Params, v)
		f.ParamNames = append(f.ParamNames, "")
	}

	m.Funcs = append(m.Funcs, f)
	m.funcs[name] = f.ID

	return f
}

// SetFuncType changes the type of a declared function recreating its parameters.
func (m *Module) SetFuncType(f *Func, typ tp.ID) {
	ft := m.Types.Get(typ).(tp.Func)

	f.Type = typ
	f.Params = f.Params[:0]
	f.ParamNames = f.ParamNames[:0]

	for i, p := range ft.Params {
		v := m.newValue(Value{Kind: Param, Type: p, Func: f.ID, Index: i})

		f.Params = append(f.Params, v)
		f.ParamNames = append(f.ParamNames, "")
	}
}

func (m *Module) LookupFunc(name string) (*Func, bool) {
	id, ok := m.funcs[name]
	if !ok {
		return nil, false
	}

	return m.Funcs[id], true
}

func (m *Module) FuncType(f *Func) tp.Func {
	return m.Types.Get(f.Type).(tp.Func)
}

func (f *Func) NewBlock(name string) BlockID {
	id := BlockID(len(f.Blocks))

	f.Blocks = append(f.Blocks, Block{
		ID:   id,
		Name: name,
	})

	return id
}

func (f *Func) Block(id BlockID) *Block {
	return &f.Blocks[id]
}

func (f *Func) Instr(id InstrID) *Instr {
	return &f.Instrs[id]
}

// AddEdge links from and to in both directions.
func (f *Func) AddEdge(from, to BlockID) {
	f.Blocks[from].Succs = append(f.Blocks[from].Succs, to)
	f.Blocks[to].Preds = append(f.Blocks[to].Preds, from)
}

// Reset drops the body turning f back into a declaration.
func (f *Func) Reset() {
	f.Blocks = nil
	f.Instrs = nil
	f.Decl = true
}

// Terminator returns the last instruction of the block if it ends the block.
func (f *Func) Terminator(id BlockID) (*Instr, bool) {
	b := &f.Blocks[id]
	if len(b.Code) == 0 {
		return nil, false
	}

	in := &f.Instrs[b.Code[len(b.Code)-1]]

	return in, in.Op.IsTerminator()
}
