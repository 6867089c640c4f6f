package ast

import (
	"fmt"

	"github.com/slowlang/minicc/compiler/token"
)

type (
	NodeID int32
	Kind   int

	// Node is a tagged variant. Child roles by Kind:
	//
	//	Unary, Postfix   Op X
	//	Binary           Op X Y
	//	Ternary          X ? Y : Z
	//	Call             X(List...)
	//	Member           X.Name or X->Name if Flag
	//	Index            X[Y]
	//	Assign           X Op Y
	//	Cast             (Type) X
	//	ExprStmt         X
	//	If               if (X) Y else Z
	//	While            while (X) Y
	//	For              for (X; Y; Z) W
	//	Return           return X
	//	Compound, Unit   List
	//	DeclStmt         List of Var
	//	Var              Type Name = X
	//	Param            Type Name
	//	Func             Type Name(List) X, Flag is vararg
	Node struct {
		Kind Kind
		Pos  token.Pos

		Op   string
		Name string
		Lit  token.Literal
		Type TypeSpec

		X, Y, Z, W NodeID

		List []NodeID
		Flag bool
	}

	// Tree is an append-only node arena for one compilation unit.
	Tree struct {
		Nodes []Node
	}
)

const Nil NodeID = -1

const (
	Bad Kind = iota
	Unit

	Literal
	Ident
	Unary
	Postfix
	Binary
	Ternary
	Call
	Member
	Index
	Assign
	Cast

	ExprStmt
	Compound
	If
	While
	For
	Return
	DeclStmt
	Empty
	Break
	Continue

	Var
	Param
	Func

	numKinds
)

var kindNames = [...]string{
	Bad:      "Bad",
	Unit:     "Unit",
	Literal:  "Literal",
	Ident:    "Ident",
	Unary:    "Unary",
	Postfix:  "Postfix",
	Binary:   "Binary",
	Ternary:  "Ternary",
	Call:     "Call",
	Member:   "Member",
	Index:    "Index",
	Assign:   "Assign",
	Cast:     "Cast",
	ExprStmt: "ExprStmt",
	Compound: "Compound",
	If:       "If",
	While:    "While",
	For:      "For",
	Return:   "Return",
	DeclStmt: "DeclStmt",
	Empty:    "Empty",
	Break:    "Break",
	Continue: "Continue",
	Var:      "Var",
	Param:    "Param",
	Func:     "Func",
}

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) IsExpr() bool { return k >= Literal && k <= Cast }
func (k Kind) IsStmt() bool { return k >= ExprStmt && k <= Continue }
func (k Kind) IsDecl() bool { return k >= Var && k <= Func }

func New() *Tree {
	return &Tree{}
}

// Make returns a node of kind k with all child handles set to Nil.
func Make(k Kind, pos token.Pos) Node {
	return Node{
		Kind: k,
		Pos:  pos,
		X:    Nil,
		Y:    Nil,
		Z:    Nil,
		W:    Nil,
	}
}

func (t *Tree) Add(n Node) NodeID {
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, n)

	return id
}

// Get returns the node by id. The pointer is valid until the next Add.
func (t *Tree) Get(id NodeID) *Node {
	return &t.Nodes[id]
}

func (t *Tree) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.Nodes)
}

func (t *Tree) Len() int { return len(t.Nodes) }

// Children returns the non-nil child handles in source order.
func (t *Tree) Children(id NodeID) (r []NodeID) {
	n := t.Get(id)

	for _, c := range [...]NodeID{n.X, n.Y, n.Z, n.W} {
		if c != Nil {
			r = append(r, c)
		}
	}

	if n.Kind == Call {
		return append(r, n.List...)
	}

	return append(n.List[:len(n.List):len(n.List)], r...)
}

// Walk visits id and its descendants in pre-order while f returns true.
func (t *Tree) Walk(id NodeID, f func(id NodeID, n *Node) bool) {
	if id == Nil {
		return
	}

	if !f(id, t.Get(id)) {
		return
	}

	for _, c := range t.Children(id) {
		t.Walk(c, f)
	}
}
