package asm

import (
	"strconv"
)

type (
	Reg   int
	Width int // operand size in bytes
	Cond  string

	// Mem is a memory operand. Base RIP with Sym addresses a symbol.
	Mem struct {
		Base Reg
		Off  int64
		Sym  string
	}
)

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSI
	RDI
	R8
	R9
	R10
	R11
	RSP
	RBP
	RIP

	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
)

const (
	Byte  Width = 1
	Word  Width = 2
	Dword Width = 4
	Qword Width = 8
)

// Condition codes for setcc and jcc.
const (
	E  Cond = "e"
	NE Cond = "ne"
	L  Cond = "l"
	LE Cond = "le"
	G  Cond = "g"
	GE Cond = "ge"
	B  Cond = "b"
	BE Cond = "be"
	A  Cond = "a"
	AE Cond = "ae"
	P  Cond = "p"
	NP Cond = "np"
)

var (
	// IntArgs and FloatArgs are the System V argument registers in order.
	IntArgs   = []Reg{RDI, RSI, RDX, RCX, R8, R9}
	FloatArgs = []Reg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7}
)

var gprNames = [...][4]string{
	RAX: {"al", "ax", "eax", "rax"},
	RCX: {"cl", "cx", "ecx", "rcx"},
	RDX: {"dl", "dx", "edx", "rdx"},
	RBX: {"bl", "bx", "ebx", "rbx"},
	RSI: {"sil", "si", "esi", "rsi"},
	RDI: {"dil", "di", "edi", "rdi"},
	R8:  {"r8b", "r8w", "r8d", "r8"},
	R9:  {"r9b", "r9w", "r9d", "r9"},
	R10: {"r10b", "r10w", "r10d", "r10"},
	R11: {"r11b", "r11w", "r11d", "r11"},
	RSP: {"spl", "sp", "esp", "rsp"},
	RBP: {"bpl", "bp", "ebp", "rbp"},
	RIP: {"", "", "", "rip"},
}

var ptrNames = map[Width]string{
	Byte:  "BYTE PTR ",
	Word:  "WORD PTR ",
	Dword: "DWORD PTR ",
	Qword: "QWORD PTR ",
}

func (r Reg) IsXMM() bool { return r >= XMM0 && r <= XMM7 }

// Name is the register name for an operand of width w.
func (r Reg) Name(w Width) string {
	if r.IsXMM() {
		return "xmm" + string(rune('0'+r-XMM0))
	}

	if r < 0 || int(r) >= len(gprNames) {
		return "?"
	}

	switch w {
	case Byte:
		return gprNames[r][0]
	case Word:
		return gprNames[r][1]
	case Dword:
		return gprNames[r][2]
	default:
		return gprNames[r][3]
	}
}

func (r Reg) String() string { return r.Name(Qword) }

// Append writes the operand with a size prefix. Zero width omits the prefix as lea wants.
func (m Mem) Append(b []byte, w Width) []byte {
	b = append(b, ptrNames[w]...)
	b = append(b, '[')

	if m.Sym != "" {
		b = append(b, "rip + "...)
		b = append(b, m.Sym...)
	} else {
		b = append(b, m.Base.String()...)
	}

	if m.Off > 0 {
		b = append(b, '+')
	}

	if m.Off != 0 {
		b = strconv.AppendInt(b, m.Off, 10)
	}

	return append(b, ']')
}

func (m Mem) String() string {
	return string(m.Append(nil, 0))
}

// SSE is the scalar suffix for a float of width w.
func SSE(w Width) string {
	if w == Dword {
		return "ss"
	}

	return "sd"
}

// Unsigned maps a signed condition to the below/above family.
func Unsigned(c Cond) Cond {
	switch c {
	case L:
		return B
	case LE:
		return BE
	case G:
		return A
	case GE:
		return AE
	}

	return c
}
