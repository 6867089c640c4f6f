package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegNames(t *testing.T) {
	assert.Equal(t, "rax", RAX.String())
	assert.Equal(t, "eax", RAX.Name(Dword))
	assert.Equal(t, "sil", RSI.Name(Byte))
	assert.Equal(t, "r9d", R9.Name(Dword))
	assert.Equal(t, "r10w", R10.Name(Word))
	assert.Equal(t, "xmm3", XMM3.Name(Qword))

	assert.True(t, XMM7.IsXMM())
	assert.False(t, RBP.IsXMM())
}

func TestMem(t *testing.T) {
	for _, tc := range []struct {
		m   Mem
		w   Width
		exp string
	}{
		{Mem{Base: RBP, Off: -8}, Qword, "QWORD PTR [rbp-8]"},
		{Mem{Base: RBP, Off: 16}, Dword, "DWORD PTR [rbp+16]"},
		{Mem{Base: RAX}, Byte, "BYTE PTR [rax]"},
		{Mem{Base: RIP, Sym: "g"}, Word, "WORD PTR [rip + g]"},
		{Mem{Base: RIP, Sym: ".LC0"}, 0, "[rip + .LC0]"},
	} {
		assert.Equal(t, tc.exp, string(tc.m.Append(nil, tc.w)))
	}

	assert.Equal(t, "[rbp-24]", Mem{Base: RBP, Off: -24}.String())
}

func TestConds(t *testing.T) {
	assert.Equal(t, B, Unsigned(L))
	assert.Equal(t, AE, Unsigned(GE))
	assert.Equal(t, E, Unsigned(E))

	assert.Equal(t, "ss", SSE(Dword))
	assert.Equal(t, "sd", SSE(Qword))
}
