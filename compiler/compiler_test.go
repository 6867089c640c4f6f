package compiler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/minicc/compiler/diag"
)

const hello = `#include <stdio.h>

int printf(char *fmt, ...);

int main(void) {
	printf("hi\n");
	return 0;
}
`

func TestCompileHello(t *testing.T) {
	ctx := context.Background()

	res, err := Compile(ctx, "hello.c", []byte(hello), Options{})
	require.NoError(t, err)
	require.Empty(t, res.Diags)
	assert.Equal(t, 0, res.Status())

	asm := string(res.Asm)

	assert.True(t, strings.HasPrefix(asm, "\t.file \"hello.c\"\n\t.intel_syntax noprefix\n"), "%s", asm)
	assert.Contains(t, asm, "\t.globl main\n")
	assert.Contains(t, asm, ".string \"hi\\n\"")
	assert.Contains(t, asm, "\tcall printf\n")
	assert.Nil(t, res.IR)
}

func TestCompileImplicitPrintf(t *testing.T) {
	res, err := Compile(context.Background(), "hi.c", []byte(`int main(void) { printf("hi"); return 0; }`), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Status())
	assert.Equal(t, 1, res.Diags.Count(diag.Warning))

	asm := string(res.Asm)

	assert.Contains(t, asm, "\nmain:\n")
	assert.Contains(t, asm, "\t.section .rodata\n.LC0:\n\t.string \"hi\"\n")
	assert.Contains(t, asm, "\tcall printf\n")
	assert.Contains(t, asm, "\tmov eax, 0\n\tmov rsp, rbp\n\tpop rbp\n\tret\n")
}

func TestCompileDeterministic(t *testing.T) {
	ctx := context.Background()

	a, err := Compile(ctx, "hello.c", []byte(hello), Options{DumpIR: true})
	require.NoError(t, err)

	b, err := Compile(ctx, "hello.c", []byte(hello), Options{DumpIR: true})
	require.NoError(t, err)

	assert.Equal(t, a.Asm, b.Asm)
	assert.Equal(t, a.IR, b.IR)
	assert.Contains(t, string(a.IR), "define @main fn() i32 {")
}

func TestCompileErrors(t *testing.T) {
	ctx := context.Background()

	res, err := Compile(ctx, "bad.c", []byte(`
int f(void) { return y; }
int g(void) { return 1 }
int main(void) { return f() + g(); }
`), Options{})
	require.NoError(t, err)

	assert.Nil(t, res.Asm)
	assert.Equal(t, 1, res.Status())
	assert.GreaterOrEqual(t, res.Diags.Count(diag.Error), 2)

	for i := 1; i < len(res.Diags); i++ {
		assert.LessOrEqual(t, res.Diags[i-1].Pos.Offset, res.Diags[i].Pos.Offset)
	}

	text := string(res.Diags.Append(nil, "bad.c"))
	assert.Contains(t, text, "bad.c:2:")
	assert.Contains(t, text, "bad.c:3:")
}

func TestCompileWarningsOnly(t *testing.T) {
	res, err := Compile(context.Background(), "w.c", []byte(`int main(void) { return 1 / 0; }`), Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Status())
	assert.NotEmpty(t, res.Asm)
	assert.Equal(t, 1, res.Diags.Count(diag.Warning))
}

func TestCompileEntry(t *testing.T) {
	res, err := Compile(context.Background(), "top.c", []byte(`int x = 3; x = x + 1;`), Options{Entry: "start"})
	require.NoError(t, err)
	require.Equal(t, 0, res.Status(), "%s", res.Diags.Append(nil, "top.c"))

	assert.Contains(t, string(res.Asm), "\nstart:\n")
}

func TestCompileMaxDepth(t *testing.T) {
	src := "int main(void) { return " + strings.Repeat("(", 40) + "1" + strings.Repeat(")", 40) + "; }"

	res, err := Compile(context.Background(), "deep.c", []byte(src), Options{MaxDepth: 16})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Status())

	res, err = Compile(context.Background(), "deep.c", []byte(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Status())
}

func TestCompileFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "hello.c")
	require.NoError(t, os.WriteFile(name, []byte(hello), 0o644))

	res, err := CompileFile(context.Background(), name, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Status())

	_, err = CompileFile(context.Background(), filepath.Join(t.TempDir(), "missing.c"), Options{})
	assert.Error(t, err)
}

func TestStatusInternal(t *testing.T) {
	var r *Result

	assert.Equal(t, 2, r.Status())
}

func TestCompileConstantGlobals(t *testing.T) {
	res, err := Compile(context.Background(), "g.c", []byte(`int a = 1 || 0; char *s = (char *)"hi"; int main(void) { return a; }`), Options{})
	require.NoError(t, err)
	require.Equal(t, 0, res.Status(), "%s", res.Diags.Append(nil, "g.c"))

	asm := string(res.Asm)

	assert.Contains(t, asm, "\na:\n\t.long 1\n")
	assert.Contains(t, asm, "\ns:\n\t.quad .LC0\n")
}
