package back

import (
	"context"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/front"
	"github.com/slowlang/minicc/compiler/ir"
	"github.com/slowlang/minicc/compiler/parse"
	"github.com/slowlang/minicc/compiler/tp"
)

func gen(t *testing.T, src string) string {
	t.Helper()

	ctx := context.Background()

	tree, root, pd := parse.ParseSource(ctx, []byte(src), parse.Options{})
	require.False(t, pd.HasErrors(), "parse diagnostics:\n%s", pd.Append(nil, "t.c"))

	m, diags, err := front.Lower(ctx, "t.c", tree, root, front.Options{})
	require.NoError(t, err)
	require.False(t, diags.HasErrors(), "diagnostics:\n%s", diags.Append(nil, "t.c"))

	return genModule(t, m)
}

func genModule(t *testing.T, m *ir.Module) string {
	t.Helper()

	asm, err := Generate(context.Background(), m)
	require.NoError(t, err)

	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("ir:\n%s\nasm:\n%s", ir.Print(nil, m), asm)
		}
	})

	return string(asm)
}

func TestSmoke(t *testing.T) {
	asm := gen(t, `int main(void) { return 0; }`)

	assert.Equal(t, `	.file "t.c"
	.intel_syntax noprefix

	.text
	.globl main
	.type main, @function
main:
	push rbp
	mov rbp, rsp
	mov eax, 0
	mov rsp, rbp
	pop rbp
	ret
	.size main, .-main

	.section .note.GNU-stack,"",@progbits
`, asm)
}

func TestFrameAligned(t *testing.T) {
	asm := gen(t, `
int f(int a, int b, int c) {
	int x = a + b;
	int y = x * c;
	char z = 1;
	return x - y + z;
}
`)

	subs := regexp.MustCompile(`sub rsp, (\d+)`).FindAllStringSubmatch(asm, -1)
	require.NotEmpty(t, subs)

	for _, s := range subs {
		n, err := strconv.Atoi(s[1])
		require.NoError(t, err)

		assert.Zero(t, n%16, "frame size %d", n)
	}

	assert.Contains(t, asm, "\tmovsxd rdi, edi\n\tmov QWORD PTR [rbp-8], rdi\n")
	assert.Contains(t, asm, "\tmov DWORD PTR [rbp-")
	assert.Contains(t, asm, "\tmov BYTE PTR [rbp-")
	assert.Contains(t, asm, "\timul rax, rcx\n")
}

func TestStringsAndVarargs(t *testing.T) {
	asm := gen(t, `
int printf(char *fmt, ...);

int main(void) {
	printf("hi\n");
	printf("hi\n");
	return 0;
}
`)

	assert.Contains(t, asm, "\t.section .rodata\n.LC0:\n\t.string \"hi\\n\"\n\t.text\n")
	assert.Len(t, regexp.MustCompile(`\.string`).FindAllString(asm, -1), 1)
	assert.Contains(t, asm, "lea rax, [rip + .LC0]")
	assert.Contains(t, asm, "\tmov eax, 0\n\tcall printf\n")
	assert.NotContains(t, asm, ".globl printf")
}

func TestGlobals(t *testing.T) {
	asm := gen(t, `
int g = 7;
char c = -1;
int *p = &g;
char *s = "str";
long z;
static int hidden = 3;
extern int ext;

int main(void) { return g + ext; }
`)

	assert.Contains(t, asm, "\t.data\n\t.globl g\n\t.align 4\ng:\n\t.long 7\n")
	assert.Contains(t, asm, "c:\n\t.byte -1\n")
	assert.Contains(t, asm, "p:\n\t.quad g\n")
	assert.Contains(t, asm, ".LC0:\n\t.string \"str\"\n\t.data\n")
	assert.Contains(t, asm, "s:\n\t.quad .LC0\n")
	assert.Contains(t, asm, "z:\n\t.zero 8\n")
	assert.Contains(t, asm, "hidden:\n\t.long 3\n")
	assert.NotContains(t, asm, ".globl hidden")
	assert.NotContains(t, asm, "ext:")
	assert.Contains(t, asm, "[rip + ext]")
}

func TestBranches(t *testing.T) {
	asm := gen(t, `
int f(int x) {
	int r = 0;
	while (x > 0) {
		r = r + x;
		x = x - 1;
	}
	return r;
}
`)

	assert.Contains(t, asm, ".Lf.while.cond.1:\n")
	assert.Contains(t, asm, ".Lf.while.body.1:\n")
	assert.Contains(t, asm, ".Lf.while.end.1:\n")
	assert.Contains(t, asm, "\tsetg al\n\tmovzx eax, al\n")
	assert.Contains(t, asm, "\ttest rax, rax\n\tjne .Lf.while.body.1\n")
	assert.Contains(t, asm, "\tjmp .Lf.while.cond.1\n")
}

func TestShortCircuitPhi(t *testing.T) {
	asm := gen(t, `int f(int a, int b) { return a && b; }`)

	assert.Contains(t, asm, "\tjne .Lf.land.rhs")
	assert.Contains(t, asm, ".Lf.land.end")
}

func TestStackArgs(t *testing.T) {
	asm := gen(t, `
int f(int a, int b, int c, int d, int e, int g, int h, int i);

int main(void) { return f(1, 2, 3, 4, 5, 6, 7, 8); }
`)

	assert.Contains(t, asm, "\tmov eax, 8\n\tpush rax\n\tmov eax, 7\n\tpush rax\n")
	assert.Contains(t, asm, "\tmov r9d, 6\n\tcall f\n\tadd rsp, 16\n")
	assert.NotContains(t, asm, "sub rsp, 8\n")
}

func TestStackArgsPadding(t *testing.T) {
	asm := gen(t, `
int f(int a, int b, int c, int d, int e, int g, int h);

int main(void) { return f(1, 2, 3, 4, 5, 6, 7); }
`)

	assert.Contains(t, asm, "\tsub rsp, 8\n\tmov eax, 7\n\tpush rax\n")
	assert.Contains(t, asm, "\tcall f\n\tadd rsp, 16\n")
}

func TestFloats(t *testing.T) {
	asm := gen(t, `
double h(double x, float y) {
	return x * 2.0 + y;
}
`)

	assert.Contains(t, asm, "\tmovsd QWORD PTR [rbp-8], xmm0\n")
	assert.Contains(t, asm, "\tmovss DWORD PTR [rbp-16], xmm1\n")
	assert.Contains(t, asm, "\tmulsd xmm0, xmm1\n")
	assert.Contains(t, asm, "\tcvtss2sd xmm0, xmm0\n")
	assert.Contains(t, asm, "\tmovabs rax, 4611686018427387904\n\tmovq xmm1, rax\n")

	assert.Regexp(t, `\tmovsd xmm[0-9]+, QWORD PTR \[rbp-[0-9]+\]\n`, asm)
	assert.Regexp(t, `\tmovss xmm[0-9]+, DWORD PTR \[rbp-[0-9]+\]\n`, asm)
	assert.NotRegexp(t, `movs(ss|sd)`, asm)
}

func TestDivision(t *testing.T) {
	m := ir.NewModule("t.c")
	i32 := m.Types.Int(32, true)
	u32 := m.Types.Int(32, false)

	f := m.NewFunc("f", m.Types.Func(i32, []tp.ID{i32, i32}, false))
	f.Decl = false

	b := ir.NewBuilder(m, f)
	b.SetBlock(b.NewBlock(ir.EntryName))

	q := b.Binary(ir.Div, i32, f.Params[0], f.Params[1])
	r := b.Binary(ir.Rem, u32, f.Params[0], f.Params[1])
	lt := b.Binary(ir.Lt, i32, r, m.ConstInt(u32, 3))
	sh := b.Binary(ir.Shr, i32, q, lt)
	b.Ret(sh)
	require.NoError(t, b.Err())

	asm := genModule(t, m)

	assert.Contains(t, asm, "\tcqo\n\tidiv rcx\n")
	assert.Contains(t, asm, "\txor edx, edx\n\tdiv rcx\n\tmov edx, edx\n")
	assert.Contains(t, asm, "\tsetb al\n")
	assert.Contains(t, asm, "\tsar rax, cl\n")
}

func TestUnsignedToFloat(t *testing.T) {
	m := ir.NewModule("t.c")
	u64 := m.Types.Int(64, false)
	i64 := m.Types.Int(64, true)
	u32 := m.Types.Int(32, false)
	f64 := m.Types.Float(64)
	f32 := m.Types.Float(32)

	f := m.NewFunc("f", m.Types.Func(f64, []tp.ID{u64, i64, u32}, false))
	f.Decl = false

	b := ir.NewBuilder(m, f)
	b.SetBlock(b.NewBlock(ir.EntryName))

	x := b.Convert(ir.IToF, f64, f.Params[0])
	b.Convert(ir.IToF, f32, f.Params[0])
	z := b.Convert(ir.IToF, f64, f.Params[1])
	w := b.Convert(ir.IToF, f64, f.Params[2])
	zw := b.Binary(ir.FAdd, f64, z, w)
	r := b.Binary(ir.FAdd, f64, x, zw)
	b.Ret(r)
	require.NoError(t, b.Err())

	asm := genModule(t, m)

	assert.Contains(t, asm, "\ttest rax, rax\n\tjs .Lf.u2f.1\n\tcvtsi2sd xmm0, rax\n\tjmp .Lf.u2f.1.done\n"+
		".Lf.u2f.1:\n\tmov rcx, rax\n\tshr rcx, 1\n\tand eax, 1\n\tor rcx, rax\n\tcvtsi2sd xmm0, rcx\n\taddsd xmm0, xmm0\n"+
		".Lf.u2f.1.done:\n")
	assert.Contains(t, asm, "\tjs .Lf.u2f.2\n\tcvtsi2ss xmm0, rax\n")
	assert.Contains(t, asm, "\taddss xmm0, xmm0\n.Lf.u2f.2.done:\n")

	assert.Len(t, regexp.MustCompile(`\tjs `).FindAllString(asm, -1), 2)
	assert.Len(t, regexp.MustCompile(`cvtsi2sd xmm0, rax\n`).FindAllString(asm, -1), 3)
}

func TestUnsupportedOp(t *testing.T) {
	m := ir.NewModule("t.c")
	i32 := m.Types.Int(32, true)

	f := m.NewFunc("f", m.Types.Func(i32, nil, false))
	f.Decl = false
	f.NewBlock(ir.EntryName)

	f.Instrs = append(f.Instrs, ir.Instr{Op: ir.Op(200), Type: m.Types.Void(), Result: ir.None})
	f.Blocks[0].Code = []ir.InstrID{0}

	_, err := Generate(context.Background(), m)
	require.Error(t, err)
	assert.True(t, diag.IsInternal(err), "%v", err)
}

func TestDeterministic(t *testing.T) {
	const src = `
int printf(char *fmt, ...);
int g[4];

int sum(int *a, int n) {
	int s = 0;
	for (int i = 0; i < n; i++)
		s += a[i];
	return s;
}

int main(void) {
	printf("%d\n", sum(g, 4) ? 1 : 2);
	return 0;
}
`

	a := gen(t, src)
	b := gen(t, src)

	assert.Equal(t, a, b)
	assert.Contains(t, a, "lea rax, [rax+rcx*4]")
	assert.Contains(t, a, "g:\n\t.zero 16\n")
}
