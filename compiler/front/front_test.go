package front

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/ir"
	"github.com/slowlang/minicc/compiler/parse"
	"github.com/slowlang/minicc/compiler/token"
)

func lower(t *testing.T, src string) (*ir.Module, diag.List) {
	t.Helper()

	ctx := context.Background()

	tree, root, pd := parse.ParseSource(ctx, []byte(src), parse.Options{})
	require.False(t, pd.HasErrors(), "parse diagnostics:\n%s", pd.Append(nil, "t.c"))

	m, diags, err := Lower(ctx, "t.c", tree, root, Options{})
	require.NoError(t, err)

	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("diags:\n%s\nir:\n%s", diags.Append(nil, "t.c"), ir.Print(nil, m))
		}
	})

	return m, diags
}

func messages(l diag.List, sev diag.Severity) (r []string) {
	for _, d := range l {
		if d.Severity == sev {
			r = append(r, d.Msg)
		}
	}

	return r
}

func fn(t *testing.T, m *ir.Module, name string) *ir.Func {
	t.Helper()

	f, ok := m.LookupFunc(name)
	require.True(t, ok, "function %v", name)

	return f
}

func blockNames(f *ir.Func) (r []string) {
	for _, b := range f.Blocks {
		r = append(r, b.Name)
	}

	return r
}

func TestPrintSimple(t *testing.T) {
	m, diags := lower(t, `int main(void) { int x = 1; return x + 2; }`)
	assert.Empty(t, diags)

	assert.Equal(t, `; module t.c
define @main fn() i32 {
entry:
	%0 = alloca i32 ; x
	store %0, i32 1
	%1 = load i32 %0
	%2 = add i32 %1, i32 2
	ret %2
}
`, string(ir.Print(nil, m)))
}

func TestIfElse(t *testing.T) {
	m, diags := lower(t, `int f(int x) { int r; if (x) r = 1; else r = 2; return r; }`)
	assert.Empty(t, diags)

	f := fn(t, m, "f")

	assert.Equal(t, []string{"entry", "if.then.1", "if.else.1", "if.end.1"}, blockNames(f))

	reach := ir.Reachable(f)
	assert.Equal(t, 4, reach.Size())

	reach.Range(func(id ir.BlockID) bool {
		_, ok := f.Terminator(id)
		assert.True(t, ok, "block %v", f.Blocks[id].Name)

		return true
	})

	term, _ := f.Terminator(0)
	assert.Equal(t, ir.CondBr, term.Op)
}

func TestIfBothReturn(t *testing.T) {
	m, diags := lower(t, `int f(int x) { if (x) { return 1; } else { return 2; } }`)
	assert.Empty(t, diags)

	f := fn(t, m, "f")

	assert.Equal(t, []string{"entry", "if.then.1", "if.else.1", "if.end.1"}, blockNames(f))

	reach := ir.Reachable(f)
	assert.Equal(t, []ir.BlockID{0, 1, 2}, reach.Slice())

	for _, blk := range f.Blocks {
		term, ok := f.Terminator(blk.ID)
		if assert.True(t, ok, "block %v", blk.Name) {
			assert.True(t, term.Op.IsTerminator(), "block %v", blk.Name)
		}
	}

	for _, id := range []ir.BlockID{1, 2} {
		term, _ := f.Terminator(id)
		assert.Equal(t, ir.Ret, term.Op, "block %v", f.Blocks[id].Name)
	}

	assert.NoError(t, ir.Verify(m))
}

func TestShortCircuit(t *testing.T) {
	m, diags := lower(t, `int a(void); int b(void); int f(void) { return a() || b(); }`)
	assert.Empty(t, diags)

	f := fn(t, m, "f")
	b := fn(t, m, "b")

	var callBlock ir.BlockID = ir.NoBlock

	for _, in := range f.Instrs {
		if in.Op == ir.Call && in.Callee == b.ID {
			callBlock = in.Block
		}
	}

	require.NotEqual(t, ir.NoBlock, callBlock)
	assert.NotEqual(t, ir.BlockID(0), callBlock)
	assert.Equal(t, "lor.rhs.1", f.Blocks[callBlock].Name)

	for _, p := range f.Blocks[callBlock].Preds {
		term, ok := f.Terminator(p)
		require.True(t, ok)
		assert.Equal(t, ir.CondBr, term.Op)
	}

	var phis int

	for _, in := range f.Instrs {
		if in.Op == ir.Phi {
			phis++
			assert.Equal(t, "lor.end.1", f.Blocks[in.Block].Name)
		}
	}

	assert.Equal(t, 1, phis)
}

func TestConstantFolding(t *testing.T) {
	m, diags := lower(t, `int f(void) { return 2 + 3 * 4 - (1 << 2); }`)
	assert.Empty(t, diags)

	f := fn(t, m, "f")
	require.Len(t, f.Instrs, 1)

	ret := f.Instrs[0]
	require.Equal(t, ir.Ret, ret.Op)

	v := m.Value(ret.Args[0])
	assert.Equal(t, ir.ConstInt, v.Kind)
	assert.EqualValues(t, 10, v.Int)
}

func TestLoops(t *testing.T) {
	m, diags := lower(t, `
int f(int n) {
	int s = 0;
	while (n) {
		n--;
		if (n == 3) continue;
		if (n == 1) break;
		s += n;
	}
	for (int i = 0; i < 3; i++) s = s + i;
	return s;
}`)
	assert.Empty(t, diags)

	f := fn(t, m, "f")

	assert.Subset(t, blockNames(f), []string{"while.cond.1", "while.body.1", "while.end.1", "for.cond.4", "for.body.4", "for.step.4", "for.end.4"})

	byName := map[string]ir.BlockID{}
	for _, b := range f.Blocks {
		byName[b.Name] = b.ID
	}

	cont, _ := f.Terminator(byName["if.then.2"])
	assert.Equal(t, []ir.BlockID{byName["while.cond.1"]}, cont.Targets)

	brk, _ := f.Terminator(byName["if.then.3"])
	assert.Equal(t, []ir.BlockID{byName["while.end.1"]}, brk.Targets)

	step, _ := f.Terminator(byName["for.step.4"])
	assert.Equal(t, []ir.BlockID{byName["for.cond.4"]}, step.Targets)
}

func TestDeadCode(t *testing.T) {
	m, diags := lower(t, `int f(void) { return 1; return 2; }`)
	assert.Empty(t, diags)

	f := fn(t, m, "f")

	assert.Equal(t, []string{"entry", "dead.1"}, blockNames(f))
	assert.False(t, ir.Reachable(f).IsSet(1))
}

func TestFallOff(t *testing.T) {
	m, diags := lower(t, `int f(void) { } void g(void) { } double h(int x) { if (x) return 1; }`)
	assert.Empty(t, diags)

	for _, name := range []string{"f", "g", "h"} {
		f := fn(t, m, name)

		last := f.Blocks[len(f.Blocks)-1]
		term, ok := f.Terminator(last.ID)
		require.True(t, ok, name)
		assert.Equal(t, ir.Ret, term.Op, name)
	}

	term, _ := fn(t, m, "g").Terminator(0)
	assert.Empty(t, term.Args)

	h := fn(t, m, "h")
	term, _ = h.Terminator(ir.BlockID(len(h.Blocks) - 1))
	assert.Equal(t, ir.ConstFloat, m.Value(term.Args[0]).Kind)
}

func TestSemanticErrorIsolation(t *testing.T) {
	m, diags := lower(t, `int bad(void) { return y; } int good(void) { return 1; }`)

	assert.Equal(t, []string{`use of undeclared identifier "y"`}, messages(diags, diag.Error))
	assert.Equal(t, 1, diags[0].Line())
	assert.Equal(t, 24, diags[0].Col())

	assert.True(t, fn(t, m, "bad").Decl)
	assert.Empty(t, fn(t, m, "bad").Blocks)
	assert.False(t, fn(t, m, "good").Decl)
}

func TestSyntaxErrorDropsFunction(t *testing.T) {
	ctx := context.Background()

	tree, root, pd := parse.ParseSource(ctx, []byte("int f(void) {\n  return 1 +;\n}\nint g(void) { return 2; }"), parse.Options{})
	require.True(t, pd.HasErrors())

	m, diags, err := Lower(ctx, "t.c", tree, root, Options{})
	require.NoError(t, err)
	assert.Empty(t, diags)

	assert.True(t, fn(t, m, "f").Decl)
	assert.False(t, fn(t, m, "g").Decl)

	err = syntaxError(token.Pos{Line: 2, Col: 3})
	assert.True(t, isSemantic(err))
	assert.EqualError(t, err, "2:3: syntax error")
}

func TestImplicitMain(t *testing.T) {
	m, diags := lower(t, `int x = 2; printf("%d\n", x);`)

	assert.Equal(t, []string{`implicit declaration of function "printf"`}, messages(diags, diag.Warning))
	assert.Empty(t, messages(diags, diag.Error))

	f := fn(t, m, "main")
	assert.False(t, f.Decl)
	assert.Equal(t, "fn() i32", m.Types.String(f.Type))

	p := fn(t, m, "printf")
	assert.True(t, p.Decl)
	assert.Equal(t, "fn(...) i32", m.Types.String(p.Type))
}

func TestStatementOutsideFunction(t *testing.T) {
	_, diags := lower(t, `int x; int main(void) { return 0; } x = 1;`)

	assert.Equal(t, []string{"statement outside of a function"}, messages(diags, diag.Error))
}

func TestImplicitDeclaration(t *testing.T) {
	m, diags := lower(t, `int f(void) { return g(1); } int g(int x) { return x; }`)

	assert.Equal(t, []string{`implicit declaration of function "g"`}, messages(diags, diag.Warning))
	assert.Empty(t, messages(diags, diag.Error))

	g := fn(t, m, "g")
	assert.False(t, g.Decl)
	assert.Equal(t, "fn(i32) i32", m.Types.String(g.Type))

	_, diags = lower(t, `int f(void) { return g(1, 2); } int g(int x) { return x; }`)
	require.Len(t, messages(diags, diag.Error), 1)
	assert.Contains(t, messages(diags, diag.Error)[0], `conflicting types for "g"`)
}

func TestGlobals(t *testing.T) {
	m, diags := lower(t, `int g = 1 + 2; char *s = "hi"; int *p = &g; int h; double d = -1; static int z = 'a';`)
	assert.Empty(t, diags)

	initOf := func(name string) *ir.Value {
		g, ok := m.LookupGlobal(name)
		require.True(t, ok, name)

		if g.Init == ir.None {
			return nil
		}

		return m.Value(g.Init)
	}

	assert.EqualValues(t, 3, initOf("g").Int)
	assert.Equal(t, ir.GlobalAddr, initOf("s").Kind)
	assert.True(t, m.Globals[initOf("s").Global].Str)
	assert.Equal(t, ir.GlobalAddr, initOf("p").Kind)
	assert.Nil(t, initOf("h"))
	assert.Equal(t, ir.ConstFloat, initOf("d").Kind)
	assert.EqualValues(t, -1, initOf("d").Float)
	assert.EqualValues(t, 'a', initOf("z").Int)

	z, _ := m.LookupGlobal("z")
	assert.True(t, z.Static)

	_, diags = lower(t, `int g = 1; int y = g; int f(void) { return 0; }`)
	assert.Equal(t, []string{"initializer element is not constant"}, messages(diags, diag.Error))
}

func TestConstantInitializers(t *testing.T) {
	m, diags := lower(t, `int a = 1 || 0; int b = 2 && 0; int c = 3 && 2.5; int arr[4];
char *s = (char *)"hi"; int *q = arr; void *v = (void *)&a;`)
	assert.Empty(t, diags)

	initOf := func(name string) *ir.Value {
		g, ok := m.LookupGlobal(name)
		require.True(t, ok, name)
		require.NotEqual(t, ir.None, g.Init, name)

		return m.Value(g.Init)
	}

	assert.EqualValues(t, 1, initOf("a").Int)
	assert.EqualValues(t, 0, initOf("b").Int)
	assert.EqualValues(t, 1, initOf("c").Int)

	for _, name := range []string{"s", "q", "v"} {
		g, _ := m.LookupGlobal(name)

		assert.Equal(t, ir.GlobalAddr, initOf(name).Kind, name)
		assert.Equal(t, g.Type, initOf(name).Type, name)
	}

	arr, _ := m.LookupGlobal("arr")
	assert.Equal(t, arr.ID, initOf("q").Global)
	assert.True(t, m.Globals[initOf("s").Global].Str)

	_, diags = lower(t, `int x; int y = x || 1;`)
	assert.Equal(t, []string{"initializer element is not constant"}, messages(diags, diag.Error))

	require.NoError(t, ir.Verify(m))
}

func TestStaticLocal(t *testing.T) {
	m, diags := lower(t, `int next(void) { static int n = 5; return n++; }`)
	assert.Empty(t, diags)

	g, ok := m.LookupGlobal("next.n.1")
	require.True(t, ok)
	assert.True(t, g.Static)
	assert.EqualValues(t, 5, m.Value(g.Init).Int)
}

func TestPointers(t *testing.T) {
	m, diags := lower(t, `
long f(int *p, int *q) {
	int a[4];
	a[1] = *p;
	p = p + 2;
	*(a + 2) = 3;
	return q - p;
}`)
	assert.Empty(t, diags)

	f := fn(t, m, "f")

	var elems, divs int

	for _, in := range f.Instrs {
		switch in.Op {
		case ir.Elem:
			elems++
		case ir.Div:
			divs++
			assert.EqualValues(t, 4, m.Value(in.Args[1]).Int)
		}
	}

	assert.Equal(t, 3, elems)
	assert.Equal(t, 1, divs)
}

func TestWarnings(t *testing.T) {
	_, diags := lower(t, `int f(int *p) { int x = p; p = 0; p = 1; return; }`)

	assert.Equal(t, []string{
		"implicit conversion from i32* to i32",
		"implicit conversion from i32 to i32*",
		"return with no value in function returning i32",
	}, messages(diags, diag.Warning))
	assert.Empty(t, messages(diags, diag.Error))
}

func TestSemanticErrors(t *testing.T) {
	for _, tc := range []struct {
		src string
		msg string
	}{
		{`void f(void) { return 1; }`, "void function should not return a value"},
		{`int f(void) { break; }`, "break statement not within a loop"},
		{`int f(void) { continue; }`, "continue statement not within a loop"},
		{`int f(int x) { return x(); }`, `called object "x" is not a function`},
		{`int g(int a); int f(void) { return g(); }`, `too few arguments to function "g"`},
		{`int g(int a); int f(void) { return g(1, 2); }`, `too many arguments to function "g"`},
		{`int f(void) { 1 = 2; return 0; }`, "expression is not assignable"},
		{`int f(void) { int a[2]; int b[2]; a = b; return 0; }`, "array type is not assignable"},
		{`int f(char *q) { void *p; p = q; return *p; }`, "dereferencing a void pointer"},
		{`int f(void *p) { return p + 1 != 0; }`, "arithmetic on a pointer to void"},
		{`int f(void) { int x; int x; return 0; }`, `redefinition of "x"`},
		{`int f(void) { return 0; } int f(void) { return 1; }`, `redefinition of "f"`},
		{`int f(void) { int a[2] = 1; return 0; }`, "array initializers are not supported"},
		{`int f(float x) { return x % 2; }`, "invalid operands to binary %"},
		{`int f(int x) { return x.y; }`, "struct member access is not supported"},
		{`int g(void); int f(void) { return g; }`, `function "g" used as a value`},
		{`int f(void) { void v; return 0; }`, `variable "v" declared void`},
		{`int g(void); double g(void);`, `conflicting types for "g"`},
	} {
		tc := tc

		t.Run(tc.msg, func(t *testing.T) {
			_, diags := lower(t, tc.src)

			errs := messages(diags, diag.Error)
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tc.msg)

			for _, d := range diags {
				assert.Equal(t, diag.SemanticError, d.Kind)
			}
		})
	}
}
