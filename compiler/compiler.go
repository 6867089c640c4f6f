package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler/back"
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/front"
	"github.com/slowlang/minicc/compiler/ir"
	"github.com/slowlang/minicc/compiler/parse"
)

type (
	Options struct {
		MaxDepth int    // parser nesting limit, parse.DefaultMaxDepth if zero
		Entry    string // function top-level statements go to, front.DefaultEntry if empty

		DumpIR bool
	}

	Result struct {
		Asm   []byte // nil if Diags has errors
		IR    []byte // set with Options.DumpIR
		Diags diag.List
	}
)

func CompileFile(ctx context.Context, name string, opts Options) (*Result, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, opts)
}

// Compile runs the whole pipeline on one translation unit.
// User errors are reported in Result.Diags, the error is returned
// only if the compiler itself failed.
func Compile(ctx context.Context, name string, text []byte, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	res = &Result{}

	tree, root, diags := parse.ParseSource(ctx, text, parse.Options{MaxDepth: opts.MaxDepth})
	res.Diags = diags

	m, diags, err := front.Lower(ctx, name, tree, root, front.Options{Entry: opts.Entry})
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	res.Diags.Merge(diags)
	res.Diags.Sort()

	if opts.DumpIR {
		res.IR = ir.Print(nil, m)
	}

	if res.Diags.HasErrors() {
		tr.Printw("errors", "errors", res.Diags.Count(diag.Error), "warnings", res.Diags.Count(diag.Warning))

		return res, nil
	}

	res.Asm, err = back.Generate(ctx, m)
	if err != nil {
		return nil, errors.Wrap(err, "generate")
	}

	return res, nil
}

// Status is the process exit code for the result.
// A nil Result means the compiler failed with an internal error.
func (r *Result) Status() int {
	switch {
	case r == nil:
		return 2
	case r.Diags.HasErrors():
		return 1
	default:
		return 0
	}
}
