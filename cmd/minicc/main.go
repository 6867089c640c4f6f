package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/nikandfor/hacked/hfmt"
	"github.com/sanity-io/litter"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler"
	"github.com/slowlang/minicc/compiler/diag"
	"github.com/slowlang/minicc/compiler/format"
	"github.com/slowlang/minicc/compiler/lexer"
	"github.com/slowlang/minicc/compiler/parse"
)

func main() {
	tokensCmd := &cli.Command{
		Name:        "tokens",
		Description: "print the token stream",
		Action:      tokensAct,
		Args:        cli.Args{},
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print the syntax tree",
		Action:      parseAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("dump", false, "dump raw node arena"),
			cli.NewFlag("max-depth", parse.DefaultMaxDepth, "max nesting depth"),
		},
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "print intermediate representation",
		Action:      irAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("max-depth", parse.DefaultMaxDepth, "max nesting depth"),
			cli.NewFlag("entry", "main", "function to collect top-level statements into"),
		},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile to x86-64 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, - for stdout, <name>.s by default"),
			cli.NewFlag("max-depth", parse.DefaultMaxDepth, "max nesting depth"),
			cli.NewFlag("entry", "main", "function to collect top-level statements into"),
		},
	}

	app := &cli.Command{
		Name:        "minicc",
		Description: "minicc is a small C compiler emitting x86-64 assembly",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
		},
		Commands: []*cli.Command{
			tokensCmd,
			parseCmd,
			irCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func tokensAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	var b []byte

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		toks, diags := lexer.Tokenize(ctx, text)

		for _, t := range toks {
			b = hfmt.Appendf(b, "%d:%d\t%v\n", t.Pos.Line, t.Pos.Col, t)
		}

		report(a, diags)
	}

	_, err = os.Stdout.Write(b)

	return err
}

func parseAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	status := 0

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		tree, root, diags := parse.ParseSource(ctx, text, parse.Options{MaxDepth: c.Int("max-depth")})

		var b []byte

		if c.Bool("dump") {
			b = append(b, litter.Sdump(tree.Nodes)...)
			b = append(b, '\n')
		} else {
			b, err = format.Format(ctx, b, tree, root)
			if err != nil {
				return errors.Wrap(err, "format %v", a)
			}
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}

		report(a, diags)

		if diags.HasErrors() {
			status = 1
		}
	}

	exit(status)

	return nil
}

func irAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	status := 0

	for _, a := range c.Args {
		res, err := compiler.CompileFile(ctx, a, options(c, true))
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		_, err = os.Stdout.Write(res.IR)
		if err != nil {
			return errors.Wrap(err, "write")
		}

		report(a, res.Diags)

		status = max(status, res.Status())
	}

	exit(status)

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := tlog.ContextWithSpan(context.Background(), tlog.Root())

	if c.String("output") != "" && len(c.Args) > 1 {
		return errors.New("--output with multiple inputs")
	}

	status := 0

	for _, a := range c.Args {
		res, err := compiler.CompileFile(ctx, a, options(c, false))
		if err != nil {
			if diag.IsInternal(err) {
				tlog.Printw("compile", "file", a, "err", err)
				exit(2)
			}

			return errors.Wrap(err, "compile %v", a)
		}

		report(a, res.Diags)

		status = max(status, res.Status())
		if res.Status() != 0 {
			continue
		}

		out := c.String("output")
		if out == "" {
			out = strings.TrimSuffix(a, filepath.Ext(a)) + ".s"
		}

		if out == "-" {
			_, err = os.Stdout.Write(res.Asm)
		} else {
			err = os.WriteFile(out, res.Asm, 0o644)
		}

		if err != nil {
			return errors.Wrap(err, "write %v", out)
		}
	}

	exit(status)

	return nil
}

func options(c *cli.Command, dumpIR bool) compiler.Options {
	return compiler.Options{
		MaxDepth: c.Int("max-depth"),
		Entry:    c.String("entry"),
		DumpIR:   dumpIR,
	}
}

func report(name string, diags diag.List) {
	if len(diags) == 0 {
		return
	}

	_, _ = os.Stderr.Write(diags.Append(nil, name))
}

func exit(status int) {
	if status != 0 {
		os.Exit(status)
	}
}
