package diag

import (
	"fmt"
	"sort"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/loc"

	"github.com/slowlang/minicc/compiler/token"
)

type (
	Severity int
	Kind     int

	Diagnostic struct {
		Severity Severity
		Kind     Kind
		Msg      string
		Pos      token.Pos
	}

	List []Diagnostic

	// InternalError is a violated compiler invariant.
	// It is never caused by bad input and aborts the whole compilation.
	InternalError struct {
		Msg string
		PC  loc.PC
	}
)

const (
	Note Severity = iota
	Warning
	Error
	Fatal
)

const (
	LexError Kind = iota
	ParseError
	SemanticError
	InternalErr
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lex"
	case ParseError:
		return "parse"
	case SemanticError:
		return "semantic"
	case InternalErr:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (d Diagnostic) Line() int { return d.Pos.Line }
func (d Diagnostic) Col() int  { return d.Pos.Col }

func (d Diagnostic) String() string {
	return string(d.Append(nil))
}

func (d Diagnostic) Append(b []byte) []byte {
	return hfmt.Appendf(b, "%d:%d: %v: %s", d.Pos.Line, d.Pos.Col, d.Severity, d.Msg)
}

func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

func (l *List) Errorf(k Kind, pos token.Pos, format string, args ...any) {
	l.Add(Diagnostic{
		Severity: Error,
		Kind:     k,
		Msg:      fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

func (l *List) Warnf(k Kind, pos token.Pos, format string, args ...any) {
	l.Add(Diagnostic{
		Severity: Warning,
		Kind:     k,
		Msg:      fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

func (l *List) Merge(x List) {
	*l = append(*l, x...)
}

func (l List) HasErrors() bool {
	return l.Worst() >= Error
}

// Worst returns the highest severity in the list, or Note for an empty list.
func (l List) Worst() (s Severity) {
	for _, d := range l {
		if d.Severity > s {
			s = d.Severity
		}
	}

	return s
}

func (l List) Count(s Severity) (n int) {
	for _, d := range l {
		if d.Severity == s {
			n++
		}
	}

	return n
}

// Sort orders diagnostics by source position keeping the report order of equal positions.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].Pos.Offset < l[j].Pos.Offset
	})
}

// Append renders one diagnostic per line prefixed with name.
func (l List) Append(b []byte, name string) []byte {
	for _, d := range l {
		if name != "" {
			b = hfmt.Appendf(b, "%s:", name)
		}

		b = d.Append(b)
		b = append(b, '\n')
	}

	return b
}

func Internal(format string, args ...any) *InternalError {
	return &InternalError{
		Msg: fmt.Sprintf(format, args...),
		PC:  loc.Caller(1),
	}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal compiler error: %s (at %v)", e.Msg, e.PC)
}

func IsInternal(err error) bool {
	var ie *InternalError

	return errors.As(err, &ie)
}
