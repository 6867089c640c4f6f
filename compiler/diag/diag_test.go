package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/minicc/compiler/token"
)

func TestListWorst(t *testing.T) {
	var l List

	assert.Equal(t, Note, l.Worst())
	assert.False(t, l.HasErrors())

	l.Warnf(SemanticError, token.Pos{Offset: 10, Line: 2, Col: 3}, "implicit declaration of %q", "f")
	assert.Equal(t, Warning, l.Worst())
	assert.False(t, l.HasErrors())

	l.Errorf(ParseError, token.Pos{Offset: 1, Line: 1, Col: 2}, "expected %s", "';'")
	assert.True(t, l.HasErrors())
	assert.Equal(t, 1, l.Count(Error))

	l.Sort()

	assert.Equal(t, "t.c:1:2: error: expected ';'\nt.c:2:3: warning: implicit declaration of \"f\"\n", string(l.Append(nil, "t.c")))
}

func TestInternalError(t *testing.T) {
	var err error = Internal("block %v has no terminator", "entry")

	require.True(t, IsInternal(err))
	assert.True(t, IsInternal(errors.Wrap(err, "lower")))
	assert.Contains(t, err.Error(), "block entry has no terminator")

	assert.False(t, IsInternal(errors.New("plain")))
}
