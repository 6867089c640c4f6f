package lexer

import "github.com/slowlang/minicc/compiler/token"

type (
	// Stream is a read cursor over a token slice terminated by EOF.
	Stream struct {
		toks []token.Token
		i    int
	}
)

func NewStream(toks []token.Token) *Stream {
	if len(toks) == 0 || toks[len(toks)-1].Cat != token.EOF {
		var pos token.Pos
		if len(toks) != 0 {
			pos = toks[len(toks)-1].Pos
		}

		toks = append(toks[:len(toks):len(toks)], token.Token{Cat: token.EOF, Pos: pos})
	}

	return &Stream{toks: toks}
}

func (s *Stream) Peek() token.Token {
	return s.Lookahead(0)
}

// Lookahead returns the token n positions ahead of the cursor.
// Looking past the end returns the EOF token.
func (s *Stream) Lookahead(n int) token.Token {
	if s.i+n >= len(s.toks) {
		return s.toks[len(s.toks)-1]
	}

	return s.toks[s.i+n]
}

func (s *Stream) Next() token.Token {
	t := s.Peek()

	if s.i < len(s.toks)-1 {
		s.i++
	}

	return t
}

func (s *Stream) Prev() token.Token {
	if s.i == 0 {
		return s.toks[0]
	}

	return s.toks[s.i-1]
}

func (s *Stream) EOF() bool {
	return s.Peek().Cat == token.EOF
}

func (s *Stream) Index() int { return s.i }
