package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBits(t *testing.T) {
	var s Bits[int32]

	assert.False(t, s.IsSet(3))

	s.Set(3)
	s.Set(200)
	s.Set(0)
	s.Set(64)

	assert.True(t, s.IsSet(3))
	assert.True(t, s.IsSet(200))
	assert.False(t, s.IsSet(4))
	assert.False(t, s.IsSet(1000))
	assert.Equal(t, 4, s.Size())
	assert.Equal(t, []int32{0, 3, 64, 200}, s.Slice())

	c := s.Copy()
	s.Clear(64)

	assert.Equal(t, []int32{0, 3, 200}, s.Slice())
	assert.Equal(t, []int32{0, 3, 64, 200}, c.Slice())

	x := MakeBits[int32](10)
	x.Set(5)
	x.Merge(s)

	assert.Equal(t, []int32{0, 3, 5, 200}, x.Slice())

	var first []int32

	x.Range(func(k int32) bool {
		first = append(first, k)
		return len(first) < 2
	})

	assert.Equal(t, []int32{0, 3}, first)
}

func TestBitsIntersect(t *testing.T) {
	var a, b Bits[int]

	a.Set(1)
	a.Set(70)
	a.Set(130)

	b.Set(1)
	b.Set(2)
	b.Set(70)

	c := a.Copy()
	c.Intersect(b)

	assert.Equal(t, []int{1, 70}, c.Slice())
	assert.Equal(t, []int{1, 70, 130}, a.Slice())

	assert.False(t, c.Equal(a))
	assert.False(t, a.Equal(c))

	var d Bits[int]

	d.Set(1)
	d.Set(70)

	assert.True(t, c.Equal(d))
	assert.True(t, d.Equal(c))

	assert.True(t, Bits[int]{}.Equal(MakeBits[int](200)))
}
