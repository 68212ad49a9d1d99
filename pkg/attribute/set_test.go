package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet_CanonicalOrder(t *testing.T) {
	a := NewSet(String("b", "2"), String("a", "1"), Int64("c", 3))
	b := NewSet(Int64("c", 3), String("a", "1"), String("b", "2"))

	assert.Equal(t, a.Distinct(), b.Distinct())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.True(t, a.Equals(b))

	kv, ok := a.Get(0)
	require.True(t, ok)
	assert.Equal(t, "a", kv.Key)
}

func TestNewSet_PermutationFingerprint(t *testing.T) {
	kvs := []KeyValue{
		String("host", "web-1"),
		Int64("port", 443),
		Bool("secure", true),
		Float64("load", 0.75),
		StringSlice("tags", []string{"a", "b"}),
	}
	base := NewSet(kvs...)

	perms := [][]int{{4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}, {1, 4, 0, 3, 2}}
	for _, p := range perms {
		shuffled := make([]KeyValue, len(kvs))
		for i, j := range p {
			shuffled[i] = kvs[j]
		}
		got := NewSet(shuffled...)
		assert.Equal(t, base.Fingerprint(), got.Fingerprint())
		assert.Equal(t, base.Distinct(), got.Distinct())
	}
}

func TestNewSet_DuplicateKeyLastWins(t *testing.T) {
	s := NewSet(String("k", "first"), String("k", "second"))
	require.Equal(t, 1, s.Len())
	v, ok := s.Value("k")
	require.True(t, ok)
	assert.Equal(t, "second", v.AsString())
}

func TestNewSet_DropsInvalid(t *testing.T) {
	s := NewSet(String("", "dropped"), KeyValue{Key: "novalue"}, String("kept", "v"))
	require.Equal(t, 1, s.Len())
	_, ok := s.Value("kept")
	assert.True(t, ok)
}

func TestNewSet_TruncatesDeepNesting(t *testing.T) {
	deep := ListValue(ListValue(ListValue(ListValue(ListValue(StringValue("too deep"))))))
	s := NewSet(List("nested", deep))
	require.Equal(t, 1, s.Len())

	v, ok := s.Value("nested")
	require.True(t, ok)
	// Depth limit defaults to 4; the level-4 list survives but is emptied.
	lvl := v
	for i := 0; i < 4; i++ {
		elems := lvl.AsList()
		require.NotEmpty(t, elems, "level %d", i)
		lvl = elems[0]
	}
	assert.Empty(t, lvl.AsList())
}

func TestSet_ValueLookup(t *testing.T) {
	s := NewSet(String("a", "1"), Int64("b", 2), Float64("c", 3.5), Bool("d", true))

	v, ok := s.Value("b")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.AsInt64())

	v, ok = s.Value("c")
	require.True(t, ok)
	assert.Equal(t, 3.5, v.AsFloat64())

	_, ok = s.Value("missing")
	assert.False(t, ok)
}

func TestSet_Filter(t *testing.T) {
	s := NewSet(String("keep", "v"), String("drop", "w"), Int64("also_keep", 1))

	kept, dropped := s.Filter(map[string]struct{}{"keep": {}, "also_keep": {}})
	assert.Equal(t, 2, kept.Len())
	require.Len(t, dropped, 1)
	assert.Equal(t, "drop", dropped[0].Key)

	all, none := s.Filter(map[string]struct{}{"keep": {}, "drop": {}, "also_keep": {}})
	assert.True(t, all.Equals(s))
	assert.Nil(t, none)

	empty, rest := s.Filter(nil)
	assert.Equal(t, 0, empty.Len())
	assert.Len(t, rest, 3)
}

func TestSet_EmptyDistinct(t *testing.T) {
	assert.Equal(t, EmptySet().Distinct(), NewSet().Distinct())
	assert.NotEqual(t, EmptySet().Distinct(), NewSet(String("a", "b")).Distinct())
}

func TestValue_ListEquality(t *testing.T) {
	a := NewSet(StringSlice("tags", []string{"x", "y"}))
	b := NewSet(StringSlice("tags", []string{"x", "y"}))
	c := NewSet(StringSlice("tags", []string{"y", "x"}))

	assert.Equal(t, a.Distinct(), b.Distinct())
	// List element order is significant.
	assert.NotEqual(t, a.Distinct(), c.Distinct())
}
