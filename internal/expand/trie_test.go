package expand

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keydogger/internal/keymap"
)

func TestNewTrieHasOnlyRoot(t *testing.T) {
	tr := NewTrie()
	assert.Equal(t, 1, tr.Nodes())
	assert.Equal(t, 0, tr.Len())
	assert.False(t, tr.IsLeaf(Root))
	assert.Equal(t, 0, tr.PrefixLength(Root))
	assert.Equal(t, "", tr.Prefix(Root))
	assert.Equal(t, uint16(0), tr.Keycode(Root))
}

func TestInsertCreatesChain(t *testing.T) {
	tr := NewTrie()
	require.NoError(t, tr.Insert("brb", "be right back"))

	assert.Equal(t, 4, tr.Nodes())
	assert.Equal(t, 1, tr.Len())

	b, ok := tr.ChildAt(Root, 'b')
	require.True(t, ok)
	assert.False(t, tr.IsLeaf(b))
	assert.Equal(t, uint16(48), tr.Keycode(b))

	r, ok := tr.ChildAt(b, 'r')
	require.True(t, ok)
	b2, ok := tr.ChildAt(r, 'b')
	require.True(t, ok)

	assert.True(t, tr.IsLeaf(b2))
	exp, ok := tr.Expansion(b2)
	assert.True(t, ok)
	assert.Equal(t, "be right back", exp)
	assert.Equal(t, 3, tr.PrefixLength(b2))
	assert.Equal(t, "brb", tr.Prefix(b2))

	_, ok = tr.ChildAt(Root, 'r')
	assert.False(t, ok)
}

func TestInsertSharesPrefixes(t *testing.T) {
	tr := NewTrie()
	require.NoError(t, tr.Insert("ab", "Abraham"))
	require.NoError(t, tr.Insert("abc", "ABC"))
	require.NoError(t, tr.Insert("ax", "axe"))

	// root, a, b, c, x
	assert.Equal(t, 5, tr.Nodes())
	assert.Equal(t, 3, tr.Len())

	a, _ := tr.ChildAt(Root, 'a')
	b, _ := tr.ChildAt(a, 'b')
	c, _ := tr.ChildAt(b, 'c')
	assert.True(t, tr.IsLeaf(b))
	assert.True(t, tr.IsLeaf(c))
	assert.Equal(t, 3, tr.PrefixLength(c))
}

func TestInsertDuplicateOverwrites(t *testing.T) {
	tr := NewTrie()
	require.NoError(t, tr.Insert("sig", "first"))
	require.NoError(t, tr.Insert("sig", "second"))

	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, []Entry{{Abbreviation: "sig", Expansion: "second"}}, tr.Entries())
}

func TestInsertRejectsInvalidAbbreviation(t *testing.T) {
	tr := NewTrie()
	require.NoError(t, tr.Insert("ok", "fine"))

	tests := []struct {
		name   string
		abbrev string
		want   error
	}{
		{"uppercase", "Ab", keymap.ErrInvalidCharacter},
		{"shifted symbol", "a!", keymap.ErrInvalidCharacter},
		{"newline", "a\n", keymap.ErrInvalidCharacter},
		{"non-ascii", "caf\xc3\xa9", keymap.ErrInvalidCharacter},
		{"empty", "", ErrEmptyAbbreviation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tr.Insert(tt.abbrev, "x")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	// Failed inserts leave no partial chains behind.
	assert.Equal(t, 3, tr.Nodes())
	assert.Equal(t, 1, tr.Len())
}

func TestInsertRejectsUntypeableExpansion(t *testing.T) {
	tr := NewTrie()
	err := tr.Insert("tab", "a\tb")
	assert.ErrorIs(t, err, keymap.ErrInvalidCharacter)
	assert.Equal(t, 1, tr.Nodes())
}

func TestInsertAcceptsShiftedExpansion(t *testing.T) {
	tr := NewTrie()
	assert.NoError(t, tr.Insert("hi", "Hello, World!"))
}

func TestChildAtInvalidCharacter(t *testing.T) {
	tr := NewTrie()
	require.NoError(t, tr.Insert("a", "b"))
	_, ok := tr.ChildAt(Root, 'A')
	assert.False(t, ok)
}

func TestEntriesOrder(t *testing.T) {
	tr := NewTrie()
	require.NoError(t, tr.Insert("zz", "last"))
	require.NoError(t, tr.Insert("abc", "longer"))
	require.NoError(t, tr.Insert("ab", "shorter"))
	require.NoError(t, tr.Insert("a1", "digit"))

	got := tr.Entries()
	want := []Entry{
		{"ab", "shorter"},
		{"abc", "longer"},
		{"a1", "digit"},
		{"zz", "last"},
	}
	assert.Equal(t, want, got)
}
