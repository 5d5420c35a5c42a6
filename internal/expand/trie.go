package expand

import (
	"errors"
	"fmt"

	"keydogger/internal/keymap"
)

// NodeID addresses a node in a Trie's arena.
type NodeID int32

const (
	// Root is the ID of the root node of every trie.
	Root NodeID = 0

	// NoNode is the parent of the root.
	NoNode NodeID = -1
)

var (
	// ErrEmptyAbbreviation is returned when inserting "".
	ErrEmptyAbbreviation = errors.New("empty abbreviation")
)

// node is one matched prefix. A zero child slot means "no child": the root
// occupies ID 0 and is never anyone's child.
type node struct {
	char      byte
	keycode   uint16
	parent    NodeID
	children  [keymap.Size]NodeID
	leaf      bool
	expansion string
}

// Trie maps abbreviations to expansions over the keymap alphabet.
//
// Nodes live in a flat arena and refer to each other by index. A Trie is
// built once and then only read; it is safe for concurrent readers.
type Trie struct {
	nodes  []node
	leaves int
}

// NewTrie returns a trie holding only the root.
func NewTrie() *Trie {
	return &Trie{nodes: []node{{parent: NoNode}}}
}

// Insert adds abbreviation with its expansion. A second insert of the same
// abbreviation replaces the expansion. On error the trie is left unchanged.
func (t *Trie) Insert(abbreviation, expansion string) error {
	if abbreviation == "" {
		return ErrEmptyAbbreviation
	}

	positions := make([]int, len(abbreviation))
	for i := 0; i < len(abbreviation); i++ {
		p, err := keymap.PositionOf(abbreviation[i])
		if err != nil {
			return fmt.Errorf("abbreviation %q at offset %d: %w", abbreviation, i, err)
		}
		positions[i] = p
	}
	for i := 0; i < len(expansion); i++ {
		if _, _, err := keymap.Resolve(expansion[i]); err != nil {
			return fmt.Errorf("expansion for %q at offset %d: %w", abbreviation, i, err)
		}
	}

	cur := Root
	for i, p := range positions {
		next := t.nodes[cur].children[p]
		if next == Root {
			next = NodeID(len(t.nodes))
			code, _ := keymap.KeycodeOf(abbreviation[i])
			t.nodes = append(t.nodes, node{
				char:    abbreviation[i],
				keycode: code,
				parent:  cur,
			})
			t.nodes[cur].children[p] = next
		}
		cur = next
	}

	n := &t.nodes[cur]
	if !n.leaf {
		t.leaves++
	}
	n.leaf = true
	n.expansion = expansion
	return nil
}

// ChildAt returns the node reached from n by typing c.
func (t *Trie) ChildAt(n NodeID, c byte) (NodeID, bool) {
	p, err := keymap.PositionOf(c)
	if err != nil {
		return Root, false
	}
	child := t.nodes[n].children[p]
	return child, child != Root
}

// PrefixLength counts the characters between n and the root.
func (t *Trie) PrefixLength(n NodeID) int {
	count := 0
	for cur := n; cur != Root; cur = t.nodes[cur].parent {
		count++
	}
	return count
}

// Prefix rebuilds the characters typed to reach n.
func (t *Trie) Prefix(n NodeID) string {
	buf := make([]byte, t.PrefixLength(n))
	i := len(buf)
	for cur := n; cur != Root; cur = t.nodes[cur].parent {
		i--
		buf[i] = t.nodes[cur].char
	}
	return string(buf)
}

// IsLeaf reports whether an abbreviation ends at n.
func (t *Trie) IsLeaf(n NodeID) bool {
	return t.nodes[n].leaf
}

// Expansion returns the text stored at a leaf.
func (t *Trie) Expansion(n NodeID) (string, bool) {
	nd := &t.nodes[n]
	return nd.expansion, nd.leaf
}

// Keycode returns the keycode consumed to reach n; zero at the root.
func (t *Trie) Keycode(n NodeID) uint16 {
	return t.nodes[n].keycode
}

// Len returns the number of abbreviations stored.
func (t *Trie) Len() int {
	return t.leaves
}

// Nodes returns the arena size, root included.
func (t *Trie) Nodes() int {
	return len(t.nodes)
}

// Entry is one abbreviation and its expansion.
type Entry struct {
	Abbreviation string
	Expansion    string
}

// Entries lists every abbreviation in alphabet order, shorter before longer.
func (t *Trie) Entries() []Entry {
	entries := make([]Entry, 0, t.leaves)
	var walk func(n NodeID)
	walk = func(n NodeID) {
		nd := &t.nodes[n]
		if nd.leaf {
			entries = append(entries, Entry{Abbreviation: t.Prefix(n), Expansion: nd.expansion})
		}
		for _, child := range nd.children {
			if child != Root {
				walk(child)
			}
		}
	}
	walk(Root)
	return entries
}
