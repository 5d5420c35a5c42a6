package expand

import (
	"keydogger/internal/keymap"
	"keydogger/internal/keystroke"
)

// Match describes an abbreviation that just completed.
type Match struct {
	Node         NodeID
	Abbreviation string
	EraseCount   int
	Expansion    string
}

// Engine is the matching automaton: a cursor walking a Trie one typed
// character at a time. An Engine is not safe for concurrent use; the event
// loop owns it.
type Engine struct {
	trie    *Trie
	cursor  NodeID
	emitter *Emitter
}

// NewEngine returns an engine at the root of trie. emitter may be nil, in
// which case matches are reported but nothing is typed.
func NewEngine(trie *Trie, emitter *Emitter) *Engine {
	return &Engine{trie: trie, cursor: Root, emitter: emitter}
}

// Trie returns the trie being matched against.
func (e *Engine) Trie() *Trie {
	return e.trie
}

// SetTrie swaps in a new trie and moves the cursor to its root.
func (e *Engine) SetTrie(t *Trie) {
	e.trie = t
	e.cursor = Root
}

// Cursor returns the current node.
func (e *Engine) Cursor() NodeID {
	return e.cursor
}

// Reset moves the cursor back to the root.
func (e *Engine) Reset() {
	e.cursor = Root
}

// Step feeds one typed character.
//
// If the character continues the current prefix the cursor advances, and
// when that lands on a leaf the match is returned and the cursor goes back
// to the root. Otherwise the cursor goes back to the root and the character
// is dropped: it is not retried as the start of a new abbreviation.
func (e *Engine) Step(c byte) (Match, bool) {
	child, ok := e.trie.ChildAt(e.cursor, c)
	if !ok {
		e.cursor = Root
		return Match{}, false
	}
	e.cursor = child
	if !e.trie.IsLeaf(child) {
		return Match{}, false
	}

	expansion, _ := e.trie.Expansion(child)
	m := Match{
		Node:         child,
		Abbreviation: e.trie.Prefix(child),
		EraseCount:   e.trie.PrefixLength(child),
		Expansion:    expansion,
	}
	e.cursor = Root
	return m, true
}

// HandleEvent feeds one raw input event. Only key presses of alphabet keys
// reach the automaton; releases, autorepeat and every other key leave the
// cursor where it is. On a match the expansion is typed through the
// emitter; a returned error means the expansion was cut short, the cursor
// is at the root either way.
func (e *Engine) HandleEvent(ev keystroke.Event) (Match, bool, error) {
	if !ev.IsKeyPress() {
		return Match{}, false, nil
	}
	c, err := keymap.CharacterOf(ev.Code)
	if err != nil {
		return Match{}, false, nil
	}

	m, ok := e.Step(c)
	if !ok || e.emitter == nil {
		return m, ok, nil
	}
	return m, true, e.emitter.Emit(m.EraseCount, m.Expansion)
}
