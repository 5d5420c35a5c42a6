// Package expand is keydogger's expansion engine.
//
// A Trie holds the configured abbreviations over the keymap alphabet. An
// Engine walks it one key press at a time and, the moment an abbreviation
// is complete, hands it to an Emitter which erases the typed characters and
// types the expansion into a synthetic keyboard.
//
// Matching is shortest-first: when "ab" and "abc" are both configured,
// typing "ab" fires and "abc" can never be reached. A key that breaks an
// in-progress abbreviation resets the cursor and is itself discarded.
package expand
