/*
Package dat implements a frozen double-array trie mapping string keys to
non-negative integers.

The trie is two parallel int32 arrays. For a state s with b = Base[s] and an
input rune r, the transition leads to t = b + r + 1, and is valid if
Check[t] == b. Code 0 is reserved for the end of a key: a key ending in state
s is stored in the slot p = Base[s] with Check[p] == Base[s] and a negative
Base[p] encoding the value as -Base[p]-1. The root is state 0.

A trie is built once from a sorted key set (see Build) and is immutable
afterwards. It can be saved to a file of n little-endian base words
followed by n little-endian check words, and opened again either memory
mapped (Open) or copied into memory (Load). Lookups never allocate on the
mapped path and are safe for any number of concurrent readers.

Keys are iterated as runes; for text in the Basic Multilingual Plane the
transition codes equal UTF-16 code units plus one. Lengths reported by the
prefix searches count runes. Keys outside the BMP are coded by code point
rather than as surrogate pairs, so tries holding such keys are not
compatible with files that use UTF-16 transition codes.
*/
package dat

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'lexstore'
func tracer() tracing.Trace {
	return tracing.Select("lexstore")
}
