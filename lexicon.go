package lexstore

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/npillmayer/lexstore/cdb"
	"github.com/npillmayer/lexstore/dat"
)

// EntryReader yields (key, value) entries for a trie one-by-one.
// It should return io.EOF when the stream is exhausted.
type EntryReader interface {
	Next() (key string, value int, err error)
}

// RecordReader yields (key, value) records for a constant database.
// It should return io.EOF when the stream is exhausted.
type RecordReader interface {
	Next() (key, value []byte, err error)
}

// Lexicon is the lookup contract offered to consumers of a lexicon.
// Lookup returns the value stored for key; absence is not an error.
type Lexicon interface {
	Lookup(key string) (int, bool)
	Close() error
}

// ErrBadValue is returned by a CDB-backed Lexicon whose value for a key is
// not a decimal integer.
var ErrBadValue = errors.New("lexstore: value is not an integer")

type entry struct {
	key   string
	value int
}

// CompileTrie reads all entries from reader, sorts them by key and builds a
// double-array trie. Entries repeating a key with the same value are
// merged; repeating a key with a different value is an error.
func CompileTrie(name string, reader EntryReader) (*dat.DAT, error) {
	var entries []entry
	for {
		key, value, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("lexstore: reading %s: %w", name, err)
		}
		entries = append(entries, entry{key: key, value: value})
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		return strings.Compare(a.key, b.key)
	})
	entries = slices.Compact(entries)
	keys := make([]string, len(entries))
	values := make([]int, len(entries))
	for i, e := range entries {
		keys[i], values[i] = e.key, e.value
	}
	trie, err := dat.Build(keys, values)
	if err != nil {
		return nil, fmt.Errorf("lexstore: compiling %s: %w", name, err)
	}
	stats := trie.Stats()
	tracer().Infof("lexicon %s: %d entries, trie used=%d total=%d fill=%.2f",
		name, len(keys), stats.UsedSlots, stats.TotalSlots, stats.FillRatio())
	return trie, nil
}

// CompileCDB streams all records from reader into a new constant database
// at path and returns the number of records written. On error no file is
// installed at path.
func CompileCDB(path string, reader RecordReader) (int, error) {
	b, err := cdb.Create(path)
	if err != nil {
		return 0, err
	}
	for {
		key, value, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err == nil {
			err = b.Add(key, value)
		}
		if err != nil {
			b.Abort()
			return 0, fmt.Errorf("lexstore: compiling %s: %w", path, err)
		}
	}
	if err := b.Finish(); err != nil {
		return 0, err
	}
	return b.Records(), nil
}

// TrieLexicon serves lookups from a double-array trie.
type TrieLexicon struct {
	Trie *dat.DAT
}

// Lookup returns the value stored for key.
func (l TrieLexicon) Lookup(key string) (int, bool) {
	v := l.Trie.ExactMatchSearch(key)
	return v, v >= 0
}

// Prefixes returns all lexicon entries which are prefixes of text.
func (l TrieLexicon) Prefixes(text string) []dat.Match {
	return l.Trie.CommonPrefixSearch(text)
}

// Close releases the trie's file mapping, if any.
func (l TrieLexicon) Close() error { return l.Trie.Close() }

// CDBLexicon serves lookups from a constant database whose values are
// decimal integers.
type CDBLexicon struct {
	DB *cdb.CDB
}

// Lookup returns the first value stored for key. Values which are not
// decimal integers count as absent; use LookupErr to tell them apart.
func (l CDBLexicon) Lookup(key string) (int, bool) {
	v, ok, err := l.LookupErr(key)
	return v, ok && err == nil
}

// LookupErr returns the first value stored for key.
func (l CDBLexicon) LookupErr(key string) (int, bool, error) {
	raw, ok, err := l.DB.FindErr([]byte(key))
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, false, fmt.Errorf("%w: %q for key %q", ErrBadValue, raw, key)
	}
	return v, true, nil
}

// Close releases the database mapping.
func (l CDBLexicon) Close() error { return l.DB.Close() }

// OpenLexicon opens a lexicon file, memory mapped. Files ending in ".cdb"
// are opened as constant databases, anything else as a double-array trie.
func OpenLexicon(path string) (Lexicon, error) {
	if strings.EqualFold(filepath.Ext(path), ".cdb") {
		db, err := cdb.Open(path)
		if err != nil {
			return nil, err
		}
		return CDBLexicon{DB: db}, nil
	}
	trie, err := dat.Open(path)
	if err != nil {
		return nil, err
	}
	if err := trie.Verify(); err != nil {
		trie.Close()
		return nil, err
	}
	return TrieLexicon{Trie: trie}, nil
}
