/*
Package tsv streams lexicon entries from tab-separated text files, for
feeding the CDB and double-array trie builders.

Each line holds a key, a tab, and a value:

	# comment
	Haus	17
	Häuser	18

Blank lines and lines starting with '#' are skipped. Keys are taken verbatim
unless Options.Folder is set.
*/
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/transform"
)

// Options are options for reading a lexicon source.
type Options struct {
	// Separator splits key from value. Defaults to a tab.
	Separator string

	// Folder returns a [transform.Transformer] applied to every key, e.g.
	// for case folding. Values are never transformed.
	Folder func() transform.Transformer

	// MaxLineSize limits the length of a line in bytes.
	MaxLineSize int
}

// DefaultOptions is the default options for a reader.
var DefaultOptions = &Options{
	Separator:   "\t",
	Folder:      func() transform.Transformer { return transform.Nop },
	MaxLineSize: 1024 * 1024,
}

type lineReader struct {
	scanner *bufio.Scanner
	sep     string
	folder  func() transform.Transformer
	lineno  int
}

func newLineReader(r io.Reader, opts *Options) *lineReader {
	if opts == nil {
		opts = DefaultOptions
	}
	lr := &lineReader{
		scanner: bufio.NewScanner(r),
		sep:     DefaultOptions.Separator,
		folder:  DefaultOptions.Folder,
	}
	if opts.Separator != "" {
		lr.sep = opts.Separator
	}
	if opts.Folder != nil {
		lr.folder = opts.Folder
	}
	maxLine := DefaultOptions.MaxLineSize
	if opts.MaxLineSize > 0 {
		maxLine = opts.MaxLineSize
	}
	lr.scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	return lr
}

// next returns the key and raw value of the next entry line.
func (lr *lineReader) next() (string, string, bool, error) {
	for lr.scanner.Scan() {
		lr.lineno++
		line := strings.TrimSuffix(lr.scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, lr.sep)
		folded, _, err := transform.String(lr.folder(), key)
		if err != nil {
			return "", "", false, fmt.Errorf("tsv: line %d: folding %q: %w", lr.lineno, key, err)
		}
		return folded, value, found, nil
	}
	if err := lr.scanner.Err(); err != nil {
		return "", "", false, err
	}
	return "", "", false, io.EOF
}

// EntryReader streams (key, integer value) entries for the trie builder.
type EntryReader struct {
	lr    *lineReader
	count int
}

// NewEntryReader returns a reader of integer-valued entries. A line without
// a value gets the number of entries read before it.
func NewEntryReader(r io.Reader, opts *Options) *EntryReader {
	return &EntryReader{lr: newLineReader(r, opts)}
}

// Next returns the next entry. It returns io.EOF when exhausted.
func (r *EntryReader) Next() (string, int, error) {
	key, raw, found, err := r.lr.next()
	if err != nil {
		return "", 0, err
	}
	value := r.count
	if found {
		value, err = strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", 0, fmt.Errorf("tsv: line %d: %w", r.lr.lineno, err)
		}
	}
	r.count++
	return key, value, nil
}

// RecordReader streams (key, value) byte records for the CDB builder.
type RecordReader struct {
	lr *lineReader
}

// NewRecordReader returns a reader of byte records. A line without a
// separator yields an empty value.
func NewRecordReader(r io.Reader, opts *Options) *RecordReader {
	return &RecordReader{lr: newLineReader(r, opts)}
}

// Next returns the next record. It returns io.EOF when exhausted.
// The returned slices are not reused by subsequent calls.
func (r *RecordReader) Next() ([]byte, []byte, error) {
	key, value, _, err := r.lr.next()
	if err != nil {
		return nil, nil, err
	}
	return []byte(key), []byte(value), nil
}

// Line returns the number of the line last read.
func (r *RecordReader) Line() int { return r.lr.lineno }

// Line returns the number of the line last read.
func (r *EntryReader) Line() int { return r.lr.lineno }
