/*
Package lexstore serves large static lexicons from immutable lookup files.

Two file formats are supported, both built once offline and queried
read-only, usually memory mapped so that startup cost and resident memory
do not depend on the size of the lexicon:

  - a constant database (package cdb) mapping arbitrary byte keys to byte
    values, with any number of values per key;
  - a double-array trie (package dat) mapping string keys to integers, with
    exact-match, common-prefix and longest-prefix queries.

This package ties them to streaming entry sources (see package tsv) and
exposes both behind the narrow Lexicon interface consumed by tokenizers and
annotators. It does not interpret keys or values.

# BSD License

Copyright (c) Norbert Pillmayer <norbert@pillmayer@com>

All rights reserved.

License information is available in the LICENSE file.
*/
package lexstore

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'lexstore'
func tracer() tracing.Trace {
	return tracing.Select("lexstore")
}
