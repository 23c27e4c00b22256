/*
Package cdb reads and writes constant databases, D. J. Bernstein's immutable
hash-based key/value file format (see http://cr.yp.to/cdb.html).

A database is created once with a Builder and thereafter only read. Files
are laid out as

	header   256 × (u32 tablePos, u32 slotCount)          2048 bytes
	records  (u32 keyLen, u32 valLen, key, value)*
	tables   per bucket: slotCount × (u32 hash, u32 recordPos)

with all integers little-endian. Keys need not be unique; all values stored
under a key can be enumerated in insertion order with a Cursor.

Readers map the file into memory, so lookups allocate nothing and return
shared slices which must not be modified. A CDB may be shared by any number of
goroutines; every Cursor belongs to one goroutine.
*/
package cdb

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'lexstore'
func tracer() tracing.Trace {
	return tracing.Select("lexstore")
}
