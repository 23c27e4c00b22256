package cdb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/npillmayer/lexstore/binio"
)

// ErrCorrupt reports a file whose header, tables or records point outside
// the file. It is a fatal format error, never a "not found".
var ErrCorrupt = errors.New("cdb: corrupt database")

var errShortFile = fmt.Errorf("%w: file is too short for a CDB", ErrCorrupt)

// CDB is an open constant database.
type CDB struct {
	header [nBuckets]tablePointer
	data   []byte
	m      *binio.Mapping
}

type tablePointer struct {
	pos    uint32
	nslots uint32
}

// Open maps the database file at path read-only.
func Open(path string) (*CDB, error) {
	m, err := binio.Map(path)
	if err != nil {
		return nil, err
	}
	db, err := New(m.Bytes())
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	db.m = m
	return db, nil
}

// New returns a CDB over an in-memory database image. data must not be
// modified while the CDB is in use. An empty image is a valid empty
// database.
func New(data []byte) (*CDB, error) {
	if len(data) == 0 {
		// allowing this means /dev/null can stand in for an empty database
		return &CDB{}, nil
	}
	if len(data) < headerSize {
		return nil, errShortFile
	}
	db := &CDB{data: data}
	for i := range db.header {
		db.header[i].pos = binio.Uint32(data[i*headerWidth:])
		db.header[i].nslots = binio.Uint32(data[i*headerWidth+4:])
		end := uint64(db.header[i].pos) + uint64(db.header[i].nslots)*slotWidth
		if db.header[i].nslots > 0 && (db.header[i].pos < headerSize || end > uint64(len(data))) {
			return nil, fmt.Errorf("%w: table %d out of range", ErrCorrupt, i)
		}
	}
	return db, nil
}

// Close releases the mapping. Slices returned by lookups become invalid.
func (db *CDB) Close() error {
	m := db.m
	db.m = nil
	db.data = nil
	return m.Close()
}

// Find returns the first value stored under key.
// It panics with an error wrapping ErrCorrupt if the file is malformed;
// use FindErr to receive the error instead.
func (db *CDB) Find(key []byte) ([]byte, bool) {
	return db.FindStart(key).Next()
}

// FindErr returns the first value stored under key.
func (db *CDB) FindErr(key []byte) ([]byte, bool, error) {
	return db.FindStart(key).NextErr()
}

// All returns every value stored under key, in insertion order.
func (db *CDB) All(key []byte) ([][]byte, error) {
	var vals [][]byte
	c := db.FindStart(key)
	for {
		v, ok, err := c.NextErr()
		if err != nil {
			return nil, err
		}
		if !ok {
			return vals, nil
		}
		vals = append(vals, v)
	}
}

// FindStart begins a search for all values stored under key.
func (db *CDB) FindStart(key []byte) *Cursor {
	return &Cursor{db: db, key: key}
}

// Cursor enumerates the values stored under one key. Its probe state lives
// in the cursor, so independent searches never interfere.
type Cursor struct {
	db      *CDB
	key     []byte
	started bool
	loop    uint32 // number of slots examined
	khash   uint32
	kpos    uint32 // byte offset of the next slot to examine
	hpos    uint32
	hslots  uint32
	probes  int
}

// Next returns the next value for the cursor's key.
// It panics with an error wrapping ErrCorrupt on a malformed file.
func (c *Cursor) Next() ([]byte, bool) {
	v, ok, err := c.NextErr()
	if err != nil {
		panic(err)
	}
	return v, ok
}

// Probes is the number of table slots the cursor has read so far. It never
// exceeds the slot count of the key's bucket.
func (c *Cursor) Probes() int { return c.probes }

// NextErr returns the next value for the cursor's key, or false once all
// values have been returned.
func (c *Cursor) NextErr() ([]byte, bool, error) {
	data := c.db.data
	if !c.started {
		c.started = true
		if len(data) == 0 {
			return nil, false, nil
		}
		h := Hash(c.key)
		table := c.db.header[h&0xff]
		c.hpos, c.hslots = table.pos, table.nslots
		if c.hslots == 0 {
			return nil, false, nil
		}
		c.khash = h
		c.kpos = c.hpos + ((h>>8)%c.hslots)*slotWidth
	}
	klen := uint64(len(c.key))
	tableEnd := c.hpos + c.hslots*slotWidth
	for c.loop < c.hslots {
		h, pos, err := binio.Uint32Pair(data, c.kpos)
		if err != nil {
			return nil, false, fmt.Errorf("%w: slot at %d", ErrCorrupt, c.kpos)
		}
		c.probes++
		if pos == 0 {
			c.loop = c.hslots
			return nil, false, nil
		}
		c.loop++
		c.kpos += slotWidth
		if c.kpos == tableEnd {
			c.kpos = c.hpos
		}
		if h != c.khash {
			continue
		}
		rklen, rdlen, err := binio.Uint32Pair(data, pos)
		if err != nil {
			return nil, false, fmt.Errorf("%w: record at %d", ErrCorrupt, pos)
		}
		if uint64(rklen) != klen {
			continue
		}
		start := uint64(pos) + recordHead
		end := start + klen + uint64(rdlen)
		if end > uint64(len(data)) {
			return nil, false, fmt.Errorf("%w: record at %d exceeds file", ErrCorrupt, pos)
		}
		if bytes.Equal(data[start:start+klen], c.key) {
			return data[start+klen : end], true, nil
		}
	}
	return nil, false, nil
}

// ForEach calls fn for every record in file order. Iteration stops at the
// first error returned by fn.
func (db *CDB) ForEach(fn func(key, value []byte) error) error {
	if len(db.data) == 0 {
		return nil
	}
	// tables are written in bucket order right after the records
	end := uint64(db.header[0].pos)
	if end > uint64(len(db.data)) {
		return fmt.Errorf("%w: record region out of range", ErrCorrupt)
	}
	pos := uint64(headerSize)
	for pos < end {
		klen, vlen, err := binio.Uint32Pair(db.data, uint32(pos))
		if err != nil {
			return fmt.Errorf("%w: record at %d", ErrCorrupt, pos)
		}
		start := pos + recordHead
		next := start + uint64(klen) + uint64(vlen)
		if next > end {
			return fmt.Errorf("%w: record at %d exceeds record region", ErrCorrupt, pos)
		}
		if err := fn(db.data[start:start+uint64(klen)], db.data[start+uint64(klen):next]); err != nil {
			return err
		}
		pos = next
	}
	return nil
}

// Stats describes the shape of a database's hash tables.
type Stats struct {
	Records  int // number of records (half the slot count)
	Buckets  int // non-empty buckets
	Slots    int // total slots over all tables
	MaxSlots int // largest table
	Size     int // file size in bytes
}

// Stats reports table statistics from the header.
func (db *CDB) Stats() Stats {
	st := Stats{Size: len(db.data)}
	for _, t := range db.header {
		if t.nslots == 0 {
			continue
		}
		st.Buckets++
		st.Slots += int(t.nslots)
		st.MaxSlots = max(st.MaxSlots, int(t.nslots))
	}
	st.Records = st.Slots / 2
	return st
}
