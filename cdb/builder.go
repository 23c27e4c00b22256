package cdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/npillmayer/lexstore/binio"
)

// ErrTooLarge is returned when a database would outgrow 32-bit file offsets.
var ErrTooLarge = errors.New("cdb: database exceeds 4 GiB")

var errFinished = errors.New("cdb: builder already finished")

// fileMode is the permission of a finished database; temp files start out 0600.
const fileMode os.FileMode = 0o644

// slot is a hash table entry; pos == 0 marks an empty slot (no record can
// start inside the header).
type slot struct {
	hash uint32
	pos  uint32
}

// Builder writes a new constant database. Records go to a temporary file in
// the target's directory, which is renamed onto the target only after every
// region has been written and synced. Until then readers of the target path
// see either the previous file or nothing.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	path    string
	tmpPath string
	f       *os.File
	w       *bufio.Writer
	pos     uint64
	buckets [nBuckets][]slot
	records int
	done    bool
}

// Create starts a new database which will be installed at path by Finish.
func Create(path string) (*Builder, error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("cdb: creating temp file for %s: %w", path, err)
	}
	b := &Builder{
		path:    path,
		tmpPath: f.Name(),
		f:       f,
		w:       bufio.NewWriterSize(f, 64*1024),
		pos:     headerSize,
	}
	// reserve space for the header, written last
	if _, err := b.f.Seek(headerSize, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

// TempPath is the file records are written to before Finish renames it.
func (b *Builder) TempPath() string { return b.tmpPath }

// Records returns the number of records added so far.
func (b *Builder) Records() int { return b.records }

// Add appends a record. Duplicate keys are allowed and kept in insertion
// order.
func (b *Builder) Add(key, value []byte) error {
	if b.done {
		return errFinished
	}
	size := uint64(recordHead) + uint64(len(key)) + uint64(len(value))
	if b.pos+size > math.MaxUint32 {
		return ErrTooLarge
	}
	var head [recordHead]byte
	binio.PutUint32(head[:], uint32(len(key)))
	binio.PutUint32(head[4:], uint32(len(value)))
	if _, err := b.w.Write(head[:]); err != nil {
		return err
	}
	if _, err := b.w.Write(key); err != nil {
		return err
	}
	if _, err := b.w.Write(value); err != nil {
		return err
	}
	h := Hash(key)
	b.buckets[h&0xff] = append(b.buckets[h&0xff], slot{hash: h, pos: uint32(b.pos)})
	b.pos += size
	b.records++
	return nil
}

// Finish writes the hash tables and the header, then atomically renames the
// temporary file to the target path. If Finish fails the temporary file is
// left in place and the target is untouched; call Abort to remove it.
func (b *Builder) Finish() error {
	if b.done {
		return errFinished
	}
	b.done = true
	var header [headerSize]byte
	var buf []byte
	for i := range b.buckets {
		bucket := b.buckets[i]
		nslots := uint32(2 * len(bucket))
		binio.PutUint32(header[i*headerWidth:], uint32(b.pos))
		binio.PutUint32(header[i*headerWidth+4:], nslots)
		if nslots == 0 {
			continue
		}
		if b.pos+uint64(nslots)*slotWidth > math.MaxUint32 {
			tracer().Errorf("cdb: table for bucket %d does not fit into 32-bit offsets", i)
			return ErrTooLarge
		}
		table := placeSlots(bucket, nslots)
		buf = buf[:0]
		for _, s := range table {
			buf = binio.AppendUint32(buf, s.hash)
			buf = binio.AppendUint32(buf, s.pos)
		}
		if _, err := b.w.Write(buf); err != nil {
			return err
		}
		b.pos += uint64(nslots) * slotWidth
		b.buckets[i] = nil
	}
	if err := b.w.Flush(); err != nil {
		return err
	}
	if _, err := b.f.WriteAt(header[:], 0); err != nil {
		return err
	}
	if err := b.f.Chmod(fileMode); err != nil {
		return err
	}
	if err := b.f.Sync(); err != nil {
		return err
	}
	if err := b.f.Close(); err != nil {
		return err
	}
	if err := os.Rename(b.tmpPath, b.path); err != nil {
		return fmt.Errorf("cdb: installing %s: %w", b.path, err)
	}
	tracer().Infof("cdb: wrote %s with %d records, %d bytes", b.path, b.records, b.pos)
	return nil
}

// Abort discards a database under construction and removes its temporary
// file. It may also be called after a failed Finish.
func (b *Builder) Abort() error {
	b.done = true
	b.f.Close() // may already be closed
	err := os.Remove(b.tmpPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// placeSlots lays out an open-addressed table of nslots entries for the
// records of one bucket. Each record probes forward from (hash>>8) mod nslots
// to the first free slot. nslots is twice the record count, so probing
// always terminates.
func placeSlots(bucket []slot, nslots uint32) []slot {
	table := make([]slot, nslots)
	for _, s := range bucket {
		i := (s.hash >> 8) % nslots
		for table[i].pos != 0 {
			i++
			if i == nslots {
				i = 0
			}
		}
		table[i] = s
	}
	return table
}
