//go:build unix

package binio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping is a read-only view of a whole file.
type Mapping struct {
	data   []byte
	mapped bool
}

// Map maps the file at path read-only into memory. An empty file yields an
// empty mapping. The file descriptor is not kept open.
func Map(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// it is OK to close a file after mapping it
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("binio: %s too large to map (%d bytes)", path, size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("binio: mmap %s: %w", path, err)
	}
	return &Mapping{data: data, mapped: true}, nil
}

// Bytes returns the mapped region. It must not be modified and must not be
// used after Close.
func (m *Mapping) Bytes() []byte { return m.data }

// Close unmaps the region. Close is idempotent.
func (m *Mapping) Close() error {
	if m == nil || !m.mapped {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	m.mapped = false
	return err
}
