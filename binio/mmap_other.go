//go:build !unix

package binio

import "os"

// Mapping is a read-only view of a whole file. Platforms without mmap
// support get a private in-memory copy.
type Mapping struct {
	data []byte
}

// Map reads the file at path into memory.
func Map(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

// Bytes returns the file contents. It must not be modified.
func (m *Mapping) Bytes() []byte { return m.data }

// Close releases the contents.
func (m *Mapping) Close() error {
	if m != nil {
		m.data = nil
	}
	return nil
}
