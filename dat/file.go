package dat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/npillmayer/lexstore/binio"
)

// fileMode is the permission of a saved trie; temp files start out 0600.
const fileMode os.FileMode = 0o644

// WriteTo writes the trie in file format: all base words, then all check
// words, little-endian.
func (d *DAT) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriterSize(w, 64*1024)
	var written int64
	var word [binio.WordSize]byte
	for _, store := range []binio.Int32Store{d.base, d.check} {
		for i := 0; i < store.Len(); i++ {
			binio.PutUint32(word[:], uint32(store.At(i)))
			n, err := bw.Write(word[:])
			written += int64(n)
			if err != nil {
				return written, err
			}
		}
	}
	return written, bw.Flush()
}

// Save writes the trie to path. The file is written under a temporary name
// and renamed into place once complete.
func (d *DAT) Save(path string) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return fmt.Errorf("dat: creating temp file for %s: %w", path, err)
	}
	tmp := f.Name()
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("dat: writing %s: %w", tmp, err)
	}
	if err := f.Chmod(fileMode); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("dat: installing %s: %w", path, err)
	}
	tracer().Infof("dat: saved %d slots to %s", d.NStates(), path)
	return nil
}

// Open maps a trie file read-only. Lookups read the arrays straight from the
// mapping, so opening costs the same for any file size.
func Open(path string) (*DAT, error) {
	m, err := binio.Map(path)
	if err != nil {
		return nil, err
	}
	data := m.Bytes()
	n, err := slotCount(len(data))
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	base, err := binio.NewMappedInt32(data[:n*binio.WordSize], n)
	if err != nil {
		m.Close()
		return nil, err
	}
	check, err := binio.NewMappedInt32(data[n*binio.WordSize:], n)
	if err != nil {
		m.Close()
		return nil, err
	}
	return &DAT{base: base, check: check, m: m}, nil
}

// Load reads a trie file into memory.
func Load(path string) (*DAT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Read reads a trie in file format from r into memory.
func Read(r io.Reader) (*DAT, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func decode(data []byte) (*DAT, error) {
	n, err := slotCount(len(data))
	if err != nil {
		return nil, err
	}
	base := make([]int32, n)
	check := make([]int32, n)
	for i := 0; i < n; i++ {
		base[i] = binio.Int32At(data, i)
		check[i] = binio.Int32At(data, n+i)
	}
	return FromArrays(base, check)
}

// slotCount recovers the array length from a file size.
func slotCount(size int) (int, error) {
	const slotBytes = 2 * binio.WordSize
	if size == 0 || size%slotBytes != 0 {
		return 0, fmt.Errorf("%w: file size %d is not a positive multiple of %d", ErrCorrupt, size, slotBytes)
	}
	return size / slotBytes, nil
}
