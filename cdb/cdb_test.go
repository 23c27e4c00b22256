package cdb

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npillmayer/lexstore/binio"
)

type record struct {
	key, val []byte
}

func createDB(t *testing.T, records []record) *CDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cdb")
	b, err := Create(path)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, b.Add(rec.key, rec.val))
	}
	require.NoError(t, b.Finish())
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestHash(t *testing.T) {
	assert.Equal(t, uint32(5381), Hash(nil))
	// 5381*33 ^ 'a'
	assert.Equal(t, uint32(5381*33)^'a', Hash([]byte("a")))
	// arithmetic wraps at 32 bits
	h := uint32(5381)
	key := []byte("a rather long key to force overflow of the 32 bit hash")
	for _, c := range key {
		h = h*33 ^ uint32(c)
	}
	assert.Equal(t, h, Hash(key))
}

func TestEmpty(t *testing.T) {
	db := createDB(t, nil)
	for i, tc := range [][]byte{
		{},
		{0},
		{0, 1},
		[]byte("string key"),
	} {
		got, ok := db.Find(tc)
		assert.False(t, ok, "[%d] should not be found", i)
		assert.Nil(t, got, "[%d]", i)
	}
	assert.Equal(t, Stats{Size: headerSize}, db.Stats())
}

func TestEmptyImage(t *testing.T) {
	db, err := New(nil)
	require.NoError(t, err)
	_, ok := db.Find([]byte("x"))
	assert.False(t, ok)
	require.NoError(t, db.ForEach(func(k, v []byte) error {
		t.Fatalf("unexpected record %q", k)
		return nil
	}))
}

func TestRoundTrip(t *testing.T) {
	var records []record
	for i := 0; i < 50000; i++ {
		key := []byte{byte(i), byte(i >> 8), byte(i >> 16)}
		val := []byte{byte(i >> 16), byte(i >> 8), byte(i)}
		records = append(records, record{key, val})
	}
	db := createDB(t, records)
	for i, rec := range records {
		got, ok := db.Find(rec.key)
		if !assert.True(t, ok, "[%d] Find(%v)", i, rec.key) {
			continue
		}
		assert.Equal(t, rec.val, got, "[%d] Find(%v)", i, rec.key)
	}
	st := db.Stats()
	assert.Equal(t, len(records), st.Records)
	assert.Equal(t, 2*len(records), st.Slots)
}

func TestEmptyKeyAndValue(t *testing.T) {
	db := createDB(t, []record{
		{[]byte{}, []byte("empty key")},
		{[]byte("empty value"), []byte{}},
	})
	v, ok := db.Find(nil)
	require.True(t, ok)
	assert.Equal(t, "empty key", string(v))
	v, ok = db.Find([]byte("empty value"))
	require.True(t, ok)
	assert.Empty(t, v)
}

func TestDuplicateKeys(t *testing.T) {
	db := createDB(t, []record{
		{[]byte("k"), []byte("v1")},
		{[]byte("other"), []byte("x")},
		{[]byte("k"), []byte("v2")},
	})
	v, ok := db.Find([]byte("k"))
	require.True(t, ok)
	assert.Equal(t, "v1", string(v))

	c := db.FindStart([]byte("k"))
	v, ok = c.Next()
	require.True(t, ok)
	assert.Equal(t, "v1", string(v))
	v, ok = c.Next()
	require.True(t, ok)
	assert.Equal(t, "v2", string(v))
	_, ok = c.Next()
	assert.False(t, ok)
	_, ok = c.Next()
	assert.False(t, ok, "exhausted cursor must stay exhausted")

	all, err := db.All([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("v1"), []byte("v2")}, all)
}

func TestIndependentCursors(t *testing.T) {
	db := createDB(t, []record{
		{[]byte("a"), []byte("a1")},
		{[]byte("b"), []byte("b1")},
		{[]byte("a"), []byte("a2")},
		{[]byte("b"), []byte("b2")},
	})
	ca := db.FindStart([]byte("a"))
	cb := db.FindStart([]byte("b"))
	for _, want := range []string{"1", "2"} {
		va, ok := ca.Next()
		require.True(t, ok)
		vb, ok := cb.Next()
		require.True(t, ok)
		assert.Equal(t, "a"+want, string(va))
		assert.Equal(t, "b"+want, string(vb))
	}
}

func TestAbsentKeys(t *testing.T) {
	var records []record
	for i := 0; i < 1000; i++ {
		records = append(records, record{[]byte(fmt.Sprintf("key-%d", i)), []byte("v")})
	}
	db := createDB(t, records)
	for i := 1000; i < 2000; i++ {
		_, ok, err := db.FindErr([]byte(fmt.Sprintf("key-%d", i)))
		require.NoError(t, err)
		assert.False(t, ok, "key-%d must be absent", i)
	}
}

func TestProbesBounded(t *testing.T) {
	var records []record
	for i := 0; i < 100000; i++ {
		records = append(records, record{[]byte(fmt.Sprintf("w%07d", i)), nil})
	}
	db := createDB(t, records)
	st := db.Stats()
	total := 0
	for _, rec := range records {
		c := db.FindStart(rec.key)
		_, ok := c.Next()
		require.True(t, ok)
		require.LessOrEqual(t, c.Probes(), st.MaxSlots)
		total += c.Probes()
	}
	avg := float64(total) / float64(len(records))
	t.Logf("average probes for hits: %.2f, largest table %d slots", avg, st.MaxSlots)
	assert.Less(t, avg, 4.0)
	for i := 0; i < 10000; i++ {
		c := db.FindStart([]byte(fmt.Sprintf("miss%d", i)))
		_, ok := c.Next()
		require.False(t, ok)
		require.LessOrEqual(t, c.Probes(), st.MaxSlots)
	}
}

func TestForEach(t *testing.T) {
	records := []record{
		{[]byte("one"), []byte("1")},
		{[]byte("two"), []byte("2")},
		{[]byte("one"), []byte("uno")},
	}
	db := createDB(t, records)
	var got []record
	require.NoError(t, db.ForEach(func(k, v []byte) error {
		got = append(got, record{append([]byte(nil), k...), append([]byte(nil), v...)})
		return nil
	}))
	assert.Equal(t, records, got)

	stop := errors.New("stop")
	n := 0
	err := db.ForEach(func(k, v []byte) error {
		n++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, n)
}

func TestFileLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.cdb")
	b, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("ab"), []byte("xyz")))
	require.NoError(t, b.Finish())
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// header + one record + one table of two slots
	require.Len(t, data, headerSize+8+2+3+2*slotWidth)
	assert.Equal(t, uint32(2), binio.Uint32(data[headerSize:]))
	assert.Equal(t, uint32(3), binio.Uint32(data[headerSize+4:]))
	assert.Equal(t, "abxyz", string(data[headerSize+8:headerSize+13]))

	h := Hash([]byte("ab"))
	entry := data[(h&0xff)*headerWidth:]
	tablePos := binio.Uint32(entry)
	assert.Equal(t, uint32(headerSize+13), tablePos)
	assert.Equal(t, uint32(2), binio.Uint32(entry[4:]))
	slot := tablePos + ((h>>8)%2)*slotWidth
	assert.Equal(t, h, binio.Uint32(data[slot:]))
	assert.Equal(t, uint32(headerSize), binio.Uint32(data[slot+4:]))
	empty := tablePos + (((h>>8)+1)%2)*slotWidth
	assert.Equal(t, uint64(0), uint64(binio.Uint32(data[empty:]))|uint64(binio.Uint32(data[empty+4:])))
}

func TestFinishIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atomic.cdb")
	b, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("k"), []byte("v")))
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "target must not exist before Finish")
	_, err = os.Stat(b.TempPath())
	require.NoError(t, err)
	require.NoError(t, b.Finish())
	_, err = os.Stat(b.TempPath())
	require.ErrorIs(t, err, os.ErrNotExist, "temp file must be renamed")
	require.Error(t, b.Add([]byte("late"), nil))
	require.Error(t, b.Finish())
}

func TestFinishedFileIsWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix permissions")
	}
	path := filepath.Join(t.TempDir(), "shared.cdb")
	b, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("k"), []byte("v")))
	require.NoError(t, b.Finish())
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, fileMode, fi.Mode().Perm())
}

func TestAbort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aborted.cdb")
	b, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("k"), []byte("v")))
	require.NoError(t, b.Abort())
	_, err = os.Stat(b.TempPath())
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFinishRenameFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target")
	b, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, b.Add([]byte("k"), []byte("v")))
	// a non-empty directory in place of the target makes the rename fail
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o755))
	require.Error(t, b.Finish())
	_, err = os.Stat(b.TempPath())
	assert.NoError(t, err, "temp file must be left in place")
	require.NoError(t, b.Abort())
}

func TestCorruptFiles(t *testing.T) {
	t.Run("short", func(t *testing.T) {
		_, err := New(make([]byte, headerSize-1))
		assert.ErrorIs(t, err, ErrCorrupt)
	})
	t.Run("table out of range", func(t *testing.T) {
		data := make([]byte, headerSize)
		binio.PutUint32(data, headerSize)
		binio.PutUint32(data[4:], 4)
		_, err := New(data)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
	t.Run("record out of range", func(t *testing.T) {
		key := []byte("key")
		h := Hash(key)
		data := make([]byte, headerSize+2*slotWidth)
		entry := data[(h&0xff)*headerWidth:]
		binio.PutUint32(entry, headerSize)
		binio.PutUint32(entry[4:], 2)
		slot := data[headerSize+((h>>8)%2)*slotWidth:]
		binio.PutUint32(slot, h)
		binio.PutUint32(slot[4:], 1<<20)
		db, err := New(data)
		require.NoError(t, err)
		_, _, err = db.FindErr(key)
		assert.ErrorIs(t, err, ErrCorrupt)
		assert.Panics(t, func() { db.Find(key) })
	})
	t.Run("open truncated", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short.cdb")
		require.NoError(t, os.WriteFile(path, []byte("not a cdb"), 0o600))
		_, err := Open(path)
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func Example() {
	dir, err := os.MkdirTemp("", "cdb")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "example.cdb")

	b, err := Create(path)
	if err != nil {
		log.Fatal(err)
	}
	for _, kv := range [][2]string{{"a", "123"}, {"b", "456"}} {
		if err := b.Add([]byte(kv[0]), []byte(kv[1])); err != nil {
			log.Fatal(err)
		}
	}
	if err := b.Finish(); err != nil {
		log.Fatal(err)
	}

	db, err := Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	v, _ := db.Find([]byte("b"))
	fmt.Printf("%s\n", v)
	if _, ok := db.Find([]byte("c")); !ok {
		fmt.Println("c not found")
	}

	// Output:
	// 456
	// c not found
}
