package dat

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/npillmayer/lexstore/binio"
)

// Build error codes, kept compatible with existing tooling which reports
// failures by number.
const (
	CodeValueCollision = -2
	CodeUnsorted       = -3
)

var (
	// ErrUnsorted is reported when keys are not in ascending order.
	ErrUnsorted = errors.New("dat: keys are not sorted")

	// ErrValueCollision is reported when a value cannot be encoded in a
	// terminal slot: it is negative or too large, or a duplicate key carries
	// a different value.
	ErrValueCollision = errors.New("dat: value collision")
)

// BuildError describes why a build was aborted. Use errors.Is with
// ErrUnsorted or ErrValueCollision to classify it.
type BuildError struct {
	Code  int    // CodeUnsorted or CodeValueCollision
	Index int    // index of the offending key
	Key   string // the offending key
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%v (code %d) at key #%d %q", e.Err, e.Code, e.Index, e.Key)
}

func (e *BuildError) Unwrap() error { return e.Err }

// minAllocSize is the initial array length for small key sets.
const minAllocSize = 1 << 10

// node is a build-time frame for the keys [left,right) sharing a prefix of
// depth-1 runes, reached from the parent by code (0 for "key ends here",
// else rune+1).
type node struct {
	code  int
	depth int
	left  int
	right int
}

// Builder holds the state of one double-array construction. It is used by
// Build and discarded afterwards.
type Builder struct {
	keys         [][]rune
	values       []int // nil: leaves encode the key index
	base         *binio.Int32Slice
	check        *binio.Int32Slice
	used         []bool // begin offsets already claimed by a sibling set
	size         int    // highest used slot + 1
	progress     int    // number of leaves written
	nextCheckPos int
}

// Build constructs a trie from keys sorted in ascending order and a parallel
// slice of non-negative values. If values is nil, each key maps to its index
// in keys.
//
// Sortedness is checked before construction; unsorted input fails with
// ErrUnsorted and nothing is built. Identical duplicate entries are merged;
// duplicates with different values fail with ErrValueCollision, as do keys
// which are not valid UTF-8.
func Build(keys []string, values []int) (*DAT, error) {
	if values != nil && len(values) != len(keys) {
		return nil, fmt.Errorf("dat: %d keys but %d values", len(keys), len(values))
	}
	if len(keys) > math.MaxInt32 {
		return nil, fmt.Errorf("dat: too many keys (%d)", len(keys))
	}
	if err := validate(keys, values); err != nil {
		tracer().Errorf("dat: build aborted: %v", err)
		return nil, err
	}
	b := newBuilder(keys, values)
	if err := b.build(); err != nil {
		tracer().Errorf("dat: build aborted: %v", err)
		return nil, err
	}
	b.base.Trim(b.size)
	b.check.Trim(b.size)
	d := &DAT{base: b.base, check: b.check}
	stats := d.Stats()
	tracer().Infof("dat: built trie for %d keys, slots used=%d total=%d fill=%.2f",
		len(keys), stats.UsedSlots, stats.TotalSlots, stats.FillRatio())
	return d, nil
}

// validate checks the preconditions of the construction in one pass.
func validate(keys []string, values []int) error {
	for i, key := range keys {
		if values != nil && (values[i] < 0 || values[i] > math.MaxInt32) {
			return &BuildError{Code: CodeValueCollision, Index: i, Key: key,
				Err: fmt.Errorf("%w: value %d out of range", ErrValueCollision, values[i])}
		}
		// invalid bytes all decode to U+FFFD, so distinct keys could share a state
		if !utf8.ValidString(key) {
			return &BuildError{Code: CodeValueCollision, Index: i, Key: key,
				Err: fmt.Errorf("%w: key is not valid UTF-8", ErrValueCollision)}
		}
		if i == 0 {
			continue
		}
		switch prev := keys[i-1]; {
		case prev > key:
			return &BuildError{Code: CodeUnsorted, Index: i, Key: key, Err: ErrUnsorted}
		case prev == key && values != nil && values[i] != values[i-1]:
			return &BuildError{Code: CodeValueCollision, Index: i, Key: key,
				Err: fmt.Errorf("%w: duplicate key with values %d and %d", ErrValueCollision, values[i-1], values[i])}
		}
	}
	return nil
}

func newBuilder(keys []string, values []int) *Builder {
	b := &Builder{
		keys:   make([][]rune, len(keys)),
		values: values,
	}
	runes := 0
	for i, key := range keys {
		b.keys[i] = []rune(key)
		runes += utf8.RuneCountInString(key)
	}
	alloc := max(minAllocSize, 2*runes)
	b.base = binio.NewInt32Slice(alloc)
	b.check = binio.NewInt32Slice(alloc)
	b.used = make([]bool, alloc)
	return b
}

func (b *Builder) build() error {
	b.base.Set(Root, 1)
	b.size = 1
	root := node{left: 0, right: len(b.keys), depth: 0}
	siblings, err := b.fetch(root)
	if err != nil || len(siblings) == 0 {
		return err
	}
	begin, err := b.insert(siblings)
	if err != nil {
		return err
	}
	b.base.Set(Root, int32(begin))
	b.used = nil
	return nil
}

// resize grows all arrays to n slots, keeping their contents.
func (b *Builder) resize(n int) {
	if n <= b.check.Len() {
		return
	}
	tracer().Debugf("dat: resize %d -> %d slots", b.check.Len(), n)
	b.base.Grow(n)
	b.check.Grow(n)
	if n > cap(b.used) {
		used := make([]bool, n, 2*n)
		copy(used, b.used)
		b.used = used
	} else {
		b.used = b.used[:n]
	}
}

// fetch groups the keys of parent by their rune at parent.depth. Keys
// ending exactly at that depth form a sibling with code 0, which sorts first.
func (b *Builder) fetch(parent node) ([]node, error) {
	var siblings []node
	prev := 0
	for i := parent.left; i < parent.right; i++ {
		key := b.keys[i]
		if len(key) < parent.depth {
			continue
		}
		cur := 0
		if len(key) != parent.depth {
			cur = int(key[parent.depth]) + 1
		}
		if prev > cur {
			return nil, &BuildError{Code: CodeUnsorted, Index: i, Key: string(key), Err: ErrUnsorted}
		}
		if cur != prev || len(siblings) == 0 {
			if len(siblings) != 0 {
				siblings[len(siblings)-1].right = i
			}
			siblings = append(siblings, node{
				code:  cur,
				depth: parent.depth + 1,
				left:  i,
			})
		}
		prev = cur
	}
	if len(siblings) != 0 {
		siblings[len(siblings)-1].right = parent.right
	}
	return siblings, nil
}

// insert finds a free offset begin for siblings, claims their slots and
// recursively places their children. It returns begin, which becomes the
// base of the parent state.
func (b *Builder) insert(siblings []node) (int, error) {
	first := siblings[0].code
	last := siblings[len(siblings)-1].code
	pos := max(first+1, b.nextCheckPos) - 1
	nonzero := 0
	seenFree := false
	begin := 0
	b.resize(pos + 1)
outer:
	for {
		pos++
		b.resize(pos + 1)
		if b.check.At(pos) != 0 {
			nonzero++
			continue
		}
		if !seenFree {
			b.nextCheckPos = pos
			seenFree = true
		}
		begin = pos - first
		if b.check.Len() <= begin+last {
			l := max(1.05, float64(len(b.keys))/float64(b.progress+1))
			b.resize(max(int(float64(b.check.Len())*l), begin+last+1))
		}
		if b.used[begin] {
			continue
		}
		for _, s := range siblings[1:] {
			if b.check.At(begin+s.code) != 0 {
				continue outer
			}
		}
		break
	}
	// skip densely packed regions on later searches
	if float64(nonzero)/float64(pos-b.nextCheckPos+1) >= 0.95 {
		b.nextCheckPos = pos
	}
	b.used[begin] = true
	b.size = max(b.size, begin+last+1)
	for _, s := range siblings {
		b.check.Set(begin+s.code, int32(begin))
	}
	for _, s := range siblings {
		children, err := b.fetch(s)
		if err != nil {
			return 0, err
		}
		if len(children) == 0 {
			v := s.left
			if b.values != nil {
				v = b.values[s.left]
			}
			if v < 0 {
				return 0, &BuildError{Code: CodeValueCollision, Index: s.left, Key: string(b.keys[s.left]),
					Err: fmt.Errorf("%w: value %d out of range", ErrValueCollision, v)}
			}
			b.base.Set(begin+s.code, int32(-v-1))
			b.progress++
			continue
		}
		h, err := b.insert(children)
		if err != nil {
			return 0, err
		}
		b.base.Set(begin+s.code, int32(h))
	}
	return begin, nil
}
