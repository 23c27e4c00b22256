package tsv

import (
	"io"
	"strings"
	"testing"
	"unicode"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

func TestEntryReader(t *testing.T) {
	src := strings.NewReader("# lexicon\nHaus\t17\n\nHäuser\t 18\r\nBaum\n")
	r := NewEntryReader(src, nil)
	type entry struct {
		Key   string
		Value int
	}
	var got []entry
	for {
		key, value, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, entry{key, value})
	}
	want := []entry{{"Haus", 17}, {"Häuser", 18}, {"Baum", 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries (-want, +got):\n%s", diff)
	}
	if r.Line() != 5 {
		t.Fatalf("expected 5 lines read, got %d", r.Line())
	}
}

func TestEntryReaderBadValue(t *testing.T) {
	r := NewEntryReader(strings.NewReader("a\tone\n"), nil)
	if _, _, err := r.Next(); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("expected parse error for line 1, got %v", err)
	}
}

func TestRecordReader(t *testing.T) {
	src := strings.NewReader("k1|v1\nk2|a|b\nk3\n")
	r := NewRecordReader(src, &Options{Separator: "|"})
	var got [][2]string
	for {
		k, v, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		got = append(got, [2]string{string(k), string(v)})
	}
	want := [][2]string{{"k1", "v1"}, {"k2", "a|b"}, {"k3", ""}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("records (-want, +got):\n%s", diff)
	}
}

func TestFolder(t *testing.T) {
	opts := &Options{
		Folder: func() transform.Transformer {
			return runes.Map(unicode.ToLower)
		},
	}
	r := NewEntryReader(strings.NewReader("HAUS\t1\n"), opts)
	key, value, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if key != "haus" || value != 1 {
		t.Fatalf("got %q=%d, want haus=1", key, value)
	}
}
