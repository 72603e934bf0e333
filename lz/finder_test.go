package lz

import (
	"bytes"
	"math/rand"
	"reflect"
	"testing"
)

func textData(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	words := []string{"match", "finder", "hash", "chain", "overlap", "parser", "window", "the", "a", "\n"}
	var b bytes.Buffer
	for b.Len() < n {
		b.WriteString(words[r.Intn(len(words))])
		if r.Intn(8) == 0 {
			b.WriteByte(byte('0' + r.Intn(10)))
		}
		b.WriteByte(' ')
	}
	return b.Bytes()[:n]
}

func randomData(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

var testConfigs = []struct {
	name string
	c    Config
}{
	{"greedy", Config{Strategy: Greedy, ChainLog: 7, SearchDepth: 6, FastLength: 32, DivideAndConquer: true}},
	{"lazy", Config{Strategy: Lazy, ChainLog: 8, SearchDepth: 26, FastLength: 40, DivideAndConquer: true}},
	{"overlap", Config{Strategy: Overlap, ChainLog: 9, HybridCycles: 2, SearchDepth: 42, FastLength: 48, DivideAndConquer: true}},
	{"overlap-deep", Config{Strategy: Overlap, ChainLog: 12, HybridCycles: 8, SearchDepth: 254, FastLength: 273}},
	{"limited", Config{Strategy: Lazy, ChainLog: 6, SearchDepth: 20, FastLength: 20, MaxDistance: 1000}},
}

var testInputs = []struct {
	name string
	data []byte
}{
	{"empty", nil},
	{"one", []byte{7}},
	{"short", []byte("abcabcabc")},
	{"text", textData(100000, 1)},
	{"random", randomData(50000, 2)},
	{"zeros", make([]byte, 70000)},
	{"mixed", append(textData(20000, 3), append(randomData(5000, 4), textData(20000, 3)...)...)},
}

func TestFinderMatchesAreValid(t *testing.T) {
	for _, tc := range testConfigs {
		for _, in := range testInputs {
			t.Run(tc.name+"/"+in.name, func(t *testing.T) {
				f := NewFinder(tc.c)
				matches := f.FindMatches(nil, in.data, 0)
				if err := Verify(in.data, 0, matches); err != nil {
					t.Fatal(err)
				}
				if tc.c.MaxDistance > 0 {
					for _, m := range matches {
						if m.Distance > tc.c.MaxDistance {
							t.Fatalf("distance %d beyond limit", m.Distance)
						}
					}
				}
			})
		}
	}
}

func TestFinderCompresses(t *testing.T) {
	data := textData(100000, 5)
	for _, tc := range testConfigs {
		f := NewFinder(tc.c)
		matches := f.FindMatches(nil, data, 0)
		literals := 0
		for _, m := range matches {
			literals += m.Unmatched
		}
		if literals > len(data)/4 {
			t.Errorf("%s: %d of %d bytes left as literals", tc.name, literals, len(data))
		}
	}
}

func TestFinderWithHistory(t *testing.T) {
	history := randomData(30000, 6)
	src := append(append([]byte(nil), history...), history...)
	for _, tc := range testConfigs {
		f := NewFinder(tc.c)
		matches := f.FindMatches(nil, src, len(history))
		if err := Verify(src, len(history), matches); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		// The block repeats the history, so nearly all of it is matched.
		if tc.c.MaxDistance == 0 && len(matches) > 200 {
			t.Errorf("%s: %d matches for a repeated block", tc.name, len(matches))
		}
	}
}

func TestFinderDeterministic(t *testing.T) {
	data := textData(200000, 7)
	for _, tc := range testConfigs {
		a := NewFinder(tc.c).FindMatches(nil, data, 0)
		f := NewFinder(tc.c)
		f.FindMatches(nil, randomData(1000, 8), 0)
		b := f.FindMatches(nil, data, 0)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: results differ between runs", tc.name)
		}
	}
}

func TestLongMatchesAreSplit(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 1000)
	matches := NewFinder(testConfigs[0].c).FindMatches(nil, data, 0)
	for _, m := range matches {
		if m.Length > MaxLength {
			t.Fatalf("match of length %d", m.Length)
		}
	}
	if err := Verify(data, 0, matches); err != nil {
		t.Fatal(err)
	}
}

func TestSearchPrefersNearest(t *testing.T) {
	src := []byte("abcdXabcdYabcd")
	q := &HashChain{Attempts: 4}
	q.Index(src)
	got := q.Search(nil, 10, 10, len(src))
	want := []AbsoluteMatch{{Start: 10, End: 14, Match: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRepeat(t *testing.T) {
	src := []byte("xyzxyzAxyzxyz")
	q := &HashChain{}
	q.Index(src)
	got := q.Repeat(nil, 10, len(src), []int{3, 7, 3, 20})
	want := []AbsoluteMatch{{Start: 10, End: 13, Match: 7}, {Start: 10, End: 13, Match: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestHybridFindsShortMatches(t *testing.T) {
	// 3-byte repeats separated by noise; most matches are 3 bytes long.
	var b bytes.Buffer
	r := rand.New(rand.NewSource(9))
	for b.Len() < 20000 {
		b.WriteString("qz")
		b.WriteByte(byte('a' + r.Intn(3)))
		b.WriteByte(byte(0x80 + r.Intn(128)))
	}
	src := b.Bytes()
	q := &HashChain{Attempts: 16, Hybrid: &HybridChain{ChainLog: 10, Cycles: 4}}
	q.Index(src)
	found := 0
	for pos := 100; pos < 200; pos++ {
		for _, m := range q.Search(nil, pos, pos, len(src)) {
			if m.End-m.Start == 3 {
				found++
			}
		}
	}
	if found == 0 {
		t.Fatal("no 3-byte matches found")
	}
}

func TestVerifyRejects(t *testing.T) {
	src := []byte("abcabcabc")
	for _, matches := range [][]Match{
		{{Unmatched: 3, Length: 6, Distance: 4}},
		{{Unmatched: 3, Length: 6, Distance: 0}},
		{{Unmatched: 3, Length: 5, Distance: 3}},
		{{Unmatched: 0, Length: 3, Distance: 3}},
	} {
		if Verify(src, 0, matches) == nil {
			t.Errorf("%v accepted", matches)
		}
	}
	if err := Verify(src, 0, []Match{{Unmatched: 3, Length: 6, Distance: 3}}); err != nil {
		t.Error(err)
	}
}

func TestText(t *testing.T) {
	src := []byte("abcabcabcX")
	got := Text(nil, src, 0, []Match{{Unmatched: 3, Length: 6, Distance: 3}, {Unmatched: 1}})
	if string(got) != "abc<6,3>X" {
		t.Fatalf("got %q", got)
	}
}

func BenchmarkFinder(b *testing.B) {
	data := textData(1<<20, 10)
	for _, tc := range testConfigs[:3] {
		b.Run(tc.name, func(b *testing.B) {
			f := NewFinder(tc.c)
			var matches []Match
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				matches = f.FindMatches(matches[:0], data, 0)
			}
			b.ReportMetric(float64(len(matches)), "matches")
		})
	}
}
