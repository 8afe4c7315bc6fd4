package extract

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/hyperifyio/headtail/internal/record"
)

// sliceRecords feeds a fixed slice and counts how often Scan is called.
type sliceRecords struct {
	items []string
	pos   int
	scans int
	err   error
}

func (s *sliceRecords) Scan() bool {
	s.scans++
	if s.pos >= len(s.items) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceRecords) Record() string { return s.items[s.pos-1] }
func (s *sliceRecords) Err() error     { return s.err }

func seq(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("r%d", i+1)
	}
	return out
}

func TestHeadTail_Properties(t *testing.T) {
	for k := 1; k <= 6; k++ {
		for n := 0; n <= 20; n++ {
			items := seq(n)
			res, err := HeadTail(&sliceRecords{items: items}, k)
			if err != nil {
				t.Fatalf("k=%d n=%d: %v", k, n, err)
			}
			wantLen := min(k, n) + min(k, max(0, n-k))
			if res.Len() != wantLen {
				t.Fatalf("k=%d n=%d: len=%d, want %d", k, n, res.Len(), wantLen)
			}
			if len(res.Head) > k || len(res.Tail) > k {
				t.Fatalf("k=%d n=%d: window overflow head=%d tail=%d", k, n, len(res.Head), len(res.Tail))
			}
			if res.Scanned != n {
				t.Fatalf("k=%d n=%d: scanned=%d", k, n, res.Scanned)
			}
			if !reflect.DeepEqual(res.Head, items[:min(k, n)]) {
				t.Fatalf("k=%d n=%d: head=%q", k, n, res.Head)
			}
			var wantTail []string
			if n > k {
				wantTail = items[max(k, n-k):]
			}
			if !reflect.DeepEqual(res.Tail, wantTail) {
				t.Fatalf("k=%d n=%d: tail=%q, want %q", k, n, res.Tail, wantTail)
			}
			if n <= k && !reflect.DeepEqual(res.Records(), items[:n]) && n > 0 {
				t.Fatalf("k=%d n=%d: short stream must come back whole", k, n)
			}
		}
	}
}

func TestHeadTail_VisitsStreamOnce(t *testing.T) {
	src := &sliceRecords{items: seq(50)}
	if _, err := HeadTail(src, 3); err != nil {
		t.Fatalf("HeadTail: %v", err)
	}
	// 50 successful scans plus the final false one.
	if src.scans != 51 {
		t.Fatalf("scans=%d, want 51", src.scans)
	}
}

func TestHeadTail_LineScenario(t *testing.T) {
	sc := record.NewLineScanner(strings.NewReader("a\nb\nc\nd\ne\n"))
	res, err := HeadTail(sc, 2)
	if err != nil {
		t.Fatalf("HeadTail: %v", err)
	}
	if !reflect.DeepEqual(res.Head, []string{"a", "b"}) || !reflect.DeepEqual(res.Tail, []string{"d", "e"}) {
		t.Fatalf("head=%q tail=%q", res.Head, res.Tail)
	}
	if got := res.Records(); !reflect.DeepEqual(got, []string{"a", "b", "d", "e"}) {
		t.Fatalf("records=%q", got)
	}
}

func TestHeadTail_DelimiterScenario(t *testing.T) {
	sc, err := record.NewDelimiterScanner(strings.NewReader("r1\r\nr2\r\nr3\r\n"), "\n", record.MatchExact)
	if err != nil {
		t.Fatalf("scanner: %v", err)
	}
	res, err := HeadTail(sc, 1)
	if err != nil {
		t.Fatalf("HeadTail: %v", err)
	}
	if got := res.Records(); !reflect.DeepEqual(got, []string{"r1", "r3"}) {
		t.Fatalf("records=%q, want [r1 r3]", got)
	}
}

func TestHeadTail_EmptyStream(t *testing.T) {
	for _, mode := range []record.Mode{record.ModeLine, record.ModeDelimiter} {
		sc, _ := record.New(strings.NewReader(""), mode, record.Options{Delimiter: "\n"})
		res, err := HeadTail(sc, 5)
		if err != nil {
			t.Fatalf("%v: %v", mode, err)
		}
		if res.Len() != 0 || res.Head != nil || res.Tail != nil {
			t.Fatalf("%v: expected empty result, got %+v", mode, res)
		}
	}
}

func TestHeadTail_ExactlyTwoK(t *testing.T) {
	const k = 4
	items := seq(2 * k)
	res, err := HeadTail(&sliceRecords{items: items}, k)
	if err != nil {
		t.Fatalf("HeadTail: %v", err)
	}
	if len(res.Head) != k || len(res.Tail) != k {
		t.Fatalf("head=%d tail=%d, want %d each", len(res.Head), len(res.Tail), k)
	}
	if res.Tail[0] != items[k] {
		t.Fatalf("tail[0]=%q, want %q", res.Tail[0], items[k])
	}
}

func TestHeadTail_BlankRowsDoNotConsumeSlots(t *testing.T) {
	in := "a\n\n\nb\n \nc\n\r\nd\n"
	sc, _ := record.NewDelimiterScanner(strings.NewReader(in), "\n", record.MatchExact)
	res, err := HeadTail(sc, 2)
	if err != nil {
		t.Fatalf("HeadTail: %v", err)
	}
	if got := res.Records(); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("records=%q", got)
	}
}

func TestHeadTail_InvalidWindow(t *testing.T) {
	for _, k := range []int{0, -1} {
		if _, err := HeadTail(&sliceRecords{items: seq(3)}, k); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("k=%d: err=%v, want ErrInvalidWindow", k, err)
		}
	}
}

func TestHeadTail_ReadErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("a\nb\nc\n"), iotest.ErrReader(boom))
	res, err := HeadTail(record.NewLineScanner(r), 1)
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v, want %v", err, boom)
	}
	if res.Len() != 0 {
		t.Fatalf("partial result leaked: %+v", res)
	}
}

func TestWindow_Eviction(t *testing.T) {
	w := NewWindow(3)
	for i, s := range []string{"a", "b", "c"} {
		if w.Push(s) {
			t.Fatalf("push %d evicted before full", i)
		}
	}
	if !w.Push("d") || !w.Push("e") {
		t.Fatalf("expected eviction once full")
	}
	if got := w.Slice(); !reflect.DeepEqual(got, []string{"c", "d", "e"}) {
		t.Fatalf("slice=%q", got)
	}
	if w.Len() != 3 {
		t.Fatalf("len=%d", w.Len())
	}
	if NewWindow(0).limit != 1 {
		t.Fatalf("capacity floor not applied")
	}
}
