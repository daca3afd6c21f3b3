package segment

import (
	"testing"

	"github.com/hpungsan/chatctx/internal/errors"
)

// syntheticRecords builds n back-to-back records of width 10 starting at offset 100.
func syntheticRecords(n int, groupStarts map[int]bool) ([]Record, int) {
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Index:      i,
			Start:      100 + i*10,
			End:        110 + i*10,
			GroupStart: groupStarts[i],
		}
	}
	return records, 100 + n*10
}

func TestResolve_GroupAlignedScenario(t *testing.T) {
	records, containerEnd := syntheticRecords(50, set(0, 3, 30))

	w, err := Resolve(records, 25, 20, containerEnd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if w.Lo != 3 {
		t.Errorf("Lo = %d, want 3", w.Lo)
	}
	if w.Hi != 45 {
		t.Errorf("Hi = %d, want 45", w.Hi)
	}
	if w.SliceStart != records[3].Start {
		t.Errorf("SliceStart = %d, want %d", w.SliceStart, records[3].Start)
	}
	if w.SliceEnd != records[46].Start {
		t.Errorf("SliceEnd = %d, want %d", w.SliceEnd, records[46].Start)
	}
	// Human-facing range is one-based.
	if w.Lo+1 != 4 || w.Hi+1 != 46 {
		t.Errorf("display range = %d-%d, want 4-46", w.Lo+1, w.Hi+1)
	}
}

func TestResolve_NaiveStartAlreadyGroupStart(t *testing.T) {
	records, containerEnd := syntheticRecords(50, set(5))

	w, err := Resolve(records, 25, 20, containerEnd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if w.Lo != 5 {
		t.Errorf("Lo = %d, want 5", w.Lo)
	}
}

func TestResolve_NoGroupStartFallsBackToZero(t *testing.T) {
	records, containerEnd := syntheticRecords(50, nil)

	w, err := Resolve(records, 40, 5, containerEnd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if w.Lo != 0 {
		t.Errorf("Lo = %d, want 0", w.Lo)
	}
	if w.Hi != 45 {
		t.Errorf("Hi = %d, want 45", w.Hi)
	}
}

func TestResolve_ShortSequenceCoversEverything(t *testing.T) {
	records, containerEnd := syntheticRecords(7, set(2))

	w, err := Resolve(records, 3, DefaultHalfWindow, containerEnd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if w.Lo != 0 || w.Hi != 6 {
		t.Errorf("window = [%d, %d], want [0, 6]", w.Lo, w.Hi)
	}
	if w.SliceStart != records[0].Start || w.SliceEnd != containerEnd {
		t.Errorf("slice = [%d, %d), want [%d, %d)", w.SliceStart, w.SliceEnd, records[0].Start, containerEnd)
	}
}

func TestResolve_ClampsAtEdges(t *testing.T) {
	records, containerEnd := syntheticRecords(30, set(0, 10, 20))

	first, err := Resolve(records, 0, 4, containerEnd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if first.Lo != 0 || first.Hi != 4 {
		t.Errorf("first window = [%d, %d], want [0, 4]", first.Lo, first.Hi)
	}

	last, err := Resolve(records, 29, 4, containerEnd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if last.Lo != 20 || last.Hi != 29 {
		t.Errorf("last window = [%d, %d], want [20, 29]", last.Lo, last.Hi)
	}
	if last.SliceEnd != containerEnd {
		t.Errorf("SliceEnd = %d, want ContainerEnd %d", last.SliceEnd, containerEnd)
	}
}

func TestResolve_RightEdgeNotRealigned(t *testing.T) {
	records, containerEnd := syntheticRecords(30, set(0, 12))

	w, err := Resolve(records, 10, 3, containerEnd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if w.Hi != 13 {
		t.Errorf("Hi = %d, want 13 (right edge must stay at target+W)", w.Hi)
	}
	if w.Lo != 0 {
		t.Errorf("Lo = %d, want 0", w.Lo)
	}
}

func TestResolve_ZeroHalfWindow(t *testing.T) {
	records, containerEnd := syntheticRecords(10, set(0, 4))

	w, err := Resolve(records, 6, 0, containerEnd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if w.Lo != 4 || w.Hi != 6 {
		t.Errorf("window = [%d, %d], want [4, 6]", w.Lo, w.Hi)
	}
}

func TestResolve_InvariantsHoldForEveryTarget(t *testing.T) {
	groups := set(0, 2, 7, 8, 19, 33, 34, 48)
	records, containerEnd := syntheticRecords(50, groups)

	for _, half := range []int{0, 1, 5, 20, 60} {
		for target := range records {
			w, err := Resolve(records, target, half, containerEnd)
			if err != nil {
				t.Fatalf("Resolve(%d, %d) error = %v", target, half, err)
			}
			if !(w.Lo <= target && target <= w.Hi) {
				t.Errorf("W=%d t=%d: window [%d, %d] excludes target", half, target, w.Lo, w.Hi)
			}
			if w.Lo != 0 && !records[w.Lo].GroupStart {
				t.Errorf("W=%d t=%d: Lo=%d is neither 0 nor a group start", half, target, w.Lo)
			}
			if !(w.SliceStart <= records[target].Start && records[target].Start < w.SliceEnd) {
				t.Errorf("W=%d t=%d: target start %d outside slice [%d, %d)", half, target, records[target].Start, w.SliceStart, w.SliceEnd)
			}
			if w.Hi != min(len(records)-1, target+half) {
				t.Errorf("W=%d t=%d: Hi=%d", half, target, w.Hi)
			}
		}
	}
}

func TestResolve_InvalidInput(t *testing.T) {
	records, containerEnd := syntheticRecords(5, nil)

	tests := []struct {
		name   string
		target int
		half   int
	}{
		{"negative target", -1, 2},
		{"target past end", 5, 2},
		{"negative half window", 2, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(records, tt.target, tt.half, containerEnd)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("Resolve() error = %v, want INVALID_REQUEST", err)
			}
		})
	}
}

func TestWindow_BodyOnRealDocument(t *testing.T) {
	doc := buildExport(10, set(0, 6), set(8))
	env, records := scanDoc(t, doc)

	w, err := Resolve(records, 8, 1, env.ContainerEnd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if w.Lo != 6 || w.Hi != 9 {
		t.Fatalf("window = [%d, %d], want [6, 9]", w.Lo, w.Hi)
	}

	want := doc[records[6].Start:env.ContainerEnd]
	if got := w.Body(doc); got != want {
		t.Errorf("Body() = %q, want %q", got, want)
	}
}
