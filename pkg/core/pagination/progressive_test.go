package pagination

import (
	"reflect"
	"testing"

	"github.com/goccy/go-json"
)

const E = Ellipsis

func TestSequence(t *testing.T) {
	tests := []struct {
		current, count int
		want           []PageMarker
	}{
		{1, 0, []PageMarker{}},
		{1, 1, []PageMarker{}},
		{3, -4, []PageMarker{}},
		{1, 2, []PageMarker{1, 2}},
		{2, 3, []PageMarker{1, 2, 3}},
		{5, 5, []PageMarker{1, 2, 3, 4, 5}},
		{4, 7, []PageMarker{1, 2, 3, 4, 5, 6, 7}},
		{1, 10, []PageMarker{1, 2, 3, 4, 5, 6, E, 10}},
		{5, 10, []PageMarker{1, 2, 3, 4, 5, 6, 7, E, 10}},
		{6, 12, []PageMarker{1, E, 4, 5, 6, 7, 8, E, 12}},
		{10, 10, []PageMarker{1, E, 5, 6, 7, 8, 9, 10}},
		{50, 100, []PageMarker{1, E, 48, 49, 50, 51, 52, E, 100}},
		// Out of range pages are clamped.
		{0, 10, []PageMarker{1, 2, 3, 4, 5, 6, E, 10}},
		{99, 10, []PageMarker{1, E, 5, 6, 7, 8, 9, 10}},
	}
	for _, tt := range tests {
		got := Sequence(tt.current, tt.count)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Sequence(%d, %d) = %v, want %v", tt.current, tt.count, got, tt.want)
		}
	}
}

func TestSequenceInvariants(t *testing.T) {
	for count := 2; count <= 40; count++ {
		for current := 1; current <= count; current++ {
			seq := Sequence(current, count)

			if seq[0] != 1 || seq[len(seq)-1] != PageMarker(count) {
				t.Fatalf("Sequence(%d, %d) = %v: missing first or last page", current, count, seq)
			}

			found := false
			prev := PageMarker(0)
			for i, m := range seq {
				if m == PageMarker(current) {
					found = true
				}
				if IsEllipsis(m) {
					if i > 0 && IsEllipsis(seq[i-1]) {
						t.Fatalf("Sequence(%d, %d) = %v: adjacent ellipses", current, count, seq)
					}
					next := seq[i+1]
					if int(next)-int(prev) < 3 {
						t.Fatalf("Sequence(%d, %d) = %v: ellipsis hides less than two pages", current, count, seq)
					}
					continue
				}
				if !IsEllipsis(m) && prev != 0 && i > 0 && !IsEllipsis(seq[i-1]) && m != prev+1 {
					t.Fatalf("Sequence(%d, %d) = %v: gap without ellipsis", current, count, seq)
				}
				prev = m
			}
			if !found {
				t.Fatalf("Sequence(%d, %d) = %v: current page missing", current, count, seq)
			}
		}
	}
}

func TestKeyFor(t *testing.T) {
	seq := Sequence(6, 12)
	seen := map[string]bool{}
	for i, m := range seq {
		k := KeyFor(m, i)
		if seen[k] {
			t.Fatalf("duplicated key %q in %v", k, seq)
		}
		seen[k] = true
	}

	if got := KeyFor(7, 3); got != "7" {
		t.Errorf("KeyFor(7, 3) = %q", got)
	}
	if got := KeyFor(Ellipsis, 3); got != "..._3" {
		t.Errorf("KeyFor(Ellipsis, 3) = %q", got)
	}
}

func TestPrettify(t *testing.T) {
	tests := []struct {
		in   PageMarker
		want string
	}{
		{1, "1"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{Ellipsis, "..."},
	}
	for _, tt := range tests {
		if got := Prettify(tt.in); got != tt.want {
			t.Errorf("Prettify(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewPaginator(t *testing.T) {
	p := NewPaginator(2, 10, 35)
	if p.PagesCount != 4 {
		t.Errorf("PagesCount = %d, want 4", p.PagesCount)
	}

	out, err := json.Marshal(NewPaginator(1, 1, 10))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"currentPage":1,"pagesCount":10,"itemsPerPage":1,"totalItems":10,"pages":[1,2,3,4,5,6,"...",10]}`
	if string(out) != want {
		t.Errorf("got %s\nwant %s", out, want)
	}

	if got := NewPaginator(3, 1, 1200).String(); got != "1 2 [3] 4 5 6 ... 1,200" {
		t.Errorf("String() = %q", got)
	}
	if got := NewPaginator(1, 10, 5).String(); got != "" {
		t.Errorf("single page String() = %q, want empty", got)
	}

	if PagesCount(0, 10) != 0 || PagesCount(10, 0) != 0 || PagesCount(11, 10) != 2 {
		t.Error("unexpected PagesCount result")
	}
}
