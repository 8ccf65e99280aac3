package annotation

import (
	"testing"
)

func fixtureMapping() map[string]Annotation {
	return map[string]Annotation{
		"a": {ID: "a", Selector: "#a", Comment: "first", CreatedAt: 100, Status: StatusPending},
		"b": {ID: "b", Selector: "#b", Comment: "second", CreatedAt: 300, Status: StatusResolved},
		"c": {ID: "c", Selector: "#c", Comment: "third", CreatedAt: 200, Status: StatusPending},
		"d": {ID: "d", Selector: "#d", Comment: "fourth", CreatedAt: 400, Status: StatusInProgress},
		"e": {ID: "e", Selector: "#e", Comment: "fifth", CreatedAt: 50, Status: StatusDismissed},
	}
}

func TestFiltered_SortedByCreatedAtDesc(t *testing.T) {
	list := Filtered(fixtureMapping(), FilterAll)
	if len(list) != 5 {
		t.Fatalf("len: got %d, want 5", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt > list[i-1].CreatedAt {
			t.Errorf("order: %d (%d) after %d", list[i].CreatedAt, i, list[i-1].CreatedAt)
		}
	}
	if list[0].ID != "d" || list[4].ID != "e" {
		t.Errorf("order: got %s..%s, want d..e", list[0].ID, list[4].ID)
	}
}

func TestFiltered_StatusInvariant(t *testing.T) {
	m := fixtureMapping()
	total := 0
	for _, f := range []Filter{FilterPending, FilterInProgress, FilterResolved, FilterDismissed} {
		list := Filtered(m, f)
		for _, a := range list {
			if Status(f) != a.Status {
				t.Errorf("filter %s: entry %s has status %s", f, a.ID, a.Status)
			}
		}
		total += len(list)
	}
	// Union of the four status-filtered lists equals the all list.
	if all := Filtered(m, FilterAll); total != len(all) {
		t.Errorf("union: got %d entries, want %d", total, len(all))
	}
}

func TestCounts(t *testing.T) {
	counts := Counts(fixtureMapping())
	want := map[Status]int{
		StatusPending:    2,
		StatusInProgress: 1,
		StatusResolved:   1,
		StatusDismissed:  1,
	}
	for s, n := range want {
		if counts[s] != n {
			t.Errorf("counts[%s]: got %d, want %d", s, counts[s], n)
		}
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"pending", FilterPending, false},
		{"in-progress", FilterInProgress, false},
		{"resolved", FilterResolved, false},
		{"dismissed", FilterDismissed, false},
		{"bogus", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFilter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFilter(%q): err=%v, wantErr=%v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFilter(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
