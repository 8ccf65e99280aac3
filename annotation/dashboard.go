package annotation

import "sort"

// Filter selects which annotations a dashboard view shows.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterPending    Filter = Filter(StatusPending)
	FilterInProgress Filter = Filter(StatusInProgress)
	FilterResolved   Filter = Filter(StatusResolved)
	FilterDismissed  Filter = Filter(StatusDismissed)
)

// ParseFilter converts a string to a Filter; empty means all.
func ParseFilter(s string) (Filter, error) {
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	st, err := ParseStatus(s)
	if err != nil {
		return "", err
	}
	return Filter(st), nil
}

// Filtered derives the dashboard list from a mapping: sorted by descending
// creation timestamp, restricted to the filter's status unless it is all.
// Ties are broken by ID so the order stays deterministic.
func Filtered(m map[string]Annotation, f Filter) []Annotation {
	out := make([]Annotation, 0, len(m))
	for _, a := range m {
		if f == FilterAll || Status(f) == a.Status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Counts returns per-status totals over the unfiltered mapping.
func Counts(m map[string]Annotation) map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, a := range m {
		counts[a.Status]++
	}
	return counts
}
