package matches

import "sort"

// IDSet is a set of match IDs.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given IDs.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// IDsOf collects the IDs of a snapshot.
func IDsOf(snapshot []Match) IDSet {
	set := make(IDSet, len(snapshot))
	for _, m := range snapshot {
		set[m.ID] = struct{}{}
	}
	return set
}

// Difference returns the IDs in a that are not in b.
func Difference(a, b IDSet) IDSet {
	out := make(IDSet)
	for id := range a {
		if _, ok := b[id]; !ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Has reports membership; safe on a nil set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of IDs.
func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the IDs in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clone copies the set. A nil set clones to an empty one.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
