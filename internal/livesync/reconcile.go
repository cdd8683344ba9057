package livesync

import "github.com/preston-bernstein/live-matches/internal/domain/matches"

// Diff is the identity-level difference between two snapshots. A match whose
// fields change but whose ID persists is in neither set.
type Diff struct {
	Appeared    matches.IDSet
	Disappeared matches.IDSet
}

// Empty reports whether nothing appeared or disappeared.
func (d Diff) Empty() bool {
	return d.Appeared.Len() == 0 && d.Disappeared.Len() == 0
}

// Reconcile computes appeared = ids(next) - ids(previous) and
// disappeared = ids(previous) - ids(next). The two sets are always disjoint.
func Reconcile(previous, next []matches.Match) Diff {
	prev := matches.IDsOf(previous)
	cur := matches.IDsOf(next)
	return Diff{
		Appeared:    matches.Difference(cur, prev),
		Disappeared: matches.Difference(prev, cur),
	}
}
