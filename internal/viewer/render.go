package viewer

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/livesync"
	"github.com/preston-bernstein/live-matches/internal/providers"
)

const clearScreen = "\033[H\033[2J"

// RenderOptions configures a Renderer.
type RenderOptions struct {
	Favorites matches.IDSet
	// ClearScreen redraws in place instead of appending frames.
	ClearScreen bool
}

// Renderer prints reconciled state as a plain table. It is safe to call from
// the runner goroutine and from command handlers at the same time.
type Renderer struct {
	out   io.Writer
	clear bool

	mu        sync.Mutex
	favorites matches.IDSet
	last      livesync.State
	rendered  bool
}

// NewRenderer builds a renderer writing to out.
func NewRenderer(out io.Writer, opts RenderOptions) *Renderer {
	return &Renderer{out: out, clear: opts.ClearScreen, favorites: opts.Favorites.Clone()}
}

// Render draws st. Write errors are dropped; the next frame retries.
func (r *Renderer) Render(st livesync.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = st
	r.rendered = true
	_ = r.draw(st)
}

// SetFavorite updates the local favorite set and redraws the last frame.
func (r *Renderer) SetFavorite(id string, favorite bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if favorite {
		r.favorites[id] = struct{}{}
	} else {
		delete(r.favorites, id)
	}
	if r.rendered {
		_ = r.draw(r.last)
	}
}

// IsFavorite reports whether id is in the local favorite set.
func (r *Renderer) IsFavorite(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.favorites.Has(id)
}

func (r *Renderer) draw(st livesync.State) error {
	var b strings.Builder
	if r.clear {
		b.WriteString(clearScreen)
	}
	if err := Format(&b, st, r.favorites.Has); err != nil {
		return err
	}
	_, err := io.WriteString(r.out, b.String())
	return err
}

// Format writes one frame for st. Client-side filters (competition, venue,
// favorites only) are applied here; the rest are idempotent re-applications
// of what the server already did.
func Format(w io.Writer, st livesync.State, isFavorite func(id string) bool) error {
	fmt.Fprintf(w, "live matches for %s%s\n", st.Identity, headerDetail(st))

	visible := matches.Apply(st.Matches, st.Filters, isFavorite)
	if len(visible) == 0 {
		if st.Loading && st.LastSyncedAt.IsZero() {
			fmt.Fprintln(w, "loading")
		} else {
			fmt.Fprintln(w, "no matches")
		}
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "\tID\tHOME\tSCORE\tAWAY\tSTATUS\tLEAGUE\tSTART")
		for _, m := range visible {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				marker(st, m.ID, isFavorite),
				m.ID, m.HomeTeam, m.ScoreLine(), m.AwayTeam, m.Status, m.League,
				formatStart(m.StartTime),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if st.Filters.League == "" && len(st.Matches) > 0 {
		fmt.Fprintf(w, "leagues: %s\n", strings.Join(matches.Leagues(st.Matches), ", "))
	}
	if st.Disappeared.Len() > 0 {
		fmt.Fprintf(w, "gone: %s\n", strings.Join(st.Disappeared.Sorted(), ", "))
	}
	if line := statusLine(st); line != "" {
		fmt.Fprintln(w, line)
	}
	return nil
}

func headerDetail(st livesync.State) string {
	var parts []string
	if f := describeFilters(st.Filters); f != "" {
		parts = append(parts, f)
	}
	parts = append(parts, "push "+st.Push.String())
	if !st.LastSyncedAt.IsZero() {
		parts = append(parts, "synced "+st.LastSyncedAt.Local().Format(time.TimeOnly))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func describeFilters(f matches.Filters) string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("league", f.League)
	add("competition", f.Competition)
	add("venue", f.Venue)
	add("status", string(f.Status))
	add("search", f.Search)
	if f.SortBy != "" {
		order := f.SortOrder
		if order == "" {
			order = matches.SortAsc
		}
		parts = append(parts, "sort="+string(f.SortBy)+" "+string(order))
	}
	if f.FavoritesOnly {
		parts = append(parts, "favorites only")
	}
	return strings.Join(parts, " ")
}

func marker(st livesync.State, id string, isFavorite func(string) bool) string {
	var m string
	if st.Highlighted(id) {
		m += "+"
	}
	if isFavorite != nil && isFavorite(id) {
		m += "*"
	}
	return m
}

func formatStart(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Jan 02 15:04")
}

func statusLine(st livesync.State) string {
	if st.Err == nil {
		if st.Loading && !st.LastSyncedAt.IsZero() {
			return "refreshing"
		}
		return ""
	}
	msg := "error: " + st.Err.Error()
	if st.Err.Kind == providers.KindUnauthorized {
		return msg + " (log in again)"
	}
	switch st.Retry.Phase {
	case livesync.RetryPending:
		if st.Retry.At.IsZero() {
			return fmt.Sprintf("%s (retry %d in flight)", msg, st.Retry.Attempt)
		}
		return fmt.Sprintf("%s (retry %d in %s, r to retry now)", msg, st.Retry.Attempt, st.Retry.Delay)
	case livesync.RetryExhausted:
		return msg + " (retries exhausted, r to retry)"
	default:
		return msg + " (r to retry)"
	}
}
