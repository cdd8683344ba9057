package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestRecorderTracksProviderAttemptsAndErrors(t *testing.T) {
	rec := NewRecorder()
	rec.RecordProviderAttempt("upstream", 10*time.Millisecond, nil)
	rec.RecordProviderAttempt("upstream", 15*time.Millisecond, errors.New("boom"))

	if got := rec.ProviderCalls("upstream"); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
	if got := rec.ProviderErrors("upstream"); got != 1 {
		t.Fatalf("expected 1 error, got %d", got)
	}

	snap := rec.Snapshot("upstream")
	if snap.Calls != 2 || snap.Errors != 1 || snap.LastCallLatency != 15*time.Millisecond {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if (rec.Snapshot("missing") != Snapshot{}) {
		t.Fatal("expected empty snapshot for unknown provider")
	}
}

func TestRecorderTracksPushAndSync(t *testing.T) {
	rec := NewRecorder()
	rec.RecordPushConnection(1)
	rec.RecordPushConnection(1)
	rec.RecordPushConnection(-1)
	rec.RecordPushBroadcast(3)
	rec.RecordReconcile("push", 1, 0)
	rec.RecordReconcile("fetch", 0, 1)
	rec.RecordFetch("poll", "timeout", time.Millisecond)
	rec.RecordFetch("poll", "", time.Millisecond)

	if got := rec.PushConnections(); got != 1 {
		t.Fatalf("expected 1 open connection, got %d", got)
	}
	if got := rec.PushBroadcasts(); got != 1 {
		t.Fatalf("expected 1 broadcast, got %d", got)
	}
	if got := rec.Reconciliations(); got != 2 {
		t.Fatalf("expected 2 reconciliations, got %d", got)
	}
	if got := rec.FetchFailures("timeout"); got != 1 {
		t.Fatalf("expected 1 timeout failure, got %d", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.RecordProviderAttempt("p", time.Millisecond, nil)
	rec.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
	rec.RecordPollerCycle(time.Millisecond, nil)
	rec.RecordPushConnection(1)
	rec.RecordPushBroadcast(1)
	rec.RecordFetch("poll", "", 0)
	rec.RecordReconcile("push", 0, 0)
	if rec.ProviderCalls("p") != 0 || rec.PushConnections() != 0 || rec.Reconciliations() != 0 || rec.FetchFailures("x") != 0 || rec.PushBroadcasts() != 0 {
		t.Fatal("expected zero values from nil recorder")
	}
}
