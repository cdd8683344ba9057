package providers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/preston-bernstein/live-matches/internal/domain/matches"
	"github.com/preston-bernstein/live-matches/internal/metrics"
	"github.com/preston-bernstein/live-matches/internal/providers/mocks"
)

func TestInstrumentedProviderRecordsSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockMatchProvider(ctrl)
	filters := matches.Filters{League: "Premier League"}
	inner.EXPECT().FetchMatches(gomock.Any(), "user@example.com", filters).Return([]matches.Match{{ID: "a"}}, nil)

	rec := metrics.NewRecorder()
	p := NewInstrumentedProvider(inner, nil, rec, "upstream")

	got, err := p.FetchMatches(context.Background(), "user@example.com", filters)
	if err != nil || len(got) != 1 {
		t.Fatalf("unexpected result %v err %v", got, err)
	}
	if rec.ProviderCalls("upstream") != 1 || rec.ProviderErrors("upstream") != 0 {
		t.Fatalf("unexpected metrics %+v", rec.Snapshot("upstream"))
	}
}

func TestInstrumentedProviderClassifiesFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockMatchProvider(ctrl)
	inner.EXPECT().FetchMatches(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, context.DeadlineExceeded)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rec := metrics.NewRecorder()
	p := NewInstrumentedProvider(inner, logger, rec, "")

	_, err := p.FetchMatches(context.Background(), "u", matches.Filters{})
	fe, ok := AsFetchError(err)
	if !ok || fe.Kind != KindTimeout {
		t.Fatalf("expected timeout fetch error, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected original error to be wrapped")
	}
	if rec.ProviderErrors("provider") != 1 {
		t.Fatalf("expected error recorded under default name")
	}
	if !strings.Contains(buf.String(), "error_kind=timeout") {
		t.Fatalf("expected error kind in log, got %s", buf.String())
	}
}

func TestInstrumentedProviderNilInner(t *testing.T) {
	p := NewInstrumentedProvider(nil, nil, nil, "x")
	if _, err := p.FetchMatches(context.Background(), "u", matches.Filters{}); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
