package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"MentionScanner/internal/config"
	"MentionScanner/internal/domain"
)

type fakeSource struct {
	snapshots map[string]domain.FeedSnapshot
	failing   map[string]error
}

func (f *fakeSource) Fetch(_ context.Context, url string) (domain.FeedSnapshot, error) {
	if err, ok := f.failing[url]; ok {
		return domain.FeedSnapshot{}, err
	}
	return f.snapshots[url], nil
}

type fakeStore struct {
	seen     map[string]bool
	stored   []domain.Mention
	admitErr error
	storeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{seen: map[string]bool{}}
}

func (f *fakeStore) Admit(_ context.Context, id string) (bool, error) {
	if f.admitErr != nil {
		return false, f.admitErr
	}
	if f.seen[id] {
		return false, nil
	}
	f.seen[id] = true
	return true, nil
}

func (f *fakeStore) Store(_ context.Context, m domain.Mention) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, m)
	return nil
}

func (f *fakeStore) Latest(_ context.Context, limit int) ([]domain.Mention, error) {
	if limit > len(f.stored) {
		limit = len(f.stored)
	}
	return f.stored[:limit], nil
}

func (f *fakeStore) Close() error { return nil }

type fakeSink struct {
	dispatched []domain.Mention
}

func (f *fakeSink) Dispatch(_ context.Context, m domain.Mention) {
	f.dispatched = append(f.dispatched, m)
}

func entry(title, link, summary string) domain.MentionCandidate {
	published := time.Date(2025, time.June, 1, 9, 30, 0, 0, time.UTC)
	return domain.MentionCandidate{
		Title:     title,
		Link:      link,
		Summary:   summary,
		Published: &published,
	}
}

func newTestPipeline(source *fakeSource, store *fakeStore, sink *fakeSink, feeds, keywords, urgent []string) *Pipeline {
	return NewPipeline(PipelineDeps{
		Source:   source,
		Store:    store,
		Alerts:   sink,
		Feeds:    feeds,
		Keywords: keywords,
		Urgent:   urgent,
	})
}

func TestCollectStoresMatchedEntry(t *testing.T) {
	t.Parallel()

	source := &fakeSource{snapshots: map[string]domain.FeedSnapshot{
		"https://example.org/rss": {
			URL:   "https://example.org/rss",
			Title: "Example News",
			Entries: []domain.MentionCandidate{
				entry("Coinbase launches X", "https://example.org/coinbase-x", "Product news."),
				entry("Weather today", "https://example.org/weather", "Sunny."),
			},
		},
	}}
	store := newFakeStore()
	sink := &fakeSink{}

	p := newTestPipeline(source, store, sink, []string{"https://example.org/rss"}, []string{"coinbase"}, nil)

	summary, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if summary.Feeds != 1 || summary.Found != 1 || summary.Stored != 1 || summary.Emailed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(store.stored) != 1 {
		t.Fatalf("expected 1 stored mention, got %d", len(store.stored))
	}

	m := store.stored[0]
	if m.Source != "Example News" {
		t.Fatalf("unexpected source: %s", m.Source)
	}
	if len(m.Matched) != 1 || m.Matched[0] != "coinbase" {
		t.Fatalf("unexpected matched keywords: %v", m.Matched)
	}
	if len(sink.dispatched) != 0 {
		t.Fatalf("no urgent keywords configured, nothing should be dispatched")
	}
}

func TestCollectIsIdempotentAcrossRuns(t *testing.T) {
	t.Parallel()

	source := &fakeSource{snapshots: map[string]domain.FeedSnapshot{
		"https://example.org/rss": {
			URL: "https://example.org/rss",
			Entries: []domain.MentionCandidate{
				entry("Coinbase launches X", "https://example.org/coinbase-x", ""),
			},
		},
	}}
	store := newFakeStore()

	p := newTestPipeline(source, store, &fakeSink{}, []string{"https://example.org/rss"}, []string{"coinbase"}, nil)

	first, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Stored != 1 {
		t.Fatalf("first run should store 1, got %d", first.Stored)
	}

	second, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Found != 0 || second.Stored != 0 {
		t.Fatalf("unchanged feed must store nothing on rerun, got %+v", second)
	}
}

func TestCollectUrgentDispatch(t *testing.T) {
	t.Parallel()

	source := &fakeSource{snapshots: map[string]domain.FeedSnapshot{
		"https://example.org/rss": {
			URL: "https://example.org/rss",
			Entries: []domain.MentionCandidate{
				entry("Exchange hack reported", "https://example.org/hack", "Coinbase affected."),
			},
		},
	}}
	store := newFakeStore()
	sink := &fakeSink{}

	p := newTestPipeline(source, store, sink, []string{"https://example.org/rss"}, []string{"coinbase", "hack"}, []string{"hack"})

	summary, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if summary.Emailed != 1 {
		t.Fatalf("expected 1 urgent alert, got %d", summary.Emailed)
	}
	if len(sink.dispatched) != 1 {
		t.Fatalf("expected dispatch, got %d", len(sink.dispatched))
	}
	if got := sink.dispatched[0].Matched; len(got) != 2 || got[0] != "coinbase" || got[1] != "hack" {
		t.Fatalf("unexpected matched order: %v", got)
	}
}

func TestCollectFeedFailureDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		snapshots: map[string]domain.FeedSnapshot{
			"https://good.example/rss": {
				URL: "https://good.example/rss",
				Entries: []domain.MentionCandidate{
					entry("Coinbase update", "https://good.example/a", ""),
				},
			},
		},
		failing: map[string]error{
			"https://bad.example/rss": errors.New("connection refused"),
		},
	}
	store := newFakeStore()

	p := newTestPipeline(source, store, &fakeSink{},
		[]string{"https://bad.example/rss", "https://good.example/rss"},
		[]string{"coinbase"}, nil)

	summary, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if summary.Feeds != 2 {
		t.Fatalf("summary should count configured feeds, got %d", summary.Feeds)
	}
	if summary.Stored != 1 {
		t.Fatalf("good feed must still be processed, got stored=%d", summary.Stored)
	}
}

func TestCollectAdmitFailureFailsFast(t *testing.T) {
	t.Parallel()

	source := &fakeSource{snapshots: map[string]domain.FeedSnapshot{
		"https://example.org/rss": {
			URL: "https://example.org/rss",
			Entries: []domain.MentionCandidate{
				entry("Coinbase update", "https://example.org/a", ""),
			},
		},
	}}
	store := newFakeStore()
	store.admitErr = errors.New("store unreachable")

	p := newTestPipeline(source, store, &fakeSink{}, []string{"https://example.org/rss"}, []string{"coinbase"}, nil)

	if _, err := p.Collect(context.Background()); err == nil {
		t.Fatal("admit failure must fail the pass")
	}
}

func TestCollectMissingConfiguration(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(&fakeSource{}, newFakeStore(), &fakeSink{}, nil, []string{"coinbase"}, nil)
	if _, err := p.Collect(context.Background()); !errors.Is(err, config.ErrMissingFeeds) {
		t.Fatalf("expected ErrMissingFeeds, got %v", err)
	}

	p = newTestPipeline(&fakeSource{}, newFakeStore(), &fakeSink{}, []string{"https://example.org/rss"}, nil, nil)
	if _, err := p.Collect(context.Background()); !errors.Is(err, config.ErrMissingKeywords) {
		t.Fatalf("expected ErrMissingKeywords, got %v", err)
	}
}

func TestCollectLinklessEntryStoredEachRun(t *testing.T) {
	t.Parallel()

	cand := domain.MentionCandidate{Title: "Breaking: coinbase outage", Summary: "short"}
	source := &fakeSource{snapshots: map[string]domain.FeedSnapshot{
		"https://example.org/rss": {
			URL:     "https://example.org/rss",
			Entries: []domain.MentionCandidate{cand},
		},
	}}
	store := newFakeStore()

	// Stepping clock: each run identifies the link-less entry at a
	// different second, so the fallback id differs per run.
	current := time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
	p := NewPipeline(PipelineDeps{
		Source:   source,
		Store:    store,
		Alerts:   &fakeSink{},
		Feeds:    []string{"https://example.org/rss"},
		Keywords: []string{"coinbase"},
		Now: func() time.Time {
			current = current.Add(time.Minute)
			return current
		},
	})

	for run := 0; run < 2; run++ {
		summary, err := p.Collect(context.Background())
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if summary.Stored != 1 {
			t.Fatalf("run %d: link-less entry should store again, got %+v", run, summary)
		}
	}

	if store.stored[0].ID == store.stored[1].ID {
		t.Fatal("link-less entries must get a fresh id each run")
	}
}

func TestCollectDateFallbackToNow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	source := &fakeSource{snapshots: map[string]domain.FeedSnapshot{
		"https://example.org/rss": {
			URL: "https://example.org/rss",
			Entries: []domain.MentionCandidate{
				{
					Title:        "Coinbase note",
					Link:         "https://example.org/note",
					PublishedRaw: []string{"not a date", ""},
				},
			},
		},
	}}
	store := newFakeStore()

	p := NewPipeline(PipelineDeps{
		Source:   source,
		Store:    store,
		Alerts:   &fakeSink{},
		Feeds:    []string{"https://example.org/rss"},
		Keywords: []string{"coinbase"},
		Now:      func() time.Time { return now },
	})

	if _, err := p.Collect(context.Background()); err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}

	if got := store.stored[0].PublishedTS; got != now.Unix() {
		t.Fatalf("unparsable date should fall back to now, got %d want %d", got, now.Unix())
	}
}

func TestResolvePublishedParsesRawDates(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{Now: func() time.Time { return time.Unix(0, 0) }})

	ts := p.resolvePublished(domain.MentionCandidate{
		PublishedRaw: []string{"Mon, 02 Jun 2025 08:00:00 +0000"},
	})

	want := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC).Unix()
	if ts != want {
		t.Fatalf("resolvePublished = %d, want %d", ts, want)
	}
}
