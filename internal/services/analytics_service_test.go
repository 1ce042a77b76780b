package services

import (
	"reflect"
	"testing"
	"time"
)

type stubAnalyticsStore struct {
	form    *Form
	entries []*Entry
}

func (s *stubAnalyticsStore) GetForm(id string) (*Form, error) {
	if s.form != nil && s.form.ID == id {
		cp := *s.form
		return &cp, nil
	}
	return nil, nil
}

func (s *stubAnalyticsStore) ListEntriesByForm(formID string) ([]*Entry, error) {
	return s.entries, nil
}

func day(d int) time.Time {
	return time.Date(2026, 4, d, 10, 0, 0, 0, time.UTC)
}

func TestSummaryAggregates(t *testing.T) {
	form := &Form{ID: "F1", TenantID: "T1", Title: "Visit", Fields: []FieldDescriptor{
		{ID: "fb", Kind: KindLongText, Label: "Feedback"},
		{ID: "r", Kind: KindRating, Label: "Overall"},
	}}
	store := &stubAnalyticsStore{form: form, entries: []*Entry{
		{ID: "e1", Score: 42, Answers: map[string]any{"r": float64(4)}, SubmittedAt: day(1)},
		{ID: "e2", Score: 97, Flagged: true, Answers: map[string]any{"r": float64(4)}, SubmittedAt: day(1)},
		{ID: "e3", Score: 10, Answers: map[string]any{"r": float64(1)}, SubmittedAt: day(3)},
		{ID: "e4", Score: 100, Flagged: true, Hidden: true, SubmittedAt: day(3)},
	}}
	svc := NewAnalyticsService(store)

	sum, err := svc.Summary("T1", "F1")
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if sum.TotalEntries != 3 {
		t.Fatalf("total = %d, hidden entries must not count", sum.TotalEntries)
	}
	if sum.FlaggedEntries != 1 {
		t.Fatalf("flagged = %d", sum.FlaggedEntries)
	}
	// (42+97+10)/3 = 49.666..., rounded to one decimal.
	if sum.AverageScore != 49.7 {
		t.Fatalf("average = %v", sum.AverageScore)
	}
	if sum.ScoreHistogram[4] != 1 || sum.ScoreHistogram[9] != 1 || sum.ScoreHistogram[1] != 1 {
		t.Fatalf("histogram = %v", sum.ScoreHistogram)
	}
	if len(sum.Ratings) != 1 {
		t.Fatalf("ratings = %v", sum.Ratings)
	}
	r := sum.Ratings[0]
	if r.FieldID != "r" || r.Total != 3 || r.Histogram[3] != 2 || r.Histogram[0] != 1 {
		t.Fatalf("rating breakdown = %+v", r)
	}
	wantDays := []AnalyticsTimeseries{{Date: "2026-04-01", Count: 2}, {Date: "2026-04-03", Count: 1}}
	if !reflect.DeepEqual(sum.Timeseries, wantDays) {
		t.Fatalf("timeseries = %v", sum.Timeseries)
	}
}

func TestSummaryMaxScoreBucket(t *testing.T) {
	form := &Form{ID: "F1", TenantID: "T1"}
	store := &stubAnalyticsStore{form: form, entries: []*Entry{
		{ID: "e1", Score: 100, SubmittedAt: day(1)},
	}}
	sum, err := NewAnalyticsService(store).Summary("T1", "F1")
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if sum.ScoreHistogram[9] != 1 {
		t.Fatalf("score 100 must land in the top bucket: %v", sum.ScoreHistogram)
	}
}

func TestSummaryEmptyForm(t *testing.T) {
	store := &stubAnalyticsStore{form: &Form{ID: "F1", TenantID: "T1"}}
	sum, err := NewAnalyticsService(store).Summary("T1", "F1")
	if err != nil {
		t.Fatalf("Summary error: %v", err)
	}
	if sum.TotalEntries != 0 || sum.AverageScore != 0 || sum.FlaggedRate != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.ScoreHistogram) != 10 {
		t.Fatalf("histogram = %v", sum.ScoreHistogram)
	}
}

func TestSummaryTenantIsolation(t *testing.T) {
	store := &stubAnalyticsStore{form: &Form{ID: "F1", TenantID: "T1"}}
	svc := NewAnalyticsService(store)

	for _, tid := range []string{"T2", ""} {
		_, err := svc.Summary(tid, "F1")
		se, ok := AsServiceError(err)
		if !ok || se.Code != ErrorForbidden {
			t.Fatalf("tenant %q: err = %v, want forbidden", tid, err)
		}
	}
	if _, err := svc.Summary("T1", "missing"); err == nil {
		t.Fatal("missing form accepted")
	}
}
