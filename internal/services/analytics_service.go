package services

import (
	"math"
	"sort"
)

type AnalyticsStore interface {
	GetForm(id string) (*Form, error)
	ListEntriesByForm(formID string) ([]*Entry, error)
}

type AnalyticsService struct {
	store AnalyticsStore
}

// RatingBreakdown is the answer histogram for one rating field.
type RatingBreakdown struct {
	FieldID   string `json:"field_id"`
	Label     string `json:"label"`
	Histogram []int  `json:"histogram"`
	Total     int    `json:"total"`
}

type AnalyticsTimeseries struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AnalyticsSummary is the vendor dashboard payload for one form.
type AnalyticsSummary struct {
	FormID         string                `json:"form_id"`
	TotalEntries   int                   `json:"total_entries"`
	FlaggedEntries int                   `json:"flagged_entries"`
	FlaggedRate    float64               `json:"flagged_rate"`
	AverageScore   float64               `json:"average_score"`
	ScoreHistogram []int                 `json:"score_histogram"`
	Ratings        []RatingBreakdown     `json:"ratings"`
	Timeseries     []AnalyticsTimeseries `json:"timeseries"`
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

func (s *AnalyticsService) Summary(tenantID, formID string) (*AnalyticsSummary, error) {
	f, err := s.store.GetForm(formID)
	if err != nil {
		return nil, err
	}
	if f == nil || f.TenantID != tenantID {
		return nil, NewForbiddenError("forbidden")
	}
	entries, err := s.store.ListEntriesByForm(formID)
	if err != nil {
		return nil, err
	}

	visible := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Hidden {
			visible = append(visible, e)
		}
	}

	summary := &AnalyticsSummary{
		FormID:         formID,
		TotalEntries:   len(visible),
		ScoreHistogram: make([]int, 10),
	}
	countsByDay := map[string]int{}
	scoreSum := 0
	for _, e := range visible {
		scoreSum += e.Score
		bucket := e.Score / 10
		if bucket > 9 {
			bucket = 9
		}
		summary.ScoreHistogram[bucket]++
		if e.Flagged {
			summary.FlaggedEntries++
		}
		day := e.SubmittedAt.UTC().Format("2006-01-02")
		countsByDay[day]++
	}
	if len(visible) > 0 {
		summary.AverageScore = math.Round(float64(scoreSum)/float64(len(visible))*10) / 10
		summary.FlaggedRate = float64(summary.FlaggedEntries) / float64(len(visible))
	}
	summary.Ratings = buildRatingBreakdowns(f.Fields, visible)
	summary.Timeseries = buildTimeseries(countsByDay)
	return summary, nil
}

// buildRatingBreakdowns tallies a 1-5 histogram for every rating field in
// schema order.
func buildRatingBreakdowns(fields []FieldDescriptor, entries []*Entry) []RatingBreakdown {
	out := []RatingBreakdown{}
	index := map[string]int{}
	for _, fd := range fields {
		if fd.Kind != KindRating {
			continue
		}
		index[fd.ID] = len(out)
		out = append(out, RatingBreakdown{FieldID: fd.ID, Label: fd.Label, Histogram: make([]int, 5)})
	}
	for _, e := range entries {
		for id, idx := range index {
			n, ok := toNumber(e.Answers[id])
			if !ok {
				continue
			}
			v := int(n)
			if v >= 1 && v <= 5 {
				out[idx].Histogram[v-1]++
				out[idx].Total++
			}
		}
	}
	return out
}

func buildTimeseries(counts map[string]int) []AnalyticsTimeseries {
	days := make([]string, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]AnalyticsTimeseries, 0, len(days))
	for _, d := range days {
		out = append(out, AnalyticsTimeseries{Date: d, Count: counts[d]})
	}
	return out
}
