package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"
)

func exportFixture() ([]FieldDescriptor, []*Entry) {
	fields := []FieldDescriptor{
		{ID: "s1", Kind: KindSectionTitle, Label: "About"},
		{ID: "fb", Kind: KindLongText, Label: "Feedback"},
		{ID: "r", Kind: KindRating, Label: "Overall"},
	}
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	entries := []*Entry{
		{ID: "e2", RespondentID: "R2", Score: 80, Flagged: true, SubmittedAt: at,
			Answers: map[string]any{"fb": "great stuff", "r": float64(5)}},
		{ID: "e1", RespondentID: "R1", Score: 30, SubmittedAt: at,
			Answers: map[string]any{"fb": "meh"}},
	}
	return fields, entries
}

func parseCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("bad csv: %v", err)
	}
	return rows
}

func TestExportEntriesCSVLongFormat(t *testing.T) {
	fields, entries := exportFixture()
	data, err := ExportEntriesCSV(fields, entries)
	if err != nil {
		t.Fatalf("ExportEntriesCSV error: %v", err)
	}
	rows := parseCSV(t, data)
	if rows[0][0] != "entry_id" || rows[0][3] != "value" {
		t.Fatalf("header = %v", rows[0])
	}
	// e2 answered two input fields, e1 one; the display field never appears.
	if len(rows) != 4 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[1][2] != "fb" || rows[1][3] != "great stuff" {
		t.Fatalf("row 1 = %v", rows[1])
	}
	if rows[2][2] != "r" || rows[2][3] != "5" {
		t.Fatalf("row 2 = %v", rows[2])
	}
	for _, row := range rows[1:] {
		if row[2] == "s1" {
			t.Fatal("display field exported")
		}
	}
}

func TestExportWideCSV(t *testing.T) {
	fields, entries := exportFixture()
	data, err := ExportWideCSV(fields, entries)
	if err != nil {
		t.Fatalf("ExportWideCSV error: %v", err)
	}
	rows := parseCSV(t, data)
	want := []string{"entry_id", "respondent_id", "submitted_at", "fb", "r", "score", "flagged"}
	if len(rows[0]) != len(want) {
		t.Fatalf("header = %v", rows[0])
	}
	for i, h := range want {
		if rows[0][i] != h {
			t.Fatalf("header[%d] = %q, want %q", i, rows[0][i], h)
		}
	}
	// Rows are sorted by entry id regardless of input order.
	if rows[1][0] != "e1" || rows[2][0] != "e2" {
		t.Fatalf("rows = %v", rows[1:])
	}
	if rows[1][4] != "" {
		t.Fatalf("unanswered cell = %q, want empty", rows[1][4])
	}
	if rows[2][5] != "80" || rows[2][6] != "true" {
		t.Fatalf("e2 = %v", rows[2])
	}
}

func TestExportScoresCSVBestFirst(t *testing.T) {
	_, entries := exportFixture()
	data, err := ExportScoresCSV(entries)
	if err != nil {
		t.Fatalf("ExportScoresCSV error: %v", err)
	}
	rows := parseCSV(t, data)
	if rows[1][0] != "e2" || rows[2][0] != "e1" {
		t.Fatalf("rows = %v", rows[1:])
	}
	if rows[1][1] != "80" || rows[1][2] != "true" {
		t.Fatalf("row = %v", rows[1])
	}
}

func TestFieldsCSVRoundTrip(t *testing.T) {
	minLen, maxLen := 2, 80
	minVal := 1.0
	fields := []FieldDescriptor{
		{ID: "fb", Kind: KindLongText, Label: "Feedback", Required: true,
			Constraints: &FieldConstraints{MinLength: &minLen, MaxLength: &maxLen}},
		{ID: "br", Kind: KindChoice, Label: "Branch", Options: []string{"north", "south"}},
		{ID: "n", Kind: KindNumber, Label: "Visits", Constraints: &FieldConstraints{Min: &minVal}},
	}
	data, err := ExportFieldsCSV(fields)
	if err != nil {
		t.Fatalf("ExportFieldsCSV error: %v", err)
	}

	store := newStubFormStore()
	store.forms["F1"] = &Form{ID: "F1", TenantID: "T1", Title: "T"}
	svc := NewFormService(store)
	n, err := svc.ImportFieldsCSV("T1", "F1", data)
	if err != nil {
		t.Fatalf("ImportFieldsCSV error: %v", err)
	}
	if n != 3 {
		t.Fatalf("imported = %d", n)
	}
	got := store.forms["F1"].Fields
	if got[0].ID != "fb" || !got[0].Required || *got[0].Constraints.MinLength != 2 || *got[0].Constraints.MaxLength != 80 {
		t.Fatalf("fb = %+v", got[0])
	}
	if len(got[1].Options) != 2 || got[1].Options[1] != "south" {
		t.Fatalf("br = %+v", got[1])
	}
	if got[2].Constraints == nil || *got[2].Constraints.Min != 1 {
		t.Fatalf("n = %+v", got[2])
	}
}
