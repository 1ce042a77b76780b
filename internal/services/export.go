package services

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"
	"time"
)

// ExportEntriesCSV renders entries in long format: one row per answered
// field, in schema order, so analysts can pivot however they like.
func ExportEntriesCSV(fields []FieldDescriptor, entries []*Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"entry_id", "respondent_id", "field_id", "value", "submitted_at"})
	for _, e := range entries {
		for _, fd := range fields {
			if !fd.Kind.IsInput() {
				continue
			}
			v, ok := e.Answers[fd.ID]
			if !ok {
				continue
			}
			rec := []string{
				e.ID,
				e.RespondentID,
				fd.ID,
				valueText(v),
				e.SubmittedAt.Format(time.RFC3339),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportWideCSV renders entry-per-row with one column per input field plus
// the advisory score columns.
func ExportWideCSV(fields []FieldDescriptor, entries []*Entry) ([]byte, error) {
	cols := make([]FieldDescriptor, 0, len(fields))
	for _, fd := range fields {
		if fd.Kind.IsInput() {
			cols = append(cols, fd)
		}
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"entry_id", "respondent_id", "submitted_at"}
	for _, fd := range cols {
		header = append(header, fd.ID)
	}
	header = append(header, "score", "flagged")
	_ = w.Write(header)

	sorted := append([]*Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, e := range sorted {
		row := []string{e.ID, e.RespondentID, e.SubmittedAt.Format(time.RFC3339)}
		for _, fd := range cols {
			row = append(row, valueText(e.Answers[fd.ID]))
		}
		row = append(row, strconv.Itoa(e.Score), strconv.FormatBool(e.Flagged))
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportScoresCSV renders just the advisory scores, sorted best-first so the
// top of the file is the review queue.
func ExportScoresCSV(entries []*Entry) ([]byte, error) {
	sorted := append([]*Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score == sorted[j].Score {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Score > sorted[j].Score
	})

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"entry_id", "score", "flagged", "submitted_at"})
	for _, e := range sorted {
		rec := []string{e.ID, strconv.Itoa(e.Score), strconv.FormatBool(e.Flagged), e.SubmittedAt.Format(time.RFC3339)}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportFieldsCSV renders a CSV of the form schema in the same column layout
// ImportFieldsCSV consumes.
func ExportFieldsCSV(fields []FieldDescriptor) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"field_id", "kind", "label", "required", "options", "min_length", "max_length", "min", "max"})
	join := func(ss []string) string {
		out := ""
		for i, s := range ss {
			if i > 0 {
				out += " | "
			}
			out += s
		}
		return out
	}
	intCell := func(p *int) string {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	}
	floatCell := func(p *float64) string {
		if p == nil {
			return ""
		}
		return strconv.FormatFloat(*p, 'f', -1, 64)
	}
	for _, fd := range fields {
		minLen, maxLen, minVal, maxVal := "", "", "", ""
		if fd.Constraints != nil {
			minLen = intCell(fd.Constraints.MinLength)
			maxLen = intCell(fd.Constraints.MaxLength)
			minVal = floatCell(fd.Constraints.Min)
			maxVal = floatCell(fd.Constraints.Max)
		}
		rec := []string{
			fd.ID,
			string(fd.Kind),
			fd.Label,
			strconv.FormatBool(fd.Required),
			join(fd.Options),
			minLen, maxLen, minVal, maxVal,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
