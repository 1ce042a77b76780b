package models

import "time"

// Row shapes for the SQL backend. Nested structures (form schemas, answer
// sets) travel as JSON blobs so the table layout stays stable while the
// field vocabulary evolves.

// FormRow mirrors the forms table.
type FormRow struct {
	ID          string
	TenantID    string
	Title       string
	Description string
	Accepting   bool
	FieldsJSON  string
	CreatedAt   time.Time
}

// RespondentRow mirrors the respondents table. Email may be blanked by a
// soft delete while the row itself survives for entry attribution.
type RespondentRow struct {
	ID        string
	Email     string
	SelfToken string
}

// EntryRow mirrors the entries table.
type EntryRow struct {
	ID           string
	FormID       string
	RespondentID string
	AnswersJSON  string
	Score        int
	Flagged      bool
	Hidden       bool
	SubmittedAt  time.Time
}

// UserRow mirrors the users table.
type UserRow struct {
	ID        string
	Email     string
	PassHash  []byte
	TenantID  string
	Suspended bool
	CreatedAt time.Time
}
