package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntryStore abstracts persistence operations required by EntryService.
type EntryStore interface {
	GetForm(id string) (*Form, error)
	AddRespondent(r *Respondent) (*Respondent, error)
	AddEntry(e *Entry) error
}

var (
	// ErrFormNotFound is returned when a submission references a missing form.
	ErrFormNotFound = errors.New("form not found")
	// ErrFormClosed flags submissions against a form that stopped accepting entries.
	ErrFormClosed = errors.New("form is not accepting submissions")
)

// SubmitRequest transports the decoded handler input into the service layer.
type SubmitRequest struct {
	FormID          string
	RespondentEmail string
	Answers         map[string]any
}

// SubmitResult collects the data needed to emit the HTTP response. When
// Accepted is false, Errors lists every schema violation and nothing was
// stored.
type SubmitResult struct {
	Accepted     bool
	Errors       []string
	EntryID      string
	RespondentID string
	SelfToken    string
	Score        int
	Flagged      bool
}

// EntryService hosts the submission workflow: validate against the form
// schema, sanitize for storage, score, persist.
type EntryService struct {
	store       EntryStore
	now         func() time.Time
	idGenerator func() string
}

func NewEntryService(store EntryStore) *EntryService {
	return &EntryService{
		store:       store,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: defaultEntryID,
	}
}

func defaultEntryID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Submit runs the full pipeline for one raw submission. Schema violations are
// data, not errors: they come back inside the result so the handler can show
// all of them to the respondent at once.
func (s *EntryService) Submit(req SubmitRequest) (*SubmitResult, error) {
	if s.store == nil {
		return nil, errors.New("entry service store is nil")
	}

	form, err := s.store.GetForm(req.FormID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, ErrFormNotFound
	}
	if !form.Accepting {
		return nil, ErrFormClosed
	}

	validation := ValidateAnswers(form.Fields, req.Answers)
	if !validation.Valid {
		return &SubmitResult{Accepted: false, Errors: validation.Errors}, nil
	}

	sanitized := SanitizeAnswers(validation.Answers)
	scored := ScoreFeedback(sanitized)

	respondent := &Respondent{ID: s.idGenerator(), Email: strings.TrimSpace(req.RespondentEmail)}
	stored, err := s.store.AddRespondent(respondent)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		respondent = stored
	}

	entry := &Entry{
		ID:           s.idGenerator(),
		FormID:       form.ID,
		RespondentID: respondent.ID,
		Answers:      sanitized,
		Score:        scored.Score,
		Flagged:      scored.Flagged,
		SubmittedAt:  s.now(),
	}
	if err := s.store.AddEntry(entry); err != nil {
		return nil, err
	}

	return &SubmitResult{
		Accepted:     true,
		EntryID:      entry.ID,
		RespondentID: respondent.ID,
		SelfToken:    respondent.SelfToken,
		Score:        scored.Score,
		Flagged:      scored.Flagged,
	}, nil
}
