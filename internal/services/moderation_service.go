package services

import "time"

type ModerationStore interface {
	GetRespondent(id string) (*Respondent, error)
	GetRespondentByEmail(email string) (*Respondent, error)
	ListEntriesByRespondent(id string) ([]*Entry, error)
	DeleteRespondentByID(id string, hard bool) (bool, error)
	GetEntry(id string) (*Entry, error)
	SetEntryHidden(id string, hidden bool) (bool, error)
	SuspendUserByEmail(email string, suspended bool) (bool, error)
	AddAudit(entry AuditEntry)
}

// ModerationService covers two jobs: respondent self-service over their own
// data (token-gated export/delete) and admin moderation of entries and vendor
// accounts. Every mutation is audited.
type ModerationService struct {
	store ModerationStore
	now   func() time.Time
}

func NewModerationService(store ModerationStore) *ModerationService {
	return &ModerationService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

type RespondentExport struct {
	Respondent map[string]any `json:"respondent"`
	Entries    []*Entry       `json:"entries"`
}

// ExportRespondent returns everything stored for a respondent, gated on the
// self token handed out at submission time.
func (s *ModerationService) ExportRespondent(rid, token string) (*RespondentExport, error) {
	if rid == "" || token == "" {
		return nil, NewInvalidError("respondent id/token required")
	}
	r, err := s.store.GetRespondent(rid)
	if err != nil {
		return nil, err
	}
	if r == nil || r.SelfToken == "" || token != r.SelfToken {
		return nil, NewForbiddenError("forbidden")
	}
	entries, err := s.store.ListEntriesByRespondent(rid)
	if err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: "respondent", Action: "self_export", Target: rid})
	return &RespondentExport{Respondent: map[string]any{"id": r.ID, "email": r.Email}, Entries: entries}, nil
}

// DeleteRespondent removes a respondent's entries; hard deletion drops the
// respondent record too.
func (s *ModerationService) DeleteRespondent(rid, token string, hard bool) error {
	if rid == "" || token == "" {
		return NewInvalidError("respondent id/token required")
	}
	r, err := s.store.GetRespondent(rid)
	if err != nil {
		return err
	}
	if r == nil || r.SelfToken == "" || token != r.SelfToken {
		return NewForbiddenError("forbidden")
	}
	ok, err := s.store.DeleteRespondentByID(rid, hard)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("not found")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: "respondent", Action: map[bool]string{true: "self_delete_hard", false: "self_delete_soft"}[hard], Target: rid})
	return nil
}

// Admin operations (by email)
func (s *ModerationService) AdminExportByEmail(email, actor string) (*RespondentExport, error) {
	if email == "" {
		return nil, NewInvalidError("email required")
	}
	r, err := s.store.GetRespondentByEmail(email)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, NewNotFoundError("not found")
	}
	entries, err := s.store.ListEntriesByRespondent(r.ID)
	if err != nil {
		return nil, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "export_respondent", Target: email})
	return &RespondentExport{Respondent: map[string]any{"id": r.ID, "email": r.Email}, Entries: entries}, nil
}

func (s *ModerationService) AdminDeleteByEmail(email string, hard bool, actor string) error {
	if email == "" {
		return NewInvalidError("email required")
	}
	r, err := s.store.GetRespondentByEmail(email)
	if err != nil {
		return err
	}
	if r == nil {
		return NewNotFoundError("not found")
	}
	ok, err := s.store.DeleteRespondentByID(r.ID, hard)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("not found")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "delete_respondent", Target: email, Note: map[bool]string{true: "hard", false: "soft"}[hard]})
	return nil
}

// HideEntry pulls an entry out of analytics and vendor listings without
// destroying it; unhiding restores it.
func (s *ModerationService) HideEntry(entryID string, hidden bool, actor string) error {
	if entryID == "" {
		return NewInvalidError("entry id required")
	}
	e, err := s.store.GetEntry(entryID)
	if err != nil {
		return err
	}
	if e == nil {
		return NewNotFoundError("entry not found")
	}
	ok, err := s.store.SetEntryHidden(entryID, hidden)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("entry not found")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: map[bool]string{true: "entry.hide", false: "entry.unhide"}[hidden], Target: entryID})
	return nil
}

// SuspendAccount blocks (or restores) a vendor login.
func (s *ModerationService) SuspendAccount(email string, suspended bool, actor string) error {
	if email == "" {
		return NewInvalidError("email required")
	}
	ok, err := s.store.SuspendUserByEmail(email, suspended)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("account not found")
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: map[bool]string{true: "account.suspend", false: "account.restore"}[suspended], Target: email})
	return nil
}
