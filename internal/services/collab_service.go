package services

import (
	"strings"
	"time"
)

type Collaborator struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type CollabStore interface {
	GetForm(id string) (*Form, error)
	FindUserByEmail(email string) (*User, error)
	ListFormCollaborators(formID string) []Collaborator
	AddFormCollaborator(formID, userID, role string) bool
	RemoveFormCollaborator(formID, userID string) bool
	AddAudit(entry AuditEntry)
}

type CollabService struct{ store CollabStore }

func NewCollabService(store CollabStore) *CollabService { return &CollabService{store: store} }

func normalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "viewer":
		return "viewer"
	default:
		return "editor"
	}
}

// List returns all collaborators for a form after tenant check.
func (s *CollabService) List(tenantID, formID string) ([]Collaborator, error) {
	f, err := s.store.GetForm(formID)
	if err != nil {
		return nil, err
	}
	if f == nil || f.TenantID != tenantID {
		return nil, NewForbiddenError("forbidden")
	}
	return s.store.ListFormCollaborators(formID), nil
}

// Add adds a collaborator by email (must be in the same tenant) with role.
func (s *CollabService) Add(tenantID, formID, email, role, actor string) (*Collaborator, error) {
	f, err := s.store.GetForm(formID)
	if err != nil {
		return nil, err
	}
	if f == nil || f.TenantID != tenantID {
		return nil, NewForbiddenError("forbidden")
	}
	u, err := s.store.FindUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil || u.TenantID != tenantID {
		return nil, NewInvalidError("user not found in tenant")
	}
	role = normalizeRole(role)
	if ok := s.store.AddFormCollaborator(formID, u.ID, role); !ok {
		return nil, NewInvalidError("unable to add collaborator")
	}
	s.store.AddAudit(AuditEntry{Time: time.Now().UTC(), Actor: actor, Action: "collab.add", Target: formID, Note: u.Email + ":" + role})
	return &Collaborator{UserID: u.ID, Email: u.Email, Role: role}, nil
}

func (s *CollabService) Remove(tenantID, formID, userID, actor string) error {
	f, err := s.store.GetForm(formID)
	if err != nil {
		return err
	}
	if f == nil || f.TenantID != tenantID {
		return NewForbiddenError("forbidden")
	}
	if ok := s.store.RemoveFormCollaborator(formID, userID); !ok {
		return NewNotFoundError("collaborator not found")
	}
	s.store.AddAudit(AuditEntry{Time: time.Now().UTC(), Actor: actor, Action: "collab.remove", Target: formID, Note: userID})
	return nil
}
