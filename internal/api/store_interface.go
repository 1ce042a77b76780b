package api

import "github.com/formloop/formloop/internal/services"

// Store is the full persistence surface the router needs. Implementations
// are infallible at this boundary; backends log their own failures and
// report absence with nil/false.
type Store interface {
	InsertForm(f *services.Form) *services.Form
	GetForm(id string) *services.Form
	UpdateForm(f *services.Form) bool
	DeleteForm(id string) bool
	ListFormsByTenant(tid string) []*services.Form
	DeleteEntriesByForm(formID string) int

	AddRespondent(r *services.Respondent) *services.Respondent
	GetRespondent(id string) *services.Respondent
	GetRespondentByEmail(email string) *services.Respondent
	DeleteRespondentByID(id string, hard bool) bool

	AddEntry(e *services.Entry)
	GetEntry(id string) *services.Entry
	ListEntriesByForm(formID string) []*services.Entry
	ListEntriesByRespondent(rid string) []*services.Entry
	SetEntryHidden(id string, hidden bool) bool

	AddTenant(t *services.Tenant)
	AddUser(u *services.User)
	FindUserByEmail(email string) *services.User
	SuspendUserByEmail(email string, suspended bool) bool

	ListFormCollaborators(formID string) []services.Collaborator
	AddFormCollaborator(formID, userID, role string) bool
	RemoveFormCollaborator(formID, userID string) bool

	AddAudit(e services.AuditEntry)
	ListAudit() []services.AuditEntry
}

var _ Store = (*memoryStore)(nil)
