package api

import "github.com/formloop/formloop/internal/services"

// Adapters bridge the infallible Store to the narrow, erroring interfaces each
// service declares. Absence becomes a typed error here so services never see
// raw nils from storage.

type formStoreAdapter struct{ store Store }

func newFormStoreAdapter(store Store) services.FormStore { return &formStoreAdapter{store: store} }

func (a *formStoreAdapter) InsertForm(f *services.Form) (*services.Form, error) {
	return a.store.InsertForm(f), nil
}

func (a *formStoreAdapter) GetForm(id string) (*services.Form, error) {
	return a.store.GetForm(id), nil
}

func (a *formStoreAdapter) UpdateForm(f *services.Form) error {
	if f == nil {
		return services.NewInvalidError("form required")
	}
	if ok := a.store.UpdateForm(f); !ok {
		return services.NewNotFoundError("form not found")
	}
	return nil
}

func (a *formStoreAdapter) DeleteForm(id string) error {
	if ok := a.store.DeleteForm(id); !ok {
		return services.NewNotFoundError("form not found")
	}
	return nil
}

func (a *formStoreAdapter) ListFormsByTenant(tenantID string) ([]*services.Form, error) {
	return a.store.ListFormsByTenant(tenantID), nil
}

func (a *formStoreAdapter) DeleteEntriesByForm(formID string) (int, error) {
	return a.store.DeleteEntriesByForm(formID), nil
}

func (a *formStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(entry)
}

var _ services.FormStore = (*formStoreAdapter)(nil)

type entryStoreAdapter struct{ store Store }

func newEntryStoreAdapter(store Store) services.EntryStore { return &entryStoreAdapter{store: store} }

func (a *entryStoreAdapter) GetForm(id string) (*services.Form, error) {
	return a.store.GetForm(id), nil
}

func (a *entryStoreAdapter) AddRespondent(r *services.Respondent) (*services.Respondent, error) {
	stored := a.store.AddRespondent(r)
	if stored == nil {
		return nil, services.NewInvalidError("respondent required")
	}
	return stored, nil
}

func (a *entryStoreAdapter) AddEntry(e *services.Entry) error {
	a.store.AddEntry(e)
	return nil
}

var _ services.EntryStore = (*entryStoreAdapter)(nil)

type analyticsStoreAdapter struct{ store Store }

func newAnalyticsStoreAdapter(store Store) services.AnalyticsStore {
	return &analyticsStoreAdapter{store: store}
}

func (a *analyticsStoreAdapter) GetForm(id string) (*services.Form, error) {
	return a.store.GetForm(id), nil
}

func (a *analyticsStoreAdapter) ListEntriesByForm(formID string) ([]*services.Entry, error) {
	return a.store.ListEntriesByForm(formID), nil
}

var _ services.AnalyticsStore = (*analyticsStoreAdapter)(nil)

type authStoreAdapter struct{ store Store }

func newAuthStoreAdapter(store Store) services.AuthStore { return &authStoreAdapter{store: store} }

func (a *authStoreAdapter) FindUserByEmail(email string) (*services.User, error) {
	return a.store.FindUserByEmail(email), nil
}

func (a *authStoreAdapter) AddUser(u *services.User) error {
	a.store.AddUser(u)
	return nil
}

func (a *authStoreAdapter) AddTenant(t *services.Tenant) error {
	a.store.AddTenant(t)
	return nil
}

var _ services.AuthStore = (*authStoreAdapter)(nil)

type moderationStoreAdapter struct{ store Store }

func newModerationStoreAdapter(store Store) services.ModerationStore {
	return &moderationStoreAdapter{store: store}
}

func (a *moderationStoreAdapter) GetRespondent(id string) (*services.Respondent, error) {
	return a.store.GetRespondent(id), nil
}

func (a *moderationStoreAdapter) GetRespondentByEmail(email string) (*services.Respondent, error) {
	return a.store.GetRespondentByEmail(email), nil
}

func (a *moderationStoreAdapter) ListEntriesByRespondent(id string) ([]*services.Entry, error) {
	return a.store.ListEntriesByRespondent(id), nil
}

func (a *moderationStoreAdapter) DeleteRespondentByID(id string, hard bool) (bool, error) {
	return a.store.DeleteRespondentByID(id, hard), nil
}

func (a *moderationStoreAdapter) GetEntry(id string) (*services.Entry, error) {
	return a.store.GetEntry(id), nil
}

func (a *moderationStoreAdapter) SetEntryHidden(id string, hidden bool) (bool, error) {
	return a.store.SetEntryHidden(id, hidden), nil
}

func (a *moderationStoreAdapter) SuspendUserByEmail(email string, suspended bool) (bool, error) {
	return a.store.SuspendUserByEmail(email, suspended), nil
}

func (a *moderationStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(entry)
}

var _ services.ModerationStore = (*moderationStoreAdapter)(nil)

type collabStoreAdapter struct{ store Store }

func newCollabStoreAdapter(store Store) services.CollabStore {
	return &collabStoreAdapter{store: store}
}

func (a *collabStoreAdapter) GetForm(id string) (*services.Form, error) {
	return a.store.GetForm(id), nil
}

func (a *collabStoreAdapter) FindUserByEmail(email string) (*services.User, error) {
	return a.store.FindUserByEmail(email), nil
}

func (a *collabStoreAdapter) ListFormCollaborators(formID string) []services.Collaborator {
	return a.store.ListFormCollaborators(formID)
}

func (a *collabStoreAdapter) AddFormCollaborator(formID, userID, role string) bool {
	return a.store.AddFormCollaborator(formID, userID, role)
}

func (a *collabStoreAdapter) RemoveFormCollaborator(formID, userID string) bool {
	return a.store.RemoveFormCollaborator(formID, userID)
}

func (a *collabStoreAdapter) AddAudit(entry services.AuditEntry) {
	a.store.AddAudit(entry)
}

var _ services.CollabStore = (*collabStoreAdapter)(nil)
