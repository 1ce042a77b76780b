package api

import (
	"crypto/rand"
	"encoding/base64"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/formloop/formloop/internal/services"
)

type collabKey struct{ formID, userID string }

type memoryStore struct {
	mu           sync.RWMutex
	forms        map[string]*services.Form
	respondents  map[string]*services.Respondent
	entries      []*services.Entry
	tenants      map[string]*services.Tenant
	usersByEmail map[string]*services.User
	collabs      map[collabKey]string
	audit        []services.AuditEntry
}

// NewMemoryStore returns the mutex-guarded in-memory backend. It is the
// default when no database is configured and the store integration tests
// run against it.
func NewMemoryStore() Store { return newMemoryStore() }

func newMemoryStore() *memoryStore {
	return &memoryStore{
		forms:        map[string]*services.Form{},
		respondents:  map[string]*services.Respondent{},
		entries:      []*services.Entry{},
		tenants:      map[string]*services.Tenant{},
		usersByEmail: map[string]*services.User{},
		collabs:      map[collabKey]string{},
	}
}

func generateToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func copyForm(f *services.Form) *services.Form {
	if f == nil {
		return nil
	}
	cp := *f
	cp.Fields = append([]services.FieldDescriptor(nil), f.Fields...)
	return &cp
}

func copyEntry(e *services.Entry) *services.Entry {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

// --- Forms ---

func (s *memoryStore) InsertForm(f *services.Form) *services.Form {
	if f == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forms[f.ID] = copyForm(f)
	return copyForm(s.forms[f.ID])
}

func (s *memoryStore) GetForm(id string) *services.Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyForm(s.forms[id])
}

func (s *memoryStore) UpdateForm(f *services.Form) bool {
	if f == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[f.ID]; !ok {
		return false
	}
	s.forms[f.ID] = copyForm(f)
	return true
}

func (s *memoryStore) DeleteForm(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forms[id]; !ok {
		return false
	}
	delete(s.forms, id)
	for k := range s.collabs {
		if k.formID == id {
			delete(s.collabs, k)
		}
	}
	return true
}

func (s *memoryStore) ListFormsByTenant(tid string) []*services.Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.Form{}
	for _, f := range s.forms {
		if f.TenantID == tid {
			out = append(out, copyForm(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memoryStore) DeleteEntriesByForm(formID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	kept := make([]*services.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.FormID == formID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed
}

// --- Respondents ---

func (s *memoryStore) AddRespondent(r *services.Respondent) *services.Respondent {
	if r == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	if strings.TrimSpace(cp.SelfToken) == "" {
		cp.SelfToken = generateToken(24)
	}
	s.respondents[cp.ID] = &cp
	out := cp
	return &out
}

func (s *memoryStore) GetRespondent(id string) *services.Respondent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.respondents[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func (s *memoryStore) GetRespondentByEmail(email string) *services.Respondent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.respondents {
		if r.Email != "" && strings.EqualFold(r.Email, email) {
			cp := *r
			return &cp
		}
	}
	return nil
}

func (s *memoryStore) DeleteRespondentByID(id string, hard bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.respondents[id]
	if !ok {
		return false
	}
	kept := make([]*services.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.RespondentID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	if hard {
		delete(s.respondents, id)
	} else {
		// soft delete: keep the record but drop the identifying email
		r.Email = ""
	}
	return true
}

// --- Entries ---

func (s *memoryStore) AddEntry(e *services.Entry) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, copyEntry(e))
}

func (s *memoryStore) GetEntry(id string) *services.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return copyEntry(e)
		}
	}
	return nil
}

func (s *memoryStore) ListEntriesByForm(formID string) []*services.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.Entry{}
	for _, e := range s.entries {
		if e.FormID == formID {
			out = append(out, copyEntry(e))
		}
	}
	return out
}

func (s *memoryStore) ListEntriesByRespondent(rid string) []*services.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.Entry{}
	for _, e := range s.entries {
		if e.RespondentID == rid {
			out = append(out, copyEntry(e))
		}
	}
	return out
}

func (s *memoryStore) SetEntryHidden(id string, hidden bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			e.Hidden = hidden
			return true
		}
	}
	return false
}

// --- Tenants & users ---

func (s *memoryStore) AddTenant(t *services.Tenant) {
	if t == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tenants[t.ID] = &cp
}

func (s *memoryStore) AddUser(u *services.User) {
	if u == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.usersByEmail[strings.ToLower(u.Email)] = &cp
}

func (s *memoryStore) FindUserByEmail(email string) *services.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (s *memoryStore) SuspendUserByEmail(email string, suspended bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return false
	}
	u.Suspended = suspended
	return true
}

// --- Collaborators ---

func (s *memoryStore) ListFormCollaborators(formID string) []services.Collaborator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []services.Collaborator{}
	for k, role := range s.collabs {
		if k.formID != formID {
			continue
		}
		c := services.Collaborator{UserID: k.userID, Role: role}
		for _, u := range s.usersByEmail {
			if u.ID == k.userID {
				c.Email = u.Email
				break
			}
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *memoryStore) AddFormCollaborator(formID, userID, role string) bool {
	if strings.TrimSpace(formID) == "" || strings.TrimSpace(userID) == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := collabKey{formID: formID, userID: userID}
	if _, exists := s.collabs[k]; exists {
		return false
	}
	s.collabs[k] = role
	return true
}

func (s *memoryStore) RemoveFormCollaborator(formID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := collabKey{formID: formID, userID: userID}
	if _, exists := s.collabs[k]; !exists {
		return false
	}
	delete(s.collabs, k)
	return true
}

// --- Audit log ---

func (s *memoryStore) AddAudit(e services.AuditEntry) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	s.mu.Lock()
	s.audit = append(s.audit, e)
	s.mu.Unlock()
}

func (s *memoryStore) ListAudit() []services.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]services.AuditEntry, len(s.audit))
	copy(out, s.audit)
	return out
}
