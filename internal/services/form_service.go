package services

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

type FormStore interface {
	InsertForm(f *Form) (*Form, error)
	GetForm(id string) (*Form, error)
	UpdateForm(f *Form) error
	DeleteForm(id string) error
	ListFormsByTenant(tenantID string) ([]*Form, error)
	DeleteEntriesByForm(formID string) (int, error)
	AddAudit(entry AuditEntry)
}

// FormService owns form lifecycle and schema authoring. Everything that
// reaches ValidateAnswers goes through NormalizeFields first, so the
// validator can assume labeled input fields and populated option lists.
type FormService struct {
	store FormStore
	now   func() time.Time
}

func NewFormService(store FormStore) *FormService {
	return &FormService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func shortID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

func (s *FormService) CreateForm(tenantID string, raw map[string]any) (*Form, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	var f Form
	if len(raw) > 0 {
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, NewInvalidError(err.Error())
		}
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, NewInvalidError(err.Error())
		}
	}
	if strings.TrimSpace(f.Title) == "" {
		return nil, NewInvalidError("title required")
	}
	if f.ID == "" {
		f.ID = shortID(8)
	}
	fields, err := NormalizeFields(f.Fields)
	if err != nil {
		return nil, err
	}
	f.Fields = fields
	f.TenantID = tenantID
	f.Accepting = true
	if v, ok := raw["accepting"].(bool); ok {
		f.Accepting = v
	}
	f.CreatedAt = s.now()
	created, err := s.store.InsertForm(&f)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return &f, nil
	}
	return created, nil
}

// NormalizeFields canonicalizes an authored schema: ids are generated when
// missing and must be unique, input kinds need a label, and choice kinds need
// at least one non-blank option. Display kinds keep whatever label they have.
func NormalizeFields(fields []FieldDescriptor) ([]FieldDescriptor, error) {
	out := make([]FieldDescriptor, 0, len(fields))
	seen := map[string]bool{}
	for _, f := range fields {
		f.ID = strings.TrimSpace(f.ID)
		if f.ID == "" {
			f.ID = shortID(8)
		}
		if seen[f.ID] {
			return nil, NewInvalidError("duplicate field id: " + f.ID)
		}
		seen[f.ID] = true
		f.Label = strings.TrimSpace(f.Label)
		if f.Kind.IsInput() && f.Label == "" {
			return nil, NewInvalidError("field " + f.ID + " requires a label")
		}
		if f.Kind.IsChoice() {
			opts := make([]string, 0, len(f.Options))
			for _, o := range f.Options {
				if o = strings.TrimSpace(o); o != "" {
					opts = append(opts, o)
				}
			}
			if len(opts) == 0 {
				return nil, NewInvalidError("field " + f.ID + " requires options")
			}
			f.Options = opts
		} else {
			f.Options = nil
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *FormService) GetForm(id string) (*Form, error) {
	return s.store.GetForm(id)
}

func (s *FormService) ListForms(tenantID string) ([]*Form, error) {
	if tenantID == "" {
		return nil, NewForbiddenError("unauthorized")
	}
	return s.store.ListFormsByTenant(tenantID)
}

// requireForm loads a form and checks tenant ownership.
func (s *FormService) requireForm(tenantID, formID string) (*Form, error) {
	f, err := s.store.GetForm(formID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, NewNotFoundError("form not found")
	}
	if f.TenantID != tenantID {
		return nil, NewForbiddenError("forbidden")
	}
	return f, nil
}

func (s *FormService) UpdateForm(tenantID, formID string, raw map[string]any, actor string) (*Form, error) {
	f, err := s.requireForm(tenantID, formID)
	if err != nil {
		return nil, err
	}
	updated := *f
	if v, ok := raw["title"].(string); ok && strings.TrimSpace(v) != "" {
		updated.Title = strings.TrimSpace(v)
	}
	if v, ok := raw["description"].(string); ok {
		updated.Description = v
	}
	if v, ok := raw["accepting"].(bool); ok {
		updated.Accepting = v
	}
	if v, ok := raw["fields"]; ok {
		fields, err := decodeFields(v)
		if err != nil {
			return nil, err
		}
		normalized, err := NormalizeFields(fields)
		if err != nil {
			return nil, err
		}
		updated.Fields = normalized
	}
	if err := s.store.UpdateForm(&updated); err != nil {
		return nil, err
	}
	if updated.Accepting != f.Accepting {
		action := "form.close"
		if updated.Accepting {
			action = "form.open"
		}
		s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: action, Target: formID})
	}
	return &updated, nil
}

func decodeFields(raw any) ([]FieldDescriptor, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, NewInvalidError(err.Error())
	}
	var fields []FieldDescriptor
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, NewInvalidError("fields must be a list of field descriptors")
	}
	return fields, nil
}

func (s *FormService) DeleteForm(tenantID, formID, actor string) error {
	if _, err := s.requireForm(tenantID, formID); err != nil {
		return err
	}
	if err := s.store.DeleteForm(formID); err != nil {
		return err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "form.delete", Target: formID})
	return nil
}

// ReorderFields rewrites the schema in the given id order. Every existing
// field must appear exactly once.
func (s *FormService) ReorderFields(tenantID, formID string, order []string) (int, error) {
	f, err := s.requireForm(tenantID, formID)
	if err != nil {
		return 0, err
	}
	if len(order) != len(f.Fields) {
		return 0, NewInvalidError("order must list every field")
	}
	byID := make(map[string]FieldDescriptor, len(f.Fields))
	for _, fd := range f.Fields {
		byID[fd.ID] = fd
	}
	reordered := make([]FieldDescriptor, 0, len(order))
	for _, id := range order {
		fd, ok := byID[id]
		if !ok {
			return 0, NewInvalidError("unknown field id: " + id)
		}
		delete(byID, id)
		reordered = append(reordered, fd)
	}
	f.Fields = reordered
	if err := s.store.UpdateForm(f); err != nil {
		return 0, err
	}
	return len(order), nil
}

// PurgeEntries removes every stored entry for a form and audits the removal.
func (s *FormService) PurgeEntries(tenantID, formID, actor string) (int, error) {
	if _, err := s.requireForm(tenantID, formID); err != nil {
		return 0, err
	}
	removed, err := s.store.DeleteEntriesByForm(formID)
	if err != nil {
		return 0, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: actor, Action: "purge_entries", Target: formID, Note: strconv.Itoa(removed)})
	return removed, nil
}

// ImportFieldsCSV parses a CSV (as produced by ExportFieldsCSV) and appends
// the rows to the form's schema. The combined schema is re-normalized, so a
// bad row rejects the whole import.
func (s *FormService) ImportFieldsCSV(tenantID, formID string, data []byte) (int, error) {
	f, err := s.requireForm(tenantID, formID)
	if err != nil {
		return 0, err
	}

	// Strip optional UTF-8 BOM
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}
	r := csv.NewReader(strings.NewReader(string(data)))
	rows, err := r.ReadAll()
	if err != nil {
		return 0, NewInvalidError("invalid csv: " + err.Error())
	}
	if len(rows) == 0 {
		return 0, NewInvalidError("empty csv")
	}
	header := rows[0]
	idx := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	iID := idx("field_id")
	iKind := idx("kind")
	iLabel := idx("label")
	iReq := idx("required")
	iOpts := idx("options")
	iMinLen := idx("min_length")
	iMaxLen := idx("max_length")
	iMin := idx("min")
	iMax := idx("max")

	parseBool := func(s string) bool {
		ss := strings.ToLower(strings.TrimSpace(s))
		return ss == "1" || ss == "true" || ss == "yes" || ss == "y"
	}

	added := make([]FieldDescriptor, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(strings.TrimSpace(strings.Join(row, ""))) == 0 {
			continue
		}
		get := func(i int) string {
			if i >= 0 && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		fd := FieldDescriptor{
			ID:       get(iID),
			Kind:     FieldKind(get(iKind)),
			Label:    get(iLabel),
			Required: parseBool(get(iReq)),
			Options:  splitOptions(get(iOpts)),
		}
		if fd.Kind == "" {
			fd.Kind = KindShortText
		}
		fd.Constraints = parseConstraints(get(iMinLen), get(iMaxLen), get(iMin), get(iMax))
		added = append(added, fd)
	}
	if len(added) == 0 {
		return 0, NewInvalidError("no field rows")
	}

	combined, err := NormalizeFields(append(append([]FieldDescriptor{}, f.Fields...), added...))
	if err != nil {
		return 0, err
	}
	f.Fields = combined
	if err := s.store.UpdateForm(f); err != nil {
		return 0, err
	}
	s.store.AddAudit(AuditEntry{Time: s.now(), Actor: "admin", Action: "import_fields", Target: formID, Note: strconv.Itoa(len(added))})
	return len(added), nil
}

// splitOptions splits a pipe-separated option cell, falling back to commas.
func splitOptions(s string) []string {
	if s == "" {
		return nil
	}
	sep := ","
	if strings.Contains(s, "|") {
		sep = "|"
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseConstraints(minLen, maxLen, minVal, maxVal string) *FieldConstraints {
	c := &FieldConstraints{}
	set := false
	if n, err := strconv.Atoi(minLen); err == nil {
		c.MinLength = &n
		set = true
	}
	if n, err := strconv.Atoi(maxLen); err == nil {
		c.MaxLength = &n
		set = true
	}
	if v, err := strconv.ParseFloat(minVal, 64); err == nil {
		c.Min = &v
		set = true
	}
	if v, err := strconv.ParseFloat(maxVal, 64); err == nil {
		c.Max = &v
		set = true
	}
	if !set {
		return nil
	}
	return c
}

// PublicFormView is the respondent-facing shape of a form: no tenant info,
// display kinds included so clients can render section breaks.
type PublicFormView struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Accepting   bool              `json:"accepting"`
	Fields      []FieldDescriptor `json:"fields"`
}

func (s *FormService) BuildPublicView(formID string) (*PublicFormView, error) {
	f, err := s.store.GetForm(formID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, NewNotFoundError("form not found")
	}
	fields := f.Fields
	if fields == nil {
		fields = []FieldDescriptor{}
	}
	return &PublicFormView{
		ID:          f.ID,
		Title:       f.Title,
		Description: f.Description,
		Accepting:   f.Accepting,
		Fields:      fields,
	}, nil
}
