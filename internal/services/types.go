package services

import "time"

// FieldKind is the closed set of field types a form may declare.
// Kinds not listed here are tolerated by the validator (the value is copied
// through unchanged) so that older servers keep accepting schemas authored
// by newer clients.
type FieldKind string

const (
	KindShortText FieldKind = "short_text"
	KindLongText  FieldKind = "long_text"
	KindEmail     FieldKind = "email"
	KindPhone     FieldKind = "phone"
	KindNumber    FieldKind = "number"
	KindDate      FieldKind = "date"
	KindTime      FieldKind = "time"
	KindRating    FieldKind = "rating"
	KindChoice    FieldKind = "single_choice"
	KindMulti     FieldKind = "multi_choice"
	KindDropdown  FieldKind = "dropdown"
	KindYesNo     FieldKind = "yes_no"
	KindFile      FieldKind = "file"
	KindImage     FieldKind = "image"

	// Display-only kinds. They carry no answer and are skipped by validation.
	KindSectionTitle FieldKind = "section_title"
	KindDescription  FieldKind = "description"
	KindDivider      FieldKind = "divider"
	KindSubmit       FieldKind = "submit"
)

// IsInput reports whether the kind accepts an answer from a respondent.
func (k FieldKind) IsInput() bool {
	switch k {
	case KindSectionTitle, KindDescription, KindDivider, KindSubmit:
		return false
	}
	return true
}

// IsChoice reports whether the kind requires a non-empty option list.
func (k FieldKind) IsChoice() bool {
	switch k {
	case KindChoice, KindMulti, KindDropdown:
		return true
	}
	return false
}

// FieldConstraints holds the optional bounds a field may declare. Pointer
// values distinguish "unset" from zero.
type FieldConstraints struct {
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// FieldDescriptor is one entry in a form schema. Descriptors are authored
// through FormService and are never mutated during validation.
type FieldDescriptor struct {
	ID          string            `json:"id"`
	Kind        FieldKind         `json:"kind"`
	Label       string            `json:"label,omitempty"`
	Required    bool              `json:"required,omitempty"`
	Options     []string          `json:"options,omitempty"`
	Constraints *FieldConstraints `json:"constraints,omitempty"`
}

// Form is a vendor-owned feedback form.
type Form struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenant_id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Accepting   bool              `json:"accepting"`
	Fields      []FieldDescriptor `json:"fields,omitempty"`
	CreatedAt   time.Time         `json:"created_at,omitempty"`
}

// Respondent is the person behind one or more entries. Email is optional;
// SelfToken lets a respondent export or delete their own data later.
type Respondent struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	SelfToken string `json:"self_token,omitempty"`
}

// Entry is a stored submission: sanitized answers plus the advisory score.
type Entry struct {
	ID           string         `json:"id"`
	FormID       string         `json:"form_id"`
	RespondentID string         `json:"respondent_id"`
	Answers      map[string]any `json:"answers"`
	Score        int            `json:"score"`
	Flagged      bool           `json:"flagged"`
	Hidden       bool           `json:"hidden,omitempty"`
	SubmittedAt  time.Time      `json:"submitted_at"`
}

// Tenant is a vendor account boundary.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// User is a vendor dashboard login within a tenant.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	TenantID  string    `json:"tenant_id"`
	Suspended bool      `json:"suspended,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}
