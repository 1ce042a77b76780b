package db

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/formloop/formloop/internal/api"
	"github.com/formloop/formloop/internal/models"
	"github.com/formloop/formloop/internal/services"
)

// SQLiteStore backs api.Store with a single sqlite database. The api boundary
// is infallible, so query failures are logged here and surfaced as absence.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

var _ api.Store = (*SQLiteStore)(nil)

func (s *SQLiteStore) logErr(prefix string, err error) {
	if err != nil {
		log.Printf("sqlite store: %s: %v", prefix, err)
	}
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func generateToken(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		log.Printf("sqlite store: generate token: %v", err)
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func encodeFields(fields []services.FieldDescriptor) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeFields(raw sql.NullString) []services.FieldDescriptor {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil
	}
	var out []services.FieldDescriptor
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		log.Printf("sqlite store: decode fields: %v", err)
		return nil
	}
	return out
}

func encodeAnswers(answers map[string]any) (string, error) {
	if len(answers) == 0 {
		return "", nil
	}
	b, err := json.Marshal(answers)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeAnswers(raw sql.NullString) map[string]any {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		log.Printf("sqlite store: decode answers: %v", err)
		return map[string]any{}
	}
	return out
}

func formFromRow(row models.FormRow) *services.Form {
	return &services.Form{
		ID:          row.ID,
		TenantID:    row.TenantID,
		Title:       row.Title,
		Description: row.Description,
		Accepting:   row.Accepting,
		Fields:      decodeFields(toNullString(row.FieldsJSON)),
		CreatedAt:   row.CreatedAt,
	}
}

func entryFromRow(row models.EntryRow) *services.Entry {
	return &services.Entry{
		ID:           row.ID,
		FormID:       row.FormID,
		RespondentID: row.RespondentID,
		Answers:      decodeAnswers(toNullString(row.AnswersJSON)),
		Score:        row.Score,
		Flagged:      row.Flagged,
		Hidden:       row.Hidden,
		SubmittedAt:  row.SubmittedAt,
	}
}

// --- Forms ---

func (s *SQLiteStore) InsertForm(f *services.Form) *services.Form {
	if f == nil {
		return nil
	}
	fieldsJSON, err := encodeFields(f.Fields)
	if err != nil {
		s.logErr("InsertForm encode fields", err)
		return nil
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = s.db.Exec(`INSERT INTO forms (id, tenant_id, title, description, accepting, fields_json, created_at)
      VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.TenantID, f.Title, f.Description, boolToInt64(f.Accepting), toNullString(fieldsJSON), created.Format(time.RFC3339Nano))
	if err != nil {
		s.logErr("InsertForm", err)
		return nil
	}
	return s.GetForm(f.ID)
}

func (s *SQLiteStore) scanForm(row *sql.Row) *services.Form {
	var rec models.FormRow
	var accepting int64
	var fieldsJSON sql.NullString
	var created string
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.Title, &rec.Description, &accepting, &fieldsJSON, &created); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("scanForm", err)
		}
		return nil
	}
	rec.Accepting = accepting != 0
	rec.FieldsJSON = fieldsJSON.String
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		rec.CreatedAt = t
	}
	return formFromRow(rec)
}

func (s *SQLiteStore) GetForm(id string) *services.Form {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, tenant_id, title, description, accepting, fields_json, created_at FROM forms WHERE id = ?`, id)
	return s.scanForm(row)
}

func (s *SQLiteStore) UpdateForm(f *services.Form) bool {
	if f == nil {
		return false
	}
	fieldsJSON, err := encodeFields(f.Fields)
	if err != nil {
		s.logErr("UpdateForm encode fields", err)
		return false
	}
	res, err := s.db.Exec(`UPDATE forms SET title = ?, description = ?, accepting = ?, fields_json = ? WHERE id = ?`,
		f.Title, f.Description, boolToInt64(f.Accepting), toNullString(fieldsJSON), f.ID)
	if err != nil {
		s.logErr("UpdateForm", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) DeleteForm(id string) bool {
	res, err := s.db.Exec(`DELETE FROM forms WHERE id = ?`, id)
	if err != nil {
		s.logErr("DeleteForm", err)
		return false
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false
	}
	if _, err := s.db.Exec(`DELETE FROM form_collaborators WHERE form_id = ?`, id); err != nil {
		s.logErr("DeleteForm collaborators", err)
	}
	return true
}

func (s *SQLiteStore) ListFormsByTenant(tid string) []*services.Form {
	if strings.TrimSpace(tid) == "" {
		return nil
	}
	rows, err := s.db.Query(`SELECT id, tenant_id, title, description, accepting, fields_json, created_at
      FROM forms WHERE tenant_id = ? ORDER BY id ASC`, tid)
	if err != nil {
		s.logErr("ListFormsByTenant", err)
		return nil
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListFormsByTenant rows.Close", cerr)
		}
	}()
	out := []*services.Form{}
	for rows.Next() {
		var rec models.FormRow
		var accepting int64
		var fieldsJSON sql.NullString
		var created string
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Title, &rec.Description, &accepting, &fieldsJSON, &created); err != nil {
			s.logErr("ListFormsByTenant scan", err)
			continue
		}
		rec.Accepting = accepting != 0
		rec.FieldsJSON = fieldsJSON.String
		if t, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			rec.CreatedAt = t
		}
		out = append(out, formFromRow(rec))
	}
	if err := rows.Err(); err != nil {
		s.logErr("ListFormsByTenant rows.Err", err)
	}
	return out
}

func (s *SQLiteStore) DeleteEntriesByForm(formID string) int {
	res, err := s.db.Exec(`DELETE FROM entries WHERE form_id = ?`, formID)
	if err != nil {
		s.logErr("DeleteEntriesByForm", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// --- Respondents ---

func (s *SQLiteStore) AddRespondent(r *services.Respondent) *services.Respondent {
	if r == nil {
		return nil
	}
	cp := *r
	if strings.TrimSpace(cp.SelfToken) == "" {
		cp.SelfToken = generateToken(24)
	}
	_, err := s.db.Exec(`INSERT INTO respondents (id, email, self_token) VALUES (?, ?, ?)`,
		cp.ID, toNullString(cp.Email), toNullString(cp.SelfToken))
	if err != nil {
		s.logErr("AddRespondent", err)
		return nil
	}
	return &cp
}

func (s *SQLiteStore) GetRespondent(id string) *services.Respondent {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, email, self_token FROM respondents WHERE id = ?`, id)
	var rec models.RespondentRow
	var email, token sql.NullString
	if err := row.Scan(&rec.ID, &email, &token); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetRespondent", err)
		}
		return nil
	}
	return &services.Respondent{ID: rec.ID, Email: email.String, SelfToken: token.String}
}

func (s *SQLiteStore) GetRespondentByEmail(email string) *services.Respondent {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	row := s.db.QueryRow(`SELECT id, email, self_token FROM respondents WHERE email = ? COLLATE NOCASE`, email)
	var rec models.RespondentRow
	var em, token sql.NullString
	if err := row.Scan(&rec.ID, &em, &token); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("GetRespondentByEmail", err)
		}
		return nil
	}
	return &services.Respondent{ID: rec.ID, Email: em.String, SelfToken: token.String}
}

func (s *SQLiteStore) DeleteRespondentByID(id string, hard bool) bool {
	if s.GetRespondent(id) == nil {
		return false
	}
	if _, err := s.db.Exec(`DELETE FROM entries WHERE respondent_id = ?`, id); err != nil {
		s.logErr("DeleteRespondentByID entries", err)
		return false
	}
	if hard {
		if _, err := s.db.Exec(`DELETE FROM respondents WHERE id = ?`, id); err != nil {
			s.logErr("DeleteRespondentByID", err)
			return false
		}
		return true
	}
	if _, err := s.db.Exec(`UPDATE respondents SET email = NULL WHERE id = ?`, id); err != nil {
		s.logErr("AnonymizeRespondent", err)
		return false
	}
	return true
}

// --- Entries ---

func (s *SQLiteStore) AddEntry(e *services.Entry) {
	if e == nil {
		return
	}
	answersJSON, err := encodeAnswers(e.Answers)
	if err != nil {
		s.logErr("AddEntry encode answers", err)
		return
	}
	_, err = s.db.Exec(`INSERT INTO entries (id, form_id, respondent_id, answers_json, score, flagged, hidden, submitted_at)
      VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FormID, e.RespondentID, toNullString(answersJSON), e.Score, boolToInt64(e.Flagged), boolToInt64(e.Hidden),
		e.SubmittedAt.UTC().Format(time.RFC3339Nano))
	s.logErr("AddEntry", err)
}

func (s *SQLiteStore) scanEntries(rows *sql.Rows, label string) []*services.Entry {
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr(label+" rows.Close", cerr)
		}
	}()
	out := []*services.Entry{}
	for rows.Next() {
		var rec models.EntryRow
		var answers sql.NullString
		var flagged, hidden int64
		var submitted string
		if err := rows.Scan(&rec.ID, &rec.FormID, &rec.RespondentID, &answers, &rec.Score, &flagged, &hidden, &submitted); err != nil {
			s.logErr(label+" scan", err)
			continue
		}
		rec.AnswersJSON = answers.String
		rec.Flagged = flagged != 0
		rec.Hidden = hidden != 0
		if t, err := time.Parse(time.RFC3339Nano, submitted); err == nil {
			rec.SubmittedAt = t
		}
		out = append(out, entryFromRow(rec))
	}
	if err := rows.Err(); err != nil {
		s.logErr(label+" rows.Err", err)
	}
	return out
}

const entryColumns = `id, form_id, respondent_id, answers_json, score, flagged, hidden, submitted_at`

func (s *SQLiteStore) GetEntry(id string) *services.Entry {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	rows, err := s.db.Query(`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	if err != nil {
		s.logErr("GetEntry", err)
		return nil
	}
	entries := s.scanEntries(rows, "GetEntry")
	if len(entries) == 0 {
		return nil
	}
	return entries[0]
}

func (s *SQLiteStore) ListEntriesByForm(formID string) []*services.Entry {
	rows, err := s.db.Query(`SELECT `+entryColumns+` FROM entries WHERE form_id = ? ORDER BY submitted_at ASC, id ASC`, formID)
	if err != nil {
		s.logErr("ListEntriesByForm", err)
		return nil
	}
	return s.scanEntries(rows, "ListEntriesByForm")
}

func (s *SQLiteStore) ListEntriesByRespondent(rid string) []*services.Entry {
	rows, err := s.db.Query(`SELECT `+entryColumns+` FROM entries WHERE respondent_id = ? ORDER BY submitted_at ASC, id ASC`, rid)
	if err != nil {
		s.logErr("ListEntriesByRespondent", err)
		return nil
	}
	return s.scanEntries(rows, "ListEntriesByRespondent")
}

func (s *SQLiteStore) SetEntryHidden(id string, hidden bool) bool {
	res, err := s.db.Exec(`UPDATE entries SET hidden = ? WHERE id = ?`, boolToInt64(hidden), id)
	if err != nil {
		s.logErr("SetEntryHidden", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// --- Tenants & users ---

func (s *SQLiteStore) AddTenant(t *services.Tenant) {
	if t == nil {
		return
	}
	_, err := s.db.Exec(`INSERT INTO tenants (id, name) VALUES (?, ?)`, t.ID, t.Name)
	s.logErr("AddTenant", err)
}

func (s *SQLiteStore) AddUser(u *services.User) {
	if u == nil {
		return
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO users (id, email, pass_hash, tenant_id, suspended, created_at)
      VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.PassHash, u.TenantID, boolToInt64(u.Suspended), created.Format(time.RFC3339Nano))
	s.logErr("AddUser", err)
}

func (s *SQLiteStore) FindUserByEmail(email string) *services.User {
	row := s.db.QueryRow(`SELECT id, email, pass_hash, tenant_id, suspended, created_at FROM users WHERE email = ?`,
		strings.ToLower(email))
	var rec models.UserRow
	var suspended int64
	var created string
	if err := row.Scan(&rec.ID, &rec.Email, &rec.PassHash, &rec.TenantID, &suspended, &created); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logErr("FindUserByEmail", err)
		}
		return nil
	}
	u := &services.User{ID: rec.ID, Email: rec.Email, PassHash: rec.PassHash, TenantID: rec.TenantID, Suspended: suspended != 0}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		u.CreatedAt = t
	}
	return u
}

func (s *SQLiteStore) SuspendUserByEmail(email string, suspended bool) bool {
	res, err := s.db.Exec(`UPDATE users SET suspended = ? WHERE email = ?`, boolToInt64(suspended), strings.ToLower(email))
	if err != nil {
		s.logErr("SuspendUserByEmail", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// --- Collaborators ---

func (s *SQLiteStore) ListFormCollaborators(formID string) []services.Collaborator {
	rows, err := s.db.Query(`SELECT fc.user_id, u.email, fc.role
      FROM form_collaborators fc JOIN users u ON u.id = fc.user_id
      WHERE fc.form_id = ? ORDER BY u.email ASC`, formID)
	if err != nil {
		s.logErr("ListFormCollaborators", err)
		return nil
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListFormCollaborators rows.Close", cerr)
		}
	}()
	out := []services.Collaborator{}
	for rows.Next() {
		var c services.Collaborator
		if err := rows.Scan(&c.UserID, &c.Email, &c.Role); err == nil {
			out = append(out, c)
		}
	}
	if err := rows.Err(); err != nil {
		s.logErr("ListFormCollaborators rows.Err", err)
	}
	return out
}

func (s *SQLiteStore) AddFormCollaborator(formID, userID, role string) bool {
	if strings.TrimSpace(formID) == "" || strings.TrimSpace(userID) == "" {
		return false
	}
	if strings.TrimSpace(role) == "" {
		role = "editor"
	}
	res, err := s.db.Exec(`INSERT OR IGNORE INTO form_collaborators (form_id, user_id, role) VALUES (?, ?, ?)`,
		formID, userID, role)
	if err != nil {
		s.logErr("AddFormCollaborator", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

func (s *SQLiteStore) RemoveFormCollaborator(formID, userID string) bool {
	res, err := s.db.Exec(`DELETE FROM form_collaborators WHERE form_id = ? AND user_id = ?`, formID, userID)
	if err != nil {
		s.logErr("RemoveFormCollaborator", err)
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// --- Audit log ---

func (s *SQLiteStore) AddAudit(e services.AuditEntry) {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO audit_log (ts, actor, action, target, note) VALUES (?, ?, ?, ?, ?)`,
		ts.Format(time.RFC3339Nano), e.Actor, e.Action, toNullString(e.Target), toNullString(e.Note))
	s.logErr("AddAudit", err)
}

func (s *SQLiteStore) ListAudit() []services.AuditEntry {
	rows, err := s.db.Query(`SELECT ts, actor, action, target, note FROM audit_log ORDER BY ts DESC LIMIT 500`)
	if err != nil {
		s.logErr("ListAudit", err)
		return nil
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logErr("ListAudit rows.Close", cerr)
		}
	}()
	out := []services.AuditEntry{}
	for rows.Next() {
		var e services.AuditEntry
		var ts string
		var target, note sql.NullString
		if err := rows.Scan(&ts, &e.Actor, &e.Action, &target, &note); err != nil {
			s.logErr("ListAudit scan", err)
			continue
		}
		if t, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			e.Time = t
		}
		e.Target = target.String
		e.Note = note.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		s.logErr("ListAudit rows.Err", err)
	}
	return out
}
