package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/formloop/formloop/internal/cache"
	"github.com/formloop/formloop/internal/middleware"
	"github.com/formloop/formloop/internal/services"
)

type Router struct {
	store      Store
	summaries  *cache.SummaryCache
	forms      *services.FormService
	entries    *services.EntryService
	analytics  *services.AnalyticsService
	auth       *services.AuthService
	moderation *services.ModerationService
	collab     *services.CollabService
}

func NewRouter() *Router {
	return NewRouterWithStore(newMemoryStore(), nil)
}

func NewRouterWithStore(store Store, summaries *cache.SummaryCache) *Router {
	return &Router{
		store:      store,
		summaries:  summaries,
		forms:      services.NewFormService(newFormStoreAdapter(store)),
		entries:    services.NewEntryService(newEntryStoreAdapter(store)),
		analytics:  services.NewAnalyticsService(newAnalyticsStoreAdapter(store)),
		auth:       services.NewAuthService(newAuthStoreAdapter(store), middleware.SignToken),
		moderation: services.NewModerationService(newModerationStoreAdapter(store)),
		collab:     services.NewCollabService(newCollabStoreAdapter(store)),
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)         // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)               // POST
	mux.HandleFunc("/api/forms", rt.handleForms)                    // GET list, POST create
	mux.HandleFunc("/api/forms/", rt.handleFormScoped)              // form-scoped sub-routes
	mux.HandleFunc("/api/public/forms/", rt.handlePublicFormScoped) // GET view, POST entries
	mux.HandleFunc("/api/respondents/", rt.handleRespondentScoped)  // self-service export/delete
	mux.HandleFunc("/api/admin/respondents/export", rt.handleAdminExportRespondent)
	mux.HandleFunc("/api/admin/respondents/delete", rt.handleAdminDeleteRespondent)
	mux.HandleFunc("/api/admin/entries/", rt.handleAdminEntryScoped) // POST {id}/hide
	mux.HandleFunc("/api/admin/accounts/suspend", rt.handleAdminSuspend)
	mux.HandleFunc("/api/audit", rt.handleAudit) // GET
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrFormNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, services.ErrFormClosed):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		}
		http.Error(w, se.Message, status)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// tenant pulls the authenticated tenant id, writing 401 when absent.
func tenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tid, ok := middleware.TenantIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return tid, true
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		VendorName string `json:"vendor_name"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password, req.VendorName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "tenant_id": res.TenantID, "user_id": res.UserID})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": res.Token, "tenant_id": res.TenantID, "user_id": res.UserID})
}

// GET/POST /api/forms
func (rt *Router) handleForms(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenant(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		forms, err := rt.forms.ListForms(tid)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"forms": forms})
	case http.MethodPost:
		var raw map[string]any
		if !decodeBody(w, r, &raw) {
			return
		}
		f, err := rt.forms.CreateForm(tid, raw)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// /api/forms/{id}[/entries|/analytics|/export|/fields/...|/collaborators[/{uid}]]
func (rt *Router) handleFormScoped(w http.ResponseWriter, r *http.Request) {
	tid, ok := tenant(w, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/forms/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	formID := parts[0]
	actor := middleware.ActorFromContext(r.Context())

	if len(parts) == 1 {
		rt.handleFormByID(w, r, tid, formID, actor)
		return
	}
	switch parts[1] {
	case "entries":
		rt.handleFormEntries(w, r, tid, formID, actor)
	case "analytics":
		rt.handleAnalytics(w, r, tid, formID)
	case "export":
		rt.handleExport(w, r, tid, formID)
	case "fields":
		if len(parts) != 3 {
			http.NotFound(w, r)
			return
		}
		switch parts[2] {
		case "reorder":
			rt.handleReorderFields(w, r, tid, formID)
		case "import":
			rt.handleImportFields(w, r, tid, formID)
		default:
			http.NotFound(w, r)
		}
	case "collaborators":
		rt.handleCollaborators(w, r, tid, formID, parts, actor)
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) handleFormByID(w http.ResponseWriter, r *http.Request, tid, formID, actor string) {
	switch r.Method {
	case http.MethodGet:
		f := rt.store.GetForm(formID)
		if f == nil || f.TenantID != tid {
			http.Error(w, "form not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, f)
	case http.MethodPut:
		var raw map[string]any
		if !decodeBody(w, r, &raw) {
			return
		}
		f, err := rt.forms.UpdateForm(tid, formID, raw, actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		rt.invalidateSummary(r, formID)
		writeJSON(w, http.StatusOK, f)
	case http.MethodDelete:
		if err := rt.forms.DeleteForm(tid, formID, actor); err != nil {
			writeServiceError(w, err)
			return
		}
		rt.invalidateSummary(r, formID)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET lists stored entries for the vendor; DELETE purges them all.
func (rt *Router) handleFormEntries(w http.ResponseWriter, r *http.Request, tid, formID, actor string) {
	switch r.Method {
	case http.MethodGet:
		f := rt.store.GetForm(formID)
		if f == nil || f.TenantID != tid {
			http.Error(w, "form not found", http.StatusNotFound)
			return
		}
		includeHidden := r.URL.Query().Get("include_hidden") == "1"
		all := rt.store.ListEntriesByForm(formID)
		out := make([]*services.Entry, 0, len(all))
		for _, e := range all {
			if e.Hidden && !includeHidden {
				continue
			}
			out = append(out, e)
		}
		writeJSON(w, http.StatusOK, map[string]any{"form_id": formID, "entries": out})
	case http.MethodDelete:
		removed, err := rt.forms.PurgeEntries(tid, formID, actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		rt.invalidateSummary(r, formID)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": removed})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// GET /api/forms/{id}/analytics
func (rt *Router) handleAnalytics(w http.ResponseWriter, r *http.Request, tid, formID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if cached, err := rt.summaries.Get(r.Context(), formID); err == nil && cached != nil {
		// cache entries are written post tenant check, but re-check ownership
		if f := rt.store.GetForm(formID); f != nil && f.TenantID == tid {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}
	summary, err := rt.analytics.Summary(tid, formID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = rt.summaries.Set(r.Context(), summary)
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) invalidateSummary(r *http.Request, formID string) {
	_ = rt.summaries.Invalidate(r.Context(), formID)
}

// GET /api/forms/{id}/export?format=long|wide|scores|fields
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request, tid, formID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	f := rt.store.GetForm(formID)
	if f == nil || f.TenantID != tid {
		http.Error(w, "form not found", http.StatusNotFound)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "long"
	}

	entries := rt.store.ListEntriesByForm(formID)
	visible := make([]*services.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Hidden {
			visible = append(visible, e)
		}
	}

	var b []byte
	var err error
	switch format {
	case "long":
		b, err = services.ExportEntriesCSV(f.Fields, visible)
	case "wide":
		b, err = services.ExportWideCSV(f.Fields, visible)
	case "scores":
		b, err = services.ExportScoresCSV(visible)
	case "fields":
		b, err = services.ExportFieldsCSV(f.Fields)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+format+".csv")
	_, _ = w.Write(b)
}

// POST /api/forms/{id}/fields/reorder
func (rt *Router) handleReorderFields(w http.ResponseWriter, r *http.Request, tid, formID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Order []string `json:"order"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := rt.forms.ReorderFields(tid, formID, req.Order)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": n})
}

// POST /api/forms/{id}/fields/import (CSV body)
func (rt *Router) handleImportFields(w http.ResponseWriter, r *http.Request, tid, formID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n, err := rt.forms.ImportFieldsCSV(tid, formID, data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "imported": n})
}

// /api/forms/{id}/collaborators[/{userID}]
func (rt *Router) handleCollaborators(w http.ResponseWriter, r *http.Request, tid, formID string, parts []string, actor string) {
	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		list, err := rt.collab.List(tid, formID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"collaborators": list})
	case len(parts) == 2 && r.Method == http.MethodPost:
		var req struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		c, err := rt.collab.Add(tid, formID, req.Email, req.Role, actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case len(parts) == 3 && r.Method == http.MethodDelete:
		if err := rt.collab.Remove(tid, formID, parts[2], actor); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// /api/public/forms/{id} and /api/public/forms/{id}/entries — no auth.
func (rt *Router) handlePublicFormScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/public/forms/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	formID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		view, err := rt.forms.BuildPublicView(formID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}
	if len(parts) == 2 && parts[1] == "entries" {
		rt.handleSubmit(w, r, formID)
		return
	}
	http.NotFound(w, r)
}

// POST /api/public/forms/{id}/entries
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request, formID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Respondent struct {
			Email string `json:"email"`
		} `json:"respondent"`
		Answers map[string]any `json:"answers"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := rt.entries.Submit(services.SubmitRequest{
		FormID:          formID,
		RespondentEmail: req.Respondent.Email,
		Answers:         req.Answers,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !result.Accepted {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"accepted": false, "errors": result.Errors})
		return
	}
	rt.invalidateSummary(r, formID)
	writeJSON(w, http.StatusOK, map[string]any{
		"accepted":      true,
		"entry_id":      result.EntryID,
		"respondent_id": result.RespondentID,
		"self_token":    result.SelfToken,
	})
}

// /api/respondents/{id}[/export] — token-gated self-service, no auth header.
func (rt *Router) handleRespondentScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/respondents/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	rid := parts[0]
	token := r.URL.Query().Get("token")

	switch {
	case len(parts) == 2 && parts[1] == "export" && r.Method == http.MethodGet:
		export, err := rt.moderation.ExportRespondent(rid, token)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, export)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		hard := r.URL.Query().Get("hard") == "1"
		if err := rt.moderation.DeleteRespondent(rid, token, hard); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// POST /api/admin/respondents/export
func (rt *Router) handleAdminExportRespondent(w http.ResponseWriter, r *http.Request) {
	if _, ok := tenant(w, r); !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	export, err := rt.moderation.AdminExportByEmail(req.Email, middleware.ActorFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

// POST /api/admin/respondents/delete
func (rt *Router) handleAdminDeleteRespondent(w http.ResponseWriter, r *http.Request) {
	if _, ok := tenant(w, r); !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email string `json:"email"`
		Hard  bool   `json:"hard"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := rt.moderation.AdminDeleteByEmail(req.Email, req.Hard, middleware.ActorFromContext(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// POST /api/admin/entries/{id}/hide
func (rt *Router) handleAdminEntryScoped(w http.ResponseWriter, r *http.Request) {
	if _, ok := tenant(w, r); !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/entries/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "hide" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Hidden bool `json:"hidden"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	entryID := parts[0]
	if err := rt.moderation.HideEntry(entryID, req.Hidden, middleware.ActorFromContext(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	if e := rt.store.GetEntry(entryID); e != nil {
		rt.invalidateSummary(r, e.FormID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// POST /api/admin/accounts/suspend
func (rt *Router) handleAdminSuspend(w http.ResponseWriter, r *http.Request) {
	if _, ok := tenant(w, r); !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email     string `json:"email"`
		Suspended bool   `json:"suspended"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := rt.moderation.SuspendAccount(req.Email, req.Suspended, middleware.ActorFromContext(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// GET /api/audit
func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := tenant(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": rt.store.ListAudit()})
}
