package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/formloop/formloop/internal/api"
	"github.com/formloop/formloop/internal/middleware"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.NewRouterWithStore(api.NewMemoryStore(), nil).Register(mux)
	srv := httptest.NewServer(middleware.CORS(middleware.SecureHeaders(middleware.WithAuth(mux))))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, out any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	if out != nil {
		defer func() { _ = resp.Body.Close() }()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp
}

func TestFeedbackJourney(t *testing.T) {
	srv := newTestServer(t)
	client := &http.Client{Timeout: 5 * time.Second}
	base := srv.URL

	// Vendor signs up and gets a token.
	var registerResp struct {
		Token    string `json:"token"`
		TenantID string `json:"tenant_id"`
	}
	resp := doJSON(t, client, http.MethodPost, base+"/api/auth/register", "", map[string]any{
		"email":       "owner@brew.test",
		"password":    "Secret123!",
		"vendor_name": "Brew & Co",
	}, &registerResp)
	if resp.StatusCode != http.StatusOK || registerResp.Token == "" {
		t.Fatalf("register: status %d, resp %+v", resp.StatusCode, registerResp)
	}
	token := registerResp.Token

	// Creating a form requires auth.
	resp = doJSON(t, client, http.MethodPost, base+"/api/forms", "", map[string]any{"title": "nope"}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: status %d", resp.StatusCode)
	}

	var form struct {
		ID     string `json:"id"`
		Fields []struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"fields"`
	}
	resp = doJSON(t, client, http.MethodPost, base+"/api/forms", token, map[string]any{
		"title": "Cafe visit",
		"fields": []map[string]any{
			{"id": "fb", "kind": "long_text", "label": "Tell us about your visit", "required": true},
			{"id": "rating", "kind": "rating", "label": "Overall rating", "required": true},
			{"id": "email", "kind": "email", "label": "Email"},
		},
	}, &form)
	if resp.StatusCode != http.StatusOK || form.ID == "" {
		t.Fatalf("create form: status %d, form %+v", resp.StatusCode, form)
	}

	// The public view is reachable without a token and hides nothing a
	// respondent needs.
	var view struct {
		ID        string `json:"id"`
		Accepting bool   `json:"accepting"`
		Fields    []any  `json:"fields"`
	}
	resp = doJSON(t, client, http.MethodGet, base+"/api/public/forms/"+form.ID, "", nil, &view)
	if resp.StatusCode != http.StatusOK || !view.Accepting || len(view.Fields) != 3 {
		t.Fatalf("public view: status %d, view %+v", resp.StatusCode, view)
	}

	// Invalid submission returns every violation and stores nothing.
	var rejected struct {
		Accepted bool     `json:"accepted"`
		Errors   []string `json:"errors"`
	}
	resp = doJSON(t, client, http.MethodPost, base+"/api/public/forms/"+form.ID+"/entries", "", map[string]any{
		"answers": map[string]any{"rating": 9},
	}, &rejected)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("invalid submit: status %d", resp.StatusCode)
	}
	if rejected.Accepted || len(rejected.Errors) != 2 {
		t.Fatalf("invalid submit: %+v", rejected)
	}

	// Valid submission comes back with ids and a self-service token.
	var accepted struct {
		Accepted     bool   `json:"accepted"`
		EntryID      string `json:"entry_id"`
		RespondentID string `json:"respondent_id"`
		SelfToken    string `json:"self_token"`
	}
	resp = doJSON(t, client, http.MethodPost, base+"/api/public/forms/"+form.ID+"/entries", "", map[string]any{
		"respondent": map[string]any{"email": "guest@example.com"},
		"answers": map[string]any{
			"fb":     "The espresso was excellent and the staff were helpful. I would suggest opening earlier on weekends.",
			"rating": 5,
			"email":  "guest@example.com",
		},
	}, &accepted)
	if resp.StatusCode != http.StatusOK || !accepted.Accepted {
		t.Fatalf("valid submit: status %d, %+v", resp.StatusCode, accepted)
	}
	if accepted.EntryID == "" || accepted.SelfToken == "" {
		t.Fatalf("submit response missing ids: %+v", accepted)
	}

	// Vendor analytics reflect the stored entry.
	var summary struct {
		TotalEntries int     `json:"total_entries"`
		AverageScore float64 `json:"average_score"`
	}
	resp = doJSON(t, client, http.MethodGet, base+"/api/forms/"+form.ID+"/analytics", token, nil, &summary)
	if resp.StatusCode != http.StatusOK || summary.TotalEntries != 1 {
		t.Fatalf("analytics: status %d, %+v", resp.StatusCode, summary)
	}
	if summary.AverageScore <= 0 {
		t.Fatalf("analytics: average score %v", summary.AverageScore)
	}

	// CSV export includes the entry.
	req, _ := http.NewRequest(http.MethodGet, base+"/api/forms/"+form.ID+"/export?format=wide", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	csvResp, err := client.Do(req)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	csvBody, _ := io.ReadAll(csvResp.Body)
	_ = csvResp.Body.Close()
	if csvResp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", csvResp.StatusCode)
	}
	if !strings.Contains(string(csvBody), accepted.EntryID) {
		t.Fatalf("export missing entry:\n%s", csvBody)
	}

	// Hiding the entry pulls it out of analytics.
	resp = doJSON(t, client, http.MethodPost, base+"/api/admin/entries/"+accepted.EntryID+"/hide", token,
		map[string]any{"hidden": true}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("hide entry: status %d", resp.StatusCode)
	}
	resp = doJSON(t, client, http.MethodGet, base+"/api/forms/"+form.ID+"/analytics", token, nil, &summary)
	if resp.StatusCode != http.StatusOK || summary.TotalEntries != 0 {
		t.Fatalf("analytics after hide: status %d, %+v", resp.StatusCode, summary)
	}

	// Respondent self-service export works with the token from submission.
	var export struct {
		Entries []struct {
			ID string `json:"id"`
		} `json:"entries"`
	}
	resp = doJSON(t, client, http.MethodGet,
		base+"/api/respondents/"+accepted.RespondentID+"/export?token="+accepted.SelfToken, "", nil, &export)
	if resp.StatusCode != http.StatusOK || len(export.Entries) != 1 {
		t.Fatalf("self export: status %d, %+v", resp.StatusCode, export)
	}

	// Wrong token is rejected.
	resp = doJSON(t, client, http.MethodGet,
		base+"/api/respondents/"+accepted.RespondentID+"/export?token=wrong", "", nil, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("self export with bad token: status %d", resp.StatusCode)
	}

	// Closing the form rejects further submissions.
	resp = doJSON(t, client, http.MethodPut, base+"/api/forms/"+form.ID, token,
		map[string]any{"accepting": false}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close form: status %d", resp.StatusCode)
	}
	resp = doJSON(t, client, http.MethodPost, base+"/api/public/forms/"+form.ID+"/entries", "", map[string]any{
		"answers": map[string]any{"fb": "too late now", "rating": 3},
	}, nil)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("submit to closed form: status %d", resp.StatusCode)
	}
}
