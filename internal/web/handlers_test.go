package web

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hpungsan/tabspace/internal/config"
	"github.com/hpungsan/tabspace/internal/db"
	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/host/memhost"
	"github.com/hpungsan/tabspace/internal/metrics"
	"github.com/hpungsan/tabspace/internal/ops"
	"github.com/hpungsan/tabspace/internal/storage"
)

const win = 1

func setupTest(t *testing.T) (*Handlers, *memhost.Host) {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store, err := storage.NewSQLite(context.Background(), database, nil)
	if err != nil {
		t.Fatalf("storage.NewSQLite: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.SwitchSettleMs = 0

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}

	browser := memhost.New()
	browser.AddWindow(win)

	return &Handlers{
		deps:     ops.Deps{Storage: store, Host: browser, Config: cfg, Metrics: metrics.New()},
		renderer: NewRenderer(templateSub, "test", nil),
	}, browser
}

// seedWorkspace adds a workspace and assigns the given tab to it.
func seedWorkspace(t *testing.T, h *Handlers, browser *memhost.Host, id, name string, tab host.Tab) {
	t.Helper()
	ctx := context.Background()
	if _, err := ops.AddWorkspace(ctx, h.deps, ops.AddWorkspaceInput{ID: id, Name: name}); err != nil {
		t.Fatalf("seed workspace %q: %v", id, err)
	}
	browser.AddTab(tab)
	if _, err := ops.AddTabToWorkspace(ctx, h.deps, ops.AddTabInput{TabID: tab.ID, WorkspaceID: id}); err != nil {
		t.Fatalf("assign tab %d: %v", tab.ID, err)
	}
}

// --- HandleSummary ---

func TestHandleSummary(t *testing.T) {
	h, browser := setupTest(t)
	seedWorkspace(t, h, browser, "work", "Deep Work", host.Tab{ID: 10, WindowID: win, URL: "https://docs.example/", Title: "Docs"})

	req := httptest.NewRequest("GET", "/summary", nil)
	rec := httptest.NewRecorder()
	h.HandleSummary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<strong>Deep Work</strong>") {
		t.Error("expected workspace name rendered from markdown")
	}
	if !strings.Contains(body, `<a href="https://docs.example/">Docs</a>`) {
		t.Error("expected assigned tab link")
	}
	if !strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("expected full layout")
	}
}

func TestHandleSummary_RawHTMLIsNotRendered(t *testing.T) {
	h, _ := setupTest(t)
	if _, err := ops.AddWorkspace(context.Background(), h.deps, ops.AddWorkspaceInput{Name: `<img src=x onerror=alert(1)>`}); err != nil {
		t.Fatalf("AddWorkspace: %v", err)
	}

	req := httptest.NewRequest("GET", "/summary", nil)
	rec := httptest.NewRecorder()
	h.HandleSummary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<img") {
		t.Error("raw HTML from a workspace name reached the page")
	}
}

func TestHandleSummary_HtmxReturnsContentOnly(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/summary", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleSummary(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx response should not contain full layout")
	}
	if !strings.Contains(body, "Summary") {
		t.Error("htmx response should contain the summary")
	}
}

func TestHandleSummary_InvalidWindow(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/summary?window=abc", nil)
	rec := httptest.NewRecorder()
	h.HandleSummary(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Error 400") {
		t.Error("expected error page")
	}
}

func TestHandleSummaryJSON(t *testing.T) {
	h, browser := setupTest(t)
	seedWorkspace(t, h, browser, "work", "Work", host.Tab{ID: 10, WindowID: win, URL: "https://a.com"})

	req := httptest.NewRequest("GET", "/api/summary?window=1", nil)
	rec := httptest.NewRecorder()
	h.HandleSummaryJSON(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out ops.SummaryOutput
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Workspaces != 2 || out.Windows != 1 {
		t.Errorf("summary = %d workspaces, %d windows; want 2, 1", out.Workspaces, out.Windows)
	}
	if !strings.Contains(out.Markdown, "## Window 1") {
		t.Errorf("markdown missing window section: %s", out.Markdown)
	}
}

// --- HandleWorkspaces ---

func TestHandleWorkspaces(t *testing.T) {
	h, browser := setupTest(t)
	seedWorkspace(t, h, browser, "work", "Work", host.Tab{ID: 10, WindowID: win, URL: "https://a.com"})
	if _, err := ops.SwitchWorkspace(context.Background(), h.deps, ops.SwitchWorkspaceInput{WorkspaceID: "work"}); err != nil {
		t.Fatalf("SwitchWorkspace: %v", err)
	}

	req := httptest.NewRequest("GET", "/workspaces", nil)
	rec := httptest.NewRecorder()
	h.HandleWorkspaces(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"General", "<code>work</code>", "active in window 1", "browser default"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response", want)
		}
	}
}

func TestHandleWorkspaces_NoBrowser(t *testing.T) {
	h, _ := setupTest(t)
	h.deps.Host = nil

	req := httptest.NewRequest("GET", "/workspaces", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleWorkspaces(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["active"] != nil {
		t.Errorf("active = %v, want null without a browser", out["active"])
	}
	if len(out["workspaces"].([]any)) != 1 {
		t.Errorf("workspaces = %v, want only general", out["workspaces"])
	}
}

// --- HandleVisible ---

func TestHandleVisible(t *testing.T) {
	h, browser := setupTest(t)
	seedWorkspace(t, h, browser, "work", "Work", host.Tab{ID: 10, WindowID: win, URL: "https://a.com", Title: "Alpha"})
	browser.AddTab(host.Tab{ID: 11, WindowID: win, URL: "https://b.com", Title: "Beta"})

	req := httptest.NewRequest("GET", "/visible?workspace=work", nil)
	rec := httptest.NewRecorder()
	h.HandleVisible(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Alpha") {
		t.Error("expected assigned tab in work")
	}
	if strings.Contains(body, "Beta") {
		t.Error("did not expect general's tab in work")
	}
}

func TestHandleVisible_JSON(t *testing.T) {
	h, browser := setupTest(t)
	browser.AddTab(host.Tab{ID: 11, WindowID: win, URL: "https://b.com"})

	req := httptest.NewRequest("GET", "/visible", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleVisible(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out ops.VisibleOutput
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Workspace.ID != "general" || len(out.Items) != 1 {
		t.Errorf("visible = %s with %d items, want general with 1", out.Workspace.ID, len(out.Items))
	}
}

func TestHandleVisible_NoBrowser(t *testing.T) {
	h, _ := setupTest(t)
	h.deps.Host = nil

	req := httptest.NewRequest("GET", "/visible", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleVisible(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	errObj := payload["error"].(map[string]any)
	if errObj["code"] != "HOST_UNAVAILABLE" {
		t.Errorf("code = %v, want HOST_UNAVAILABLE", errObj["code"])
	}
}

// --- Errors ---

func TestErrorRendering_HtmxFragment(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/visible?workspace=nope", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleVisible(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `class="error-message"`) {
		t.Error("expected error-message div in htmx error response")
	}
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx error should not contain full layout")
	}
}

func TestErrorRendering_InternalHidesCause(t *testing.T) {
	h, _ := setupTest(t)

	req := httptest.NewRequest("GET", "/summary", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.renderer.renderError(rec, req, context.DeadlineExceeded)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "deadline") {
		t.Error("internal error cause leaked")
	}
}

// --- Server ---

func TestServerRoutes(t *testing.T) {
	h, _ := setupTest(t)
	srv, err := NewServer(h.deps, "test", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/", http.StatusFound, ""},
		{"/summary", http.StatusOK, "<h1>Workspaces</h1>"},
		{"/healthz", http.StatusOK, `"status":"ok"`},
		{"/metrics", http.StatusOK, "tabspace_workspace_switches_total"},
		{"/static/style.css", http.StatusOK, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := client.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if resp.Header.Get("X-Frame-Options") != "DENY" {
				t.Error("missing security headers")
			}
			if tt.want == "" {
				return
			}
			var b strings.Builder
			if _, err := io.Copy(&b, resp.Body); err != nil {
				t.Fatalf("read body: %v", err)
			}
			if !strings.Contains(b.String(), tt.want) {
				t.Errorf("body missing %q", tt.want)
			}
		})
	}
}

func TestParseWindowParam(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"window=3", 3, false},
		{"window=-1", 0, true},
		{"window=x", 0, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/summary?"+tt.query, nil)
		got, err := parseWindowParam(req)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseWindowParam(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseWindowParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
