package web

import (
	"net/http"
	"strconv"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/ops"
)

// Handlers contains HTTP route handlers for the inspector.
type Handlers struct {
	deps     ops.Deps
	renderer *Renderer
}

// HandleSummary handles GET /summary, the markdown outline of workspaces.
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	windowID, err := parseWindowParam(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Summary(r.Context(), h.deps, ops.SummaryInput{WindowID: windowID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "summary", SummaryPageData{
		PageData: PageData{
			Title:   "Summary",
			Version: h.renderer.version,
			Nav:     "summary",
		},
		WindowID:     windowID,
		Workspaces:   result.Workspaces,
		Windows:      result.Windows,
		RenderedHTML: h.renderer.renderMarkdown(result.Markdown),
	})
}

// HandleSummaryJSON handles GET /api/summary.
func (h *Handlers) HandleSummaryJSON(w http.ResponseWriter, r *http.Request) {
	windowID, err := parseWindowParam(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.Summary(r.Context(), h.deps, ops.SummaryInput{WindowID: windowID})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleWorkspaces handles GET /workspaces, the workspace list and settings.
// The active workspace is shown only when a browser is attached.
func (h *Handlers) HandleWorkspaces(w http.ResponseWriter, r *http.Request) {
	settings, err := ops.LoadSettings(r.Context(), h.deps)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	list, err := ops.ListWorkspaces(r.Context(), h.deps)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data := WorkspacesPageData{
		PageData: PageData{
			Title:   "Workspaces",
			Version: h.renderer.version,
			Nav:     "workspaces",
		},
		Workspaces: list.Workspaces,
		Settings:   settings,
	}
	if h.deps.Host != nil {
		active, err := ops.ActiveWorkspace(r.Context(), h.deps, ops.ActiveInput{})
		if err == nil {
			data.Active = active
		}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"workspaces": list.Workspaces,
			"settings":   settings,
			"active":     data.Active,
		})
		return
	}
	h.renderer.renderPage(w, r, "workspaces", data)
}

// HandleVisible handles GET /visible, what a workspace shows in a window.
func (h *Handlers) HandleVisible(w http.ResponseWriter, r *http.Request) {
	windowID, err := parseWindowParam(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.VisibleItems(r.Context(), h.deps, ops.VisibleInput{
		WindowID:    windowID,
		WorkspaceID: r.URL.Query().Get("workspace"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderer.renderPage(w, r, "visible", VisiblePageData{
		PageData: PageData{
			Title:   "Visible in " + result.Workspace.Name,
			Version: h.renderer.version,
			Nav:     "visible",
		},
		Visible: result,
	})
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := ops.LoadSettings(r.Context(), h.deps); err != nil {
		renderJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.renderer.version,
		"browser": h.deps.Host != nil,
	})
}

// parseWindowParam parses the optional window query parameter. 0 means unset.
func parseWindowParam(r *http.Request) (int, error) {
	s := r.URL.Query().Get("window")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, errors.NewInvalidRequest("window must be a positive integer")
	}
	return v, nil
}
