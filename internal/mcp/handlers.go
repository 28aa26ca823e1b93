package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps ops.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps ops.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// Request types for each tool

// WindowRequest is the argument set of tools that only take a window.
type WindowRequest struct {
	WindowID int `json:"window_id,omitempty"`
}

// WorkspaceAddRequest represents the arguments for workspace_add.
type WorkspaceAddRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// WorkspaceIDRequest represents the arguments for workspace_remove.
type WorkspaceIDRequest struct {
	ID string `json:"id"`
}

// WorkspaceUpdateRequest represents the arguments for workspace_update.
type WorkspaceUpdateRequest struct {
	ID   string  `json:"id"`
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

// WorkspaceReorderRequest represents the arguments for workspace_reorder.
type WorkspaceReorderRequest struct {
	IDs []string `json:"ids"`
}

// WorkspaceSwitchRequest represents the arguments for workspace_switch.
type WorkspaceSwitchRequest struct {
	WorkspaceID string `json:"workspace_id"`
	WindowID    int    `json:"window_id,omitempty"`
}

// TabAssignRequest represents the arguments for tab_assign and tab_move_end.
type TabAssignRequest struct {
	TabID       int    `json:"tab_id"`
	WorkspaceID string `json:"workspace_id"`
	WindowID    int    `json:"window_id,omitempty"`
}

// TabUnassignRequest represents the arguments for tab_unassign.
type TabUnassignRequest struct {
	TabID    int    `json:"tab_id"`
	URL      string `json:"url,omitempty"`
	WindowID int    `json:"window_id,omitempty"`
}

// TabDiscardRequest represents the arguments for tab_discard.
type TabDiscardRequest struct {
	TabIDs    []int `json:"tab_ids"`
	SwitchTab *bool `json:"switch_tab,omitempty"`
	WindowID  int   `json:"window_id,omitempty"`
}

// TabIDRequest represents the arguments for tab_close and tab_created.
type TabIDRequest struct {
	TabID int `json:"tab_id"`
}

// TabCreatedResult is the tab_created output.
type TabCreatedResult struct {
	Assigned bool              `json:"assigned"`
	Result   *ops.AssignOutput `json:"result,omitempty"`
}

// GroupAssignRequest represents the arguments for group_assign.
type GroupAssignRequest struct {
	GroupID     int    `json:"group_id"`
	WorkspaceID string `json:"workspace_id"`
	WindowID    int    `json:"window_id,omitempty"`
}

// GroupUnassignRequest represents the arguments for group_unassign.
type GroupUnassignRequest struct {
	GroupID  int     `json:"group_id"`
	Title    *string `json:"title,omitempty"`
	Color    *string `json:"color,omitempty"`
	WindowID int     `json:"window_id,omitempty"`
}

// VisibleRequest represents the arguments for window_visible.
type VisibleRequest struct {
	WorkspaceID string `json:"workspace_id,omitempty"`
	WindowID    int    `json:"window_id,omitempty"`
}

// ReconcileRequest represents the arguments for window_reconcile.
type ReconcileRequest struct {
	Prune    bool `json:"prune,omitempty"`
	WindowID int  `json:"window_id,omitempty"`
}

// SettingsUpdateRequest represents the arguments for settings_update.
type SettingsUpdateRequest struct {
	SeparateActiveTabPerWorkspace    *bool   `json:"separate_active_tab_per_workspace,omitempty"`
	SharePinnedTabsBetweenWorkspaces *bool   `json:"share_pinned_tabs_between_workspaces,omitempty"`
	NewTabLink                       *string `json:"new_tab_link,omitempty"`
}

// ExportRequest represents the arguments for backup_export.
type ExportRequest struct {
	Path  string `json:"path,omitempty"`
	Label string `json:"label,omitempty"`
}

// ImportRequest represents the arguments for backup_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// call decodes the request into T, runs fn and renders the outcome.
func call[T any, R any](req mcp.CallToolRequest, fn func(T) (R, error)) (*mcp.CallToolResult, error) {
	input, err := decode[T](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := fn(input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleWorkspaceList handles the workspace_list tool call.
func (h *Handlers) HandleWorkspaceList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListWorkspaces(ctx, h.deps)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleWorkspaceAdd handles the workspace_add tool call.
func (h *Handlers) HandleWorkspaceAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in WorkspaceAddRequest) (any, error) {
		return ops.AddWorkspace(ctx, h.deps, ops.AddWorkspaceInput{ID: in.ID, Name: in.Name, Icon: in.Icon})
	})
}

// HandleWorkspaceRemove handles the workspace_remove tool call.
func (h *Handlers) HandleWorkspaceRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in WorkspaceIDRequest) (any, error) {
		return ops.RemoveWorkspace(ctx, h.deps, in.ID)
	})
}

// HandleWorkspaceUpdate handles the workspace_update tool call.
func (h *Handlers) HandleWorkspaceUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in WorkspaceUpdateRequest) (any, error) {
		return ops.UpdateWorkspace(ctx, h.deps, ops.UpdateWorkspaceInput{ID: in.ID, Name: in.Name, Icon: in.Icon})
	})
}

// HandleWorkspaceReorder handles the workspace_reorder tool call.
func (h *Handlers) HandleWorkspaceReorder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in WorkspaceReorderRequest) (any, error) {
		defs, err := ops.ReorderWorkspaces(ctx, h.deps, in.IDs)
		if err != nil {
			return nil, err
		}
		return ops.ListWorkspacesOutput{Workspaces: defs, Count: len(defs)}, nil
	})
}

// HandleWorkspaceActive handles the workspace_active tool call.
func (h *Handlers) HandleWorkspaceActive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in WindowRequest) (any, error) {
		return ops.ActiveWorkspace(ctx, h.deps, ops.ActiveInput{WindowID: in.WindowID})
	})
}

// HandleWorkspaceSwitch handles the workspace_switch tool call.
func (h *Handlers) HandleWorkspaceSwitch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in WorkspaceSwitchRequest) (any, error) {
		return ops.SwitchWorkspace(ctx, h.deps, ops.SwitchWorkspaceInput{WindowID: in.WindowID, WorkspaceID: in.WorkspaceID})
	})
}

// HandleWorkspaceSummary handles the workspace_summary tool call.
func (h *Handlers) HandleWorkspaceSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in WindowRequest) (any, error) {
		return ops.Summary(ctx, h.deps, ops.SummaryInput{WindowID: in.WindowID})
	})
}

// HandleTabAssign handles the tab_assign tool call.
func (h *Handlers) HandleTabAssign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in TabAssignRequest) (any, error) {
		return ops.AddTabToWorkspace(ctx, h.deps, ops.AddTabInput{
			TabID:       in.TabID,
			WorkspaceID: in.WorkspaceID,
			WindowID:    in.WindowID,
		})
	})
}

// HandleTabUnassign handles the tab_unassign tool call.
func (h *Handlers) HandleTabUnassign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in TabUnassignRequest) (any, error) {
		return ops.RemoveTabFromAllWorkspaces(ctx, h.deps, ops.RemoveTabInput{
			TabID:    in.TabID,
			WindowID: in.WindowID,
			URL:      in.URL,
		})
	})
}

// HandleTabMoveEnd handles the tab_move_end tool call.
func (h *Handlers) HandleTabMoveEnd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in TabAssignRequest) (any, error) {
		return ops.MoveTabToWorkspaceEnd(ctx, h.deps, ops.MoveTabEndInput{
			TabID:       in.TabID,
			WorkspaceID: in.WorkspaceID,
			WindowID:    in.WindowID,
		})
	})
}

// HandleTabDiscard handles the tab_discard tool call.
func (h *Handlers) HandleTabDiscard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in TabDiscardRequest) (any, error) {
		switchTab := true
		if in.SwitchTab != nil {
			switchTab = *in.SwitchTab
		}
		return ops.SafeDiscard(ctx, h.deps, ops.DiscardInput{
			TabIDs:    in.TabIDs,
			WindowID:  in.WindowID,
			SwitchTab: switchTab,
		})
	})
}

// HandleTabClose handles the tab_close tool call.
func (h *Handlers) HandleTabClose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in TabIDRequest) (any, error) {
		return ops.CloseTab(ctx, h.deps, in.TabID)
	})
}

// HandleTabCreated handles the tab_created tool call.
func (h *Handlers) HandleTabCreated(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in TabIDRequest) (any, error) {
		out, err := ops.HandleTabCreated(ctx, h.deps, in.TabID)
		if err != nil {
			return nil, err
		}
		return TabCreatedResult{Assigned: out != nil, Result: out}, nil
	})
}

// HandleGroupAssign handles the group_assign tool call.
func (h *Handlers) HandleGroupAssign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in GroupAssignRequest) (any, error) {
		return ops.AddGroupToWorkspace(ctx, h.deps, ops.AddGroupInput{
			GroupID:     in.GroupID,
			WorkspaceID: in.WorkspaceID,
			WindowID:    in.WindowID,
		})
	})
}

// HandleGroupUnassign handles the group_unassign tool call.
func (h *Handlers) HandleGroupUnassign(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in GroupUnassignRequest) (any, error) {
		return ops.RemoveGroupFromAllWorkspaces(ctx, h.deps, ops.RemoveGroupInput{
			GroupID:  in.GroupID,
			WindowID: in.WindowID,
			Title:    in.Title,
			Color:    in.Color,
		})
	})
}

// HandleWindowVisible handles the window_visible tool call.
func (h *Handlers) HandleWindowVisible(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in VisibleRequest) (any, error) {
		return ops.VisibleItems(ctx, h.deps, ops.VisibleInput{WindowID: in.WindowID, WorkspaceID: in.WorkspaceID})
	})
}

// HandleWindowReconcile handles the window_reconcile tool call.
func (h *Handlers) HandleWindowReconcile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in ReconcileRequest) (any, error) {
		return ops.Reconcile(ctx, h.deps, ops.ReconcileInput{WindowID: in.WindowID, Prune: in.Prune})
	})
}

// HandleSettingsGet handles the settings_get tool call.
func (h *Handlers) HandleSettingsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.LoadSettings(ctx, h.deps)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSettingsUpdate handles the settings_update tool call.
func (h *Handlers) HandleSettingsUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in SettingsUpdateRequest) (any, error) {
		return ops.UpdateSettings(ctx, h.deps, ops.UpdateSettingsInput{
			SeparateActiveTabPerWorkspace:    in.SeparateActiveTabPerWorkspace,
			SharePinnedTabsBetweenWorkspaces: in.SharePinnedTabsBetweenWorkspaces,
			NewTabLink:                       in.NewTabLink,
		})
	})
}

// HandleBackupExport handles the backup_export tool call.
func (h *Handlers) HandleBackupExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in ExportRequest) (any, error) {
		return ops.Export(ctx, h.deps, ops.ExportInput{Path: in.Path, Label: in.Label})
	})
}

// HandleBackupImport handles the backup_import tool call.
func (h *Handlers) HandleBackupImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(req, func(in ImportRequest) (any, error) {
		return ops.Import(ctx, h.deps, ops.ImportInput{Path: in.Path, Mode: ops.ImportMode(in.Mode)})
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var tErr *errors.TabspaceError
	if stderrors.As(err, &tErr) && tErr.Code != errors.ErrInternal {
		// Keep wrapper context such as "items[2]: " in the message
		msg := tErr.Message
		if err != error(tErr) {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    tErr.Code,
			"message": msg,
			"status":  tErr.Status,
		}
		if tErr.Details != nil {
			errorObj["details"] = tErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
