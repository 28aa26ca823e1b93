package mcp

import "github.com/mark3labs/mcp-go/mcp"

var windowIDParam = mcp.WithNumber("window_id",
	mcp.Description("Browser window id. Omit for the current window."),
)

// Workspace tools

var workspaceListToolDef = mcp.NewTool("workspace_list",
	mcp.WithDescription("List workspaces in display order. The general workspace is always first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var workspaceAddToolDef = mcp.NewTool("workspace_add",
	mcp.WithDescription("Create a custom workspace. The id is generated when omitted."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Display name")),
	mcp.WithString("id", mcp.Description("Stable id (optional)")),
	mcp.WithString("icon", mcp.Description("Icon name")),
)

var workspaceRemoveToolDef = mcp.NewTool("workspace_remove",
	mcp.WithDescription("Delete a custom workspace. Windows showing it fall back to general and its assignments are dropped. Removing general does nothing."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workspace id")),
	mcp.WithDestructiveHintAnnotation(true),
)

var workspaceUpdateToolDef = mcp.NewTool("workspace_update",
	mcp.WithDescription("Rename or re-icon a workspace. On general only the icon applies."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workspace id")),
	mcp.WithString("name", mcp.Description("New display name")),
	mcp.WithString("icon", mcp.Description("New icon name")),
)

var workspaceReorderToolDef = mcp.NewTool("workspace_reorder",
	mcp.WithDescription("Reorder custom workspaces. General stays first; ids not listed keep their relative order after the listed ones."),
	mcp.WithArray("ids", mcp.Required(), mcp.Description("Workspace ids in the new order"), mcp.Items(map[string]any{"type": "string"})),
)

var workspaceActiveToolDef = mcp.NewTool("workspace_active",
	mcp.WithDescription("Show the active workspace of a window."),
	windowIDParam,
	mcp.WithReadOnlyHintAnnotation(true),
)

var workspaceSwitchToolDef = mcp.NewTool("workspace_switch",
	mcp.WithDescription("Make a workspace active in a window. With separate active tabs enabled, the remembered tab of the target workspace is activated."),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Workspace to show")),
	windowIDParam,
)

var workspaceSummaryToolDef = mcp.NewTool("workspace_summary",
	mcp.WithDescription("Render workspaces and their assigned tabs and groups as markdown. Reads storage only."),
	windowIDParam,
	mcp.WithReadOnlyHintAnnotation(true),
)

// Tab tools

var tabAssignToolDef = mcp.NewTool("tab_assign",
	mcp.WithDescription("Assign a tab to a workspace, removing it from every other custom workspace. Assigning to general only removes."),
	mcp.WithNumber("tab_id", mcp.Required(), mcp.Description("Tab id")),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Target workspace")),
	windowIDParam,
)

var tabUnassignToolDef = mcp.NewTool("tab_unassign",
	mcp.WithDescription("Remove a tab from every custom workspace of its window, by id or URL."),
	mcp.WithNumber("tab_id", mcp.Required(), mcp.Description("Tab id")),
	mcp.WithString("url", mcp.Description("Tab URL, used when the tab is already closed")),
	windowIDParam,
)

var tabMoveEndToolDef = mcp.NewTool("tab_move_end",
	mcp.WithDescription("Assign a tab to a workspace and move it to the end of that workspace and of the window."),
	mcp.WithNumber("tab_id", mcp.Required(), mcp.Description("Tab id")),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Target workspace")),
	windowIDParam,
)

var tabDiscardToolDef = mcp.NewTool("tab_discard",
	mcp.WithDescription("Suspend tabs while keeping the window on a live active tab. With switch_tab, an active tab in the batch is first relocated to the next tab of the active workspace or a new tab."),
	mcp.WithArray("tab_ids", mcp.Required(), mcp.Description("Tab ids to discard"), mcp.Items(map[string]any{"type": "number"})),
	mcp.WithBoolean("switch_tab", mcp.Description("Relocate the active tab before discarding it (default: true)")),
	windowIDParam,
)

var tabCloseToolDef = mcp.NewTool("tab_close",
	mcp.WithDescription("Close a tab and clean up its workspace entries."),
	mcp.WithNumber("tab_id", mcp.Required(), mcp.Description("Tab id")),
	mcp.WithDestructiveHintAnnotation(true),
)

var tabCreatedToolDef = mcp.NewTool("tab_created",
	mcp.WithDescription("Report a newly opened tab so it joins the window's active workspace."),
	mcp.WithNumber("tab_id", mcp.Required(), mcp.Description("Tab id")),
)

// Group tools

var groupAssignToolDef = mcp.NewTool("group_assign",
	mcp.WithDescription("Assign a tab group to a workspace by its title and color fingerprint."),
	mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Group id")),
	mcp.WithString("workspace_id", mcp.Required(), mcp.Description("Target workspace")),
	windowIDParam,
)

var groupUnassignToolDef = mcp.NewTool("group_unassign",
	mcp.WithDescription("Remove a tab group from every custom workspace of its window."),
	mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Group id")),
	mcp.WithString("title", mcp.Description("Group title, used when the group is gone")),
	mcp.WithString("color", mcp.Description("Group color, used when the group is gone")),
	windowIDParam,
)

// Window tools

var windowVisibleToolDef = mcp.NewTool("window_visible",
	mcp.WithDescription("List the tabs and groups a workspace shows in a window, in native order."),
	mcp.WithString("workspace_id", mcp.Description("Workspace (default: the window's active one)")),
	windowIDParam,
	mcp.WithReadOnlyHintAnnotation(true),
)

var windowReconcileToolDef = mcp.NewTool("window_reconcile",
	mcp.WithDescription("Re-bind stored tab ids to live tabs after a browser restart and refresh group snapshots."),
	mcp.WithBoolean("prune", mcp.Description("Drop entries that match no live tab")),
	windowIDParam,
)

// Settings tools

var settingsGetToolDef = mcp.NewTool("settings_get",
	mcp.WithDescription("Show the effective settings."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var settingsUpdateToolDef = mcp.NewTool("settings_update",
	mcp.WithDescription("Change settings. Omitted fields keep their value."),
	mcp.WithBoolean("separate_active_tab_per_workspace", mcp.Description("Remember an active tab per workspace")),
	mcp.WithBoolean("share_pinned_tabs_between_workspaces", mcp.Description("Show pinned tabs in every workspace")),
	mcp.WithString("new_tab_link", mcp.Description("Landing URL for tabs opened by discard; empty for the browser's new tab page")),
)

// Backup tools

var backupExportToolDef = mcp.NewTool("backup_export",
	mcp.WithDescription("Write all stored workspace state to a JSONL file."),
	mcp.WithString("path", mcp.Description("Output path (default: ~/.tabspace/exports/<label>-<timestamp>.jsonl)")),
	mcp.WithString("label", mcp.Description("File name prefix for the default path")),
)

var backupImportToolDef = mcp.NewTool("backup_import",
	mcp.WithDescription("Restore workspace state from a JSONL export."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Export file")),
	mcp.WithString("mode", mcp.Description("error (default) refuses existing keys and bad lines; replace overwrites and skips bad lines"), mcp.Enum("error", "replace")),
	mcp.WithDestructiveHintAnnotation(true),
)
