package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/tabspace/internal/config"
	"github.com/hpungsan/tabspace/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"workspace", "tab", "group", "window", "settings", "backup"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"workspace_list": {
		def:     workspaceListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceList },
	},
	"workspace_add": {
		def:     workspaceAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceAdd },
	},
	"workspace_remove": {
		def:     workspaceRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceRemove },
	},
	"workspace_update": {
		def:     workspaceUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceUpdate },
	},
	"workspace_reorder": {
		def:     workspaceReorderToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceReorder },
	},
	"workspace_active": {
		def:     workspaceActiveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceActive },
	},
	"workspace_switch": {
		def:     workspaceSwitchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceSwitch },
	},
	"workspace_summary": {
		def:     workspaceSummaryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWorkspaceSummary },
	},
	"tab_assign": {
		def:     tabAssignToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabAssign },
	},
	"tab_unassign": {
		def:     tabUnassignToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabUnassign },
	},
	"tab_move_end": {
		def:     tabMoveEndToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabMoveEnd },
	},
	"tab_discard": {
		def:     tabDiscardToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabDiscard },
	},
	"tab_close": {
		def:     tabCloseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabClose },
	},
	"tab_created": {
		def:     tabCreatedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabCreated },
	},
	"group_assign": {
		def:     groupAssignToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupAssign },
	},
	"group_unassign": {
		def:     groupUnassignToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGroupUnassign },
	},
	"window_visible": {
		def:     windowVisibleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWindowVisible },
	},
	"window_reconcile": {
		def:     windowReconcileToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWindowReconcile },
	},
	"settings_get": {
		def:     settingsGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsGet },
	},
	"settings_update": {
		def:     settingsUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsUpdate },
	},
	"backup_export": {
		def:     backupExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupExport },
	},
	"backup_import": {
		def:     backupImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupImport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "tab_move_end" → "tab").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	// Build set of types for O(1) lookup
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	// Collect tools belonging to disabled types
	tools := make([]string, 0)
	for name := range toolRegistry {
		typ := GetTypeForTool(name)
		if typeSet[typ] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with Tabspace tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(deps ops.Deps, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"tabspace",
		version,
		server.WithToolCapabilities(true),
	)

	deps.Config = cfg
	h := NewHandlers(deps)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	// Register tools (skip disabled)
	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(deps ops.Deps, cfg *config.Config, version string) error {
	s := NewServer(deps, cfg, version)
	return server.ServeStdio(s)
}
