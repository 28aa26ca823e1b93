package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment overrides (e.g. TABSPACE_NEW_TAB_LINK).
const EnvPrefix = "TABSPACE"

// Config holds application configuration.
type Config struct {
	// SeparateActiveTabPerWorkspace is the default for the durable
	// separateActiveTabPerWorkspace setting when storage has no value yet.
	SeparateActiveTabPerWorkspace bool `json:"separate_active_tab_per_workspace,omitempty"`

	// SharePinnedTabsBetweenWorkspaces is the default for the durable
	// sharePinnedTabsBetweenWorkspaces setting.
	SharePinnedTabsBetweenWorkspaces bool `json:"share_pinned_tabs_between_workspaces,omitempty"`

	// NewTabLink is the default landing URL for tabs created by safe discard.
	// Empty means the browser's own new tab page.
	NewTabLink string `json:"new_tab_link,omitempty"`

	// GeneralName and GeneralIcon customize the display of the general workspace.
	GeneralName string `json:"general_name,omitempty"`
	GeneralIcon string `json:"general_icon,omitempty"`

	// SwitchSettleMs is how long a workspace switch waits before restoring
	// the remembered active tab, letting the visible list settle.
	SwitchSettleMs int `json:"switch_settle_ms,omitempty"`

	// DiscardConcurrency bounds concurrent discard calls in one batch.
	DiscardConcurrency int `json:"discard_concurrency,omitempty"`

	// DebuggerURL is the DevTools websocket URL of the browser to manage.
	// Empty disables live host access.
	DebuggerURL string `json:"debugger_url,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "workspace", "tab", "group", "window", "settings", "backup".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// AllowedPaths are extra directories export and import may use besides
	// ~/.tabspace/exports. Only absolute paths are honored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction for export and
	// import. Symlinks are still refused.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`
}

// envOverrides mirrors Config for environment variables. Pointers tell
// "unset" apart from zero values.
type envOverrides struct {
	SeparateActiveTabPerWorkspace    *bool   `envconfig:"SEPARATE_ACTIVE_TAB_PER_WORKSPACE"`
	SharePinnedTabsBetweenWorkspaces *bool   `envconfig:"SHARE_PINNED_TABS_BETWEEN_WORKSPACES"`
	NewTabLink                       *string `envconfig:"NEW_TAB_LINK"`
	GeneralName                      *string `envconfig:"GENERAL_NAME"`
	GeneralIcon                      *string `envconfig:"GENERAL_ICON"`
	SwitchSettleMs                   *int    `envconfig:"SWITCH_SETTLE_MS"`
	DiscardConcurrency               *int    `envconfig:"DISCARD_CONCURRENCY"`
	DebuggerURL                      *string `envconfig:"DEBUGGER_URL"`
	LogLevel                         *string `envconfig:"LOG_LEVEL"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		GeneralName:        "General",
		GeneralIcon:        "home",
		SwitchSettleMs:     150,
		DiscardConcurrency: 4,
		LogLevel:           "info",
	}
}

// Load loads configuration from baseDir/config.json and applies TABSPACE_*
// environment overrides. Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.tabspace.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// applyEnv overwrites cfg fields with any TABSPACE_* variables that are set.
func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return err
	}
	if env.SeparateActiveTabPerWorkspace != nil {
		cfg.SeparateActiveTabPerWorkspace = *env.SeparateActiveTabPerWorkspace
	}
	if env.SharePinnedTabsBetweenWorkspaces != nil {
		cfg.SharePinnedTabsBetweenWorkspaces = *env.SharePinnedTabsBetweenWorkspaces
	}
	if env.NewTabLink != nil {
		cfg.NewTabLink = *env.NewTabLink
	}
	if env.GeneralName != nil {
		cfg.GeneralName = *env.GeneralName
	}
	if env.GeneralIcon != nil {
		cfg.GeneralIcon = *env.GeneralIcon
	}
	if env.SwitchSettleMs != nil {
		cfg.SwitchSettleMs = *env.SwitchSettleMs
	}
	if env.DiscardConcurrency != nil {
		cfg.DiscardConcurrency = *env.DiscardConcurrency
	}
	if env.DebuggerURL != nil {
		cfg.DebuggerURL = *env.DebuggerURL
	}
	if env.LogLevel != nil {
		cfg.LogLevel = *env.LogLevel
	}
	return nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Strings and ints: overlay wins if non-zero, else base
	result.NewTabLink = firstString(overlay.NewTabLink, base.NewTabLink)
	result.GeneralName = firstString(overlay.GeneralName, base.GeneralName)
	result.GeneralIcon = firstString(overlay.GeneralIcon, base.GeneralIcon)
	result.DebuggerURL = firstString(overlay.DebuggerURL, base.DebuggerURL)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.SwitchSettleMs = firstInt(overlay.SwitchSettleMs, base.SwitchSettleMs)
	result.DiscardConcurrency = firstInt(overlay.DiscardConcurrency, base.DiscardConcurrency)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.SeparateActiveTabPerWorkspace = base.SeparateActiveTabPerWorkspace || overlay.SeparateActiveTabPerWorkspace
	result.SharePinnedTabsBetweenWorkspaces = base.SharePinnedTabsBetweenWorkspaces || overlay.SharePinnedTabsBetweenWorkspaces
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)

	return result
}

func firstString(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func firstInt(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
