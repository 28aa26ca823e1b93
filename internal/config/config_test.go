package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GeneralName != "General" {
		t.Errorf("GeneralName = %q, want %q", cfg.GeneralName, "General")
	}
	if cfg.SwitchSettleMs != DefaultConfig().SwitchSettleMs {
		t.Errorf("SwitchSettleMs = %d, want %d", cfg.SwitchSettleMs, DefaultConfig().SwitchSettleMs)
	}
	if cfg.DiscardConcurrency != 4 {
		t.Errorf("DiscardConcurrency = %d, want 4", cfg.DiscardConcurrency)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	body := `{"new_tab_link": "https://start.example", "share_pinned_tabs_between_workspaces": true, "switch_settle_ms": 20}`
	if err := os.WriteFile(configPath, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.NewTabLink != "https://start.example" {
		t.Errorf("NewTabLink = %q", cfg.NewTabLink)
	}
	if !cfg.SharePinnedTabsBetweenWorkspaces {
		t.Error("SharePinnedTabsBetweenWorkspaces = false, want true")
	}
	if cfg.SwitchSettleMs != 20 {
		t.Errorf("SwitchSettleMs = %d, want 20", cfg.SwitchSettleMs)
	}
	// Unset fields keep defaults
	if cfg.GeneralIcon != "home" {
		t.Errorf("GeneralIcon = %q, want %q", cfg.GeneralIcon, "home")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(`{"new_tab_link": "https://file.example"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("TABSPACE_NEW_TAB_LINK", "https://env.example")
	t.Setenv("TABSPACE_SEPARATE_ACTIVE_TAB_PER_WORKSPACE", "true")
	t.Setenv("TABSPACE_DISCARD_CONCURRENCY", "9")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.NewTabLink != "https://env.example" {
		t.Errorf("NewTabLink = %q, want env value", cfg.NewTabLink)
	}
	if !cfg.SeparateActiveTabPerWorkspace {
		t.Error("SeparateActiveTabPerWorkspace = false, want true from env")
	}
	if cfg.DiscardConcurrency != 9 {
		t.Errorf("DiscardConcurrency = %d, want 9", cfg.DiscardConcurrency)
	}
}

func TestLoad_EnvInvalid(t *testing.T) {
	t.Setenv("TABSPACE_DISCARD_CONCURRENCY", "many")

	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load() expected error for non-numeric env override")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["tab_discard", "workspace_remove"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "tab_discard" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "tab_discard")
	}
}

func TestMerge(t *testing.T) {
	base := &Config{
		NewTabLink:     "https://base.example",
		SwitchSettleMs: 100,
		DisabledTools:  []string{"tab_discard", " "},
	}
	overlay := &Config{
		SwitchSettleMs:                200,
		SeparateActiveTabPerWorkspace: true,
		DisabledTools:                 []string{"tab_discard", "workspace_remove"},
	}

	got := Merge(base, overlay)

	if got.NewTabLink != "https://base.example" {
		t.Errorf("NewTabLink = %q, want base value", got.NewTabLink)
	}
	if got.SwitchSettleMs != 200 {
		t.Errorf("SwitchSettleMs = %d, want overlay value 200", got.SwitchSettleMs)
	}
	if !got.SeparateActiveTabPerWorkspace {
		t.Error("SeparateActiveTabPerWorkspace = false, want true")
	}
	if len(got.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want deduplicated pair", got.DisabledTools)
	}
}

func TestMergeStringSlice_Empty(t *testing.T) {
	if got := mergeStringSlice(nil, []string{"", "  "}); got != nil {
		t.Errorf("mergeStringSlice() = %v, want nil", got)
	}
}
