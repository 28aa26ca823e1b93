package ops

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/storage"
)

// Settings is an immutable snapshot of the user-facing flags, taken once per
// operation and passed down explicitly.
type Settings struct {
	SeparateActiveTabPerWorkspace    bool   `json:"separate_active_tab_per_workspace"`
	SharePinnedTabsBetweenWorkspaces bool   `json:"share_pinned_tabs_between_workspaces"`
	NewTabLink                       string `json:"new_tab_link"`
	GeneralName                      string `json:"general_name"`
	GeneralIcon                      string `json:"general_icon"`

	SwitchSettle       time.Duration `json:"-"`
	DiscardConcurrency int           `json:"-"`
}

// LoadSettings merges the durable settings keys over the config defaults.
func LoadSettings(ctx context.Context, d Deps) (*Settings, error) {
	cfg := d.config()
	s := &Settings{
		SeparateActiveTabPerWorkspace:    cfg.SeparateActiveTabPerWorkspace,
		SharePinnedTabsBetweenWorkspaces: cfg.SharePinnedTabsBetweenWorkspaces,
		NewTabLink:                       cfg.NewTabLink,
		GeneralName:                      cfg.GeneralName,
		GeneralIcon:                      cfg.GeneralIcon,
		SwitchSettle:                     time.Duration(cfg.SwitchSettleMs) * time.Millisecond,
		DiscardConcurrency:               cfg.DiscardConcurrency,
	}
	if s.DiscardConcurrency <= 0 {
		s.DiscardConcurrency = 1
	}

	rec, err := d.Storage.Get(ctx, KeySeparateActiveTab, KeySharePinnedTabs, KeyNewTabLink)
	if err != nil {
		return nil, readErr("settings", err)
	}
	if err := decodeSetting(rec, KeySeparateActiveTab, &s.SeparateActiveTabPerWorkspace); err != nil {
		return nil, err
	}
	if err := decodeSetting(rec, KeySharePinnedTabs, &s.SharePinnedTabsBetweenWorkspaces); err != nil {
		return nil, err
	}
	if err := decodeSetting(rec, KeyNewTabLink, &s.NewTabLink); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeSetting[T any](rec storage.Record, key string, dst *T) error {
	raw, ok := rec[key]
	if !ok || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.NewStorageRead(key, err)
	}
	return nil
}

// UpdateSettingsInput contains parameters for the UpdateSettings operation.
// Nil fields are left unchanged.
type UpdateSettingsInput struct {
	SeparateActiveTabPerWorkspace    *bool
	SharePinnedTabsBetweenWorkspaces *bool
	NewTabLink                       *string
}

// UpdateSettings persists the given settings keys and returns the result.
func UpdateSettings(ctx context.Context, d Deps, input UpdateSettingsInput) (*Settings, error) {
	values := make(map[string]any)
	if input.SeparateActiveTabPerWorkspace != nil {
		values[KeySeparateActiveTab] = *input.SeparateActiveTabPerWorkspace
	}
	if input.SharePinnedTabsBetweenWorkspaces != nil {
		values[KeySharePinnedTabs] = *input.SharePinnedTabsBetweenWorkspaces
	}
	if input.NewTabLink != nil {
		link := strings.TrimSpace(*input.NewTabLink)
		if err := validateLink(link); err != nil {
			return nil, err
		}
		values[KeyNewTabLink] = link
	}
	if len(values) == 0 {
		return nil, errors.NewInvalidRequest("at least one setting is required")
	}

	rec, err := storage.Encode(values)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := d.Storage.Set(ctx, rec); err != nil {
		return nil, writeErr("settings", err)
	}
	d.log().Info("settings updated", zap.Int("keys", len(values)))
	return LoadSettings(ctx, d)
}

// validateLink accepts "" (browser default) or an absolute URL.
func validateLink(link string) error {
	if link == "" {
		return nil
	}
	u, err := url.Parse(link)
	if err != nil || u.Scheme == "" {
		return errors.NewInvalidRequest("new_tab_link must be an absolute URL")
	}
	return nil
}
