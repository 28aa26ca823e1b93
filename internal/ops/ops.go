package ops

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/config"
	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/logging"
	"github.com/hpungsan/tabspace/internal/metrics"
	"github.com/hpungsan/tabspace/internal/storage"
)

// Storage keys. The shapes are part of the durable format.
const (
	KeyWorkspaces        = "workspaces"                // []workspace.Definition
	KeyAssignments       = "workspaceAssignments"      // workspace.WindowAssignments
	KeyActiveWorkspace   = "activeWorkspacePerWindow"  // map[windowID]workspaceID
	KeyLastActiveTab     = "lastActiveTabPerWorkspace" // map[windowID]map[workspaceID]tabID
	KeySeparateActiveTab = "separateActiveTabPerWorkspace"
	KeySharePinnedTabs   = "sharePinnedTabsBetweenWorkspaces"
	KeyNewTabLink        = "newTabLink"
)

// Deps are the collaborators every operation receives explicitly. Host may
// be nil; operations that need the browser then fail with HOST_UNAVAILABLE.
type Deps struct {
	Storage storage.Storage
	Host    host.Host
	Config  *config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics
}

func (d Deps) log() *zap.Logger {
	return logging.OrNop(d.Log)
}

func (d Deps) config() *config.Config {
	if d.Config == nil {
		return config.DefaultConfig()
	}
	return d.Config
}

func (d Deps) browser() (host.Host, error) {
	if d.Host == nil {
		return nil, errors.NewHostUnavailable()
	}
	return d.Host, nil
}

// resolveWindow returns windowID, or the host's current window when it is 0.
func resolveWindow(ctx context.Context, d Deps, windowID int) (int, error) {
	if windowID != 0 {
		return windowID, nil
	}
	h, err := d.browser()
	if err != nil {
		return 0, err
	}
	w, err := h.CurrentWindow(ctx)
	if err != nil {
		return 0, hostErr("window", 0, err)
	}
	return w.ID, nil
}

// readErr wraps a storage read failure.
func readErr(key string, err error) error {
	if err == nil {
		return nil
	}
	if isCoded(err) {
		return err
	}
	return errors.NewStorageRead(key, err)
}

// writeErr wraps a storage write failure. Coded errors raised inside an
// update callback pass through unchanged.
func writeErr(key string, err error) error {
	if err == nil {
		return nil
	}
	if isCoded(err) {
		return err
	}
	return errors.NewStorageWrite(key, err)
}

// hostErr wraps a failed host call on a tab, group or window.
func hostErr(kind string, id int, err error) error {
	if isCoded(err) {
		return err
	}
	return errors.NewHostLookup(kind, id, err)
}

func isCoded(err error) bool {
	var tErr *errors.TabspaceError
	return stderrors.As(err, &tErr)
}

// sleep waits for dur or until ctx is done.
func sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func intPtr(i int) *int {
	return &i
}
