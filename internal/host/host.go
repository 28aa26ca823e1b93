// Package host describes the browser's live tab model: the transient
// snapshot types and the operations the workspace overlay needs from it.
// Identifiers are only valid for the current browser session.
package host

import (
	"context"
	"errors"
)

// NoGroup is the GroupID of a tab that is not in a tab group.
const NoGroup = -1

var (
	// ErrNotFound is returned when a tab, group or window no longer exists.
	ErrNotFound = errors.New("host: no such tab, group or window")

	// ErrUnsupported is returned by hosts that cannot perform an operation.
	ErrUnsupported = errors.New("host: operation not supported")
)

// Tab is a snapshot of one browser tab.
type Tab struct {
	ID         int    `json:"id"`
	WindowID   int    `json:"windowId"`
	Index      int    `json:"index"`
	URL        string `json:"url,omitempty"`
	PendingURL string `json:"pendingUrl,omitempty"`
	Title      string `json:"title,omitempty"`
	Pinned     bool   `json:"pinned,omitempty"`
	Active     bool   `json:"active,omitempty"`
	Discarded  bool   `json:"discarded,omitempty"`
	GroupID    int    `json:"groupId"`
}

// Grouped reports whether the tab belongs to a tab group.
func (t Tab) Grouped() bool {
	return t.GroupID != NoGroup && t.GroupID != 0
}

// Group is a snapshot of one tab group.
type Group struct {
	ID        int    `json:"id"`
	WindowID  int    `json:"windowId"`
	Title     string `json:"title,omitempty"`
	Color     string `json:"color,omitempty"`
	Collapsed bool   `json:"collapsed,omitempty"`
}

// Window identifies a browser window.
type Window struct {
	ID      int  `json:"id"`
	Focused bool `json:"focused,omitempty"`
}

// CreateProps describes a tab to open.
type CreateProps struct {
	WindowID int
	URL      string // empty opens the browser's new tab page
	Index    *int
	Active   bool
}

// Host is the browser tab/window/group interface. Every call may fail with
// ErrNotFound when its target disappeared between snapshot and mutation;
// callers treat that as a normal condition.
type Host interface {
	CurrentWindow(ctx context.Context) (Window, error)
	Tabs(ctx context.Context, windowID int) ([]Tab, error)
	Groups(ctx context.Context, windowID int) ([]Group, error)
	Tab(ctx context.Context, tabID int) (Tab, error)
	Group(ctx context.Context, groupID int) (Group, error)

	Discard(ctx context.Context, tabID int) error
	Activate(ctx context.Context, tabID int) error
	MoveTab(ctx context.Context, tabID, windowID, index int) error
	Create(ctx context.Context, props CreateProps) (Tab, error)
	Remove(ctx context.Context, tabID int) error
}
