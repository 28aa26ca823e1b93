package ops

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/host"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// DiscardOutcome is what happened to one requested tab.
type DiscardOutcome string

const (
	OutcomeDiscarded  DiscardOutcome = "discarded"
	OutcomeFailed     DiscardOutcome = "failed"
	OutcomeNewTabPage DiscardOutcome = "skipped_new_tab"
	OutcomeLanding    DiscardOutcome = "kept_landing"
	OutcomeKeptActive DiscardOutcome = "kept_active"
)

// Landing is how the active tab was relocated before discarding.
type Landing string

const (
	LandingNone     Landing = "none"     // active tab not in the batch, or switch_tab off
	LandingNext     Landing = "next"     // next tab in scope
	LandingExisting Landing = "existing" // an open new tab page
	LandingCreated  Landing = "created"  // a freshly created tab
	LandingFailed   Landing = "failed"   // relocation failed; active tab kept
)

// newTabPages are the browsers' own new tab URLs.
var newTabPages = map[string]bool{
	"chrome://newtab/":       true,
	"chrome://new-tab-page/": true,
	"edge://newtab/":         true,
	"about:newtab":           true,
	"about:home":             true,
}

// DiscardInput contains parameters for the SafeDiscard operation.
type DiscardInput struct {
	TabIDs    []int
	WindowID  int  // 0 = the window of the first tab
	SwitchTab bool // relocate the active tab before discarding it
}

// DiscardItem is the outcome for one requested tab id.
type DiscardItem struct {
	TabID   int            `json:"tab_id"`
	Outcome DiscardOutcome `json:"outcome"`
	Error   string         `json:"error,omitempty"`
}

// DiscardOutput contains the result of the SafeDiscard operation. An
// aborted batch touched nothing.
type DiscardOutput struct {
	WindowID     int           `json:"window_id"`
	Aborted      bool          `json:"aborted"`
	AbortReason  string        `json:"abort_reason,omitempty"`
	Landing      Landing       `json:"landing"`
	LandingTabID *int          `json:"landing_tab_id,omitempty"`
	Discarded    int           `json:"discarded"`
	Items        []DiscardItem `json:"items"`
}

// SafeDiscard suspends a batch of tabs while keeping the window on a live
// active tab. When the active tab is in the batch and SwitchTab is set, it
// first lands on the next tab of the active workspace's scope, else an open
// new tab page, else a new tab. Per-tab failures are recorded, never fatal.
func SafeDiscard(ctx context.Context, d Deps, input DiscardInput) (*DiscardOutput, error) {
	if len(input.TabIDs) == 0 {
		return nil, errors.NewInvalidRequest("tab_ids is required")
	}
	h, err := d.browser()
	if err != nil {
		return nil, err
	}
	started := time.Now()
	log := d.log()
	out := &DiscardOutput{WindowID: input.WindowID, Landing: LandingNone, Items: []DiscardItem{}}

	abort := func(reason string, err error) (*DiscardOutput, error) {
		out.Aborted = true
		out.AbortReason = reason
		log.Warn("discard batch aborted", zap.String("reason", reason), zap.Error(err))
		d.Metrics.DiscardBatch("aborted", time.Since(started).Seconds())
		return out, nil
	}

	// Resolve window
	if out.WindowID == 0 {
		first, err := h.Tab(ctx, input.TabIDs[0])
		if err != nil {
			return abort("first tab lookup failed", err)
		}
		out.WindowID = first.WindowID
	}

	// Snapshot
	tabs, err := h.Tabs(ctx, out.WindowID)
	if err != nil {
		return abort("window tab query failed", err)
	}
	byID := make(map[int]host.Tab, len(tabs))
	var active *host.Tab
	for i := range tabs {
		byID[tabs[i].ID] = tabs[i]
		if tabs[i].Active {
			active = &tabs[i]
		}
	}

	s, err := LoadSettings(ctx, d)
	if err != nil {
		log.Warn("settings unavailable, using defaults", zap.Error(err))
		s = defaultSettings(d)
	}

	b := newBatch(input.TabIDs)
	for _, id := range b.order {
		if t, ok := byID[id]; ok && isNewTabPage(t, s.NewTabLink) {
			b.withhold(id, OutcomeNewTabPage)
		}
	}

	// Active-tab guard
	if active != nil && input.SwitchTab && b.pending(active.ID) {
		landing, landingID, err := relocate(ctx, d, s, out.WindowID, *active, tabs, b)
		if err != nil {
			log.Warn("relocate active tab", zap.Int("window_id", out.WindowID), zap.Int("tab_id", active.ID), zap.Error(err))
			landing = LandingFailed
			b.withhold(active.ID, OutcomeKeptActive)
		}
		out.Landing = landing
		if landingID != 0 {
			out.LandingTabID = intPtr(landingID)
		}
	}

	// Discard remaining set
	results := make([]DiscardItem, len(b.order))
	workers := s.DiscardConcurrency
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range b.order {
		results[i] = DiscardItem{TabID: id}
		if outcome, held := b.held[id]; held {
			results[i].Outcome = outcome
			continue
		}
		g.Go(func() error {
			if err := h.Discard(gctx, id); err != nil {
				log.Debug("discard failed", zap.Int("tab_id", id), zap.Error(err))
				results[i].Outcome = OutcomeFailed
				results[i].Error = err.Error()
				return nil
			}
			results[i].Outcome = OutcomeDiscarded
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Outcome == OutcomeDiscarded {
			out.Discarded++
		}
		d.Metrics.DiscardItem(string(r.Outcome))
	}
	out.Items = results
	d.Metrics.DiscardBatch(string(out.Landing), time.Since(started).Seconds())
	log.Info("discard batch done",
		zap.Int("window_id", out.WindowID),
		zap.Int("requested", len(b.order)),
		zap.Int("discarded", out.Discarded),
		zap.String("landing", string(out.Landing)))
	return out, nil
}

// relocate moves focus off the active tab. It returns how and where focus
// landed; the landing tab is withheld from the batch.
func relocate(ctx context.Context, d Deps, s *Settings, windowID int, active host.Tab, tabs []host.Tab, b *batch) (Landing, int, error) {
	h := d.Host
	defs, err := LoadWorkspaces(ctx, d, s)
	if err != nil {
		return LandingFailed, 0, err
	}
	current, err := activeIn(ctx, d, defs, windowID)
	if err != nil {
		return LandingFailed, 0, err
	}

	scope := discardScope(ctx, d, s, windowID, *current, defs, active, tabs)

	// Next tab in scope
	for _, t := range scope {
		if t.Index > active.Index {
			if err := h.Activate(ctx, t.ID); err != nil {
				return LandingFailed, 0, hostErr("tab", t.ID, err)
			}
			b.withhold(t.ID, OutcomeLanding)
			b.withhold(active.ID, OutcomeKeptActive)
			return LandingNext, t.ID, nil
		}
	}

	// An open new tab page, unpinned first
	var candidate *host.Tab
	for i := range tabs {
		t := tabs[i]
		if t.ID == active.ID || t.Discarded || !isNewTabPage(t, s.NewTabLink) {
			continue
		}
		if candidate == nil || (candidate.Pinned && !t.Pinned) {
			candidate = &tabs[i]
		}
	}
	if candidate != nil {
		b.withhold(candidate.ID, OutcomeLanding)
		if err := land(ctx, d, windowID, current.ID, candidate.ID); err != nil {
			return LandingFailed, candidate.ID, err
		}
		return LandingExisting, candidate.ID, nil
	}

	// A new tab
	created, err := h.Create(ctx, host.CreateProps{WindowID: windowID, URL: s.NewTabLink})
	if err != nil {
		return LandingFailed, 0, hostErr("window", windowID, err)
	}
	b.withhold(created.ID, OutcomeLanding)
	if err := land(ctx, d, windowID, current.ID, created.ID); err != nil {
		return LandingFailed, created.ID, err
	}
	return LandingCreated, created.ID, nil
}

// land assigns the landing tab to the active workspace at the end of its
// scope (general detaches it) and activates it.
func land(ctx context.Context, d Deps, windowID int, wsID string, tabID int) error {
	if _, err := MoveTabToWorkspaceEnd(ctx, d, MoveTabEndInput{TabID: tabID, WorkspaceID: wsID, WindowID: windowID}); err != nil {
		d.log().Warn("assign landing tab", zap.Int("tab_id", tabID), zap.Error(err))
	}
	if err := d.Host.Activate(ctx, tabID); err != nil {
		return hostErr("tab", tabID, err)
	}
	return nil
}

// discardScope is the active workspace's tabs by index, or the whole window
// when the active tab is not part of that scope.
func discardScope(ctx context.Context, d Deps, s *Settings, windowID int, current workspace.Definition, defs []workspace.Definition, active host.Tab, tabs []host.Tab) []host.Tab {
	groups, err := d.Host.Groups(ctx, windowID)
	if err != nil {
		d.log().Warn("list groups", zap.Int("window_id", windowID), zap.Error(err))
	}
	in := workspace.FilterInput{
		Items:           workspace.BuildItems(tabs, groups),
		Active:          current,
		Workspaces:      defs,
		SharePinnedTabs: s.SharePinnedTabsBetweenWorkspaces,
	}
	if as, err := LoadAssignments(ctx, d, windowID); err != nil {
		d.log().Warn("assignments unavailable, scoping to window", zap.Error(err))
	} else {
		in.Assignments = as
	}
	scope := workspace.Scope(in)
	for _, t := range scope {
		if t.ID == active.ID {
			return scope
		}
	}
	all := append([]host.Tab(nil), tabs...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Index < all[j].Index })
	return all
}

// isNewTabPage reports whether t shows a browser new tab page or the
// configured new tab link.
func isNewTabPage(t host.Tab, link string) bool {
	u := workspace.TabFingerprint(t)
	if newTabPages[u] {
		return true
	}
	return link != "" && workspace.URLsMatch(u, link)
}

func defaultSettings(d Deps) *Settings {
	cfg := d.config()
	return &Settings{
		SharePinnedTabsBetweenWorkspaces: cfg.SharePinnedTabsBetweenWorkspaces,
		NewTabLink:                       cfg.NewTabLink,
		GeneralName:                      cfg.GeneralName,
		GeneralIcon:                      cfg.GeneralIcon,
		DiscardConcurrency:               max(cfg.DiscardConcurrency, 1),
	}
}

// batch is the ordered discard set. Withheld ids keep their outcome.
type batch struct {
	order []int
	held  map[int]DiscardOutcome
}

func newBatch(ids []int) *batch {
	b := &batch{held: make(map[int]DiscardOutcome)}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			b.order = append(b.order, id)
		}
	}
	return b
}

func (b *batch) pending(id int) bool {
	for _, o := range b.order {
		if o == id {
			_, held := b.held[id]
			return !held
		}
	}
	return false
}

// withhold keeps id out of the discard calls. Ids outside the request are
// ignored.
func (b *batch) withhold(id int, outcome DiscardOutcome) {
	for _, o := range b.order {
		if o == id {
			if _, held := b.held[id]; !held {
				b.held[id] = outcome
			}
			return
		}
	}
}
