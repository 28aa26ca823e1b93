package ops

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hpungsan/tabspace/internal/storage"
	"github.com/hpungsan/tabspace/internal/workspace"
)

// SummaryInput contains parameters for the Summary operation.
type SummaryInput struct {
	WindowID int // 0 = every window with a record
}

// SummaryOutput contains the result of the Summary operation.
type SummaryOutput struct {
	Markdown   string `json:"markdown"`
	Workspaces int    `json:"workspaces"`
	Windows    int    `json:"windows"`
}

// Summary renders the stored workspaces and their assignments as markdown.
// It reads storage only, so it works without a browser.
func Summary(ctx context.Context, d Deps, input SummaryInput) (*SummaryOutput, error) {
	s, err := LoadSettings(ctx, d)
	if err != nil {
		return nil, err
	}
	defs, err := LoadWorkspaces(ctx, d, s)
	if err != nil {
		return nil, err
	}
	all, err := LoadAllAssignments(ctx, d)
	if err != nil {
		return nil, err
	}
	active, err := storage.GetJSON(ctx, d.Storage, KeyActiveWorkspace, map[int]string{})
	if err != nil {
		return nil, readErr(KeyActiveWorkspace, err)
	}

	windows := make(map[int]bool)
	for id := range all {
		windows[id] = true
	}
	for id := range active {
		windows[id] = true
	}
	var ids []int
	for id := range windows {
		if input.WindowID == 0 || id == input.WindowID {
			ids = append(ids, id)
		}
	}
	if input.WindowID != 0 && len(ids) == 0 {
		ids = []int{input.WindowID}
	}
	sort.Ints(ids)

	var b strings.Builder
	b.WriteString("# Workspaces\n\n")
	for _, def := range defs {
		fmt.Fprintf(&b, "- **%s** `%s`", escape(def.Name), def.ID)
		if def.Icon != "" {
			fmt.Fprintf(&b, " (%s)", escape(def.Icon))
		}
		if def.IsDefault {
			b.WriteString(" default")
		}
		b.WriteString("\n")
	}

	for _, windowID := range ids {
		fmt.Fprintf(&b, "\n## Window %d\n\n", windowID)
		activeID := active[windowID]
		if _, ok := workspace.Find(defs, activeID); !ok {
			activeID = workspace.GeneralID
		}
		fmt.Fprintf(&b, "Active workspace: `%s`\n", activeID)

		as := all[windowID]
		for _, def := range defs {
			if def.IsGeneral() {
				continue
			}
			a := as[def.ID]
			if a.Empty() {
				continue
			}
			fmt.Fprintf(&b, "\n### %s\n\n", escape(def.Name))
			groups := append([]workspace.GroupAssignment(nil), a.Groups...)
			sort.SliceStable(groups, func(i, j int) bool { return groups[i].Index < groups[j].Index })
			for _, g := range groups {
				fmt.Fprintf(&b, "- Group **%s** (%s), %d tabs\n", escape(orUntitled(g.Title)), g.Color, len(g.TabURLs))
				for _, u := range g.TabURLs {
					fmt.Fprintf(&b, "  - <%s>\n", u)
				}
			}
			tabs := append([]workspace.TabAssignment(nil), a.Tabs...)
			sort.SliceStable(tabs, func(i, j int) bool { return tabs[i].Index < tabs[j].Index })
			for _, t := range tabs {
				fmt.Fprintf(&b, "- [%s](%s)\n", escape(orUntitled(t.Title)), t.URL)
			}
		}
	}

	return &SummaryOutput{
		Markdown:   b.String(),
		Workspaces: len(defs),
		Windows:    len(ids),
	}, nil
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "`", "\\`")

func escape(s string) string {
	return mdEscaper.Replace(s)
}

func orUntitled(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Untitled"
	}
	return s
}
