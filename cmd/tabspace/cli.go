package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/config"
	"github.com/hpungsan/tabspace/internal/errors"
	"github.com/hpungsan/tabspace/internal/host/cdp"
	"github.com/hpungsan/tabspace/internal/host/memhost"
	"github.com/hpungsan/tabspace/internal/metrics"
	"github.com/hpungsan/tabspace/internal/ops"
	"github.com/hpungsan/tabspace/internal/storage"
	"github.com/hpungsan/tabspace/internal/web"
)

// env holds what every command shares. The browser is attached per command.
type env struct {
	baseDir string
	store   storage.Storage
	cfg     *config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

// deps attaches a browser and returns the operation dependencies. A snapshot
// path wins over a debugger URL; "-" reads the snapshot from stdin. With
// neither, Host stays nil. On error the returned Deps are still usable
// without a browser.
func (e *env) deps(ctx context.Context, snapshot, debuggerURL string) (ops.Deps, func(), error) {
	d := ops.Deps{
		Storage: e.store,
		Config:  e.cfg,
		Log:     e.log,
		Metrics: e.metrics,
	}
	noop := func() {}

	switch {
	case snapshot == "-":
		if !stdinHasData() {
			return d, noop, errors.NewInvalidRequest("snapshot must be piped via stdin")
		}
		h, err := memhost.Load(os.Stdin)
		if err != nil {
			return d, noop, errors.NewInvalidRequest(fmt.Sprintf("invalid snapshot: %v", err))
		}
		d.Host = h
	case snapshot != "":
		h, err := memhost.LoadFile(snapshot)
		if err != nil {
			if os.IsNotExist(err) {
				return d, noop, errors.NewFileNotFound(snapshot)
			}
			return d, noop, errors.NewInvalidRequest(fmt.Sprintf("invalid snapshot: %v", err))
		}
		d.Host = h
	case debuggerURL != "":
		h, err := cdp.Connect(ctx, debuggerURL, e.log)
		if err != nil {
			return d, noop, err
		}
		d.Host = h
		return d, func() { _ = h.Close() }, nil
	}
	return d, noop, nil
}

// cmdDeps is deps driven by the host flags of c.
func (e *env) cmdDeps(c *cli.Context) (ops.Deps, func(), error) {
	url := c.String("debugger-url")
	if url == "" {
		url = e.cfg.DebuggerURL
	}
	return e.deps(c.Context, c.String("snapshot"), url)
}

// hostFlags select the browser a command talks to.
func hostFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "snapshot", Usage: "Use a browser snapshot file instead of a live browser (- for stdin)"},
		&cli.StringFlag{Name: "debugger-url", Usage: "DevTools websocket URL of the browser (default: debugger_url from config)"},
	}
}

// withHost appends hostFlags to flags.
func withHost(flags ...cli.Flag) []cli.Flag {
	return append(flags, hostFlags()...)
}

// windowFlag is the optional window id flag.
func windowFlag() cli.Flag {
	return &cli.IntFlag{Name: "window", Usage: "Window id (default: current window)"}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(e *env) *cli.App {
	app := &cli.App{
		Name:    "tabspace",
		Usage:   "Workspaces over your browser tabs",
		Version: Version,
		Commands: []*cli.Command{
			workspacesCmd(e),
			addCmd(e),
			removeCmd(e),
			updateCmd(e),
			reorderCmd(e),
			activeCmd(e),
			switchCmd(e),
			assignTabCmd(e),
			assignGroupCmd(e),
			unassignTabCmd(e),
			unassignGroupCmd(e),
			moveEndCmd(e),
			visibleCmd(e),
			reconcileCmd(e),
			discardCmd(e),
			closeCmd(e),
			summaryCmd(e),
			settingsCmd(e),
			exportCmd(e),
			importCmd(e),
			serveCmd(e),
			inspectCmd(e),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// workspacesCmd creates the workspaces command.
func workspacesCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "workspaces",
		Usage: "List workspaces, general first",
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.ListWorkspaces(c.Context, d)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// addCmd creates the add command.
func addCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a custom workspace",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Workspace id (default: generated)"},
			&cli.StringFlag{Name: "icon", Aliases: []string{"i"}, Usage: "Icon name"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("workspace name is required"))
			}
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.AddWorkspace(c.Context, d, ops.AddWorkspaceInput{
				ID:   c.String("id"),
				Name: strings.Join(c.Args().Slice(), " "),
				Icon: c.String("icon"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// removeCmd creates the remove command.
func removeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Usage:     "Remove a custom workspace and its assignments",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("workspace id is required"))
			}
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.RemoveWorkspace(c.Context, d, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Rename or re-icon a workspace",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New name"},
			&cli.StringFlag{Name: "icon", Aliases: []string{"i"}, Usage: "New icon"},
			&cli.BoolFlag{Name: "default", Usage: "Mark as the default workspace"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("workspace id is required"))
			}
			input := ops.UpdateWorkspaceInput{ID: c.Args().First()}
			if c.IsSet("name") {
				name := c.String("name")
				input.Name = &name
			}
			if c.IsSet("icon") {
				icon := c.String("icon")
				input.Icon = &icon
			}
			if c.IsSet("default") {
				def := c.Bool("default")
				input.IsDefault = &def
			}

			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.UpdateWorkspace(c.Context, d, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reorderCmd creates the reorder command.
func reorderCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "reorder",
		Usage:     "Reorder custom workspaces",
		ArgsUsage: "<id> [id...]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("at least one workspace id is required"))
			}
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			list, err := ops.ReorderWorkspaces(c.Context, d, c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(ops.ListWorkspacesOutput{Workspaces: list, Count: len(list)})
		},
	}
}

// activeCmd creates the active command.
func activeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "active",
		Usage: "Show the active workspace of a window",
		Flags: withHost(windowFlag()),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.ActiveWorkspace(c.Context, d, ops.ActiveInput{WindowID: c.Int("window")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// switchCmd creates the switch command.
func switchCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "switch",
		Usage:     "Make a workspace active in a window",
		ArgsUsage: "<id>",
		Flags:     withHost(windowFlag()),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("workspace id is required"))
			}
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.SwitchWorkspace(c.Context, d, ops.SwitchWorkspaceInput{
				WindowID:    c.Int("window"),
				WorkspaceID: c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// assignTabCmd creates the assign-tab command.
func assignTabCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "assign-tab",
		Usage: "Assign a tab to a workspace",
		Flags: withHost(
			&cli.IntFlag{Name: "tab", Aliases: []string{"t"}, Required: true, Usage: "Tab id"},
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace id"},
			windowFlag(),
		),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.AddTabToWorkspace(c.Context, d, ops.AddTabInput{
				TabID:       c.Int("tab"),
				WorkspaceID: c.String("workspace"),
				WindowID:    c.Int("window"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// assignGroupCmd creates the assign-group command.
func assignGroupCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "assign-group",
		Usage: "Assign a tab group to a workspace",
		Flags: withHost(
			&cli.IntFlag{Name: "group", Aliases: []string{"g"}, Required: true, Usage: "Group id"},
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace id"},
			windowFlag(),
		),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.AddGroupToWorkspace(c.Context, d, ops.AddGroupInput{
				GroupID:     c.Int("group"),
				WorkspaceID: c.String("workspace"),
				WindowID:    c.Int("window"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// unassignTabCmd creates the unassign-tab command.
func unassignTabCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "unassign-tab",
		Usage: "Return a tab to general",
		Flags: withHost(
			&cli.IntFlag{Name: "tab", Aliases: []string{"t"}, Required: true, Usage: "Tab id"},
			windowFlag(),
			&cli.StringFlag{Name: "url", Usage: "Tab URL, for tabs the browser no longer has"},
		),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.RemoveTabFromAllWorkspaces(c.Context, d, ops.RemoveTabInput{
				TabID:    c.Int("tab"),
				WindowID: c.Int("window"),
				URL:      c.String("url"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// unassignGroupCmd creates the unassign-group command.
func unassignGroupCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "unassign-group",
		Usage: "Return a tab group to general",
		Flags: withHost(
			&cli.IntFlag{Name: "group", Aliases: []string{"g"}, Required: true, Usage: "Group id"},
			windowFlag(),
			&cli.StringFlag{Name: "title", Usage: "Group title, for groups the browser no longer has"},
			&cli.StringFlag{Name: "color", Usage: "Group color, for groups the browser no longer has"},
		),
		Action: func(c *cli.Context) error {
			input := ops.RemoveGroupInput{
				GroupID:  c.Int("group"),
				WindowID: c.Int("window"),
			}
			if c.IsSet("title") {
				title := c.String("title")
				input.Title = &title
			}
			if c.IsSet("color") {
				color := c.String("color")
				input.Color = &color
			}

			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.RemoveGroupFromAllWorkspaces(c.Context, d, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// moveEndCmd creates the move-end command.
func moveEndCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "move-end",
		Usage: "Assign a tab to a workspace and move it to the end",
		Flags: withHost(
			&cli.IntFlag{Name: "tab", Aliases: []string{"t"}, Required: true, Usage: "Tab id"},
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Required: true, Usage: "Workspace id"},
			windowFlag(),
		),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.MoveTabToWorkspaceEnd(c.Context, d, ops.MoveTabEndInput{
				TabID:       c.Int("tab"),
				WorkspaceID: c.String("workspace"),
				WindowID:    c.Int("window"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// visibleCmd creates the visible command.
func visibleCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "visible",
		Usage: "List what a workspace shows in a window",
		Flags: withHost(
			windowFlag(),
			&cli.StringFlag{Name: "workspace", Aliases: []string{"w"}, Usage: "Workspace id (default: active workspace)"},
		),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.VisibleItems(c.Context, d, ops.VisibleInput{
				WindowID:    c.Int("window"),
				WorkspaceID: c.String("workspace"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reconcileCmd creates the reconcile command.
func reconcileCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Rebind stored entries to the window's current tabs",
		Flags: withHost(
			windowFlag(),
			&cli.BoolFlag{Name: "prune", Usage: "Drop entries that match no live tab or group"},
		),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.Reconcile(c.Context, d, ops.ReconcileInput{
				WindowID: c.Int("window"),
				Prune:    c.Bool("prune"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// discardCmd creates the discard command.
func discardCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "discard",
		Usage:     "Unload tabs from memory without closing them",
		ArgsUsage: "<tab-id> [tab-id...]",
		Flags: withHost(
			windowFlag(),
			&cli.BoolFlag{Name: "no-switch", Usage: "Skip the active tab instead of moving off it first"},
		),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("at least one tab id is required"))
			}
			tabIDs, err := parseIDs(c.Args().Slice())
			if err != nil {
				return outputError(err)
			}

			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.SafeDiscard(c.Context, d, ops.DiscardInput{
				TabIDs:    tabIDs,
				WindowID:  c.Int("window"),
				SwitchTab: !c.Bool("no-switch"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// closeCmd creates the close command.
func closeCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "close",
		Usage: "Close a tab and drop its assignment",
		Flags: withHost(
			&cli.IntFlag{Name: "tab", Aliases: []string{"t"}, Required: true, Usage: "Tab id"},
		),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.CloseTab(c.Context, d, c.Int("tab"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// summaryCmd creates the summary command.
func summaryCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Outline workspaces and their entries",
		Flags: withHost(
			windowFlag(),
			&cli.BoolFlag{Name: "markdown", Aliases: []string{"m"}, Usage: "Print the markdown outline instead of JSON"},
		),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.Summary(c.Context, d, ops.SummaryInput{WindowID: c.Int("window")})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("markdown") {
				_, err := fmt.Fprint(os.Stdout, output.Markdown)
				return err
			}
			return outputJSON(output)
		},
	}
}

// settingsCmd creates the settings command. Without flags it prints the
// current settings.
func settingsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change settings",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "separate-active-tab", Usage: "Remember the active tab per workspace"},
			&cli.BoolFlag{Name: "share-pinned", Usage: "Show pinned tabs in every workspace"},
			&cli.StringFlag{Name: "new-tab-link", Usage: "URL opened when a workspace has nothing to show (empty: browser default)"},
		},
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			var input ops.UpdateSettingsInput
			changed := false
			if c.IsSet("separate-active-tab") {
				v := c.Bool("separate-active-tab")
				input.SeparateActiveTabPerWorkspace = &v
				changed = true
			}
			if c.IsSet("share-pinned") {
				v := c.Bool("share-pinned")
				input.SharePinnedTabsBetweenWorkspaces = &v
				changed = true
			}
			if c.IsSet("new-tab-link") {
				v := c.String("new-tab-link")
				input.NewTabLink = &v
				changed = true
			}

			var output *ops.Settings
			if changed {
				output, err = ops.UpdateSettings(c.Context, d, input)
			} else {
				output, err = ops.LoadSettings(c.Context, d)
			}
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored state to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file path (default: ~/.tabspace/exports/<label>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "label", Aliases: []string{"l"}, Usage: "File name prefix for the default path"},
		},
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.Export(c.Context, d, ops.ExportInput{
				Path:  c.String("path"),
				Label: c.String("label"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import stored state from a JSONL file",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("path is required"))
			}
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			output, err := ops.Import(c.Context, d, ops.ImportInput{
				Path: c.Args().First(),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(output); err != nil {
				return err
			}
			// A refused import wrote nothing; the report above says why.
			if output.Imported == 0 && len(output.Errors) > 0 {
				first := output.Errors[0]
				return cli.Exit(fmt.Sprintf("[%s] import refused: %d error(s), first at line %d: %s",
					first.Code, len(output.Errors), first.Line, first.Message), 1)
			}
			return nil
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP server on stdio",
		Flags: hostFlags(),
		Action: func(c *cli.Context) error {
			url := c.String("debugger-url")
			if url == "" {
				url = e.cfg.DebuggerURL
			}
			if c.String("snapshot") == "-" {
				return outputError(errors.NewInvalidRequest("stdin carries the MCP session; pass a snapshot file path"))
			}
			if err := e.serveMCP(c.Context, c.String("snapshot"), url); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// inspectCmd creates the inspect command.
func inspectCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Serve a read-only web view of workspaces",
		Flags: withHost(
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 7777, Usage: "Port to listen on"},
		),
		Action: func(c *cli.Context) error {
			d, done, err := e.cmdDeps(c)
			if err != nil {
				return outputError(err)
			}
			defer done()

			e.watch(c.Context)

			srv, err := web.NewServer(d, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if err := web.Run(srv, e.log); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// outputJSON writes JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var tErr *errors.TabspaceError
	if stderrors.As(err, &tErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// parseIDs parses positional tab ids.
func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid tab id: %q", part))
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errors.NewInvalidRequest("at least one tab id is required")
	}
	return ids, nil
}
