package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/hpungsan/tabspace/internal/config"
	"github.com/hpungsan/tabspace/internal/db"
	"github.com/hpungsan/tabspace/internal/logging"
	"github.com/hpungsan/tabspace/internal/mcp"
	"github.com/hpungsan/tabspace/internal/metrics"
	"github.com/hpungsan/tabspace/internal/storage"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"workspaces": true, "add": true, "remove": true, "update": true,
	"reorder": true, "active": true, "switch": true,
	"assign-tab": true, "assign-group": true, "unassign-tab": true,
	"unassign-group": true, "move-end": true,
	"visible": true, "reconcile": true, "discard": true, "close": true,
	"summary": true, "settings": true,
	"export": true, "import": true,
	"serve": true, "inspect": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _        _
  | |_ __ _| |__  ___ _ __   __ _  ___ ___
  | __/ _' | '_ \/ __| '_ \ / _' |/ __/ _ \
  | || (_| | |_) \__ \ |_) | (_| | (_|  __/
   \__\__,_|_.__/|___/ .__/ \__,_|\___\___|
                     |_|

  Workspaces over your browser tabs

  Usage: tabspace <command> [options]
         tabspace --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".tabspace")

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewSQLite(ctx, database, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to open storage: %v\n", err)
		os.Exit(1)
	}

	e := &env{
		baseDir: baseDir,
		store:   store,
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(e)
		if err := app.RunContext(ctx, os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'tabspace --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := e.serveMCP(ctx, "", cfg.DebuggerURL); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// serveMCP runs the stdio MCP server until stdin closes. External writes to
// the database are picked up by the watcher and logged.
func (e *env) serveMCP(ctx context.Context, snapshot, debuggerURL string) error {
	for _, name := range mcp.ValidateDisabledTools(e.cfg.DisabledTools) {
		e.log.Warn("unknown tool in disabled_tools", zap.String("tool", name))
	}
	for _, name := range mcp.ValidateDisabledTypes(e.cfg.DisabledTypes) {
		e.log.Warn("unknown type in disabled_types", zap.String("type", name))
	}

	deps, closeHost, err := e.deps(ctx, snapshot, debuggerURL)
	if err != nil {
		if snapshot != "" {
			return err
		}
		e.log.Warn("browser not reachable", zap.String("debugger_url", debuggerURL), zap.Error(err))
	}
	defer closeHost()
	if deps.Host == nil {
		e.log.Info("no browser attached; tab operations will report HOST_UNAVAILABLE")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.watch(ctx)

	return mcp.Run(deps, e.cfg, Version)
}

// watch follows external writes to the database in the background.
func (e *env) watch(ctx context.Context) {
	sq, ok := e.store.(*storage.SQLite)
	if !ok {
		return
	}
	unsubscribe := sq.Subscribe(func(changes storage.Changes) {
		for key := range changes {
			e.log.Debug("storage changed", zap.String("key", key))
		}
	})
	go func() {
		defer unsubscribe()
		if err := sq.Watch(ctx, e.baseDir, db.FileName); err != nil {
			e.log.Warn("database watcher stopped", zap.Error(err))
		}
	}()
}
