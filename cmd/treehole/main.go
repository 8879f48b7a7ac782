package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/treehole/internal/debuglog"
	"github.com/pders01/treehole/internal/feed"
	"github.com/pders01/treehole/internal/media"
	"github.com/pders01/treehole/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	dbPath     string
	quiet      bool
	debug      bool

	flagPage      int
	flagSize      int
	flagField     string
	flagSort      string
	flagLikeRange string
)

var rootCmd = &cobra.Command{
	Use:   "treehole",
	Short: "Terminal client for the treehole forum",
	Long: `treehole browses the treehole feed from the terminal.

Run without arguments to start the interactive interface. The query flags
seed the first page; afterwards the last settled query is remembered.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to configuration file")
	pf.StringVar(&dbPath, "db", "", "Path to database file (overrides config)")
	pf.BoolVar(&quiet, "quiet", false, "Skip startup banner")
	pf.BoolVar(&debug, "debug", false, "Write debug logs to the log file")

	for _, cmd := range []*cobra.Command{rootCmd, listCmd} {
		f := cmd.Flags()
		f.IntVar(&flagPage, "page", 1, "Page to open (1-based)")
		f.IntVar(&flagSize, "size", 0, "Posts per page")
		f.StringVar(&flagField, "field", "", "Sort field: date, like, dislike, comment")
		f.StringVar(&flagSort, "sort", "", "Sort direction: asc or desc")
		f.StringVar(&flagLikeRange, "like-range", "", "Like bucket, e.g. 26-50 or 401-inf")
	}

	rootCmd.AddCommand(versionCmd, configGenCmd, loginCmd, logoutCmd, listCmd, statsCmd, askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !quiet {
		tui.ShowBanner(Version)
	}

	e, err := openEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	initial, err := e.initialQuery(cmd.Flags().Changed)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	manager := feed.NewManager(e.client, e.store, e.index)
	ctrl := feed.NewController(ctx, manager, initial, feed.Options{
		Debounce:  e.cfg.Feed.Debounce,
		Window:    e.cfg.Feed.WindowPolicy(),
		PageSizes: e.cfg.Feed.AllowedPageSizes(),
	})
	defer ctrl.Close()

	app := tui.NewApp(tui.Deps{
		Context: ctx,
		Config:  e.cfg,
		Feed:    ctrl,
		Finder:  manager,
		Backend: e.client,
		Session: e.session,
		Queries: e.store,
		Opener:  media.NewLauncher(e.cfg),
		Index:   e.index,
	})
	e.client.SetNavigator(app.Navigator())

	debuglog.Infof("starting tui with %s", initial.Summary())
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
