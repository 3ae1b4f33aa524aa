package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/pders01/tendr/internal/api"
	"github.com/pders01/tendr/internal/config"
	"github.com/pders01/tendr/internal/debuglog"
	"github.com/pders01/tendr/internal/feed"
	"github.com/pders01/tendr/internal/search"
	"github.com/pders01/tendr/internal/storage"
	"github.com/pders01/tendr/internal/tender"
	"github.com/pders01/tendr/internal/tui"
	"github.com/pders01/tendr/internal/validation"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	dbPath     string
	apiURL     string
	logLevel   string
	quiet      bool

	listSearch string
	listTab    string
	listPages  int
	listJSON   bool

	pruneOlderThan time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "tendr",
	Short:        "Terminal dashboard for public tenders",
	SilenceUsage: true,
	RunE:         runDashboard,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("tendr %s\n", Version)
		fmt.Println("Tender dashboard")
		fmt.Println("github.com/pders01/tendr")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration",
	Run: func(_ *cobra.Command, _ []string) {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if err := config.GenerateDefaultConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at: %s\n", path)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print tenders without starting the dashboard",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and trim the local tender cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many tenders are cached",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(store *storage.Store) error {
			n, err := store.CountTenders()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cached tenders: %d\n", n)
			if last := store.LastSync(); !last.IsZero() {
				fmt.Fprintf(out, "Last sync: %s\n", last.Local().Format("02 Jan 2006 15:04"))
			} else {
				fmt.Fprintln(out, "Last sync: never")
			}
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop cached tenders not seen recently",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if pruneOlderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		return withStore(func(store *storage.Store) error {
			removed, err := store.PruneTenders(time.Now().Add(-pruneOlderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d tenders\n", removed)
			return nil
		})
	},
}

var cacheForgetCmd = &cobra.Command{
	Use:   "forget ID...",
	Short: "Remove tenders from the cache",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *storage.Store) error {
			for _, id := range args {
				if err := store.DeleteTender(id); err != nil {
					return fmt.Errorf("forgetting %s: %w", id, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %d tenders\n", len(args))
			return nil
		})
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to configuration file")
	pf.StringVar(&dbPath, "db", "", "Path to database file (overrides config)")
	pf.StringVar(&apiURL, "api", "", "Tender API base URL (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	pf.BoolVar(&quiet, "quiet", false, "Skip startup banner")

	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Search text sent to the API")
	listCmd.Flags().StringVarP(&listTab, "tab", "t", string(tender.TabAll), "Status tab: all, draft, published, evaluation, awarded")
	listCmd.Flags().IntVarP(&listPages, "pages", "n", 1, "Pages to load, 0 for all")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON instead of a table")

	cachePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "Drop tenders last seen longer ago than this")

	configCmd.AddCommand(configGenCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd, cacheForgetCmd)
	rootCmd.AddCommand(versionCmd, configCmd, listCmd, cacheCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDashboard(_ *cobra.Command, _ []string) error {
	if !quiet {
		tui.ShowBanner(Version)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	store, err := storage.NewStoreWithTimeout(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		return fmt.Errorf("%w (is another tendr running?)", err)
	}
	defer store.Close()

	searcher, closeSearch := openSearch(cfg, store)
	defer closeSearch()

	client := newClient(cfg, store)
	debuglog.Infof("tendr %s starting against %s", Version, client.BaseURL())

	app := tui.NewApp(cfg, client, store, searcher)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	// The cache is optional here so that list works while the dashboard
	// holds the database lock.
	store, err := storage.NewStoreWithTimeout(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		debuglog.Warnf("list without cache: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	coord := feed.NewCoordinator(newClient(cfg, store), cfg.API.PageSize)
	defer coord.Dispose()
	if store != nil {
		coord.OnPage(func(records []tender.Record) {
			if err := store.SaveTenders(records); err != nil {
				debuglog.Warnf("caching %d tenders: %v", len(records), err)
			}
		})
	}

	filter := feed.Filter{Search: listSearch, Tab: tender.ParseTab(listTab)}
	if err := loadPages(cmd.Context(), coord, filter, listPages); err != nil {
		return err
	}

	now := time.Now()
	records := coord.Records()
	displays := make([]tender.Display, 0, len(records))
	for _, r := range records {
		displays = append(displays, tender.Map(r, now))
	}

	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(displays)
	}
	printTable(out, displays, coord.Snapshot())
	return nil
}

// loadPages drives coord through at most pages pages of f, or through every
// page when pages is zero. The first failed page ends the walk.
func loadPages(ctx context.Context, coord *feed.Coordinator, f feed.Filter, pages int) error {
	req := coord.ResetWith(f)
	if req == nil {
		return nil
	}
	res := coord.FetchContext(ctx, req)
	coord.Complete(res)
	if res.Err != nil {
		return res.Err
	}

	for n := 1; pages <= 0 || n < pages; n++ {
		if !coord.Snapshot().HasMore {
			break
		}
		if err := coord.Load(ctx); err != nil {
			return err
		}
	}
	return nil
}

func printTable(w io.Writer, displays []tender.Display, st feed.State) {
	if len(displays) == 0 {
		fmt.Fprintln(w, "No tenders found")
		return
	}

	rows := make([][]string, 0, len(displays))
	for _, d := range displays {
		rows = append(rows, []string{
			d.ID,
			truncate(d.Title, 48),
			strings.ToUpper(string(d.Status)),
			string(d.Priority),
			d.EstimatedValue,
			d.Deadline,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "STATUS", "PRIORITY", "VALUE", "DEADLINE").
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, tui.MsgFeedSummary(len(displays), st))
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

// loadConfig reads the configuration, applies flag overrides and prepares
// logging and the data directories.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	base, err := validation.NewAPIURLValidator(cfg.API.AllowInsecure).ValidateAndNormalize(cfg.API.BaseURL)
	if err != nil {
		return nil, err
	}
	cfg.API.BaseURL = base

	if cfg.Database.Path, err = validation.DataPath(cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	if cfg.Database.SearchIndex != "" {
		if cfg.Database.SearchIndex, err = validation.DataPath(cfg.Database.SearchIndex); err != nil {
			return nil, fmt.Errorf("search index path: %w", err)
		}
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.Path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	tui.ApplyTheme(cfg.UI.Colors)

	return cfg, nil
}

// withStore loads the config and runs fn against the opened database.
func withStore(fn func(*storage.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer debuglog.Close()

	store, err := storage.NewStoreWithTimeout(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		return fmt.Errorf("%w (is another tendr running?)", err)
	}
	defer store.Close()
	return fn(store)
}

// openSearch prefers the bleve index and falls back to scanning the cache
// when the index cannot be opened.
func openSearch(cfg *config.Config, store *storage.Store) (search.Searcher, func()) {
	engine, err := search.NewBleveEngine(store, cfg.Database.SearchIndex)
	if err != nil {
		debuglog.Warnf("search index unavailable, scanning cache instead: %v", err)
		return search.NewEngine(store), func() {}
	}
	return engine, func() {
		if c, ok := engine.(io.Closer); ok {
			if err := c.Close(); err != nil {
				debuglog.Warnf("closing search index: %v", err)
			}
		}
	}
}

// newClient builds the API client. A token stored in the session is used
// when the config carries none.
func newClient(cfg *config.Config, store *storage.Store) *api.Client {
	client := api.NewClient(cfg)
	if cfg.API.Token == "" && store != nil {
		if token := store.Sessions().Get().String(storage.SessionToken); token != "" {
			client.SetToken(token)
		}
	}
	return client
}
