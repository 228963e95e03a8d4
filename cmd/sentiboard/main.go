package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"sentiboard/internal/analyze"
	"sentiboard/internal/catalog"
	"sentiboard/internal/config"
	"sentiboard/internal/csvio"
	"sentiboard/internal/database"
	"sentiboard/internal/entry"
	"sentiboard/internal/export"
	"sentiboard/internal/ingest"
	"sentiboard/internal/result"
	"sentiboard/internal/sentiment"
	"sentiboard/internal/server"
	"sentiboard/internal/stats"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "sentiboard",
	Short:   "Sentiment analysis dashboard for product reviews",
	Long:    "sentiboard parses review CSVs, filters them by product and category, submits them to the sentiment backend and presents the results locally.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("sentiboard", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/sentiboard/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure the backend services and optional feeds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local cache status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		cacheStats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		client := newSentimentClient()
		fmt.Printf("Backend: %s\n", cfg.Services.Sentiment.BaseURL)
		if client.IsAuthenticated() {
			fmt.Println("Token: set")
		} else {
			fmt.Printf("Token: not set (%s), demo mode only\n", cfg.Services.Sentiment.TokenEnv)
		}

		fmt.Println("\nLocal cache:")
		fmt.Printf("  Sessions: %d\n", cacheStats.Sessions)
		fmt.Printf("  Comments: %d\n", cacheStats.Comments)
		fmt.Printf("  Positives: %d\n", cacheStats.Positives)
		fmt.Printf("  Negatives: %d\n", cacheStats.Negatives)
		fmt.Printf("  Neutrals: %d\n", cacheStats.Neutrals)
		if cacheStats.LastCachedAt != "" {
			fmt.Printf("  Last cached: %s\n", cacheStats.LastCachedAt)
		}
		return nil
	},
}

// --- analyze command ---

var (
	analyzeSingle bool
	analyzeDemo   bool
	analyzeFeeds  bool
	productIDs    []int64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file.csv]",
	Short: "Run the full analysis pipeline on a CSV file or the configured feeds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := gatherEntries(args)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("nothing to analyze")
		}
		fmt.Printf("Analyzing %d comments...\n", len(entries))

		client := newSentimentClient()
		runner := &analyze.Runner{Client: client, Store: db}
		rc := analyze.Config{
			Single:        analyzeSingle && len(entries) == 1,
			Authenticated: client.IsAuthenticated(),
			Demo:          analyzeDemo,
			ProductIDs:    productIDs,
		}

		res, err := runner.Run(context.Background(), entries, rc)
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeSingle, "single", false, "Analyze exactly one text without batching")
	analyzeCmd.Flags().BoolVar(&analyzeDemo, "demo", false, "Force the anonymous batch even with a token set")
	analyzeCmd.Flags().BoolVar(&analyzeFeeds, "feeds", false, "Also pull entries from the configured feeds")
	analyzeCmd.Flags().Int64SliceVar(&productIDs, "product-ids", nil, "Catalog product IDs for pre-selected analysis")
}

// gatherEntries builds the working set from the CSV argument and, with
// --feeds, the configured feed sources.
func gatherEntries(args []string) ([]entry.Entry, error) {
	var entries []entry.Entry

	if len(args) == 1 {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", args[0], err)
		}
		table, err := csvio.ParseLimit(raw, cfg.Limits.MaxCSVRows)
		if err != nil {
			return nil, err
		}
		fromCSV, _ := entry.Extract(table.Rows, nil)
		entries = append(entries, fromCSV...)
	}

	if analyzeFeeds && len(cfg.Sources.Feeds) > 0 {
		feeds := make([]ingest.FeedConfig, 0, len(cfg.Sources.Feeds))
		for _, f := range cfg.Sources.Feeds {
			feeds = append(feeds, ingest.FeedConfig{URL: f.URL, Name: f.Name})
		}
		reader := ingest.NewFeedReader(feeds, ingest.NewExtractor(0))
		entries = append(entries, reader.ReadAll()...)
	}

	return entries, nil
}

func printResult(res *result.Result) {
	if res.Single != nil {
		fmt.Printf("\nSentiment: %s (score %.2f)\n", res.Single.Sentiment, res.Single.Score)
		return
	}

	b := res.Batch
	sum := stats.Aggregate(b)
	o := sum.Overall

	fmt.Println("\nResults:")
	fmt.Printf("  Total: %d\n", o.Total)
	fmt.Printf("  Positives: %d (%.1f%%)\n", o.Positives, o.PositivePct)
	fmt.Printf("  Negatives: %d (%.1f%%)\n", o.Negatives, o.NegativePct)
	fmt.Printf("  Neutrals: %d (%.1f%%)\n", o.Neutrals, o.NeutralPct)
	if o.Unclassified > 0 {
		fmt.Printf("  Unclassified: %d\n", o.Unclassified)
	}
	fmt.Printf("  Avg score: %.2f\n", o.AvgScore)

	if len(sum.ByProduct) > 0 {
		fmt.Println("\nBy product:")
		for _, p := range sum.ByProduct {
			fmt.Printf("  %s: %d (+%d / -%d / =%d)\n", p.Name, p.Total, p.Positives, p.Negatives, p.Neutrals)
		}
	}

	if b.SessionSaved {
		fmt.Printf("\nSession saved: %s\n", b.SessionID)
	} else {
		fmt.Println("\nDemo run — nothing was persisted.")
	}
}

// --- history command ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List cached analysis sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sessions, err := loadHistory(db)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions yet. Run 'sentiboard analyze' with a token set.")
			return nil
		}

		fmt.Println("Sessions:")
		for _, p := range stats.Trend(sessions) {
			fmt.Printf("  %s  %s  total=%d  +%.1f%%  -%.1f%%  score=%.2f\n",
				p.Date, p.SessionID, p.Total, p.PositivePct, p.NegativePct, p.AvgScore)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Replay one cached session offline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		session, err := db.GetSession(args[0])
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("session %s not found in the local cache", args[0])
		}

		printResult(result.FromHistory(*session))
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [session-id] [file.csv]",
	Short: "Export a cached session's comments to CSV",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		session, err := db.GetSession(args[0])
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("session %s not found in the local cache", args[0])
		}

		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("creating %s: %w", args[1], err)
		}
		defer f.Close()

		if err := export.WriteItemsCSV(f, result.FromHistory(*session).Batch); err != nil {
			return err
		}
		fmt.Printf("Exported %d comments to %s\n", len(session.Comments), args[1])
		return nil
	},
}

func init() {
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
}

// loadHistory prefers the backend and falls back to the local cache.
func loadHistory(db *database.DB) ([]result.Session, error) {
	client := newSentimentClient()
	if client.IsAuthenticated() {
		sessions, err := client.GetHistory(context.Background())
		if err == nil {
			return sessions, nil
		}
		log.Printf("history fetch failed, using local cache: %v", err)
	}
	return db.GetSessions()
}

// --- catalog command ---

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the backend's category and product taxonomy",
}

var catalogCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List taxonomy categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newCatalogClient()
		categories, err := client.GetCategories(context.Background())
		if err != nil {
			return err
		}

		if len(categories) == 0 {
			fmt.Println("No categories defined.")
			return nil
		}
		for _, c := range categories {
			fmt.Printf("  [%d] %s\n", c.ID, c.Name)
		}
		return nil
	},
}

var catalogProductsCmd = &cobra.Command{
	Use:   "products [category-id]",
	Short: "List products under a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid category ID: %s", args[0])
		}

		client := newCatalogClient()
		products, err := client.GetProductsByCategory(context.Background(), id)
		if err != nil {
			return err
		}

		if len(products) == 0 {
			fmt.Println("No products in this category.")
			return nil
		}
		for _, p := range products {
			fmt.Printf("  [%d] %s\n", p.ID, p.Name)
		}
		fmt.Println("\nUse the IDs with: sentiboard analyze --product-ids 1,2,3")
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogCategoriesCmd)
	catalogCmd.AddCommand(catalogProductsCmd)
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web wizard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		client := newSentimentClient()

		var feeds *ingest.FeedReader
		if len(cfg.Sources.Feeds) > 0 {
			list := make([]ingest.FeedConfig, 0, len(cfg.Sources.Feeds))
			for _, f := range cfg.Sources.Feeds {
				list = append(list, ingest.FeedConfig{URL: f.URL, Name: f.Name})
			}
			feeds = ingest.NewFeedReader(list, ingest.NewExtractor(0))
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, server.Options{
			Client:        client,
			Authenticated: client.IsAuthenticated(),
			Feeds:         feeds,
			MaxCSVRows:    cfg.Limits.MaxCSVRows,
		}, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func newSentimentClient() *sentiment.Client {
	svc := cfg.Services.Sentiment
	return sentiment.New(svc.BaseURL, svc.TokenEnv, svc.Timeout())
}

func newCatalogClient() *catalog.Client {
	svc := cfg.Services.Catalog
	return catalog.New(svc.BaseURL, svc.TokenEnv, svc.Timeout())
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "sentiboard.db")
	return database.Open(dbPath)
}
