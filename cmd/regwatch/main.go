package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/regwatch/regwatch/internal/config"
	"github.com/regwatch/regwatch/internal/dashboard"
	"github.com/regwatch/regwatch/internal/enrich"
	"github.com/regwatch/regwatch/internal/runner"
	"github.com/regwatch/regwatch/internal/server"
	"github.com/regwatch/regwatch/internal/source"
	"github.com/regwatch/regwatch/internal/state"
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
	Use:     "regwatch",
	Short:   "Monitor regulatory and compliance sources for updates",
	Long:    "regwatch periodically checks compliance and security regulation sources, detects new documents since the last run, and keeps a per-source record of what it has seen.",
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
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("regwatch", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/regwatch/",
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
		fmt.Println("Edit it to configure monitored sources and storage.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show persisted state per source",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		names, err := store.Sources()
		if err != nil {
			return fmt.Errorf("listing sources: %w", err)
		}
		if len(names) == 0 {
			fmt.Println("No state yet. Run 'regwatch run' first.")
			return nil
		}

		fmt.Printf("Sources with state: %d\n\n", len(names))
		for _, name := range names {
			st, err := store.Load(name)
			if err != nil {
				continue
			}
			fmt.Printf("%s\n", name)
			fmt.Printf("  Last checked: %s\n", st.Metadata.LastChecked)
			fmt.Printf("  Tracked updates: %d\n", st.Metadata.TotalUpdates)
			fmt.Printf("  New on last run: %d\n", st.Metadata.NewUpdates)
		}
		return nil
	},
}

// --- run command ---

var withDashboard bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check all configured sources for new updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		adapters := buildAdapters(cfg)
		if len(adapters) == 0 {
			return fmt.Errorf("no sources configured")
		}

		var enricher *enrich.Enricher
		if cfg.Enrich.Enabled {
			enricher = enrich.New(time.Duration(cfg.Enrich.TimeoutSeconds) * time.Second)
		}

		dataDir := cfg.GetDataDir()
		opts := runner.Options{
			SummaryPath: filepath.Join(dataDir, "summary.json"),
			DigestPath:  filepath.Join(dataDir, "digest.md"),
			Version:     version,
		}
		// CI integration seam: the runner itself never touches the
		// environment.
		if os.Getenv("GITHUB_ACTIONS") != "" {
			opts.ActionsOutputPath = os.Getenv("GITHUB_OUTPUT")
		}

		summary := runner.New(store, adapters, enricher, opts).Run(cmd.Context())

		fmt.Println("\nRun complete:")
		for _, src := range summary.Sources {
			if src.Success {
				fmt.Printf("  %s: %d new / %d total\n", src.Source, src.NewCount, src.TotalCount)
			} else {
				fmt.Printf("  %s: FAILED (%s)\n", src.Source, src.Error)
			}
		}
		fmt.Printf("Total new updates: %d\n", summary.TotalNewUpdates)

		if withDashboard {
			out := filepath.Join(dataDir, "dashboard.html")
			if err := dashboard.Generate(store, opts.DigestPath, out); err != nil {
				return err
			}
			fmt.Printf("Dashboard generated: %s\n", out)
		}

		if failed := summary.FailedSources(); failed > 0 {
			return fmt.Errorf("%d source(s) failed", failed)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&withDashboard, "dashboard", false, "Regenerate the dashboard after the run")
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Generate the static HTML dashboard from persisted state",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		dataDir := cfg.GetDataDir()
		out := filepath.Join(dataDir, "dashboard.html")
		if err := dashboard.Generate(store, filepath.Join(dataDir, "digest.md"), out); err != nil {
			return err
		}
		fmt.Printf("Dashboard generated: %s\n", out)
		return nil
	},
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard locally",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(store, filepath.Join(cfg.GetDataDir(), "digest.md"), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openStore() (state.Store, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	if cfg.Output.Storage == "sqlite" {
		return state.OpenSQLite(filepath.Join(dataDir, "regwatch.db"))
	}
	return state.NewFileStore(dataDir), nil
}

func buildAdapters(cfg *config.Config) []source.Adapter {
	timeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	var adapters []source.Adapter

	for _, p := range cfg.Sources.Pages {
		if p.Disabled {
			continue
		}
		adapters = append(adapters, source.NewPageAdapter(source.PageConfig{
			Name:      p.Name,
			URL:       p.URL,
			Selectors: p.Selectors,
			MaxItems:  p.MaxItems,
			Timeout:   timeout,
		}))
	}

	for _, f := range cfg.Sources.Feeds {
		if f.Disabled {
			continue
		}
		adapters = append(adapters, source.NewFeedAdapter(source.FeedConfig{
			Name:     f.Name,
			URL:      f.URL,
			MaxItems: f.MaxItems,
			Timeout:  timeout,
		}))
	}

	fr := cfg.Sources.FederalRegister
	if fr.Enabled {
		adapters = append(adapters, source.NewFedRegAdapter(source.FedRegConfig{
			Agencies:     fr.Agencies,
			LookbackDays: fr.LookbackDays,
			PerPage:      fr.PerPage,
			Timeout:      timeout,
		}))
	}

	return adapters
}
