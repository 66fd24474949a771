// deen is a daily checklist tracker for a small group, synced through a
// shared spreadsheet.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
	"github.com/afitree-ship-it/deentracker/internal/config"
	"github.com/afitree-ship-it/deentracker/internal/core"
	"github.com/afitree-ship-it/deentracker/internal/identity"
	"github.com/afitree-ship-it/deentracker/internal/sheet"
	"github.com/afitree-ship-it/deentracker/internal/store"
)

var (
	flagConfig   string
	flagDataDir  string
	flagSheetURL string
)

var rootCmd = &cobra.Command{
	Use:   "deen",
	Short: "Group daily checklist tracker",
	Long: `deen tracks a small group's daily checklist (prayers, devotions, good
deeds) and keeps everyone's view in sync through a shared spreadsheet.

Toggles apply instantly and are queued durably; a background daemon (or any
one-shot command) delivers them and pulls the latest group snapshot. Fresh
local toggles are never visibly reverted by stale remote data.`,
	SilenceUsage: true,
}

func main() {
	// Best-effort: the Anthropic key for `deen reflect` usually lives here.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default <data-dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.deentracker)")
	rootCmd.PersistentFlags().StringVar(&flagSheetURL, "sheet-url", "", "spreadsheet web app URL (overrides config)")
}

// loadConfig resolves configuration with flag overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagSheetURL != "" {
		cfg.SheetURL = flagSheetURL
	}
	return cfg, nil
}

// app bundles everything a command needs.
type app struct {
	cfg    *config.Config
	roster *checklist.Roster
	store  *store.Store
	engine *core.Core
	remote *sheet.Client
}

// openApp loads config, roster, cache, and identity, and builds the engine.
// The caller must call close().
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	roster, err := checklist.LoadRoster(cfg.RosterPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	st, err := store.Open(cfg.CachePath())
	if err != nil {
		return nil, err
	}
	if err := st.InitSchema(); err != nil {
		_ = st.Close()
		return nil, err
	}

	completion, pending, err := st.LoadState()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	member := cfg.Member
	if member == "" {
		member, err = identity.Load(identity.Path(cfg.DataDir))
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	engine := core.New(completion, pending, core.Options{
		Store:         st,
		GraceDuration: cfg.GraceDuration,
		ActiveMember:  member,
		Logger:        log.New(os.Stderr, "[sync] ", log.LstdFlags),
	})

	return &app{
		cfg:    cfg,
		roster: roster,
		store:  st,
		engine: engine,
		remote: sheet.New(cfg.SheetURL),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// parseDate accepts YYYY-MM-DD or natural language ("yesterday",
// "last friday"). Empty means today.
func parseDate(s string) (string, error) {
	if s == "" {
		return checklist.Today(), nil
	}
	if checklist.ValidDate(s) {
		return s, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, time.Now())
	if err != nil || r == nil {
		return "", fmt.Errorf("could not understand date %q", s)
	}
	return r.Time.Format(checklist.DateLayout), nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
