package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/afitree-ship-it/deentracker/internal/dashboard"
	"github.com/afitree-ship-it/deentracker/internal/scheduler"
	"github.com/afitree-ship-it/deentracker/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background sync loop",
	Long: `Run the sync loop in the foreground: pull the group snapshot on an
interval, push queued edits, and watch the data directory so identity changes
from other deen processes take effect live.

With --dashboard, also serve a real-time WebSocket dashboard:
  ws://localhost:8422/ws        toggle / status / merge events
  http://localhost:8422/api/progress
  http://localhost:8422/health

Logs rotate through <data-dir>/daemon.log.

Example:
  deen daemon --dashboard`,
	Run: func(cmd *cobra.Command, args []string) {
		withDashboard, _ := cmd.Flags().GetBool("dashboard")

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		logOut := io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filepath.Join(a.cfg.DataDir, "daemon.log"),
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
		})
		logger := log.New(logOut, "[deen] ", log.LstdFlags)

		sched, err := scheduler.NewWithConfig(a.engine, a.remote, &scheduler.Config{
			PullInterval:     a.cfg.PullInterval,
			MinRetryInterval: a.cfg.MinRetryInterval,
			Logger:           logger,
		})
		if err != nil {
			fatalf("%v", err)
		}

		watcher, err := scheduler.NewWatcher(a.cfg.DataDir, a.engine, sched, logger)
		if err != nil {
			fatalf("%v", err)
		}
		watcher.Start()
		defer watcher.Stop()

		if withDashboard {
			srv, err := dashboard.NewServer(a.engine, a.roster, &dashboard.Config{
				Addr:   a.cfg.DashboardAddr,
				Logger: logger,
			})
			if err != nil {
				fatalf("%v", err)
			}
			dashboard.NewHandler(srv, a.engine, logger)

			if err := srv.Start(); err != nil {
				fatalf("failed to start dashboard: %v", err)
			}
			defer func() {
				if err := srv.Stop(); err != nil {
					logger.Printf("Dashboard shutdown: %v", err)
				}
			}()
			fmt.Printf("%s Dashboard on http://%s\n", ui.RenderAccent("📊"), srv.Addr())
		}

		fmt.Printf("%s Sync loop running (pull every %s), Ctrl+C to stop\n",
			ui.RenderAccent("🔄"), a.cfg.PullInterval)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := sched.Start(ctx); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	daemonCmd.Flags().Bool("dashboard", false, "serve the WebSocket dashboard")
	rootCmd.AddCommand(daemonCmd)
}
