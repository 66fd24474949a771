package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afitree-ship-it/deentracker/internal/core"
	"github.com/afitree-ship-it/deentracker/internal/scheduler"
	"github.com/afitree-ship-it/deentracker/internal/ui"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Sync with the sheet now",
	Long: `Push any queued edits and pull the latest group snapshot.

Useful when no daemon is running or you want to refresh before 'deen status'.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		pending := a.engine.PendingCount()

		s, err := scheduler.New(a.engine, a.remote)
		if err != nil {
			fatalf("%v", err)
		}

		switch s.SyncOnce() {
		case core.StatusSuccess:
			if pending > 0 {
				fmt.Printf("%s Delivered %d queued edits\n", ui.RenderPass("✓"), pending-a.engine.PendingCount())
			}
			fmt.Printf("%s Up to date\n", ui.RenderPass("✓"))
		case core.StatusOffline:
			fatalf("no sheet URL configured (set sheet_url or --sheet-url)")
		default:
			fatalf("sync failed: %s", a.engine.LastError())
		}
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
