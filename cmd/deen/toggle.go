package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afitree-ship-it/deentracker/internal/core"
	"github.com/afitree-ship-it/deentracker/internal/scheduler"
	"github.com/afitree-ship-it/deentracker/internal/ui"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <task-id>",
	Short: "Flip one of your checklist items",
	Long: `Flip a checklist item for the active member.

The change applies immediately and is queued for delivery. If a sheet URL is
configured the queue is pushed right away; otherwise it waits for the next
sync. Run 'deen status' to see task IDs.

Examples:
  deen toggle fajr
  deen toggle quran --date yesterday`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dateFlag, _ := cmd.Flags().GetString("date")
		date, err := parseDate(dateFlag)
		if err != nil {
			fatalf("%v", err)
		}

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		taskID := args[0]
		if a.roster.Task(taskID) == nil {
			fatalf("unknown task %q (see 'deen status' for the list)", taskID)
		}

		value, err := a.engine.Toggle(date, a.engine.ActiveMember(), taskID)
		if err != nil {
			if errors.Is(err, core.ErrNoIdentity) {
				fatalf("no member selected yet, run 'deen member' first")
			}
			fatalf("%v", err)
		}

		task := a.roster.Task(taskID)
		marker := ui.RenderPass("✓ done")
		if !value {
			marker = ui.RenderDim("○ not done")
		}
		fmt.Printf("%s  %s (%s)\n", marker, task.Label, date)

		// One-shot delivery; failures just leave the edit queued.
		s, err := scheduler.New(a.engine, a.remote)
		if err != nil {
			fatalf("%v", err)
		}
		switch s.SyncOnce() {
		case core.StatusSuccess:
			fmt.Println(ui.RenderDim("synced"))
		case core.StatusOffline:
			fmt.Println(ui.RenderDim("offline, queued for later"))
		default:
			fmt.Printf("%s %s\n", ui.RenderWarn("⚠"), "sync failed, queued for retry: "+a.engine.LastError())
		}
	},
}

func init() {
	toggleCmd.Flags().StringP("date", "d", "", "date (YYYY-MM-DD or natural language, default today)")
	rootCmd.AddCommand(toggleCmd)
}
