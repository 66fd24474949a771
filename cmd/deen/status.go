package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afitree-ship-it/deentracker/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the group's checklist for a day",
	Long: `Show every member's progress for a day, plus your own checklist in
detail and the sync state.

Examples:
  deen status
  deen status --date yesterday`,
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

		snap := a.engine.Snapshot()
		total := len(a.roster.Tasks)
		active := a.engine.ActiveMember()

		fmt.Printf("%s %s\n\n", ui.RenderAccent("📋"), date)

		for _, m := range a.roster.Members {
			done := snap.CountForMember(date, m.ID)
			line := fmt.Sprintf("%s %-12s %2d/%d", m.Avatar, m.Name, done, total)
			if m.ID == active {
				line += "  " + ui.RenderAccent("(you)")
			}
			fmt.Println(line)
		}

		// The active member's own checklist, task by task.
		if active != "" {
			fmt.Println()
			for _, task := range a.roster.Tasks {
				marker := ui.RenderDim("○")
				if v, _ := snap.Get(date, active, task.ID); v {
					marker = ui.RenderPass("✓")
				}
				fmt.Printf("  %s %-10s %s\n", marker, task.ID, task.Label)
			}
		}

		fmt.Println()
		fmt.Printf("sync: %s", string(a.engine.Status()))
		if pending := a.engine.PendingCount(); pending > 0 {
			fmt.Printf(", %s", ui.RenderWarn(fmt.Sprintf("%d edits queued", pending)))
		}
		if !a.remote.Configured() {
			fmt.Printf(" %s", ui.RenderDim("(no sheet URL configured)"))
		}
		fmt.Println()
	},
}

func init() {
	statusCmd.Flags().StringP("date", "d", "", "date (YYYY-MM-DD or natural language, default today)")
	rootCmd.AddCommand(statusCmd)
}
