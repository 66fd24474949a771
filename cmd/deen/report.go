package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
	"github.com/afitree-ship-it/deentracker/internal/report"
	"github.com/afitree-ship-it/deentracker/internal/ui"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a shareable progress report",
	Long: `Print the group's progress as plain text, ready to paste into the
group chat.

Examples:
  deen report                    # today
  deen report --date yesterday
  deen report --month 2026-08    # monthly ranking`,
	Run: func(cmd *cobra.Command, args []string) {
		month, _ := cmd.Flags().GetString("month")
		dateFlag, _ := cmd.Flags().GetString("date")

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		snap := a.engine.Snapshot()

		if month != "" {
			stats, err := report.Monthly(snap, a.roster, month)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Print(report.RenderMonthly(stats, month))
			return
		}

		date, err := parseDate(dateFlag)
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Print(report.Daily(snap, a.roster, date))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the completion history as JSONL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		snap := a.engine.Snapshot()
		if err := report.ExportFile(args[0], snap); err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s Exported %d days to %s\n", ui.RenderPass("✓"), len(snap.Dates()), args[0])
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import completion history",
	Long: `Import history into the local cache. The default format is the JSONL
produced by 'deen export'; --legacy reads the browser app's JSON dump.

Imported cells overwrite local ones; they are not queued for delivery.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		legacy, _ := cmd.Flags().GetBool("legacy")

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		imported := a.engine.Snapshot()
		var incoming checklist.CompletionMap

		if legacy {
			data, err := os.ReadFile(args[0])
			if err != nil {
				fatalf("%v", err)
			}
			incoming, err = report.ImportLegacy(data)
			if err != nil {
				fatalf("%v", err)
			}
		} else {
			incoming, err = report.ImportFile(args[0])
			if err != nil {
				fatalf("%v", err)
			}
		}

		// Overlay the import on the current view, then persist the result.
		count := 0
		for date, day := range incoming {
			for memberID, member := range day {
				for taskID, value := range member {
					imported.Set(date, memberID, taskID, value)
					count++
				}
			}
		}
		if err := a.store.ReplaceCompletion(imported); err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s Imported %d cells from %s\n", ui.RenderPass("✓"), count, args[0])
	},
}

func init() {
	reportCmd.Flags().StringP("date", "d", "", "date (YYYY-MM-DD or natural language, default today)")
	reportCmd.Flags().StringP("month", "m", "", "month (YYYY-MM) for a monthly ranking")
	importCmd.Flags().Bool("legacy", false, "read the browser app's JSON export")
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
