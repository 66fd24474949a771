package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/afitree-ship-it/deentracker/internal/reflection"
	"github.com/afitree-ship-it/deentracker/internal/ui"
)

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Print today's motivational reflection",
	Long: `Generate a short reflection (a quote with its source plus an
encouragement) based on the group's progress today.

Needs ANTHROPIC_API_KEY in the environment or a .env file; without it a
built-in reflection is shown instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		// Summarize today for the prompt: "3/8 members fully done, 41 of 80 items".
		date, _ := parseDate("")
		snap := a.engine.Snapshot()
		total := len(a.roster.Tasks)
		full, items := 0, 0
		for _, m := range a.roster.Members {
			done := snap.CountForMember(date, m.ID)
			items += done
			if total > 0 && done == total {
				full++
			}
		}
		summary := fmt.Sprintf("%d/%d members fully done, %d of %d items checked",
			full, len(a.roster.Members), items, len(a.roster.Members)*total)

		r := reflection.New().Daily(context.Background(), summary)

		fmt.Println(ui.RenderAccent("🌙 " + r.Quote))
		if r.Reference != "" {
			fmt.Println(ui.RenderDim("   — " + r.Reference))
		}
		if r.Message != "" {
			fmt.Println()
			fmt.Println(strings.TrimSpace(r.Message))
		}
	},
}

func init() {
	rootCmd.AddCommand(reflectCmd)
}
