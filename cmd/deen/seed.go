package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afitree-ship-it/deentracker/internal/store"
	"github.com/afitree-ship-it/deentracker/internal/ui"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the cache with synthetic history",
	Long: `Fill the local cache with random completion history for every roster
member. Handy for trying out reports and the dashboard before the group has
real data.

Example:
  deen seed --days 30 --rate 0.7`,
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		rate, _ := cmd.Flags().GetFloat64("rate")

		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		written, err := a.store.Seed(context.Background(), a.roster, store.SeedOptions{
			Days:           days,
			CompletionRate: rate,
		})
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s Seeded %d cells over %d days\n", ui.RenderPass("✓"), written, days)
	},
}

func init() {
	seedCmd.Flags().Int("days", 14, "days of history to generate")
	seedCmd.Flags().Float64("rate", 0.7, "probability each item is done")
	rootCmd.AddCommand(seedCmd)
}
