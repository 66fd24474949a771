package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afitree-ship-it/deentracker/internal/identity"
	"github.com/afitree-ship-it/deentracker/internal/ui"
)

var memberCmd = &cobra.Command{
	Use:   "member [member-id]",
	Short: "Choose whose checklist you toggle",
	Long: `Select the active member. With no argument an interactive picker opens;
with an ID the choice is set directly.

The selection is shared between the CLI and a running daemon.

Examples:
  deen member
  deen member m3`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp()
		if err != nil {
			fatalf("%v", err)
		}
		defer a.close()

		chosen := ""
		if len(args) == 1 {
			chosen = args[0]
			if a.roster.Member(chosen) == nil {
				fatalf("unknown member %q", chosen)
			}
		} else {
			chosen, err = identity.Select(a.roster, a.engine.ActiveMember())
			if err != nil {
				fatalf("%v", err)
			}
		}

		if err := identity.Save(identity.Path(a.cfg.DataDir), chosen); err != nil {
			fatalf("%v", err)
		}

		m := a.roster.Member(chosen)
		fmt.Printf("%s Now tracking %s %s\n", ui.RenderPass("✓"), m.Avatar, m.Name)
	},
}

func init() {
	rootCmd.AddCommand(memberCmd)
}
