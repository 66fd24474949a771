package identity

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
)

// Select presents an interactive member picker and returns the chosen ID.
// current preselects the cursor when it matches a roster member.
func Select(roster *checklist.Roster, current string) (string, error) {
	if len(roster.Members) == 0 {
		return "", fmt.Errorf("roster has no members")
	}

	options := make([]huh.Option[string], 0, len(roster.Members))
	for _, m := range roster.Members {
		options = append(options, huh.NewOption(m.Avatar+" "+m.Name, m.ID))
	}

	chosen := current
	if roster.Member(chosen) == nil {
		chosen = roster.Members[0].ID
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Who are you?").
				Description("Toggles apply to this member's checklist.").
				Options(options...).
				Value(&chosen),
		),
	)

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("member selection aborted: %w", err)
	}
	return chosen, nil
}
