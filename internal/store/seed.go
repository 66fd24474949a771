package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
)

// SeedOptions configures synthetic data generation.
type SeedOptions struct {
	// Days is how many calendar days to populate, ending yesterday.
	Days int

	// CompletionRate is the probability that any given cell is marked done
	// (typical: 0.7 for a motivated group).
	CompletionRate float64

	// Rand is the randomness source. Nil means a time-seeded source.
	Rand *rand.Rand
}

// Seed populates the completion mirror with synthetic history for the given
// roster. Useful for demoing the dashboard and reports against realistic data.
//
// Existing cells for the generated dates are overwritten.
func (s *Store) Seed(ctx context.Context, roster *checklist.Roster, opts SeedOptions) (int, error) {
	if opts.Days <= 0 {
		return 0, fmt.Errorf("days must be positive (got %d)", opts.Days)
	}
	if opts.CompletionRate < 0 || opts.CompletionRate > 1 {
		return 0, fmt.Errorf("completion rate must be in [0, 1] (got %g)", opts.CompletionRate)
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	written := 0
	for d := opts.Days; d >= 1; d-- {
		date := time.Now().AddDate(0, 0, -d).Format(checklist.DateLayout)
		for _, member := range roster.Members {
			for _, task := range roster.Tasks {
				done := rng.Float64() < opts.CompletionRate
				if err := s.SaveCellContext(ctx, date, member.ID, task.ID, done); err != nil {
					return written, err
				}
				written++
			}
		}
	}

	return written, nil
}
