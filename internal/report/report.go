// Package report renders checklist progress as shareable text and handles
// history export/import.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
)

// Daily renders the group's standing for one date, one line per member.
// A member with every task done gets ✅, partial progress 🕒, nothing ⭕.
// This is the message people paste into the group chat.
func Daily(snap checklist.CompletionMap, roster *checklist.Roster, date string) string {
	total := len(roster.Tasks)

	var b strings.Builder
	fmt.Fprintf(&b, "📋 %s\n", date)

	for _, m := range roster.Members {
		done := snap.CountForMember(date, m.ID)

		marker := "⭕"
		switch {
		case total > 0 && done == total:
			marker = "✅"
		case done > 0:
			marker = "🕒"
		}

		fmt.Fprintf(&b, "%s %s %s %d/%d\n", marker, m.Avatar, m.Name, done, total)
	}

	return b.String()
}

// MemberMonth is one member's standing over a month.
type MemberMonth struct {
	MemberID string
	Name     string
	Done     int // cells completed
	Possible int // days in month x tasks
	FullDays int // days with every task done
}

// Percent returns completion as a whole percentage.
func (m MemberMonth) Percent() int {
	if m.Possible == 0 {
		return 0
	}
	return m.Done * 100 / m.Possible
}

// Monthly computes per-member statistics for a month given as "2006-01".
// Results are sorted by completion, best first.
func Monthly(snap checklist.CompletionMap, roster *checklist.Roster, month string) ([]MemberMonth, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, fmt.Errorf("invalid month %q (want YYYY-MM): %w", month, err)
	}

	days := start.AddDate(0, 1, -1).Day()
	total := len(roster.Tasks)

	stats := make([]MemberMonth, 0, len(roster.Members))
	for _, m := range roster.Members {
		mm := MemberMonth{
			MemberID: m.ID,
			Name:     m.Name,
			Possible: days * total,
		}

		for d := 1; d <= days; d++ {
			date := fmt.Sprintf("%s-%02d", month, d)
			done := snap.CountForMember(date, m.ID)
			mm.Done += done
			if total > 0 && done == total {
				mm.FullDays++
			}
		}

		stats = append(stats, mm)
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Done > stats[j].Done
	})

	return stats, nil
}

// RenderMonthly formats monthly stats as a text table.
func RenderMonthly(stats []MemberMonth, month string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📆 %s\n", month)
	for i, mm := range stats {
		fmt.Fprintf(&b, "%d. %s — %d%% (%d full days)\n", i+1, mm.Name, mm.Percent(), mm.FullDays)
	}
	return b.String()
}
