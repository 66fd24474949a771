// Package checklist provides the core data structures for the DeenTracker
// daily-checklist domain: the member/task roster, the nested completion map,
// and the edit records that feed the sync queue.
package checklist

import (
	"fmt"
	"regexp"
	"time"
)

// TaskCategory classifies a checklist task.
type TaskCategory string

const (
	// CategoryPrayer marks one of the daily prayers.
	CategoryPrayer TaskCategory = "prayer"

	// CategoryDevotion marks a devotional practice (recitation, dhikr).
	CategoryDevotion TaskCategory = "devotion"

	// CategoryAction marks a good deed or charitable action.
	CategoryAction TaskCategory = "action"
)

// Valid reports whether the category is one of the known values.
func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryPrayer, CategoryDevotion, CategoryAction:
		return true
	}
	return false
}

// Member is a participant in the shared checklist.
type Member struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Avatar string `yaml:"avatar,omitempty" json:"avatar,omitempty"`
}

// Validate checks that the member has the required fields.
func (m *Member) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("member id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("member %s: name is required", m.ID)
	}
	return nil
}

// Task is one recurring daily item on the checklist.
type Task struct {
	ID       string       `yaml:"id" json:"id"`
	Label    string       `yaml:"label" json:"label"`
	Category TaskCategory `yaml:"category" json:"category"`
}

// Validate checks that the task has the required fields and a known category.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if t.Label == "" {
		return fmt.Errorf("task %s: label is required", t.ID)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("task %s: unknown category %q", t.ID, t.Category)
	}
	return nil
}

// DateLayout is the calendar-day format used as the completion map key.
// Dates are timezone-naive: "the day as the household experiences it".
const DateLayout = "2006-01-02"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar day.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Today returns the current calendar day in DateLayout.
func Today() string {
	return time.Now().Format(DateLayout)
}
