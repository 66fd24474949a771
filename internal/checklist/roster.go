package checklist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Roster is the fixed set of members and recurring tasks the group tracks.
type Roster struct {
	Members []Member `yaml:"members"`
	Tasks   []Task   `yaml:"tasks"`
}

// minimalAvatar is the shared placeholder icon for every member.
const minimalAvatar = "👤"

// DefaultRoster returns the built-in group roster: eight members and the ten
// daily items (five prayers, devotions, and good deeds).
func DefaultRoster() *Roster {
	return &Roster{
		Members: []Member{
			{ID: "m1", Name: "อฟิตรี", Avatar: minimalAvatar},
			{ID: "m2", Name: "อนันต์", Avatar: minimalAvatar},
			{ID: "m3", Name: "กูรีดวน", Avatar: minimalAvatar},
			{ID: "m4", Name: "นูรดิน", Avatar: minimalAvatar},
			{ID: "m5", Name: "อะฟิฟ", Avatar: minimalAvatar},
			{ID: "m6", Name: "อิสมาอีล", Avatar: minimalAvatar},
			{ID: "m7", Name: "อับดุลฮากีม", Avatar: minimalAvatar},
			{ID: "m8", Name: "ซอลาฮุดดีน", Avatar: minimalAvatar},
		},
		Tasks: []Task{
			{ID: "t1", Label: "ซุบฮิ", Category: CategoryPrayer},
			{ID: "t2", Label: "ซุฮฺรี", Category: CategoryPrayer},
			{ID: "t3", Label: "อัสรี", Category: CategoryPrayer},
			{ID: "t4", Label: "มัฆริบ", Category: CategoryPrayer},
			{ID: "t5", Label: "อีชา", Category: CategoryPrayer},
			{ID: "t6", Label: "อัลกุรอาน", Category: CategoryDevotion},
			{ID: "t7", Label: "อัซการ เช้า-เย็น", Category: CategoryDevotion},
			{ID: "t8", Label: "ละมาดสุนัต/ตะฮัจญุด", Category: CategoryPrayer},
			{ID: "t9", Label: "อิสติฆฟัร 100 ครั้ง", Category: CategoryDevotion},
			{ID: "t10", Label: "ความดีอื่นๆ/บริจาค", Category: CategoryAction},
		},
	}
}

// LoadRoster reads a roster from a YAML file.
//
// A missing file is not an error: the built-in default roster is returned so a
// fresh install works without any setup.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRoster(), nil
		}
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}

	if err := roster.Validate(); err != nil {
		return nil, fmt.Errorf("invalid roster in %s: %w", path, err)
	}

	return &roster, nil
}

// Validate checks every member and task and rejects duplicate IDs.
func (r *Roster) Validate() error {
	if len(r.Members) == 0 {
		return fmt.Errorf("roster has no members")
	}
	if len(r.Tasks) == 0 {
		return fmt.Errorf("roster has no tasks")
	}

	seenMembers := make(map[string]bool, len(r.Members))
	for i := range r.Members {
		if err := r.Members[i].Validate(); err != nil {
			return err
		}
		if seenMembers[r.Members[i].ID] {
			return fmt.Errorf("duplicate member id %s", r.Members[i].ID)
		}
		seenMembers[r.Members[i].ID] = true
	}

	seenTasks := make(map[string]bool, len(r.Tasks))
	for i := range r.Tasks {
		if err := r.Tasks[i].Validate(); err != nil {
			return err
		}
		if seenTasks[r.Tasks[i].ID] {
			return fmt.Errorf("duplicate task id %s", r.Tasks[i].ID)
		}
		seenTasks[r.Tasks[i].ID] = true
	}

	return nil
}

// Member returns the member with the given ID, or nil if not in the roster.
func (r *Roster) Member(id string) *Member {
	for i := range r.Members {
		if r.Members[i].ID == id {
			return &r.Members[i]
		}
	}
	return nil
}

// Task returns the task with the given ID, or nil if not in the roster.
func (r *Roster) Task(id string) *Task {
	for i := range r.Tasks {
		if r.Tasks[i].ID == id {
			return &r.Tasks[i]
		}
	}
	return nil
}
