package checklist

import "sort"

// CompletionMap is the nested completion state: date -> member -> task -> done.
//
// Absence of a key means "not recorded" and reads as false, but it is distinct
// from an explicit false when merging: a remote snapshot that simply lacks a
// cell must not erase a recorded local value, while a remote snapshot that
// carries an explicit value for a cell is authoritative for it.
type CompletionMap map[string]map[string]map[string]bool

// Get returns the recorded value for a cell and whether it was recorded at all.
func (m CompletionMap) Get(date, memberID, taskID string) (value, recorded bool) {
	day, ok := m[date]
	if !ok {
		return false, false
	}
	member, ok := day[memberID]
	if !ok {
		return false, false
	}
	v, ok := member[taskID]
	return v, ok
}

// Set records an explicit value for a cell, creating nested maps as needed.
func (m CompletionMap) Set(date, memberID, taskID string, value bool) {
	day, ok := m[date]
	if !ok {
		day = make(map[string]map[string]bool)
		m[date] = day
	}
	member, ok := day[memberID]
	if !ok {
		member = make(map[string]bool)
		day[memberID] = member
	}
	member[taskID] = value
}

// Clone returns a deep copy. Mutating the copy never affects the original.
func (m CompletionMap) Clone() CompletionMap {
	out := make(CompletionMap, len(m))
	for date, day := range m {
		outDay := make(map[string]map[string]bool, len(day))
		for memberID, member := range day {
			outMember := make(map[string]bool, len(member))
			for taskID, v := range member {
				outMember[taskID] = v
			}
			outDay[memberID] = outMember
		}
		out[date] = outDay
	}
	return out
}

// Equal reports whether two maps record exactly the same cells and values.
func (m CompletionMap) Equal(other CompletionMap) bool {
	if len(m) != len(other) {
		return false
	}
	for date, day := range m {
		otherDay, ok := other[date]
		if !ok || len(day) != len(otherDay) {
			return false
		}
		for memberID, member := range day {
			otherMember, ok := otherDay[memberID]
			if !ok || len(member) != len(otherMember) {
				return false
			}
			for taskID, v := range member {
				ov, ok := otherMember[taskID]
				if !ok || v != ov {
					return false
				}
			}
		}
	}
	return true
}

// CountForMember returns how many tasks the member has completed on the date.
func (m CompletionMap) CountForMember(date, memberID string) int {
	count := 0
	for _, done := range m[date][memberID] {
		if done {
			count++
		}
	}
	return count
}

// CountForDate returns the total completed cells across all members on the date.
func (m CompletionMap) CountForDate(date string) int {
	count := 0
	for memberID := range m[date] {
		count += m.CountForMember(date, memberID)
	}
	return count
}

// Dates returns all recorded dates in ascending order.
func (m CompletionMap) Dates() []string {
	dates := make([]string, 0, len(m))
	for date := range m {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
