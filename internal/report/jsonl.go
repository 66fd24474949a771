package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/afitree-ship-it/deentracker/internal/checklist"
)

// cellRecord is one line of a JSONL history export.
type cellRecord struct {
	Date     string `json:"date"`
	MemberID string `json:"member_id"`
	TaskID   string `json:"task_id"`
	Value    bool   `json:"value"`
}

// Export writes the completion map as JSONL, one cell per line, sorted so
// exports diff cleanly.
func Export(w io.Writer, snap checklist.CompletionMap) error {
	enc := json.NewEncoder(w)
	for _, date := range snap.Dates() {
		day := snap[date]
		for _, memberID := range sortedKeys(day) {
			member := day[memberID]
			for _, taskID := range sortedKeys(member) {
				rec := cellRecord{Date: date, MemberID: memberID, TaskID: taskID, Value: member[taskID]}
				if err := enc.Encode(rec); err != nil {
					return fmt.Errorf("failed to write export record: %w", err)
				}
			}
		}
	}
	return nil
}

// ExportFile writes a JSONL export to path.
func ExportFile(path string, snap checklist.CompletionMap) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := Export(f, snap); err != nil {
		return err
	}
	return f.Close()
}

// Import reads a JSONL history export back into a completion map.
func Import(r io.Reader) (checklist.CompletionMap, error) {
	m := make(checklist.CompletionMap)
	dec := json.NewDecoder(r)
	line := 0

	for {
		var rec cellRecord
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("invalid JSON at line %d: %w", line+1, err)
		}
		line++

		if !checklist.ValidDate(rec.Date) {
			return nil, fmt.Errorf("invalid date %q at line %d", rec.Date, line)
		}
		if rec.MemberID == "" || rec.TaskID == "" {
			return nil, fmt.Errorf("missing member or task id at line %d", line)
		}

		m.Set(rec.Date, rec.MemberID, rec.TaskID, rec.Value)
	}

	return m, nil
}

// ImportFile reads a JSONL export from path.
func ImportFile(path string) (checklist.CompletionMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return Import(f)
}

// ImportLegacy reads the browser app's localStorage dump: a single JSON
// object holding the whole nested completion map.
func ImportLegacy(data []byte) (checklist.CompletionMap, error) {
	var m checklist.CompletionMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid legacy export: %w", err)
	}

	for date := range m {
		if !checklist.ValidDate(date) {
			return nil, fmt.Errorf("invalid date %q in legacy export", date)
		}
	}
	if m == nil {
		m = make(checklist.CompletionMap)
	}
	return m, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
