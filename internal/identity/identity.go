// Package identity manages the active member selection.
//
// The choice lives in a small JSON file in the data directory so the CLI,
// the daemon, and the dashboard agree on whose row toggles apply to. Writes
// go through a temp file and rename; a corrupt or missing file simply means
// no identity has been chosen yet.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the identity file's name inside the data directory.
const FileName = "member.json"

// Identity is the persisted selection.
type Identity struct {
	MemberID string    `json:"member_id"`
	ChosenAt time.Time `json:"chosen_at"`
}

// Path returns the identity file location for a data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads the active member ID. Missing and corrupt files both return
// the empty string with no error.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read identity file: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		// Corrupt file: treat as unselected rather than failing startup.
		return "", nil
	}
	return id.MemberID, nil
}

// Save writes the active member ID atomically.
func Save(path, memberID string) error {
	if memberID == "" {
		return fmt.Errorf("member id cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(Identity{
		MemberID: memberID,
		ChosenAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace identity file: %w", err)
	}
	return nil
}

// Clear removes the identity file. Removing a missing file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove identity file: %w", err)
	}
	return nil
}
