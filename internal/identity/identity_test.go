package identity

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := Path(t.TempDir())

	if err := Save(path, "m3"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	id, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if id != "m3" {
		t.Errorf("Load = %q, want m3", id)
	}

	// No stray temp file after the rename.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after Save")
	}
}

func TestLoadMissing(t *testing.T) {
	id, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if id != "" {
		t.Errorf("missing file should yield empty identity, got %q", id)
	}
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	id, err := Load(path)
	if err != nil {
		t.Fatalf("Load on corrupt file: %v", err)
	}
	if id != "" {
		t.Errorf("corrupt file should yield empty identity, got %q", id)
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	if err := Save(Path(t.TempDir()), ""); err == nil {
		t.Error("empty member id should be rejected")
	}
}

func TestClear(t *testing.T) {
	path := Path(t.TempDir())
	if err := Save(path, "m1"); err != nil {
		t.Fatal(err)
	}

	if err := Clear(path); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if id, _ := Load(path); id != "" {
		t.Errorf("identity survived Clear: %q", id)
	}

	// Clearing twice is fine.
	if err := Clear(path); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}
