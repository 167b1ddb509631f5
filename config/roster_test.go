package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lotworks/dunner/errors"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(content), DefaultFilePermissions); err != nil {
		t.Fatalf("writing roster fixture: %v", err)
	}
	return path
}

func TestLoadRoster(t *testing.T) {
	path := writeRoster(t, `
- name: Dana Smith
  user_id: user_dana
- name: Lee Park
  user_id: user_lee
`)
	reps, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if len(reps) != 2 {
		t.Fatalf("got %d reps, want 2", len(reps))
	}
	if reps[0].Name != "Dana Smith" || reps[0].UserID != "user_dana" {
		t.Errorf("first rep = %+v", reps[0])
	}
	if reps[1].UserID != "user_lee" {
		t.Errorf("second rep = %+v", reps[1])
	}
}

func TestLoadRoster_MissingFileIsFatal(t *testing.T) {
	_, err := LoadRoster(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.IsFatalConfig(err) {
		t.Fatalf("missing roster should be fatal config, got %v", err)
	}
}

func TestLoadRoster_IncompleteEntryIsFatal(t *testing.T) {
	path := writeRoster(t, `
- name: Dana Smith
  user_id: user_dana
- name: No ID Here
`)
	_, err := LoadRoster(path)
	if !errors.IsFatalConfig(err) {
		t.Fatalf("entry without user_id should be fatal config, got %v", err)
	}
}

func TestLoadRoster_EmptyListIsFatal(t *testing.T) {
	path := writeRoster(t, "[]\n")
	_, err := LoadRoster(path)
	if !errors.IsFatalConfig(err) {
		t.Fatalf("empty roster should be fatal config, got %v", err)
	}
}
