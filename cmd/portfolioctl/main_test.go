package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// TestMigrate verifies the migrate command creates the schema in a fresh
// database and reports the applied version.
func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ctl.db")

	out, err := run(t, "migrate", "--db", dbPath)
	if err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	var got struct {
		SchemaVersion int64 `json:"schemaVersion"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, out)
	}
	if got.SchemaVersion < 1 {
		t.Errorf("expected a positive schema version, got %d", got.SchemaVersion)
	}
}

// TestValuate_RequiresRegime verifies flag validation runs before any
// database is opened.
func TestValuate_RequiresRegime(t *testing.T) {
	_, err := run(t, "valuate", "--entry-price", "1000")
	if err == nil {
		t.Fatal("expected an error without --regime")
	}
	if !strings.Contains(err.Error(), "--regime") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestHistory_RequiresPortfolio(t *testing.T) {
	if _, err := run(t, "history"); err == nil {
		t.Error("expected an argument error")
	}
}
