package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/valpere/gradefactory/internal/store"
)

func useHistoryDB(t *testing.T, path string) {
	t.Helper()
	prev := historyDBPath
	historyDBPath = path
	t.Cleanup(func() { historyDBPath = prev })
}

func TestHistoryCommands_MissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "gradefactory.db")
	useHistoryDB(t, path)

	for _, c := range []struct {
		name    string
		run     func() error
		wantErr bool
	}{
		{"list", func() error { return historyListCmd.RunE(historyListCmd, nil) }, false},
		{"stats", func() error { return historyStatsCmd.RunE(historyStatsCmd, nil) }, false},
		{"clear", func() error { return historyClearCmd.RunE(historyClearCmd, nil) }, false},
		{"show", func() error { return historyShowCmd.RunE(historyShowCmd, []string{"run-1"}) }, true},
		{"delete", func() error { return historyDeleteCmd.RunE(historyDeleteCmd, []string{"run-1"}) }, true},
	} {
		t.Run(c.name, func(t *testing.T) {
			err := c.run()
			if c.wantErr && !errors.Is(err, errNoHistory) {
				t.Errorf("expected errNoHistory, got %v", err)
			}
			if !c.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
				t.Errorf("expected no database file to be created, stat returned %v", statErr)
			}
		})
	}
}

func TestOpenExistingHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := store.New(path)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = openExistingHistory(path)
	if err != nil {
		t.Fatalf("expected existing database to open, got %v", err)
	}
	defer db.Close()

	useHistoryDB(t, path)
	if err := historyStatsCmd.RunE(historyStatsCmd, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
