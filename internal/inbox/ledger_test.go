package inbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEntry_NeedsProcessing(t *testing.T) {
	tests := []struct {
		name  string
		entry *Entry
		hash  string
		want  bool
	}{
		{"unknown document", nil, "abc", true},
		{"filled, same content", &Entry{Hash: "abc", Status: EntryFilled}, "abc", false},
		{"filled, new content", &Entry{Hash: "abc", Status: EntryFilled}, "def", true},
		{"failed, retries left", &Entry{Hash: "abc", Status: EntryFailed, RetryCount: 1}, "abc", true},
		{"failed, retries exhausted", &Entry{Hash: "abc", Status: EntryFailed, RetryCount: 3}, "abc", false},
		{"failed, new content", &Entry{Hash: "abc", Status: EntryFailed, RetryCount: 3}, "def", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.NeedsProcessing(tt.hash, 3); got != tt.want {
				t.Errorf("NeedsProcessing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLedger_Load_FileDoesNotExist(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "ledger.json"))
	if err := l.Load(); err != nil {
		t.Errorf("Load() should not error when file doesn't exist, got: %v", err)
	}
	if l.Count() != 0 {
		t.Errorf("Count() = %d, want 0", l.Count())
	}
}

func TestLedger_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.json")

	l := NewLedger(path)
	l.Put(Entry{Name: "anmeldung.pdf", Hash: "abc", Status: EntryFilled, Written: 12})
	l.Touch()
	if err := l.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}

	loaded := NewLedger(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	e := loaded.Get("anmeldung.pdf")
	if e == nil {
		t.Fatal("entry missing after reload")
	}
	if e.Hash != "abc" || e.Status != EntryFilled || e.Written != 12 {
		t.Errorf("reloaded entry = %+v", e)
	}
	if loaded.LastScan().IsZero() {
		t.Error("LastScan should survive a reload")
	}
}

func TestLedger_StatusOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	l := NewLedger(path)
	l.Put(Entry{Name: "a.pdf", Hash: "a", Status: EntryFilled})
	l.MarkFailed("b.pdf", "b", errors.New("boom"))
	if err := l.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"status": "filled"`, `"status": "failed"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("ledger file missing %s:\n%s", want, data)
		}
	}
}

func TestLedger_Load_WrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte(`{"version": 99, "entries": {}}`), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewLedger(path).Load(); err == nil {
		t.Error("Load() should reject an unknown version")
	}
}

func TestLedger_Load_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte(`{`), 0644); err != nil {
		t.Fatal(err)
	}

	if err := NewLedger(path).Load(); err == nil {
		t.Error("Load() should fail on invalid JSON")
	}
}

func TestLedger_MarkFailed(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "ledger.json"))

	l.MarkFailed("a.pdf", "h1", errors.New("boom"))
	e := l.Get("a.pdf")
	if e.Status != EntryFailed || e.RetryCount != 0 || e.Error != "boom" {
		t.Errorf("first failure = %+v", e)
	}

	l.MarkFailed("a.pdf", "h1", errors.New("boom again"))
	if got := l.Get("a.pdf").RetryCount; got != 1 {
		t.Errorf("RetryCount after second failure = %d, want 1", got)
	}

	// New content starts a fresh retry count
	l.MarkFailed("a.pdf", "h2", errors.New("boom"))
	if got := l.Get("a.pdf").RetryCount; got != 0 {
		t.Errorf("RetryCount for new content = %d, want 0", got)
	}
}

func TestLedger_GetReturnsCopy(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "ledger.json"))
	l.Put(Entry{Name: "a.pdf", Hash: "h1"})

	e := l.Get("a.pdf")
	e.Hash = "changed"

	if got := l.Get("a.pdf").Hash; got != "h1" {
		t.Errorf("stored hash = %q, want h1", got)
	}
}
