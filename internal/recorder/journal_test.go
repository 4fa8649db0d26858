// # internal/recorder/journal_test.go
package recorder

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"reqsift/internal/core/errors"

	"github.com/charmbracelet/log"
)

func journalPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "journal.db")
}

func TestJournalRecordAndRecover(t *testing.T) {
	path := journalPath(t)
	logger := log.New(io.Discard)

	j, err := OpenJournal(path, logger)
	if err != nil {
		t.Fatal(err)
	}

	pkg, err := j.Record("bs4", "beautifulsoup4")
	if err != nil {
		t.Fatal(err)
	}
	if pkg != "beautifulsoup4" {
		t.Errorf("Record must pass the package through, got %s", pkg)
	}
	if _, err := j.Record("local_mod", "module-ignored"); err != nil {
		t.Fatal(err)
	}
	if err := j.Close(); err != nil {
		t.Fatal(err)
	}

	// A second open simulates the run after a crash.
	j, err = OpenJournal(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	seed := j.Seed()
	if seed["bs4"] != "beautifulsoup4" {
		t.Errorf("Expected bs4 decision to be recovered, got %v", seed)
	}
	if seed["local_mod"] != "module-ignored" {
		t.Errorf("Expected ignore decisions to be recovered too, got %v", seed)
	}
}

func TestJournalUpsert(t *testing.T) {
	j, err := OpenJournal(journalPath(t), log.New(io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	if _, err := j.Record("yaml", "pyyaml"); err != nil {
		t.Fatal(err)
	}
	if _, err := j.Record("yaml", "ruamel.yaml"); err != nil {
		t.Fatal(err)
	}

	if got := j.Seed()["yaml"]; got != "ruamel.yaml" {
		t.Errorf("Expected the latest decision to win, got %s", got)
	}
}

func TestJournalClear(t *testing.T) {
	path := journalPath(t)
	logger := log.New(io.Discard)

	j, err := OpenJournal(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j.Record("bs4", "beautifulsoup4"); err != nil {
		t.Fatal(err)
	}
	if err := j.Clear(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Clear must remove the journal file")
	}
	if _, err := j.Record("x", "y"); err == nil {
		t.Error("Recording after Clear must fail")
	}

	// The next run starts from nothing.
	j, err = OpenJournal(path, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	if len(j.Seed()) != 0 {
		t.Errorf("Expected an empty seed after Clear, got %v", j.Seed())
	}
}

func TestJournalCorruptFile(t *testing.T) {
	path := journalPath(t)
	if err := os.WriteFile(path, []byte("this is not a database\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := OpenJournal(path, log.New(io.Discard))
	if err == nil {
		t.Fatal("Expected an error for a corrupt journal")
	}
	if !errors.IsCode(err, errors.CodeCorruptStore) {
		t.Errorf("Expected CORRUPT_STORE, got %v", err)
	}

	// The corrupt file must survive for inspection.
	if _, statErr := os.Stat(path); statErr != nil {
		t.Error("A corrupt journal must never be silently removed")
	}
}

func TestNullRecorder(t *testing.T) {
	var r Recorder = Null{}

	pkg, err := r.Record("bs4", "beautifulsoup4")
	if err != nil {
		t.Fatal(err)
	}
	if pkg != "beautifulsoup4" {
		t.Errorf("Record must pass the package through, got %s", pkg)
	}
	if len(r.Seed()) != 0 {
		t.Error("Null recorder must not remember anything")
	}
	if err := r.Clear(); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
}
