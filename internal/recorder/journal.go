// # internal/recorder/journal.go
package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"reqsift/internal/core/errors"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

var _ Recorder = (*Journal)(nil)

// Journal records decisions in a SQLite file. Every Record call is durable
// on its own; a crash mid-run loses at most the decision in flight.
type Journal struct {
	db      *sql.DB
	path    string
	log     *log.Logger
	records map[string]string
	closed  bool
}

// OpenJournal opens or creates the journal at path and loads any decisions
// a previous run left behind. An existing file that cannot be read is a
// CORRUPT_STORE failure: silently resetting it would throw away answers the
// user already gave.
func OpenJournal(path string, logger *log.Logger) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path must not be empty")
	}
	existed := false
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("journal path %q is a directory", path)
		}
		existed = true
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, openFailure(existed, path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, openFailure(existed, path, err)
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS mapping_journal (
  module TEXT PRIMARY KEY,
  package TEXT NOT NULL,
  recorded_at INTEGER NOT NULL
);
`); err != nil {
		_ = db.Close()
		return nil, openFailure(existed, path, err)
	}

	j := &Journal{
		db:      db,
		path:    path,
		log:     logger,
		records: make(map[string]string),
	}
	if err := j.load(); err != nil {
		_ = db.Close()
		return nil, openFailure(existed, path, err)
	}
	if len(j.records) > 0 {
		logger.Info("recovered decisions from a previous run", "path", path, "count", len(j.records))
	}
	return j, nil
}

func openFailure(existed bool, path string, err error) error {
	if existed {
		return errors.Wrap(err, errors.CodeCorruptStore, "decision journal exists but cannot be read").
			WithContext(errors.CtxPath, path)
	}
	return fmt.Errorf("open decision journal %q: %w", path, err)
}

func (j *Journal) load() error {
	rows, err := j.db.Query(`SELECT module, package FROM mapping_journal`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var module, pkg string
		if err := rows.Scan(&module, &pkg); err != nil {
			return err
		}
		j.records[module] = pkg
	}
	return rows.Err()
}

func (j *Journal) Record(module, pkg string) (string, error) {
	if j.closed {
		return "", fmt.Errorf("decision journal is closed")
	}
	j.log.Debug("recording decision", "module", module, "package", pkg)

	_, err := j.db.Exec(`
INSERT INTO mapping_journal (module, package, recorded_at) VALUES (?, ?, ?)
ON CONFLICT(module) DO UPDATE SET package = excluded.package, recorded_at = excluded.recorded_at
`, module, pkg, time.Now().UTC().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("record decision for %q: %w", module, err)
	}
	j.records[module] = pkg
	return pkg, nil
}

func (j *Journal) Seed() map[string]string {
	seed := make(map[string]string, len(j.records))
	for module, pkg := range j.records {
		seed[module] = pkg
	}
	return seed
}

// Clear removes the journal file. The journal is unusable afterwards.
func (j *Journal) Clear() error {
	if err := j.Close(); err != nil {
		return err
	}
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove decision journal %q: %w", j.path, err)
	}
	// WAL sidecars are gone after a clean close, but not after a crash.
	_ = os.Remove(j.path + "-wal")
	_ = os.Remove(j.path + "-shm")
	return nil
}

func (j *Journal) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
