package report

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/fencegate/fencegate/internal/digest"
	"github.com/fencegate/fencegate/internal/script"
)

// Denial is one recorded blocked invocation.
type Denial struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	Note        string    `json:"note"`
	Line        int       `json:"line"`
	Digest      string    `json:"digest"`
	Integration string    `json:"integration"`
}

const schema = `
CREATE TABLE IF NOT EXISTS denials (
	id          TEXT PRIMARY KEY,
	time        TEXT NOT NULL,
	note        TEXT NOT NULL,
	line        INTEGER NOT NULL,
	digest      TEXT NOT NULL,
	integration TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS denials_digest ON denials(digest);
`

// timeLayout keeps trailing zeros so lexicographic order of the time
// column matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists denial history in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the denial database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("report: open denial db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("report: init denial db: %w", err)
	}
	return &Store{db: db}, nil
}

// ReportDenied implements Reporter. Persistence failures are logged,
// never surfaced into the gate.
func (s *Store) ReportDenied(loc script.Location, sum digest.Entry, integration string) {
	d := Denial{
		ID:          uuid.NewString(),
		Time:        time.Now().UTC(),
		Note:        loc.Note,
		Line:        loc.Line,
		Digest:      string(sum),
		Integration: integration,
	}
	if err := s.Record(d); err != nil {
		logrus.WithError(err).Warn("failed to record denial")
	}
}

// Record inserts one denial.
func (s *Store) Record(d Denial) error {
	_, err := s.db.Exec(
		`INSERT INTO denials (id, time, note, line, digest, integration) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Time.Format(timeLayout), d.Note, d.Line, d.Digest, d.Integration,
	)
	if err != nil {
		return fmt.Errorf("report: record denial: %w", err)
	}
	return nil
}

// List returns the most recent denials, newest first. limit <= 0 means
// no limit.
func (s *Store) List(limit int) ([]Denial, error) {
	q := `SELECT id, time, note, line, digest, integration FROM denials ORDER BY time DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("report: list denials: %w", err)
	}
	defer rows.Close()

	var out []Denial
	for rows.Next() {
		var d Denial
		var ts string
		if err := rows.Scan(&d.ID, &ts, &d.Note, &d.Line, &d.Digest, &d.Integration); err != nil {
			return nil, fmt.Errorf("report: scan denial: %w", err)
		}
		d.Time, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Find returns all denials recorded for a digest.
func (s *Store) Find(sum digest.Entry) ([]Denial, error) {
	rows, err := s.db.Query(
		`SELECT id, time, note, line, digest, integration FROM denials WHERE digest = ? ORDER BY time DESC`,
		string(sum),
	)
	if err != nil {
		return nil, fmt.Errorf("report: find denials: %w", err)
	}
	defer rows.Close()

	var out []Denial
	for rows.Next() {
		var d Denial
		var ts string
		if err := rows.Scan(&d.ID, &ts, &d.Note, &d.Line, &d.Digest, &d.Integration); err != nil {
			return nil, fmt.Errorf("report: scan denial: %w", err)
		}
		d.Time, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
