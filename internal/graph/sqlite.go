package graph

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/knakk/rdf"
	_ "modernc.org/sqlite"
)

// SQLite is a temporary-file-backed triple store for graphs too large to
// hold in memory. The database file is created on open and removed on Close.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite creates a sqlite store backed by a fresh temporary file.
func NewSQLite() (*SQLite, error) {
	f, err := os.CreateTemp("", "bf2marc-*.db")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp database: %w", err)
	}
	path := f.Name()
	f.Close()

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS triples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		s TEXT NOT NULL,
		p TEXT NOT NULL,
		o TEXT NOT NULL,
		UNIQUE(s, p, o)
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

// Add inserts triples; the unique index collapses duplicates.
func (s *SQLite) Add(triples ...rdf.Triple) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO triples (s, p, o) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range triples {
		if _, err := stmt.Exec(Key(t.Subj), Key(t.Pred), Key(t.Obj)); err != nil {
			return fmt.Errorf("insert triple: %w", err)
		}
	}
	return tx.Commit()
}

// Match returns all triples matching the pattern, in insertion order.
func (s *SQLite) Match(subj, pred, obj rdf.Term) ([]rdf.Triple, error) {
	query := "SELECT s, p, o FROM triples"
	var conds []string
	var args []any
	if subj != nil {
		conds = append(conds, "s = ?")
		args = append(args, Key(subj))
	}
	if pred != nil {
		conds = append(conds, "p = ?")
		args = append(args, Key(pred))
	}
	if obj != nil {
		conds = append(conds, "o = ?")
		args = append(args, Key(obj))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query triples: %w", err)
	}
	defer rows.Close()

	var out []rdf.Triple
	for rows.Next() {
		var sv, pv, ov string
		if err := rows.Scan(&sv, &pv, &ov); err != nil {
			return nil, fmt.Errorf("scan triple: %w", err)
		}
		t, err := decodeRow(sv, pv, ov)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Len returns the number of distinct triples.
func (s *SQLite) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM triples").Scan(&n); err != nil {
		return 0, fmt.Errorf("count triples: %w", err)
	}
	return n, nil
}

// Close closes the database and removes the temporary file.
func (s *SQLite) Close() error {
	err := s.db.Close()
	if rmErr := os.Remove(s.path); err == nil {
		err = rmErr
	}
	return err
}

// decodeRow reconstructs a triple from its stored N-Triples term forms by
// running them back through the N-Triples parser.
func decodeRow(s, p, o string) (rdf.Triple, error) {
	line := s + " " + p + " " + o + " .\n"
	dec := rdf.NewTripleDecoder(strings.NewReader(line), rdf.NTriples)
	t, err := dec.Decode()
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("decode stored triple %q: %w", line, err)
	}
	return t, nil
}
