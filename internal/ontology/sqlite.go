package ontology

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// closureTables maps a relation to its table and member column.
var closureTables = map[Relation]struct{ table, column string }{
	RelationAncestors:   {"term_ancestors", "ancestor"},
	RelationDescendants: {"term_descendants", "descendant"},
}

// SQLiteService stores term closures in a SQLite database.
type SQLiteService struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite creates or opens a closure database at path.
// Use ":memory:" for a private in-memory database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - 5-second busy timeout for lock contention
//
// The schema is applied idempotently.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteService, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ontology database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ontology database: %w", err)
	}

	// SQLite supports one writer; a single connection also keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply ontology schema: %w", err)
	}

	return &SQLiteService{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *SQLiteService) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ancestors implements Service.
func (s *SQLiteService) Ancestors(ctx context.Context, term string) ([]string, bool) {
	return s.get(ctx, RelationAncestors, term)
}

// Descendants implements Service.
func (s *SQLiteService) Descendants(ctx context.Context, term string) ([]string, bool) {
	return s.get(ctx, RelationDescendants, term)
}

func (s *SQLiteService) get(ctx context.Context, rel Relation, term string) ([]string, bool) {
	tbl := closureTables[rel]
	query := fmt.Sprintf("SELECT %s FROM %s WHERE term = ? ORDER BY %s", tbl.column, tbl.table, tbl.column)

	rows, err := s.db.QueryContext(ctx, query, term)
	if err != nil {
		s.logger.Warn("ontology lookup failed", "relation", rel, "term", term, "error", err)
		return nil, false
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			s.logger.Warn("ontology lookup failed", "relation", rel, "term", term, "error", err)
			return nil, false
		}
		terms = append(terms, t)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("ontology lookup failed", "relation", rel, "term", term, "error", err)
		return nil, false
	}

	set := normalizeSet(terms)
	if set == nil {
		return nil, false
	}
	return set, true
}

// Put replaces the closure set of term for rel in a single transaction.
// An empty set removes the term.
func (s *SQLiteService) Put(ctx context.Context, rel Relation, term string, terms []string) error {
	tbl, ok := closureTables[rel]
	if !ok {
		return fmt.Errorf("unknown relation %q", rel)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE term = ?", tbl.table), term); err != nil {
		return fmt.Errorf("clear %s of %q: %w", rel, term, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (term, %s) VALUES (?, ?)", tbl.table, tbl.column)
	for _, t := range normalizeSet(terms) {
		if _, err := tx.ExecContext(ctx, insert, term, t); err != nil {
			return fmt.Errorf("insert %s of %q: %w", rel, term, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Import copies every term of a Memory ontology into the database.
func (s *SQLiteService) Import(ctx context.Context, m *Memory) error {
	for _, term := range m.Terms() {
		for _, rel := range []Relation{RelationAncestors, RelationDescendants} {
			set, _ := Lookup(ctx, m, rel, term)
			if err := s.Put(ctx, rel, term, set); err != nil {
				return err
			}
		}
	}
	return nil
}
