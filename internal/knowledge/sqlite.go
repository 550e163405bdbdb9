package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS courses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	time TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS qa_list (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	answer TEXT NOT NULL
);
`

// SQLiteStore is the durable Querier backing, plus the write paths used by
// the seed command.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the knowledge database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create knowledge db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create knowledge schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddCourse inserts a course record.
func (s *SQLiteStore) AddCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO courses (title, time) VALUES (?, ?)", c.Title, c.Time)
	if err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}
	return nil
}

// AddQA inserts a QA record.
func (s *SQLiteStore) AddQA(ctx context.Context, q QA) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO qa_list (question, answer) VALUES (?, ?)", q.Question, q.Answer)
	if err != nil {
		return fmt.Errorf("failed to insert qa: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Courses(ctx context.Context, f Filter) ([]Course, error) {
	if f.Empty() {
		return nil, nil
	}
	where, args := likeClause("title", f.Terms)
	rows, err := s.db.QueryContext(ctx, "SELECT title, time FROM courses WHERE "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.Title, &c.Time); err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) QAs(ctx context.Context, f Filter) ([]QA, error) {
	if f.Empty() {
		return nil, nil
	}
	where, args := likeClause("question", f.Terms)
	rows, err := s.db.QueryContext(ctx, "SELECT question, answer FROM qa_list WHERE "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query qa_list: %w", err)
	}
	defer rows.Close()

	var out []QA
	for rows.Next() {
		var q QA
		if err := rows.Scan(&q.Question, &q.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan qa row: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// likeClause renders "lower(field) LIKE ? OR ..." with one %term% argument
// per keyword. SQLite's LIKE is already case-insensitive for ASCII; lowering
// both sides keeps mixed-case latin keywords matching.
func likeClause(field string, terms []string) (string, []any) {
	preds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for _, term := range terms {
		preds = append(preds, "lower("+field+") LIKE ?")
		args = append(args, "%"+strings.ToLower(term)+"%")
	}
	return strings.Join(preds, " OR "), args
}
