package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/docqa/internal/db"
)

// DefaultLimit is the number of entries Recent returns when none is asked for.
const DefaultLimit = 20

const timeLayout = "2006-01-02 15:04:05.000"

// Entry is one answered question.
type Entry struct {
	ID        string        `json:"id"`
	AskedAt   time.Time     `json:"asked_at"`
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Documents []string      `json:"documents"`
	Duration  time.Duration `json:"-"`
}

// MarshalJSON reports Duration in milliseconds.
func (e Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(struct {
		alias
		Duration int64 `json:"duration_ms"`
	}{alias: alias(e), Duration: e.Duration.Milliseconds()})
}

// Store persists answered questions in SQLite.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Record inserts an answered question.
func (s *Store) Record(ctx context.Context, question, answer string, documents []string, duration time.Duration) error {
	if documents == nil {
		documents = []string{}
	}
	docs, err := json.Marshal(documents)
	if err != nil {
		return fmt.Errorf("marshalling documents: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_history (id, asked_at, question, answer, documents, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(),
		s.now().UTC().Format(timeLayout),
		question,
		answer,
		string(docs),
		duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, asked_at, question, answer, documents, duration_ms
		FROM query_history
		ORDER BY asked_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e        Entry
			askedAt  string
			docsJSON string
			millis   int64
		)
		if err := rows.Scan(&e.ID, &askedAt, &e.Question, &e.Answer, &docsJSON, &millis); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		if e.AskedAt, err = time.Parse(timeLayout, askedAt); err != nil {
			return nil, fmt.Errorf("parsing asked_at %q: %w", askedAt, err)
		}
		if err := json.Unmarshal([]byte(docsJSON), &e.Documents); err != nil {
			return nil, fmt.Errorf("unmarshalling documents: %w", err)
		}
		e.Duration = time.Duration(millis) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM query_history").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}
