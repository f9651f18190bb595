// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package history

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a SQLite-based implementation of Store.
//
// By default it uses a shared in-memory database that is lost when the
// process ends. For persistent storage, provide a file path.
type SQLiteStore struct {
	sessionID string
	dbDSN     string
	table     string
	db        *sql.DB
	mu        sync.Mutex
}

type SQLiteStoreParams struct {
	// Unique identifier scoping the entries of one conversation.
	SessionID string

	// Optional database data source name.
	// Defaults to "file::memory:?cache=shared".
	DBDataSourceName string

	// Optional name of the table holding the entries.
	// Defaults to "conversation_entries".
	Table string
}

// NewSQLiteStore initializes the SQLite store.
func NewSQLiteStore(ctx context.Context, params SQLiteStoreParams) (_ *SQLiteStore, err error) {
	s := &SQLiteStore{
		sessionID: params.SessionID,
		dbDSN:     cmp.Or(params.DBDataSourceName, "file::memory:?cache=shared"),
		table:     cmp.Or(params.Table, "conversation_entries"),
	}

	defer func() {
		if err != nil {
			if e := s.Close(); e != nil {
				err = errors.Join(err, e)
			}
		}
	}()

	s.db, err = sql.Open("sqlite3", s.dbDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s" (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			entry_data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`, s.table))
	if err != nil {
		return nil, fmt.Errorf("error creating entries table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS "idx_%s_session_id" ON "%s" (session_id, id)`,
		s.table, s.table))
	if err != nil {
		return nil, fmt.Errorf("error creating index: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) SessionID() string { return s.sessionID }

func (s *SQLiteStore) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("error JSON marshaling entry: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		fmt.Sprintf(`INSERT INTO "%s" (session_id, entry_data) VALUES (?, ?)`, s.table),
		s.sessionID, string(data),
	)
	if err != nil {
		return fmt.Errorf("error inserting entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Entries(ctx context.Context) (_ []Entry, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT entry_data FROM "%s"
		WHERE session_id = ?
		ORDER BY id ASC
	`, s.table), s.sessionID)
	if err != nil {
		return nil, fmt.Errorf("error querying entries: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("error closing sql.Rows: %w", e))
		}
	}()

	var entries []Entry
	for rows.Next() {
		var data string
		if err = rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sql rows scan error: %w", err)
		}

		var entry Entry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue // Skip invalid JSON entries
		}
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sql rows scan error: %w", err)
	}

	return entries, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(
		ctx,
		fmt.Sprintf(`DELETE FROM "%s" WHERE session_id = ?`, s.table),
		s.sessionID,
	)
	return err
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
