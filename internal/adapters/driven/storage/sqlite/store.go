package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/polyrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/polyrag/internal/core/domain"
	"github.com/custodia-labs/polyrag/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

// Store is a SQLite-based store for search history.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.polyrag/data/history.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".polyrag", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")

	// WAL lets readers (history list) run while a search appends.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := migrate(context.Background(), db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// HistoryStore returns a HistoryStore interface backed by this store.
func (s *Store) HistoryStore() driven.HistoryStore {
	return &historyStore{store: s}
}

// ==================== History Store ====================

// historyStore implements driven.HistoryStore.
type historyStore struct {
	store *Store
}

var _ driven.HistoryStore = (*historyStore)(nil)

const historyColumns = `id, request_id, query, requested_kind, kind, response,
	context, metrics, selection, created_at`

// Append stores a record and returns its assigned ID.
func (h *historyStore) Append(ctx context.Context, rec *domain.HistoryRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil history record", domain.ErrInvalidInput)
	}

	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return 0, fmt.Errorf("marshalling context: %w", err)
	}
	metricsJSON, err := json.Marshal(rec.Metrics)
	if err != nil {
		return 0, fmt.Errorf("marshalling metrics: %w", err)
	}
	selectionJSON, err := json.Marshal(rec.Selection)
	if err != nil {
		return 0, fmt.Errorf("marshalling selection: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := h.store.db.ExecContext(ctx, `
		INSERT INTO search_history (request_id, query, requested_kind, kind, response,
			context, metrics, selection, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RequestID, rec.Query, string(rec.RequestedKind), string(rec.Kind), rec.Response,
		string(contextJSON), string(metricsJSON), string(selectionJSON), createdAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("saving history record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading history id: %w", err)
	}
	return id, nil
}

// List returns records newest first.
func (h *historyStore) List(ctx context.Context, offset, limit int) ([]domain.HistoryRecord, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: negative offset or limit", domain.ErrInvalidInput)
	}
	if limit == 0 {
		return []domain.HistoryRecord{}, nil
	}

	rows, err := h.store.db.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM search_history
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	records := make([]domain.HistoryRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return records, nil
}

// Get returns a single record.
func (h *historyStore) Get(ctx context.Context, id int64) (*domain.HistoryRecord, error) {
	row := h.store.db.QueryRowContext(ctx, `
		SELECT `+historyColumns+`
		FROM search_history WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	var requested, kind string
	var contextJSON, metricsJSON, selectionJSON string
	var createdAt sql.NullTime

	if err := row.Scan(&rec.ID, &rec.RequestID, &rec.Query, &requested, &kind, &rec.Response,
		&contextJSON, &metricsJSON, &selectionJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning history record: %w", err)
	}

	rec.RequestedKind = domain.PolicyKind(requested)
	rec.Kind = domain.PolicyKind(kind)
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}

	if contextJSON != "" && contextJSON != jsonNull {
		rec.Context = &domain.RetrievalContext{}
		if err := json.Unmarshal([]byte(contextJSON), rec.Context); err != nil {
			return nil, fmt.Errorf("unmarshaling context: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(metricsJSON), &rec.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshaling metrics: %w", err)
	}
	if selectionJSON != "" && selectionJSON != jsonNull {
		rec.Selection = &domain.SelectionResult{}
		if err := json.Unmarshal([]byte(selectionJSON), rec.Selection); err != nil {
			return nil, fmt.Errorf("unmarshaling selection: %w", err)
		}
	}
	return &rec, nil
}
