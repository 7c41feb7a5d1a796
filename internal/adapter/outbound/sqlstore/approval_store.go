// Package sqlstore persists pending approvals in SQLite or Postgres so
// multiple API instances can share state.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/jlov7/Switchboard/internal/domain/approval"
	"github.com/jlov7/Switchboard/internal/domain/audit"
	"github.com/jlov7/Switchboard/internal/domain/routing"
)

// Supported dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DefaultURL is the developer-ergonomics default: a local SQLite file.
const DefaultURL = "sqlite://data/switchboard.db"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS approvals (
    approval_id TEXT PRIMARY KEY,
    request_json TEXT NOT NULL,
    policy_json TEXT NOT NULL,
    adapter TEXT NOT NULL,
    status TEXT NOT NULL,
    decided_by TEXT,
    decided_at TEXT,
    notes TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_cache (
    event_id TEXT PRIMARY KEY,
    approval_id TEXT,
    record_json TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

// ParseURL splits a database url into its dialect and the DSN handed to
// the driver.
func ParseURL(url string) (dialect, dsn string, err error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DialectPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	default:
		return "", "", fmt.Errorf("unsupported database url %q", url)
	}
}

// ApprovalStore is the database-backed approval.Store. Connections are
// opened lazily on first use or explicitly via Warmup.
type ApprovalStore struct {
	url     string
	dialect string
	now     func() time.Time

	mu    sync.Mutex
	db    *sql.DB
	ready bool
}

var _ approval.Store = (*ApprovalStore)(nil)

// NewApprovalStore builds a store for the given database url. An empty
// url falls back to the local SQLite default.
func NewApprovalStore(url string) *ApprovalStore {
	if url == "" {
		url = DefaultURL
	}
	return &ApprovalStore{url: url, now: time.Now}
}

// Warmup connects and applies the schema.
func (s *ApprovalStore) Warmup(ctx context.Context) error {
	return s.ensureReady(ctx)
}

// Shutdown closes the underlying pool.
func (s *ApprovalStore) Shutdown(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	s.ready = false
	db := s.db
	s.db = nil
	if err := db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func (s *ApprovalStore) ensureReady(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	dialect, dsn, err := ParseURL(s.url)
	if err != nil {
		return err
	}
	s.dialect = dialect

	var db *sql.DB
	switch dialect {
	case DialectSQLite:
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create database directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return fmt.Errorf("open sqlite database: %w", err)
		}
		// SQLite allows one writer; a single pooled connection keeps
		// mutations serialized instead of surfacing busy errors.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA foreign_keys=ON;"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return fmt.Errorf("apply pragma: %w", err)
			}
		}
	case DialectPostgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return fmt.Errorf("open postgres database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return fmt.Errorf("ping postgres database: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w", err)
	}

	s.db = db
	s.ready = true
	return nil
}

// rebind rewrites ? placeholders into $N for postgres. Queries are written
// once with ? so dialect differences stay in this one spot.
func (s *ApprovalStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *ApprovalStore) upsertAuditCacheSQL() string {
	if s.dialect == DialectSQLite {
		return `INSERT OR REPLACE INTO audit_cache (event_id, approval_id, record_json, created_at)
VALUES (?, ?, ?, ?)`
	}
	return `INSERT INTO audit_cache (event_id, approval_id, record_json, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (event_id) DO UPDATE SET
    approval_id = EXCLUDED.approval_id,
    record_json = EXCLUDED.record_json,
    created_at = EXCLUDED.created_at`
}

// CreatePending inserts the approval row and caches the full record in one
// transaction.
func (s *ApprovalStore) CreatePending(ctx context.Context, record *audit.Record, route routing.Decision) (uuid.UUID, error) {
	if err := s.ensureReady(ctx); err != nil {
		return uuid.Nil, err
	}

	if record.Approval == nil {
		record.Approval = audit.NewApprovalDecision()
	}
	id := record.Approval.ApprovalID

	requestJSON, err := json.Marshal(record.Request)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode request: %w", err)
	}
	policyJSON, err := json.Marshal(record.Policy)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode policy: %w", err)
	}
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode record: %w", err)
	}

	now := s.now().UTC().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO approvals (
    approval_id, request_json, policy_json, adapter, status, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id.String(), string(requestJSON), string(policyJSON),
		route.TargetAdapter, string(record.Approval.Status), now, now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert approval: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(s.upsertAuditCacheSQL()),
		record.EventID.String(), id.String(), string(recordJSON), now)
	if err != nil {
		return uuid.Nil, fmt.Errorf("cache audit record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit approval: %w", err)
	}
	return id, nil
}

// Resolve updates the row only while it is still pending, so two reviewers
// racing on the same id cannot both observe a successful transition.
func (s *ApprovalStore) Resolve(ctx context.Context, approvalID uuid.UUID, status audit.ApprovalStatus, decidedBy string, notes *string) (*approval.PendingEntry, error) {
	if !status.Terminal() {
		return nil, approval.ErrNotTerminal
	}
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	decidedAt := s.now().UTC()
	stamp := decidedAt.Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE approvals
SET status = ?, decided_by = ?, decided_at = ?, notes = ?, updated_at = ?
WHERE approval_id = ? AND status = 'pending'`),
		string(status), decidedBy, stamp, nullable(notes), stamp, approvalID.String())
	if err != nil {
		return nil, fmt.Errorf("update approval: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update approval: %w", err)
	}
	if affected == 0 {
		var exists int
		err := s.db.QueryRowContext(ctx,
			s.rebind(`SELECT 1 FROM approvals WHERE approval_id = ?`),
			approvalID.String()).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, approval.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("inspect approval: %w", err)
		}
		return nil, approval.ErrAlreadyResolved
	}

	var adapter string
	err = s.db.QueryRowContext(ctx,
		s.rebind(`SELECT adapter FROM approvals WHERE approval_id = ?`),
		approvalID.String()).Scan(&adapter)
	if err != nil {
		return nil, fmt.Errorf("load approval: %w", err)
	}

	record, err := s.recordByApproval(ctx, approvalID)
	if err != nil {
		return nil, err
	}

	record.Approval = &audit.ApprovalDecision{
		ApprovalID: approvalID,
		Status:     status,
		DecidedBy:  &decidedBy,
		DecidedAt:  &decidedAt,
		Notes:      notes,
	}
	return &approval.PendingEntry{
		Record: record,
		Route: routing.Decision{
			Context:       record.Request.Context,
			Policy:        record.Policy,
			TargetAdapter: adapter,
			AuditEventID:  record.EventID,
		},
	}, nil
}

// Get returns the cached audit record for an approval id.
func (s *ApprovalStore) Get(ctx context.Context, approvalID uuid.UUID) (*audit.Record, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	return s.recordByApproval(ctx, approvalID)
}

// PendingDetails reconstructs the pending entries from the approvals table
// and the audit cache.
func (s *ApprovalStore) PendingDetails(ctx context.Context) (map[uuid.UUID]*approval.PendingEntry, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT approval_id, adapter FROM approvals WHERE status = ?`),
		string(audit.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	type pendingRow struct {
		id      uuid.UUID
		adapter string
	}
	var listed []pendingRow
	for rows.Next() {
		var rawID, adapter string
		if err := rows.Scan(&rawID, &adapter); err != nil {
			return nil, fmt.Errorf("scan pending approval: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse approval id: %w", err)
		}
		listed = append(listed, pendingRow{id: id, adapter: adapter})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}

	pending := make(map[uuid.UUID]*approval.PendingEntry, len(listed))
	for _, row := range listed {
		record, err := s.recordByApproval(ctx, row.id)
		if err == approval.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		pending[row.id] = &approval.PendingEntry{
			Record: record,
			Route: routing.Decision{
				Context:       record.Request.Context,
				Policy:        record.Policy,
				TargetAdapter: row.adapter,
				AuditEventID:  record.EventID,
			},
		}
	}
	return pending, nil
}

func (s *ApprovalStore) recordByApproval(ctx context.Context, approvalID uuid.UUID) (*audit.Record, error) {
	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT record_json FROM audit_cache WHERE approval_id = ?`),
		approvalID.String()).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, approval.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load audit record: %w", err)
	}
	var record audit.Record
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, fmt.Errorf("decode audit record: %w", err)
	}
	return &record, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
