// Package sqlstore is the relational Event Store implementation (§4.4,
// §6 persistence layout): a single `ledger_events` table guarded by
// UPDATE/DELETE-refusing triggers, with appends serialized by a
// process-local mutex plus (on Postgres) a `SELECT ... FOR UPDATE` on the
// tail row. It is grounded on the wider stack's `database/sql`-based
// stores — the Postgres hash-chained ledger's "grab the tail row, compute
// the next hash, insert" shape, and the SQLite receipt store's
// dialect-specific migrate-then-scan pattern — generalized to run against
// either backend behind one type.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tedy97123/accountabiltyme/pkg/canon"
	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/errs"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore"
)

// Dialect selects the SQL variant Migrate and Append speak.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Store is the database/sql-backed Event Store.
type Store struct {
	db      *sql.DB
	dialect Dialect

	// mu serializes Append at the Go level. On Postgres this is
	// belt-and-suspenders on top of the per-transaction "SELECT ... FOR
	// UPDATE" tail read; on SQLite, whose driver serializes writer
	// connections anyway, it is the primary serialization mechanism.
	mu sync.Mutex
}

// Open wraps db as a Store for the given dialect and runs Migrate.
func Open(ctx context.Context, dialect Dialect, db *sql.DB) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return s, nil
}

// Migrate creates ledger_events and its immutability triggers if absent.
func (s *Store) Migrate(ctx context.Context) error {
	switch s.dialect {
	case DialectPostgres:
		return s.migratePostgres(ctx)
	case DialectSQLite:
		return s.migrateSQLite(ctx)
	default:
		return fmt.Errorf("sqlstore: unknown dialect %q", s.dialect)
	}
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS ledger_events (
	sequence_number BIGINT PRIMARY KEY,
	event_id TEXT UNIQUE NOT NULL,
	event_type TEXT NOT NULL,
	claim_id TEXT,
	payload JSONB NOT NULL,
	previous_event_hash TEXT,
	event_hash TEXT NOT NULL,
	created_by TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	editor_signature TEXT NOT NULL
);

CREATE OR REPLACE FUNCTION ledger_events_immutable() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'ledger_events is append-only: % not permitted', TG_OP;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS ledger_events_no_update ON ledger_events;
CREATE TRIGGER ledger_events_no_update
	BEFORE UPDATE ON ledger_events
	FOR EACH ROW EXECUTE FUNCTION ledger_events_immutable();

DROP TRIGGER IF EXISTS ledger_events_no_delete ON ledger_events;
CREATE TRIGGER ledger_events_no_delete
	BEFORE DELETE ON ledger_events
	FOR EACH ROW EXECUTE FUNCTION ledger_events_immutable();
`

func (s *Store) migratePostgres(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, pgSchema)
	return err
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ledger_events (
	sequence_number INTEGER PRIMARY KEY,
	event_id TEXT UNIQUE NOT NULL,
	event_type TEXT NOT NULL,
	claim_id TEXT,
	payload TEXT NOT NULL,
	previous_event_hash TEXT,
	event_hash TEXT NOT NULL,
	created_by TEXT NOT NULL,
	created_at TEXT NOT NULL,
	editor_signature TEXT NOT NULL
);

CREATE TRIGGER IF NOT EXISTS ledger_events_no_update
	BEFORE UPDATE ON ledger_events
BEGIN
	SELECT RAISE(ABORT, 'ledger_events is append-only: UPDATE not permitted');
END;

CREATE TRIGGER IF NOT EXISTS ledger_events_no_delete
	BEFORE DELETE ON ledger_events
BEGIN
	SELECT RAISE(ABORT, 'ledger_events is append-only: DELETE not permitted');
END;
`

func (s *Store) migrateSQLite(ctx context.Context) error {
	for _, stmt := range strings.Split(sqliteSchema, ";\n\n") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: sqlite migrate statement %q: %w", stmt, err)
		}
	}
	return nil
}

// bind returns the dialect-appropriate positional placeholder for the nth
// (1-based) bound parameter.
func (s *Store) bind(n int) string {
	if s.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Append implements eventstore.Store.
func (s *Store) Append(ctx context.Context, ev domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Event{}, fmt.Errorf("sqlstore: begin tx: %w", errors.Join(errs.ErrStorageUnavailable, err))
	}
	defer func() { _ = tx.Rollback() }()

	tailQuery := "SELECT sequence_number, event_hash FROM ledger_events ORDER BY sequence_number DESC LIMIT 1"
	if s.dialect == DialectPostgres {
		tailQuery += " FOR UPDATE"
	}

	var tailSeq int64 = -1
	var tailHash string
	row := tx.QueryRowContext(ctx, tailQuery)
	switch err := row.Scan(&tailSeq, &tailHash); {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		tailSeq, tailHash = -1, ""
	default:
		return domain.Event{}, fmt.Errorf("sqlstore: read tail: %w", errors.Join(errs.ErrStorageUnavailable, err))
	}

	if !chainhash.Hash(ev.PreviousEventHash).Equal(chainhash.Hash(tailHash)) {
		return domain.Event{}, fmt.Errorf("sqlstore: previous_event_hash %q does not match tail %q: %w", ev.PreviousEventHash, tailHash, errs.ErrHashChainBroken)
	}

	var dupCount int
	dupQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_events WHERE event_id = %s", s.bind(1))
	if err := tx.QueryRowContext(ctx, dupQuery, ev.EventID).Scan(&dupCount); err != nil {
		return domain.Event{}, fmt.Errorf("sqlstore: check duplicate event_id: %w", errors.Join(errs.ErrStorageUnavailable, err))
	}
	if dupCount > 0 {
		return domain.Event{}, fmt.Errorf("sqlstore: event_id %s already appended: %w", ev.EventID, errs.ErrDuplicateEventID)
	}

	ev.SequenceNumber = uint64(tailSeq + 1)

	payloadJSON, err := json.Marshal(ev.Payload)
	if err != nil {
		return domain.Event{}, fmt.Errorf("sqlstore: marshal payload: %w", err)
	}

	insert := fmt.Sprintf(
		`INSERT INTO ledger_events
			(sequence_number, event_id, event_type, claim_id, payload, previous_event_hash, event_hash, created_by, created_at, editor_signature)
		 VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		s.bind(1), s.bind(2), s.bind(3), s.bind(4), s.bind(5), s.bind(6), s.bind(7), s.bind(8), s.bind(9), s.bind(10),
	)
	_, err = tx.ExecContext(ctx, insert,
		int64(ev.SequenceNumber), ev.EventID, string(ev.EventType), ev.ClaimID, string(payloadJSON),
		ev.PreviousEventHash, ev.EventHash, ev.CreatedBy, ev.CreatedAt.UTC().Format(time.RFC3339Nano), ev.EditorSignature,
	)
	if err != nil {
		return domain.Event{}, fmt.Errorf("sqlstore: insert event: %w", errors.Join(errs.ErrStorageUnavailable, err))
	}

	if err := tx.Commit(); err != nil {
		return domain.Event{}, fmt.Errorf("sqlstore: commit append: %w", errors.Join(errs.ErrStorageUnavailable, err))
	}
	return ev.Clone(), nil
}

const selectColumns = "sequence_number, event_id, event_type, claim_id, payload, previous_event_hash, event_hash, created_by, created_at, editor_signature"

func (s *Store) scanRow(row interface{ Scan(dest ...interface{}) error }) (domain.Event, error) {
	var (
		seq                                                          int64
		eventID, eventType, payloadJSON, prevHash, hash, createdBy, sg string
		createdAtStr                                                 string
		claimIDNull                                                  sql.NullString
	)
	if err := row.Scan(&seq, &eventID, &eventType, &claimIDNull, &payloadJSON, &prevHash, &hash, &createdBy, &createdAtStr, &sg); err != nil {
		return domain.Event{}, err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		createdAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return domain.Event{}, fmt.Errorf("sqlstore: parse created_at %q: %w", createdAtStr, err)
		}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return domain.Event{}, fmt.Errorf("sqlstore: unmarshal payload: %w", err)
	}

	return domain.Event{
		EventID:           eventID,
		SequenceNumber:    uint64(seq),
		EventType:         domain.EventType(eventType),
		ClaimID:           claimIDNull.String,
		Payload:           payload,
		PreviousEventHash: prevHash,
		EventHash:         hash,
		CreatedBy:         createdBy,
		CreatedAt:         createdAt,
		EditorSignature:   sg,
	}, nil
}

// Get implements eventstore.Store.
func (s *Store) Get(ctx context.Context, eventID string) (domain.Event, error) {
	q := fmt.Sprintf("SELECT %s FROM ledger_events WHERE event_id = %s", selectColumns, s.bind(1))
	row := s.db.QueryRowContext(ctx, q, eventID)
	ev, err := s.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("sqlstore: event %s: %w", eventID, errs.ErrNotFound)
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("sqlstore: get event: %w", err)
	}
	return ev, nil
}

// GetBySequence implements eventstore.Store.
func (s *Store) GetBySequence(ctx context.Context, seq uint64) (domain.Event, error) {
	q := fmt.Sprintf("SELECT %s FROM ledger_events WHERE sequence_number = %s", selectColumns, s.bind(1))
	row := s.db.QueryRowContext(ctx, q, int64(seq))
	ev, err := s.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, fmt.Errorf("sqlstore: sequence %d: %w", seq, errs.ErrNotFound)
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("sqlstore: get by sequence: %w", err)
	}
	return ev, nil
}

// Range implements eventstore.Store.
func (s *Store) Range(ctx context.Context, start, end uint64) ([]domain.Event, error) {
	q := fmt.Sprintf(
		"SELECT %s FROM ledger_events WHERE sequence_number >= %s AND sequence_number <= %s ORDER BY sequence_number ASC",
		selectColumns, s.bind(1), s.bind(2),
	)
	rows, err := s.db.QueryContext(ctx, q, int64(start), int64(end))
	if err != nil {
		return nil, fmt.Errorf("sqlstore: range query: %w", errors.Join(errs.ErrStorageUnavailable, err))
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Event
	for rows.Next() {
		ev, err := s.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan range row: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Tail implements eventstore.Store.
func (s *Store) Tail(ctx context.Context) (domain.Event, bool, error) {
	q := fmt.Sprintf("SELECT %s FROM ledger_events ORDER BY sequence_number DESC LIMIT 1", selectColumns)
	row := s.db.QueryRowContext(ctx, q)
	ev, err := s.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, false, nil
	}
	if err != nil {
		return domain.Event{}, false, fmt.Errorf("sqlstore: tail: %w", err)
	}
	return ev, true, nil
}

// Count implements eventstore.Store.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ledger_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlstore: count: %w", errors.Join(errs.ErrStorageUnavailable, err))
	}
	return uint64(n), nil
}

// Iterate implements eventstore.Store.
func (s *Store) Iterate(ctx context.Context, fn func(domain.Event) error) error {
	q := fmt.Sprintf("SELECT %s FROM ledger_events ORDER BY sequence_number ASC", selectColumns)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("sqlstore: iterate query: %w", errors.Join(errs.ErrStorageUnavailable, err))
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		ev, err := s.scanRow(rows)
		if err != nil {
			return fmt.Errorf("sqlstore: scan iterate row: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

// VerifyChain implements eventstore.Store.
func (s *Store) VerifyChain(ctx context.Context) (eventstore.ChainStatus, error) {
	status := eventstore.ChainStatus{Valid: true}
	var prev chainhash.Hash
	var seq uint64
	err := s.Iterate(ctx, func(ev domain.Event) error {
		status.EventCount++
		if !chainhash.Hash(ev.PreviousEventHash).Equal(prev) {
			failAt := seq
			status.Valid = false
			status.FailedAtSequence = &failAt
			return errVerifyStop
		}
		canonical, err := canon.Canonicalize(ev.Payload)
		if err != nil {
			failAt := seq
			status.Valid = false
			status.FailedAtSequence = &failAt
			return errVerifyStop
		}
		recomputed := chainhash.EventHash(canonical, prev)
		if !recomputed.Equal(chainhash.Hash(ev.EventHash)) {
			failAt := seq
			status.Valid = false
			status.FailedAtSequence = &failAt
			return errVerifyStop
		}
		prev = chainhash.Hash(ev.EventHash)
		status.LastEventHash = ev.EventHash
		seq++
		return nil
	})
	if err != nil && !errors.Is(err, errVerifyStop) {
		return status, err
	}
	return status, nil
}

var errVerifyStop = errors.New("sqlstore: verify stopped at first failure")
