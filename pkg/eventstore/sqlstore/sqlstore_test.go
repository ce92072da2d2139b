package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/tedy97123/accountabiltyme/pkg/canon"
	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/errs"
)

func newMockStore(t *testing.T, dialect Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &Store{db: db, dialect: dialect}, mock
}

func TestAppend_GenesisEvent(t *testing.T) {
	s, mock := newMockStore(t, DialectSQLite)

	payload := map[string]interface{}{"statement": "median rent will fall"}
	canonical, err := canon.Canonicalize(payload)
	require.NoError(t, err)
	hash := chainhash.EventHash(canonical, "")

	ev := domain.Event{
		EventID:           "e0",
		EventType:         domain.EventClaimDeclared,
		ClaimID:           "c1",
		Payload:           payload,
		PreviousEventHash: "",
		EventHash:         string(hash),
		CreatedBy:         "editor-1",
		CreatedAt:         time.Now().UTC(),
		EditorSignature:   "sig",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT sequence_number, event_hash FROM ledger_events").
		WillReturnRows(sqlmock.NewRows([]string{"sequence_number", "event_hash"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ledger_events WHERE event_id").
		WithArgs(ev.EventID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO ledger_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	stored, err := s.Append(context.Background(), ev)
	require.NoError(t, err)
	require.Equal(t, uint64(0), stored.SequenceNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_DuplicateEventID(t *testing.T) {
	s, mock := newMockStore(t, DialectSQLite)

	ev := domain.Event{
		EventID:           "e0",
		Payload:            map[string]interface{}{"statement": "x"},
		PreviousEventHash: "",
		EventHash:         "deadbeef",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT sequence_number, event_hash FROM ledger_events").
		WillReturnRows(sqlmock.NewRows([]string{"sequence_number", "event_hash"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM ledger_events WHERE event_id").
		WithArgs(ev.EventID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := s.Append(context.Background(), ev)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrDuplicateEventID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_HashChainBroken(t *testing.T) {
	s, mock := newMockStore(t, DialectSQLite)

	ev := domain.Event{
		EventID:           "e1",
		Payload:            map[string]interface{}{"statement": "x"},
		PreviousEventHash: "stale",
		EventHash:         "deadbeef",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT sequence_number, event_hash FROM ledger_events").
		WillReturnRows(sqlmock.NewRows([]string{"sequence_number", "event_hash"}).AddRow(0, "actualtail"))
	mock.ExpectRollback()

	_, err := s.Append(context.Background(), ev)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrHashChainBroken))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	s, mock := newMockStore(t, DialectSQLite)

	mock.ExpectQuery("SELECT .* FROM ledger_events WHERE event_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"sequence_number", "event_id", "event_type", "claim_id", "payload",
			"previous_event_hash", "event_hash", "created_by", "created_at", "editor_signature",
		}))

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestGet_Found(t *testing.T) {
	s, mock := newMockStore(t, DialectSQLite)

	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	mock.ExpectQuery("SELECT .* FROM ledger_events WHERE event_id").
		WithArgs("e0").
		WillReturnRows(sqlmock.NewRows([]string{
			"sequence_number", "event_id", "event_type", "claim_id", "payload",
			"previous_event_hash", "event_hash", "created_by", "created_at", "editor_signature",
		}).AddRow(0, "e0", "CLAIM_DECLARED", "c1", `{"statement":"x"}`, "", "deadbeef", "editor-1", createdAt, "sig"))

	ev, err := s.Get(context.Background(), "e0")
	require.NoError(t, err)
	require.Equal(t, "e0", ev.EventID)
	require.Equal(t, domain.EventClaimDeclared, ev.EventType)
	require.Equal(t, "x", ev.Payload["statement"])
}

func TestVerifyChain_DetectsBrokenLinkage(t *testing.T) {
	s, mock := newMockStore(t, DialectSQLite)

	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	canonical, err := canon.Canonicalize(map[string]interface{}{"statement": "x"})
	require.NoError(t, err)
	genesisHash := string(chainhash.EventHash(canonical, ""))
	mock.ExpectQuery("SELECT .* FROM ledger_events ORDER BY sequence_number ASC").
		WillReturnRows(sqlmock.NewRows([]string{
			"sequence_number", "event_id", "event_type", "claim_id", "payload",
			"previous_event_hash", "event_hash", "created_by", "created_at", "editor_signature",
		}).
			AddRow(0, "e0", "CLAIM_DECLARED", "c1", `{"statement":"x"}`, "", genesisHash, "editor-1", createdAt, "sig").
			AddRow(1, "e1", "CLAIM_OPERATIONALIZED", "c1", `{"outcome_description":"y"}`, "WRONG_PREV", "cafebabe", "editor-1", createdAt, "sig"))

	status, err := s.VerifyChain(context.Background())
	require.NoError(t, err)
	require.False(t, status.Valid)
	require.NotNil(t, status.FailedAtSequence)
	require.Equal(t, uint64(1), *status.FailedAtSequence)
}
