package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kvasha/bookkeeper/internal/ledger"
)

// LogStore implements ledger.LogStore on PostgreSQL. Each admitted
// transaction is one row; a single-statement insert makes the whole
// transaction, details included, visible at once. Rows are never updated or
// deleted.
type LogStore struct {
	pool *pgxpool.Pool
}

// NewLogStore creates a PostgreSQL-backed log store.
func NewLogStore(pool *pgxpool.Pool) *LogStore {
	return &LogStore{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS ledger_transactions (
	book_id    TEXT        NOT NULL,
	seq        BIGINT      NOT NULL,
	id         TEXT        NOT NULL,
	date       TIMESTAMPTZ NOT NULL,
	ord        INTEGER     NOT NULL,
	notes      TEXT        NOT NULL DEFAULT '',
	details    JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (book_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_ledger_transactions_log_order
	ON ledger_transactions (book_id, date, ord, seq);
`

// EnsureSchema creates the log table if it does not exist.
func (s *LogStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create log schema: %w", err)
	}
	return nil
}

// Append persists one admitted transaction at the given sequence.
func (s *LogStore) Append(ctx context.Context, book ledger.BookID, seq uint64, tx *ledger.Transaction) error {
	details, err := marshalDetails(tx.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	query := `
		INSERT INTO ledger_transactions (book_id, seq, id, date, ord, notes, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = s.pool.Exec(ctx, query,
		string(book),
		int64(seq),
		string(tx.ID),
		tx.Date,
		tx.Order,
		tx.Notes,
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Scan replays a book's transactions in (date, order, seq) order.
func (s *LogStore) Scan(ctx context.Context, book ledger.BookID, fn func(seq uint64, tx *ledger.Transaction) error) error {
	query := `
		SELECT seq, id, date, ord, notes, details
		FROM ledger_transactions
		WHERE book_id = $1
		ORDER BY date, ord, seq
	`
	rows, err := s.pool.Query(ctx, query, string(book))
	if err != nil {
		return fmt.Errorf("failed to scan log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			seq     int64
			id      string
			date    time.Time
			ord     int
			notes   string
			details []byte
		)
		if err := rows.Scan(&seq, &id, &date, &ord, &notes, &details); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		tx := &ledger.Transaction{
			ID:    ledger.TransactionID(id),
			Date:  date,
			Order: ord,
			Notes: notes,
		}
		if tx.Details, err = unmarshalDetails(details); err != nil {
			return fmt.Errorf("failed to decode details of %s: %w", id, err)
		}
		if err := fn(uint64(seq), tx); err != nil {
			return err
		}
	}
	return rows.Err()
}

func marshalDetails(details []ledger.Detail) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(details))
	for _, d := range details {
		b, err := ledger.MarshalDetail(d)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(raw)
}

func unmarshalDetails(data []byte) ([]ledger.Detail, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	details := make([]ledger.Detail, 0, len(raw))
	for _, rd := range raw {
		d, err := ledger.UnmarshalDetail(rd)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, nil
}
