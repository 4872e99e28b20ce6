// Package repository persists the audit journal: every stable-asset transfer
// and every committed event, insert-only.  The journal is a sink — the engine
// never reads it back, so the core stays correct with the journal disabled.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/parlaycity/core/internal/domain"
)

// queueSize bounds the in-memory backlog.  Records beyond it are dropped
// rather than blocking a settlement path on the database.
const queueSize = 4096

// transferRow mirrors the transfer_journal table.
type transferRow struct {
	ID          uuid.UUID `db:"id"`
	FromAccount uuid.UUID `db:"from_account"`
	ToAccount   uuid.UUID `db:"to_account"`
	Amount      string    `db:"amount"`
	Memo        string    `db:"memo"`
	CreatedAt   time.Time `db:"created_at"`
}

// eventRow mirrors the event_journal table.
type eventRow struct {
	ID        uuid.UUID `db:"id"`
	EventType string    `db:"event_type"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

// JournalRepository implements token.Journal and domain.EventSink over
// PostgreSQL.  Writes are queued and flushed by a background goroutine so the
// hot path never waits on the database.
type JournalRepository struct {
	db        *sqlx.DB
	transfers chan transferRow
	events    chan eventRow
	logger    *slog.Logger
}

// NewJournalRepository creates a JournalRepository.  Call Start to begin
// draining the queues.
func NewJournalRepository(db *sqlx.DB, logger *slog.Logger) *JournalRepository {
	return &JournalRepository{
		db:        db,
		transfers: make(chan transferRow, queueSize),
		events:    make(chan eventRow, queueSize),
		logger:    logger,
	}
}

// Start launches the background writer.  Returns immediately; the writer
// drains until ctx is cancelled.
func (r *JournalRepository) Start(ctx context.Context) {
	go r.writeLoop(ctx)
}

// RecordTransfer implements token.Journal.  Non-blocking: a full queue drops
// the record with a log line.
func (r *JournalRepository) RecordTransfer(from, to uuid.UUID, amount sdkmath.Int, memo string) {
	row := transferRow{
		ID:          uuid.New(),
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount.String(),
		Memo:        memo,
		CreatedAt:   time.Now().UTC(),
	}
	select {
	case r.transfers <- row:
	default:
		r.logger.Warn("journal: transfer queue full, record dropped", "memo", memo)
	}
}

// Emit implements domain.EventSink.  Non-blocking.
func (r *JournalRepository) Emit(ev domain.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		r.logger.Warn("journal: event marshal failed", "event", ev.EventType(), "err", err)
		return
	}
	row := eventRow{
		ID:        uuid.New(),
		EventType: ev.EventType(),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	select {
	case r.events <- row:
	default:
		r.logger.Warn("journal: event queue full, record dropped", "event", ev.EventType())
	}
}

// writeLoop drains both queues until the context is cancelled, then flushes
// whatever is still buffered.
func (r *JournalRepository) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return
		case row := <-r.transfers:
			if err := r.insertTransfer(ctx, row); err != nil {
				r.logger.Error("journal: insert transfer", "err", err)
			}
		case row := <-r.events:
			if err := r.insertEvent(ctx, row); err != nil {
				r.logger.Error("journal: insert event", "err", err)
			}
		}
	}
}

// flush writes any queued rows with a short deadline during shutdown.
func (r *JournalRepository) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case row := <-r.transfers:
			if err := r.insertTransfer(ctx, row); err != nil {
				r.logger.Error("journal: flush transfer", "err", err)
				return
			}
		case row := <-r.events:
			if err := r.insertEvent(ctx, row); err != nil {
				r.logger.Error("journal: flush event", "err", err)
				return
			}
		default:
			return
		}
	}
}

func (r *JournalRepository) insertTransfer(ctx context.Context, row transferRow) error {
	query := `
		INSERT INTO transfer_journal
			(id, from_account, to_account, amount, memo, created_at)
		VALUES
			(:id, :from_account, :to_account, :amount, :memo, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("journal_repo.insertTransfer: %w", err)
	}
	return nil
}

func (r *JournalRepository) insertEvent(ctx context.Context, row eventRow) error {
	query := `
		INSERT INTO event_journal
			(id, event_type, payload, created_at)
		VALUES
			(:id, :event_type, :payload, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("journal_repo.insertEvent: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Read helpers — back-office style queries over the audit trail
// ──────────────────────────────────────────────────────────────────────────────

// TransferRecord is the API-facing view of a journaled transfer.
type TransferRecord struct {
	ID          uuid.UUID `db:"id"            json:"id"`
	FromAccount uuid.UUID `db:"from_account"  json:"from_account"`
	ToAccount   uuid.UUID `db:"to_account"    json:"to_account"`
	Amount      string    `db:"amount"        json:"amount"`
	Memo        string    `db:"memo"          json:"memo"`
	CreatedAt   time.Time `db:"created_at"    json:"created_at"`
}

// GetTransfers returns the most recent transfers, paginated.
func (r *JournalRepository) GetTransfers(ctx context.Context, limit, offset int) ([]*TransferRecord, error) {
	var rows []*TransferRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, from_account, to_account, amount, memo, created_at
		FROM transfer_journal
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("journal_repo.GetTransfers: %w", err)
	}
	return rows, nil
}

// GetTransfersByAccount returns recent transfers touching one account.
func (r *JournalRepository) GetTransfersByAccount(ctx context.Context, acct uuid.UUID, limit, offset int) ([]*TransferRecord, error) {
	var rows []*TransferRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, from_account, to_account, amount, memo, created_at
		FROM transfer_journal
		WHERE from_account = $1 OR to_account = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		acct, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("journal_repo.GetTransfersByAccount: %w", err)
	}
	return rows, nil
}
