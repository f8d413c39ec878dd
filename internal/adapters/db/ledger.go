package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/domain/bid"
	"tradebidz-core-service/internal/domain/shared"
	"tradebidz-core-service/internal/ports/outbound"
)

const auctionColumns = `id, seller_id, name, start_price, current_price, step_price, buy_now_price,
	start_time, end_time, auto_extend, status, winner_id, created_at, updated_at`

const bidColumns = `id, auction_id, bidder_id, amount, max_amount, is_auto, time, status`

// Ledger implements the auction ledger on Postgres. The per-auction exclusive
// lock is the row lock taken by SELECT ... FOR UPDATE; the wait is bounded by
// a lock_timeout derived from the caller's context deadline.
type Ledger struct {
	conn *Connection
}

// NewLedger creates a new Postgres-backed ledger
func NewLedger(conn *Connection) *Ledger {
	return &Ledger{conn: conn}
}

// WithAuction runs fn inside a transaction holding the exclusive row lock on
// one auction.
func (l *Ledger) WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx outbound.LedgerTx) error) error {
	return l.conn.ExecuteTransaction(ctx, func(tx *sql.Tx) error {
		if deadline, ok := ctx.Deadline(); ok {
			ms := time.Until(deadline).Milliseconds()
			if ms < 1 {
				return shared.ErrLockWaitTimeout
			}
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)); err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}

		query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
		a, err := scanAuction(tx.QueryRowContext(ctx, query, auctionID))
		if err != nil {
			return err
		}

		return fn(&ledgerTx{tx: tx, auction: a})
	})
}

// GetAuction reads an auction without locking it
func (l *Ledger) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	return scanAuction(l.conn.GetDB().QueryRowContext(ctx, query, id))
}

// ListBids returns the bid history, leader ordering first
func (l *Ledger) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1
		ORDER BY max_amount DESC, time ASC
	`

	rows, err := l.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}
	return bids, nil
}

// FindExpired returns ids of ACTIVE auctions whose end time is at or before now
func (l *Ledger) FindExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `SELECT id FROM auctions WHERE status = $1 AND end_time <= $2`

	rows, err := l.conn.GetDB().QueryContext(ctx, query, auction.StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auction ids: %w", err)
	}
	return ids, nil
}

type ledgerTx struct {
	tx      *sql.Tx
	auction *auction.Auction
}

func (t *ledgerTx) Auction() *auction.Auction {
	return t.auction
}

func (t *ledgerTx) LeadingBid(ctx context.Context) (*bid.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE auction_id = $1 AND status = $2
		ORDER BY max_amount DESC, time ASC
		LIMIT 1
	`
	return scanBid(t.tx.QueryRowContext(ctx, query, t.auction.ID, bid.StatusValid))
}

func (t *ledgerTx) SaveAuction(ctx context.Context, a *auction.Auction) error {
	query := `
		UPDATE auctions
		SET current_price = $2, end_time = $3, status = $4, winner_id = $5, updated_at = $6
		WHERE id = $1
	`

	var winner uuid.NullUUID
	if a.WinnerID != nil {
		winner = uuid.NullUUID{UUID: *a.WinnerID, Valid: true}
	}

	result, err := t.tx.ExecContext(ctx, query,
		a.ID,
		a.CurrentPrice,
		a.EndTime,
		a.Status,
		winner,
		a.UpdatedAt,
	)
	if err != nil {
		return mapLockErr(fmt.Errorf("failed to update auction: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return shared.ErrAuctionNotFound
	}
	return nil
}

func (t *ledgerTx) AppendBid(ctx context.Context, b *bid.Bid) error {
	query := `
		INSERT INTO bids (` + bidColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := t.tx.ExecContext(ctx, query,
		b.ID,
		b.AuctionID,
		b.BidderID,
		b.Amount,
		b.MaxAmount,
		b.IsAuto,
		b.Time,
		b.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*auction.Auction, error) {
	var a auction.Auction
	var buyNow decimal.NullDecimal
	var winner uuid.NullUUID

	err := row.Scan(
		&a.ID,
		&a.SellerID,
		&a.Name,
		&a.StartPrice,
		&a.CurrentPrice,
		&a.StepPrice,
		&buyNow,
		&a.StartTime,
		&a.EndTime,
		&a.AutoExtend,
		&a.Status,
		&winner,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, mapLockErr(fmt.Errorf("failed to get auction: %w", err))
	}

	if buyNow.Valid {
		a.BuyNowPrice = &buyNow.Decimal
	}
	if winner.Valid {
		a.WinnerID = &winner.UUID
	}
	return &a, nil
}

func scanBid(row rowScanner) (*bid.Bid, error) {
	var b bid.Bid
	err := row.Scan(
		&b.ID,
		&b.AuctionID,
		&b.BidderID,
		&b.Amount,
		&b.MaxAmount,
		&b.IsAuto,
		&b.Time,
		&b.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to scan bid: %w", err)
	}
	return &b, nil
}

// mapLockErr turns a Postgres lock_not_available error into the transient
// lock-wait sentinel so callers can retry.
func mapLockErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
		return shared.ErrLockWaitTimeout
	}
	return err
}
