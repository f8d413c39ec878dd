package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/domain/bid"
	"tradebidz-core-service/internal/domain/shared"
)

// LedgerTx is a unit of work holding the exclusive lock on one auction.
// Everything read through it reflects the latest committed state, and
// everything written through it commits atomically when the callback returns
// nil, or rolls back when it returns an error.
type LedgerTx interface {
	// Auction returns the locked snapshot; mutating it has no effect until
	// SaveAuction is called.
	Auction() *auction.Auction

	// LeadingBid returns the leading VALID bid (highest ceiling, earliest
	// time as tie-break) or shared.ErrNoBidsFound.
	LeadingBid(ctx context.Context) (*bid.Bid, error)

	// SaveAuction persists a new auction snapshot
	SaveAuction(ctx context.Context, a *auction.Auction) error

	// AppendBid appends one bid record to the history
	AppendBid(ctx context.Context, b *bid.Bid) error
}

// Ledger is the persisted auction store. WithAuction serializes all mutating
// operations per auction; the lock wait is bounded by the context deadline and
// surfaces shared.ErrLockWaitTimeout.
type Ledger interface {
	WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx LedgerTx) error) error

	// GetAuction reads an auction without locking it
	GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// ListBids returns the bid history, leader ordering first
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// FindExpired returns ids of ACTIVE auctions whose end time is at or
	// before now.
	FindExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

// UserDirectory is the read-only identity lookup used for notification
// payloads.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error)
}
