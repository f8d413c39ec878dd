// Package memory provides in-memory implementations of the outbound ports.
// They back the test suite and local single-process runs; production uses the
// Postgres adapters in internal/adapters/db.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/domain/bid"
	"tradebidz-core-service/internal/domain/shared"
	"tradebidz-core-service/internal/ports/outbound"
)

// Ledger is an in-memory auction store with per-auction exclusive locks.
// Lock waits are bounded by the caller's context, matching the row-lock
// discipline of the Postgres adapter.
type Ledger struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*auction.Auction
	bids     map[uuid.UUID][]*bid.Bid
	locks    map[uuid.UUID]chan struct{}
}

func NewLedger() *Ledger {
	return &Ledger{
		auctions: make(map[uuid.UUID]*auction.Auction),
		bids:     make(map[uuid.UUID][]*bid.Bid),
		locks:    make(map[uuid.UUID]chan struct{}),
	}
}

// PutAuction inserts or replaces an auction. Intended for seeding.
func (l *Ledger) PutAuction(a *auction.Auction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.auctions[a.ID] = a.Clone()
}

func (l *Ledger) lockFor(auctionID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, ok := l.locks[auctionID]; ok {
		return ch
	}
	ch := make(chan struct{}, 1)
	l.locks[auctionID] = ch
	return ch
}

// WithAuction runs fn holding the exclusive lock for one auction. Writes made
// through the transaction are staged and applied atomically when fn returns
// nil; an error discards them all.
func (l *Ledger) WithAuction(ctx context.Context, auctionID uuid.UUID, fn func(tx outbound.LedgerTx) error) error {
	l.mu.RLock()
	_, ok := l.auctions[auctionID]
	l.mu.RUnlock()
	if !ok {
		return shared.ErrAuctionNotFound
	}

	lock := l.lockFor(auctionID)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return shared.ErrLockWaitTimeout
	}
	defer func() { <-lock }()

	l.mu.RLock()
	a, ok := l.auctions[auctionID]
	l.mu.RUnlock()
	if !ok {
		return shared.ErrAuctionNotFound
	}

	tx := &ledgerTx{ledger: l, auction: a.Clone()}
	if err := fn(tx); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if tx.savedAuction != nil {
		l.auctions[auctionID] = tx.savedAuction.Clone()
	}
	for _, b := range tx.appended {
		cp := *b
		l.bids[auctionID] = append(l.bids[auctionID], &cp)
	}
	return nil
}

// GetAuction reads an auction without locking it
func (l *Ledger) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	return a.Clone(), nil
}

// ListBids returns the bid history in leader order
func (l *Ledger) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*bid.Bid, 0, len(l.bids[auctionID]))
	for _, b := range l.bids[auctionID] {
		cp := *b
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Outranks(out[j])
	})
	return out, nil
}

// FindExpired returns ACTIVE auctions with end time at or before now
func (l *Ledger) FindExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var ids []uuid.UUID
	for id, a := range l.auctions {
		if a.IsActive() && !a.EndTime.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type ledgerTx struct {
	ledger       *Ledger
	auction      *auction.Auction
	savedAuction *auction.Auction
	appended     []*bid.Bid
}

func (tx *ledgerTx) Auction() *auction.Auction {
	return tx.auction
}

func (tx *ledgerTx) LeadingBid(ctx context.Context) (*bid.Bid, error) {
	tx.ledger.mu.RLock()
	defer tx.ledger.mu.RUnlock()

	var leader *bid.Bid
	for _, b := range tx.ledger.bids[tx.auction.ID] {
		if b.Status != bid.StatusValid {
			continue
		}
		if b.Outranks(leader) {
			leader = b
		}
	}
	if leader == nil {
		return nil, shared.ErrNoBidsFound
	}
	cp := *leader
	return &cp, nil
}

func (tx *ledgerTx) SaveAuction(ctx context.Context, a *auction.Auction) error {
	tx.savedAuction = a
	return nil
}

func (tx *ledgerTx) AppendBid(ctx context.Context, b *bid.Bid) error {
	tx.appended = append(tx.appended, b)
	return nil
}
