// Package engine holds the auction resolution core: pure decision logic that
// turns an auction snapshot plus an incoming bid into the next snapshot and
// the bid-history rows to append. It performs no I/O; the transaction
// coordinator in internal/app owns locking and persistence.
package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/domain/bid"
	"tradebidz-core-service/internal/domain/shared"
)

// Rules are the tunable constants of the resolution mechanism.
type Rules struct {
	// SnipeWindow is how close to the end time a bid must land to trigger
	// an auto-extension.
	SnipeWindow time.Duration
	// ExtendBy is the grace duration added to the end time on extension.
	ExtendBy time.Duration
}

// DefaultRules mirrors the production configuration.
func DefaultRules() Rules {
	return Rules{
		SnipeWindow: 5 * time.Minute,
		ExtendBy:    5 * time.Minute,
	}
}

// BidRequest is an incoming bid as seen by the engine.
type BidRequest struct {
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	IsProxy   bool
	MaxAmount decimal.Decimal
}

// Outcome is the engine's decision: the new auction snapshot, the history
// rows to append, and who to notify. Nothing is persisted until the
// coordinator commits it.
type Outcome struct {
	Auction *auction.Auction
	Bids    []*bid.Bid

	// Changed is false for the self-raise no-op: nothing to persist,
	// nothing to notify.
	Changed bool

	// LeaderID is the winner after resolution; OutbidID is set when someone
	// else was displaced or defended against and should get the outbid notice.
	LeaderID uuid.UUID
	OutbidID *uuid.UUID

	Extended bool
}

// Engine resolves bids under the classic proxy/second-price ascending
// mechanism.
type Engine struct {
	rules Rules
}

func New(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// ResolveBid computes the effect of a bid against the current leader.
//
// currentLeader is the leading VALID bid (highest ceiling, earliest time) or
// nil when the auction has no bids yet. The caller must pass state read under
// the auction's exclusive lock.
func (e *Engine) ResolveBid(a *auction.Auction, currentLeader *bid.Bid, req BidRequest, now time.Time) (*Outcome, error) {
	if !a.IsActive() {
		return nil, shared.ErrAuctionNotActive
	}
	if a.HasEnded(now) {
		return nil, shared.ErrAuctionEnded
	}

	ceiling := req.Amount
	if req.IsProxy {
		if req.MaxAmount.LessThan(req.Amount) {
			return nil, shared.ErrCeilingBelowAmount
		}
		ceiling = req.MaxAmount
	}

	if req.Amount.LessThan(a.MinimumBid()) {
		return nil, shared.ErrBidBelowMinimum
	}

	next := a.Clone()

	extended := false
	if next.AutoExtend && next.EndTime.Sub(now) < e.rules.SnipeWindow {
		next.Extend(e.rules.ExtendBy, now)
		extended = true
	}

	out := &Outcome{Auction: next, Changed: true, Extended: extended}

	switch {
	case currentLeader == nil:
		// First bid: leads at its own stated amount.
		out.Bids = append(out.Bids, bid.New(next.ID, req.BidderID, req.Amount, ceiling, req.IsProxy, now))
		next.SetLeader(req.Amount, req.BidderID, now)
		out.LeaderID = req.BidderID

	case currentLeader.BidderID == req.BidderID:
		// The leader may only raise their own ceiling. A raise is recorded
		// append-only and the visible price jumps to the new commitment,
		// since no competitor constrains it.
		if ceiling.LessThanOrEqual(currentLeader.MaxAmount) {
			return &Outcome{Auction: a, Changed: false, LeaderID: req.BidderID}, nil
		}
		out.Bids = append(out.Bids, bid.New(next.ID, req.BidderID, ceiling, ceiling, req.IsProxy, now))
		next.SetLeader(ceiling, req.BidderID, now)
		out.LeaderID = req.BidderID

	case ceiling.GreaterThan(currentLeader.MaxAmount):
		// Challenger wins: pays one step over the old ceiling, capped at
		// their own.
		newPrice := decimal.Min(currentLeader.MaxAmount.Add(next.StepPrice), ceiling)
		out.Bids = append(out.Bids, bid.New(next.ID, req.BidderID, newPrice, ceiling, req.IsProxy, now))
		next.SetLeader(newPrice, req.BidderID, now)
		out.LeaderID = req.BidderID
		prev := currentLeader.BidderID
		out.OutbidID = &prev

	default:
		// Challenger loses but pushes the price up. Their losing bid is
		// kept for the audit trail, and a proxy-generated bid defends the
		// incumbent at one step over the challenger's ceiling, capped at
		// the incumbent's.
		newPrice := decimal.Min(ceiling.Add(next.StepPrice), currentLeader.MaxAmount)
		out.Bids = append(out.Bids,
			bid.New(next.ID, req.BidderID, req.Amount, ceiling, req.IsProxy, now),
			bid.New(next.ID, currentLeader.BidderID, newPrice, currentLeader.MaxAmount, true, now),
		)
		next.SetLeader(newPrice, currentLeader.BidderID, now)
		out.LeaderID = currentLeader.BidderID
		challenger := req.BidderID
		out.OutbidID = &challenger
	}

	return out, nil
}

// BuyNow closes the auction immediately at the configured buy-now price.
// This is a terminal transition; no further bids are accepted afterwards.
func (e *Engine) BuyNow(a *auction.Auction, buyerID uuid.UUID, now time.Time) (*Outcome, error) {
	if !a.IsActive() {
		return nil, shared.ErrAuctionNotActive
	}
	if !a.HasBuyNow() {
		return nil, shared.ErrBuyNowUnavailable
	}
	if a.SellerID == buyerID {
		return nil, shared.ErrSelfPurchase
	}
	if a.HasEnded(now) {
		return nil, shared.ErrAuctionEnded
	}

	next := a.Clone()
	price := *next.BuyNowPrice

	next.SetLeader(price, buyerID, now)
	next.EndTime = now
	next.MarkSold(now)

	return &Outcome{
		Auction:  next,
		Bids:     []*bid.Bid{bid.New(next.ID, buyerID, price, price, false, now)},
		Changed:  true,
		LeaderID: buyerID,
	}, nil
}
