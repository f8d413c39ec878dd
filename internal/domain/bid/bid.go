package bid

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the status of a bid
type Status string

const (
	// StatusValid is the only status this engine writes; invalidation is
	// reserved for moderation tooling and never happens here.
	StatusValid Status = "VALID"
)

// Bid is one row of an auction's append-only bid history.
// Amount is what the public price becomes if this bid leads; MaxAmount is the
// private ceiling the bidder authorized (equal to Amount for direct bids).
type Bid struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	MaxAmount decimal.Decimal `json:"max_amount"`
	IsAuto    bool            `json:"is_auto"`
	Time      time.Time       `json:"time"`
	Status    Status          `json:"status"`
}

// New creates a VALID bid record
func New(auctionID, bidderID uuid.UUID, amount, maxAmount decimal.Decimal, isAuto bool, at time.Time) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		MaxAmount: maxAmount,
		IsAuto:    isAuto,
		Time:      at,
		Status:    StatusValid,
	}
}

// Outranks reports whether b beats other under the leader ordering:
// higher ceiling wins, earlier timestamp breaks ties.
func (b *Bid) Outranks(other *Bid) bool {
	if other == nil {
		return true
	}
	switch b.MaxAmount.Cmp(other.MaxAmount) {
	case 1:
		return true
	case -1:
		return false
	}
	return b.Time.Before(other.Time)
}
