package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the current status of an auction
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSold      Status = "SOLD"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal returns true for statuses that never revert
func (s Status) IsTerminal() bool {
	return s == StatusSold || s == StatusExpired || s == StatusCancelled
}

// Auction represents a listed item under auction
type Auction struct {
	ID           uuid.UUID        `json:"id"`
	SellerID     uuid.UUID        `json:"seller_id"`
	Name         string           `json:"name"`
	StartPrice   decimal.Decimal  `json:"start_price"`
	CurrentPrice decimal.Decimal  `json:"current_price"`
	StepPrice    decimal.Decimal  `json:"step_price"`
	BuyNowPrice  *decimal.Decimal `json:"buy_now_price,omitempty"`
	StartTime    time.Time        `json:"start_time"`
	EndTime      time.Time        `json:"end_time"`
	AutoExtend   bool             `json:"auto_extend"`
	Status       Status           `json:"status"`
	WinnerID     *uuid.UUID       `json:"winner_id,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IsActive returns true if the auction is currently active
func (a *Auction) IsActive() bool {
	return a.Status == StatusActive
}

// HasEnded returns true if the auction's end time has passed
func (a *Auction) HasEnded(now time.Time) bool {
	return now.After(a.EndTime)
}

// HasBuyNow returns true if a buy-now price is configured
func (a *Auction) HasBuyNow() bool {
	return a.BuyNowPrice != nil
}

// MinimumBid returns the lowest amount a new bid must reach:
// the start price when nobody leads, current price plus step otherwise.
func (a *Auction) MinimumBid() decimal.Decimal {
	if a.WinnerID == nil {
		return a.StartPrice
	}
	return a.CurrentPrice.Add(a.StepPrice)
}

// Extend pushes the end time back by the given duration. End time only grows.
func (a *Auction) Extend(by time.Duration, now time.Time) {
	a.EndTime = a.EndTime.Add(by)
	a.UpdatedAt = now
}

// SetLeader updates the visible price and winner after a resolved bid.
// The price never moves down.
func (a *Auction) SetLeader(price decimal.Decimal, winnerID uuid.UUID, now time.Time) {
	if price.GreaterThanOrEqual(a.CurrentPrice) {
		a.CurrentPrice = price
	}
	w := winnerID
	a.WinnerID = &w
	a.UpdatedAt = now
}

// MarkSold closes the auction with a winner
func (a *Auction) MarkSold(now time.Time) {
	a.Status = StatusSold
	a.UpdatedAt = now
}

// MarkExpired closes the auction without a winner
func (a *Auction) MarkExpired(now time.Time) {
	a.Status = StatusExpired
	a.UpdatedAt = now
}

// Clone returns a deep copy so callers can mutate a snapshot freely
func (a *Auction) Clone() *Auction {
	cp := *a
	if a.BuyNowPrice != nil {
		p := *a.BuyNowPrice
		cp.BuyNowPrice = &p
	}
	if a.WinnerID != nil {
		w := *a.WinnerID
		cp.WinnerID = &w
	}
	return &cp
}
