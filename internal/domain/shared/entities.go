package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is an identity referenced by the core. The core never mutates users;
// email/name/address feed notification payloads only.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Address  string    `json:"address"`
}

// AuctionSnapshot is the compact state published after every committed
// bid/buy-now and when an auction closes.
type AuctionSnapshot struct {
	AuctionID    uuid.UUID       `json:"auction_id"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	WinnerID     *uuid.UUID      `json:"winner_id,omitempty"`
	EndTime      time.Time       `json:"end_time"`
	Status       string          `json:"status"`
}
