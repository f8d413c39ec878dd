package inbound

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/domain/bid"
	"tradebidz-core-service/internal/domain/shared"
)

// BiddingService defines the mutating auction operations. Neither operation
// is idempotent: replays create duplicate bid history, so external layers
// must deduplicate if they retry.
type BiddingService interface {
	// PlaceBid submits a direct or proxy bid
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*BidResult, error)

	// BuyNow immediately ends the auction in the buyer's favor
	BuyNow(ctx context.Context, req BuyNowRequest) (*BidResult, error)
}

// AuctionService defines the read-side operations
type AuctionService interface {
	// GetAuction retrieves an auction by ID
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error)

	// ListBids retrieves the bid history for an auction
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)
}

// request to place a bid
type PlaceBidRequest struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	IsProxy   bool            `json:"is_proxy"`
	MaxAmount decimal.Decimal `json:"max_amount"`
}

// request to buy an item at its buy-now price
type BuyNowRequest struct {
	AuctionID uuid.UUID `json:"auction_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
}

// BidResult reports the committed outcome of a bid or buy-now
type BidResult struct {
	Snapshot shared.AuctionSnapshot `json:"snapshot"`
	// Accepted is false when a leader's self-raise changed nothing
	Accepted bool `json:"accepted"`
}
