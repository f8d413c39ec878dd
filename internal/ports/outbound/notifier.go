package outbound

import (
	"context"

	"github.com/shopspring/decimal"
)

// BidPlacedNotice tells seller, new leader and (if any) displaced bidder
// about a committed bid.
type BidPlacedNotice struct {
	ProductName     string
	NewPrice        decimal.Decimal
	SellerEmail     string
	BidderEmail     string
	PrevBidderEmail string
}

// AuctionSuccessNotice announces a SOLD auction to seller and winner.
type AuctionSuccessNotice struct {
	ProductName   string
	FinalPrice    decimal.Decimal
	SellerEmail   string
	SellerName    string
	WinnerEmail   string
	WinnerName    string
	WinnerAddress string
}

// AuctionFailNotice announces an EXPIRED auction to the seller.
type AuctionFailNotice struct {
	ProductName string
	SellerEmail string
}

// BidRejectedNotice tells a bidder their bid did not pass validation.
type BidRejectedNotice struct {
	ProductName string
	Price       decimal.Decimal
	BidderEmail string
}

// Notifier dispatches structured events to the delivery pipeline.
// All methods are fire-and-forget from the core's perspective: failures are
// logged by callers and never affect a committed transaction.
type Notifier interface {
	BidPlaced(ctx context.Context, n BidPlacedNotice) error
	AuctionSuccess(ctx context.Context, n AuctionSuccessNotice) error
	AuctionFail(ctx context.Context, n AuctionFailNotice) error
	BidRejected(ctx context.Context, n BidRejectedNotice) error
}
