package shared

import "errors"

// Domain-specific errors
var (
	// Not found
	ErrAuctionNotFound = errors.New("auction not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrNoBidsFound     = errors.New("no bids found")

	// Invalid state
	ErrAuctionNotActive   = errors.New("auction is not active")
	ErrAuctionEnded       = errors.New("auction ended")
	ErrBuyNowUnavailable  = errors.New("auction has no buy-now price")
	ErrAuctionAlreadyOver = errors.New("auction already closed")

	// Invalid bid
	ErrBidBelowMinimum    = errors.New("price must be equal or higher than the minimum")
	ErrCeilingBelowAmount = errors.New("max amount must be at least the bid amount")
	ErrSelfPurchase       = errors.New("seller cannot buy their own item")

	// Transient
	ErrLockWaitTimeout  = errors.New("auction is busy, try again")
	ErrStoreUnavailable = errors.New("store unavailable")

	// Request surface
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrAuctionIDRequired   = errors.New("auction_id is required")
	ErrInvalidAmount       = errors.New("valid amount is required")
	ErrUnknownMessageType  = errors.New("unknown message type")
	ErrRateLimited         = errors.New("too many requests")
)

// Kind classifies an error for the request surface: rejections the caller can
// fix, and transient failures the caller should retry.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindInvalidBid   Kind = "invalid_bid"
	KindTransient    Kind = "transient"
	KindInternal     Kind = "internal"
)

// KindOf maps a domain error to its Kind
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrAuctionNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrNoBidsFound):
		return KindNotFound
	case errors.Is(err, ErrAuctionNotActive),
		errors.Is(err, ErrAuctionEnded),
		errors.Is(err, ErrBuyNowUnavailable),
		errors.Is(err, ErrAuctionAlreadyOver):
		return KindInvalidState
	case errors.Is(err, ErrBidBelowMinimum),
		errors.Is(err, ErrCeilingBelowAmount),
		errors.Is(err, ErrSelfPurchase):
		return KindInvalidBid
	case errors.Is(err, ErrLockWaitTimeout),
		errors.Is(err, ErrStoreUnavailable):
		return KindTransient
	default:
		return KindInternal
	}
}

// IsTransient reports whether the caller should retry
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}
