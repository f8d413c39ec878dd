package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/domain/bid"
	"tradebidz-core-service/internal/ports/outbound"
)

// AuctionService implements the read-side auction use cases. Listing
// creation belongs to an external workflow and is not part of this service.
type AuctionService struct {
	ledger outbound.Ledger
	logger zerolog.Logger
}

type AuctionServiceParams struct {
	Ledger outbound.Ledger
	Logger zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	return &AuctionService{
		ledger: params.Ledger,
		logger: params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// GetAuction retrieves an auction by ID
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	a, err := s.ledger.GetAuction(ctx, auctionID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to retrieve auction")
		return nil, err
	}
	return a, nil
}

// ListBids retrieves the bid history for an auction
func (s *AuctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	return s.ledger.ListBids(ctx, auctionID)
}
