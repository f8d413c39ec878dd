package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/domain/shared"
	"tradebidz-core-service/internal/engine"
	"tradebidz-core-service/internal/ports/inbound"
	"tradebidz-core-service/internal/ports/outbound"
)

// BiddingService is the auction transaction coordinator: it wraps the engine
// in an exclusive, serialized unit of work per auction. State is always
// re-read under the lock, never taken from the caller.
type BiddingService struct {
	ledger      outbound.Ledger
	users       outbound.UserDirectory
	notifier    outbound.Notifier
	broadcaster outbound.Broadcaster
	engine      *engine.Engine
	lockWait    time.Duration
	logger      zerolog.Logger
}

type BiddingServiceParams struct {
	Ledger      outbound.Ledger
	Users       outbound.UserDirectory
	Notifier    outbound.Notifier
	Broadcaster outbound.Broadcaster
	Engine      *engine.Engine
	LockWait    time.Duration
	Logger      zerolog.Logger
}

// NewBiddingService creates a new bidding service
func NewBiddingService(params BiddingServiceParams) *BiddingService {
	return &BiddingService{
		ledger:      params.Ledger,
		users:       params.Users,
		notifier:    params.Notifier,
		broadcaster: params.Broadcaster,
		engine:      params.Engine,
		lockWait:    params.LockWait,
		logger:      params.Logger.With().Str("component", "bidding_service").Logger(),
	}
}

// PlaceBid places a direct or proxy bid on an auction
func (s *BiddingService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*inbound.BidResult, error) {
	s.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Str("amount", req.Amount.String()).
		Bool("is_proxy", req.IsProxy).
		Msg("Attempting to place bid")

	bidder, err := s.users.GetByID(ctx, req.BidderID)
	if err != nil {
		s.logger.Warn().Err(err).Str("bidder_id", req.BidderID.String()).Msg("Bidder not found")
		return nil, shared.ErrUserNotFound
	}

	var outcome *engine.Outcome

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	err = s.ledger.WithAuction(lockCtx, req.AuctionID, func(tx outbound.LedgerTx) error {
		// every statement inside the unit of work shares the lock-wait bound
		leader, err := tx.LeadingBid(lockCtx)
		if err != nil && !errors.Is(err, shared.ErrNoBidsFound) {
			return err
		}

		out, err := s.engine.ResolveBid(tx.Auction(), leader, engine.BidRequest{
			BidderID:  req.BidderID,
			Amount:    req.Amount,
			IsProxy:   req.IsProxy,
			MaxAmount: req.MaxAmount,
		}, time.Now())
		if err != nil {
			return err
		}
		outcome = out

		if !out.Changed {
			return nil
		}
		if err := tx.SaveAuction(lockCtx, out.Auction); err != nil {
			return err
		}
		for _, b := range out.Bids {
			if err := tx.AppendBid(lockCtx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if shared.KindOf(err) == shared.KindInvalidBid {
			s.notifyBidRejected(req.AuctionID, bidder.Email, req)
		}
		s.logger.Warn().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Bid not accepted")
		return nil, err
	}

	if !outcome.Changed {
		s.logger.Debug().
			Str("auction_id", req.AuctionID.String()).
			Str("bidder_id", req.BidderID.String()).
			Msg("Self-raise without a higher ceiling, nothing to do")
		return &inbound.BidResult{Snapshot: snapshotOf(outcome.Auction), Accepted: false}, nil
	}

	// Side effects run only after the commit and never roll it back.
	s.notifyBidPlaced(outcome)
	s.publish(outcome.Auction, outbound.EventTypePriceUpdate)

	s.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("winner_id", outcome.LeaderID.String()).
		Str("current_price", outcome.Auction.CurrentPrice.String()).
		Bool("extended", outcome.Extended).
		Msg("Bid placed successfully")

	return &inbound.BidResult{Snapshot: snapshotOf(outcome.Auction), Accepted: true}, nil
}

// BuyNow immediately ends the auction at its buy-now price
func (s *BiddingService) BuyNow(ctx context.Context, req inbound.BuyNowRequest) (*inbound.BidResult, error) {
	s.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("buyer_id", req.BuyerID.String()).
		Msg("Attempting buy-now")

	if _, err := s.users.GetByID(ctx, req.BuyerID); err != nil {
		return nil, shared.ErrUserNotFound
	}

	var outcome *engine.Outcome

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()

	err := s.ledger.WithAuction(lockCtx, req.AuctionID, func(tx outbound.LedgerTx) error {
		out, err := s.engine.BuyNow(tx.Auction(), req.BuyerID, time.Now())
		if err != nil {
			return err
		}
		outcome = out

		if err := tx.SaveAuction(lockCtx, out.Auction); err != nil {
			return err
		}
		for _, b := range out.Bids {
			if err := tx.AppendBid(lockCtx, b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Buy-now rejected")
		return nil, err
	}

	s.notifyAuctionSuccess(outcome.Auction)
	s.publish(outcome.Auction, outbound.EventTypeAuctionEnded)

	s.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("winner_id", req.BuyerID.String()).
		Str("final_price", outcome.Auction.CurrentPrice.String()).
		Msg("Buy-now completed")

	return &inbound.BidResult{Snapshot: snapshotOf(outcome.Auction), Accepted: true}, nil
}

// notifyBidPlaced emits the BID_PLACED event. Best effort: lookup or delivery
// failures are logged and swallowed.
func (s *BiddingService) notifyBidPlaced(out *engine.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seller, err := s.users.GetByID(ctx, out.Auction.SellerID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", out.Auction.ID.String()).Msg("Failed to load seller for notification")
		return
	}
	leader, err := s.users.GetByID(ctx, out.LeaderID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", out.Auction.ID.String()).Msg("Failed to load leader for notification")
		return
	}

	prevEmail := ""
	if out.OutbidID != nil && *out.OutbidID != out.LeaderID {
		if prev, err := s.users.GetByID(ctx, *out.OutbidID); err == nil {
			prevEmail = prev.Email
		}
	}

	notice := outbound.BidPlacedNotice{
		ProductName:     out.Auction.Name,
		NewPrice:        out.Auction.CurrentPrice,
		SellerEmail:     seller.Email,
		BidderEmail:     leader.Email,
		PrevBidderEmail: prevEmail,
	}
	if err := s.notifier.BidPlaced(ctx, notice); err != nil {
		s.logger.Error().Err(err).Str("auction_id", out.Auction.ID.String()).Msg("Failed to dispatch BID_PLACED notification")
	}
}

func (s *BiddingService) notifyAuctionSuccess(a *auction.Auction) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seller, err := s.users.GetByID(ctx, a.SellerID)
	if err != nil || a.WinnerID == nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to load seller for success notification")
		return
	}
	winner, err := s.users.GetByID(ctx, *a.WinnerID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to load winner for success notification")
		return
	}

	notice := outbound.AuctionSuccessNotice{
		ProductName:   a.Name,
		FinalPrice:    a.CurrentPrice,
		SellerEmail:   seller.Email,
		SellerName:    seller.FullName,
		WinnerEmail:   winner.Email,
		WinnerName:    winner.FullName,
		WinnerAddress: winner.Address,
	}
	if err := s.notifier.AuctionSuccess(ctx, notice); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to dispatch AUCTION_SUCCESS notification")
	}
}

func (s *BiddingService) notifyBidRejected(auctionID uuid.UUID, bidderEmail string, req inbound.PlaceBidRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := s.ledger.GetAuction(ctx, auctionID)
	if err != nil {
		return
	}
	notice := outbound.BidRejectedNotice{
		ProductName: a.Name,
		Price:       req.Amount,
		BidderEmail: bidderEmail,
	}
	if err := s.notifier.BidRejected(ctx, notice); err != nil {
		s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to dispatch BID_REJECTED notification")
	}
}

func (s *BiddingService) publish(a *auction.Auction, eventType outbound.EventType) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	event := outbound.Event{
		Type:      eventType,
		AuctionID: a.ID,
		Snapshot:  snapshotOf(a),
		Timestamp: time.Now().Unix(),
	}
	if err := s.broadcaster.Publish(ctx, a.ID, event); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to publish live update")
	}
}

func snapshotOf(a *auction.Auction) shared.AuctionSnapshot {
	return shared.AuctionSnapshot{
		AuctionID:    a.ID,
		CurrentPrice: a.CurrentPrice,
		WinnerID:     a.WinnerID,
		EndTime:      a.EndTime,
		Status:       string(a.Status),
	}
}
