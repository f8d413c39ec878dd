package app

import (
	"context"
	"sync"
	"time"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/ports/outbound"
)

// ExpirySweeper closes auctions whose end time has passed while still ACTIVE:
// SOLD when a winner exists, EXPIRED otherwise, each exactly once. The ticker
// only enqueues per-auction close jobs; each job locks its own auction with
// its own timeout so one stuck record cannot stall the cycle.
type ExpirySweeper struct {
	ledger       outbound.Ledger
	users        outbound.UserDirectory
	notifier     outbound.Notifier
	broadcaster  outbound.Broadcaster
	interval     time.Duration
	closeTimeout time.Duration
	pool         *pond.WorkerPool
	logger       zerolog.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

type ExpirySweeperParams struct {
	Ledger       outbound.Ledger
	Users        outbound.UserDirectory
	Notifier     outbound.Notifier
	Broadcaster  outbound.Broadcaster
	Interval     time.Duration
	CloseTimeout time.Duration
	Workers      int
	Logger       zerolog.Logger
}

func NewExpirySweeper(params ExpirySweeperParams) *ExpirySweeper {
	ctx, cancel := context.WithCancel(context.Background())

	workers := params.Workers
	if workers <= 0 {
		workers = 4
	}

	return &ExpirySweeper{
		ledger:       params.Ledger,
		users:        params.Users,
		notifier:     params.Notifier,
		broadcaster:  params.Broadcaster,
		interval:     params.Interval,
		closeTimeout: params.CloseTimeout,
		pool:         pond.New(workers, workers*8, pond.Context(ctx)),
		logger:       params.Logger.With().Str("component", "expiry_sweeper").Logger(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins the sweep loop
func (s *ExpirySweeper) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("Starting expiry sweeper")
	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop gracefully stops the sweeper, waiting for in-flight close jobs
func (s *ExpirySweeper) Stop() {
	s.logger.Info().Msg("Stopping expiry sweeper")
	s.cancel()
	s.wg.Wait()
	s.pool.StopAndWait()
}

func (s *ExpirySweeper) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.ctx.Done():
			s.logger.Info().Msg("Sweep loop stopped")
			return
		}
	}
}

// Sweep runs one cycle: find every ACTIVE auction past its end time and
// enqueue an independent close job for each.
func (s *ExpirySweeper) Sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, s.closeTimeout)
	defer cancel()

	expired, err := s.ledger.FindExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to find expired auctions")
		return
	}
	if len(expired) == 0 {
		return
	}

	s.logger.Info().Int("count", len(expired)).Msg("Found expired auctions")

	for _, id := range expired {
		auctionID := id
		s.pool.Submit(func() {
			if err := s.CloseAuction(auctionID); err != nil {
				s.logger.Error().Err(err).Str("auction_id", auctionID.String()).Msg("Failed to close expired auction")
			}
		})
	}
}

// CloseAuction closes one expired auction under the same per-auction lock
// discipline as bidding, so a close can never race a bid on the same auction.
func (s *ExpirySweeper) CloseAuction(auctionID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.closeTimeout)
	defer cancel()

	var closed *auction.Auction

	err := s.ledger.WithAuction(ctx, auctionID, func(tx outbound.LedgerTx) error {
		a := tx.Auction()

		// Re-check under the lock: a concurrent bid may have extended the
		// auction, or another sweep may have closed it already.
		now := time.Now()
		if !a.IsActive() || !a.HasEnded(now) {
			return nil
		}

		next := a.Clone()
		if next.WinnerID != nil {
			next.MarkSold(now)
		} else {
			next.MarkExpired(now)
		}
		if err := tx.SaveAuction(ctx, next); err != nil {
			return err
		}
		closed = next
		return nil
	})
	if err != nil {
		return err
	}
	if closed == nil {
		return nil
	}

	if closed.Status == auction.StatusSold {
		s.logger.Info().
			Str("auction_id", auctionID.String()).
			Str("winner_id", closed.WinnerID.String()).
			Str("final_price", closed.CurrentPrice.String()).
			Msg("Auction closed as SOLD")
		s.notifySuccess(closed)
	} else {
		s.logger.Info().Str("auction_id", auctionID.String()).Msg("Auction closed as EXPIRED with no bids")
		s.notifyFail(closed)
	}

	s.publishEnded(closed)
	return nil
}

func (s *ExpirySweeper) notifySuccess(a *auction.Auction) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seller, err := s.users.GetByID(ctx, a.SellerID)
	if err != nil {
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

func (s *ExpirySweeper) notifyFail(a *auction.Auction) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	seller, err := s.users.GetByID(ctx, a.SellerID)
	if err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to load seller for fail notification")
		return
	}

	notice := outbound.AuctionFailNotice{
		ProductName: a.Name,
		SellerEmail: seller.Email,
	}
	if err := s.notifier.AuctionFail(ctx, notice); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to dispatch AUCTION_FAIL notification")
	}
}

func (s *ExpirySweeper) publishEnded(a *auction.Auction) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	event := outbound.Event{
		Type:      outbound.EventTypeAuctionEnded,
		AuctionID: a.ID,
		Snapshot:  snapshotOf(a),
		Timestamp: time.Now().Unix(),
	}
	if err := s.broadcaster.Publish(ctx, a.ID, event); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to broadcast auction end event")
	}
}
