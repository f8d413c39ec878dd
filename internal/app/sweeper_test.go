package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebidz-core-service/internal/adapters/memory"
	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/domain/shared"
	"tradebidz-core-service/internal/engine"
	"tradebidz-core-service/internal/ports/inbound"
	"tradebidz-core-service/internal/ports/outbound"
)

type sweeperFixture struct {
	ledger      *memory.Ledger
	users       *memory.UserDirectory
	notifier    *recordingNotifier
	broadcaster *recordingBroadcaster
	sweeper     *ExpirySweeper
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()

	f := &sweeperFixture{
		ledger:      memory.NewLedger(),
		users:       memory.NewUserDirectory(),
		notifier:    &recordingNotifier{},
		broadcaster: &recordingBroadcaster{},
	}
	f.sweeper = NewExpirySweeper(ExpirySweeperParams{
		Ledger:       f.ledger,
		Users:        f.users,
		Notifier:     f.notifier,
		Broadcaster:  f.broadcaster,
		Interval:     time.Hour, // driven manually in tests
		CloseTimeout: time.Second,
		Workers:      4,
		Logger:       zerolog.Nop(),
	})
	t.Cleanup(f.sweeper.Stop)
	return f
}

func (f *sweeperFixture) seedUser(name, email string) uuid.UUID {
	id := uuid.New()
	f.users.Put(&shared.User{ID: id, Email: email, FullName: name, Address: "1 Main St"})
	return id
}

func (f *sweeperFixture) seedAuction(sellerID uuid.UUID, endsIn time.Duration, winnerID *uuid.UUID) *auction.Auction {
	now := time.Now()
	a := &auction.Auction{
		ID:           uuid.New(),
		SellerID:     sellerID,
		Name:         "Vintage Camera",
		StartPrice:   dec("100"),
		CurrentPrice: dec("100"),
		StepPrice:    dec("10"),
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(endsIn),
		Status:       auction.StatusActive,
		WinnerID:     winnerID,
		CreatedAt:    now.Add(-time.Hour),
		UpdatedAt:    now.Add(-time.Hour),
	}
	f.ledger.PutAuction(a)
	return a
}

func TestCloseAuction_SoldWhenWinnerExists(t *testing.T) {
	f := newSweeperFixture(t)
	seller := f.seedUser("Seller", "seller@example.com")
	winner := f.seedUser("Alice", "alice@example.com")
	a := f.seedAuction(seller, -time.Minute, &winner)

	require.NoError(t, f.sweeper.CloseAuction(a.ID))

	stored, err := f.ledger.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusSold, stored.Status)

	require.Len(t, f.notifier.success, 1)
	assert.Equal(t, "seller@example.com", f.notifier.success[0].SellerEmail)
	assert.Equal(t, "alice@example.com", f.notifier.success[0].WinnerEmail)
	assert.Empty(t, f.notifier.failed)

	events := f.broadcaster.published()
	require.Len(t, events, 1)
	assert.Equal(t, outbound.EventTypeAuctionEnded, events[0].Type)
}

func TestCloseAuction_ExpiredWhenNoBids(t *testing.T) {
	f := newSweeperFixture(t)
	seller := f.seedUser("Seller", "seller@example.com")
	a := f.seedAuction(seller, -time.Minute, nil)

	require.NoError(t, f.sweeper.CloseAuction(a.ID))

	stored, err := f.ledger.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusExpired, stored.Status)

	require.Len(t, f.notifier.failed, 1)
	assert.Equal(t, "seller@example.com", f.notifier.failed[0].SellerEmail)
	assert.Empty(t, f.notifier.success)
}

func TestCloseAuction_SkipsStillRunning(t *testing.T) {
	f := newSweeperFixture(t)
	seller := f.seedUser("Seller", "seller@example.com")
	a := f.seedAuction(seller, time.Hour, nil)

	require.NoError(t, f.sweeper.CloseAuction(a.ID))

	stored, err := f.ledger.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusActive, stored.Status)
	assert.Empty(t, f.notifier.failed)
	assert.Empty(t, f.broadcaster.published())
}

func TestCloseAuction_ExactlyOnceUnderConcurrency(t *testing.T) {
	f := newSweeperFixture(t)
	seller := f.seedUser("Seller", "seller@example.com")
	winner := f.seedUser("Alice", "alice@example.com")
	a := f.seedAuction(seller, -time.Minute, &winner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.sweeper.CloseAuction(a.ID)
		}()
	}
	wg.Wait()

	stored, err := f.ledger.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusSold, stored.Status)

	// the re-check under the lock makes every duplicate close a no-op
	assert.Len(t, f.notifier.success, 1)
	assert.Len(t, f.broadcaster.published(), 1)
}

func TestSweep_ClosesOnlyExpiredAuctions(t *testing.T) {
	f := newSweeperFixture(t)
	seller := f.seedUser("Seller", "seller@example.com")
	winner := f.seedUser("Alice", "alice@example.com")

	sold := f.seedAuction(seller, -time.Minute, &winner)
	lapsed := f.seedAuction(seller, -time.Second, nil)
	running := f.seedAuction(seller, time.Hour, nil)

	f.sweeper.Sweep()

	require.Eventually(t, func() bool {
		a1, _ := f.ledger.GetAuction(context.Background(), sold.ID)
		a2, _ := f.ledger.GetAuction(context.Background(), lapsed.ID)
		return a1.Status == auction.StatusSold && a2.Status == auction.StatusExpired
	}, 2*time.Second, 10*time.Millisecond)

	stored, err := f.ledger.GetAuction(context.Background(), running.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusActive, stored.Status)
}

func TestSweep_OneFailureDoesNotBlockOthers(t *testing.T) {
	f := newSweeperFixture(t)
	seller := f.seedUser("Seller", "seller@example.com")

	// this auction's seller is unknown, its notification fails quietly
	orphan := f.seedAuction(uuid.New(), -time.Minute, nil)
	healthy := f.seedAuction(seller, -time.Minute, nil)

	f.sweeper.Sweep()

	require.Eventually(t, func() bool {
		a1, _ := f.ledger.GetAuction(context.Background(), orphan.ID)
		a2, _ := f.ledger.GetAuction(context.Background(), healthy.ID)
		return a1.Status == auction.StatusExpired && a2.Status == auction.StatusExpired
	}, 2*time.Second, 10*time.Millisecond)

	assert.Len(t, f.notifier.failed, 1)
}

// A close and a late bid race on the same lock. Whichever wins, the final
// state is coherent: either the bid landed before the close and the auction
// sold to the bidder, or the close won and the bid bounced.
func TestCloseAuction_RacesWithLateBid(t *testing.T) {
	f := newSweeperFixture(t)
	seller := f.seedUser("Seller", "seller@example.com")
	winner := f.seedUser("Alice", "alice@example.com")
	bidder := f.seedUser("Bob", "bob@example.com")
	a := f.seedAuction(seller, -time.Millisecond, &winner)

	bidding := NewBiddingService(BiddingServiceParams{
		Ledger:      f.ledger,
		Users:       f.users,
		Notifier:    f.notifier,
		Broadcaster: f.broadcaster,
		Engine:      engine.New(engine.DefaultRules()),
		LockWait:    time.Second,
		Logger:      zerolog.Nop(),
	})

	var wg sync.WaitGroup
	var bidErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = f.sweeper.CloseAuction(a.ID)
	}()
	go func() {
		defer wg.Done()
		_, bidErr = bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
			AuctionID: a.ID, BidderID: bidder, Amount: dec("200"),
		})
	}()
	wg.Wait()

	stored, err := f.ledger.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, auction.StatusSold, stored.Status)

	if bidErr == nil {
		t.Fatal("a bid after the end time must be rejected")
	}
	kind := shared.KindOf(bidErr)
	assert.Contains(t, []shared.Kind{shared.KindInvalidState}, kind)
	assert.Equal(t, winner, *stored.WinnerID)
}
