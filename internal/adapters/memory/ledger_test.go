package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebidz-core-service/internal/domain/auction"
	"tradebidz-core-service/internal/domain/bid"
	"tradebidz-core-service/internal/domain/shared"
	"tradebidz-core-service/internal/ports/outbound"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedAuction(l *Ledger, endsIn time.Duration) *auction.Auction {
	now := time.Now()
	a := &auction.Auction{
		ID:           uuid.New(),
		SellerID:     uuid.New(),
		Name:         "Vintage Camera",
		StartPrice:   dec("100"),
		CurrentPrice: dec("100"),
		StepPrice:    dec("10"),
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(endsIn),
		Status:       auction.StatusActive,
		CreatedAt:    now.Add(-time.Hour),
		UpdatedAt:    now.Add(-time.Hour),
	}
	l.PutAuction(a)
	return a
}

func TestWithAuction_CommitsOnNil(t *testing.T) {
	l := NewLedger()
	a := seedAuction(l, time.Hour)
	bidder := uuid.New()

	err := l.WithAuction(context.Background(), a.ID, func(tx outbound.LedgerTx) error {
		next := tx.Auction().Clone()
		next.SetLeader(dec("120"), bidder, time.Now())
		if err := tx.SaveAuction(context.Background(), next); err != nil {
			return err
		}
		return tx.AppendBid(context.Background(), bid.New(a.ID, bidder, dec("120"), dec("120"), false, time.Now()))
	})
	require.NoError(t, err)

	stored, err := l.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentPrice.Equal(dec("120")))
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, bidder, *stored.WinnerID)

	bids, err := l.ListBids(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, bids, 1)
}

func TestWithAuction_RollsBackOnError(t *testing.T) {
	l := NewLedger()
	a := seedAuction(l, time.Hour)
	boom := errors.New("boom")

	err := l.WithAuction(context.Background(), a.ID, func(tx outbound.LedgerTx) error {
		next := tx.Auction().Clone()
		next.SetLeader(dec("120"), uuid.New(), time.Now())
		if err := tx.SaveAuction(context.Background(), next); err != nil {
			return err
		}
		if err := tx.AppendBid(context.Background(), bid.New(a.ID, uuid.New(), dec("120"), dec("120"), false, time.Now())); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := l.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, stored.CurrentPrice.Equal(dec("100")))
	assert.Nil(t, stored.WinnerID)

	bids, err := l.ListBids(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, bids)
}

func TestWithAuction_UnknownAuction(t *testing.T) {
	l := NewLedger()

	err := l.WithAuction(context.Background(), uuid.New(), func(tx outbound.LedgerTx) error {
		t.Fatal("callback must not run")
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestWithAuction_LockWaitBoundedByContext(t *testing.T) {
	l := NewLedger()
	a := seedAuction(l, time.Hour)

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithAuction(context.Background(), a.ID, func(tx outbound.LedgerTx) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := l.WithAuction(ctx, a.ID, func(tx outbound.LedgerTx) error {
		t.Fatal("callback must not run while the lock is held")
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrLockWaitTimeout)
}

func TestWithAuction_LocksAreIndependentPerAuction(t *testing.T) {
	l := NewLedger()
	a := seedAuction(l, time.Hour)
	b := seedAuction(l, time.Hour)

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.WithAuction(context.Background(), a.ID, func(tx outbound.LedgerTx) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := l.WithAuction(ctx, b.ID, func(tx outbound.LedgerTx) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestLeadingBid_HighestCeilingEarliestTime(t *testing.T) {
	l := NewLedger()
	a := seedAuction(l, time.Hour)

	first := uuid.New()
	second := uuid.New()
	base := time.Now()

	err := l.WithAuction(context.Background(), a.ID, func(tx outbound.LedgerTx) error {
		if err := tx.AppendBid(context.Background(), bid.New(a.ID, first, dec("100"), dec("150"), true, base)); err != nil {
			return err
		}
		// same ceiling, later arrival: must not take the lead
		return tx.AppendBid(context.Background(), bid.New(a.ID, second, dec("110"), dec("150"), true, base.Add(time.Second)))
	})
	require.NoError(t, err)

	err = l.WithAuction(context.Background(), a.ID, func(tx outbound.LedgerTx) error {
		leader, err := tx.LeadingBid(context.Background())
		if err != nil {
			return err
		}
		assert.Equal(t, first, leader.BidderID)
		return nil
	})
	require.NoError(t, err)
}

func TestLeadingBid_NoBids(t *testing.T) {
	l := NewLedger()
	a := seedAuction(l, time.Hour)

	err := l.WithAuction(context.Background(), a.ID, func(tx outbound.LedgerTx) error {
		_, err := tx.LeadingBid(context.Background())
		return err
	})
	assert.ErrorIs(t, err, shared.ErrNoBidsFound)
}

func TestFindExpired(t *testing.T) {
	l := NewLedger()
	now := time.Now()

	lapsed := seedAuction(l, -time.Minute)
	running := seedAuction(l, time.Hour)

	closed := seedAuction(l, -time.Minute)
	closed.Status = auction.StatusExpired
	l.PutAuction(closed)

	ids, err := l.FindExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Contains(t, ids, lapsed.ID)
	assert.NotContains(t, ids, running.ID)
	assert.NotContains(t, ids, closed.ID)
}

func TestGetAuction_ReturnsACopy(t *testing.T) {
	l := NewLedger()
	a := seedAuction(l, time.Hour)

	got, err := l.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)

	got.CurrentPrice = dec("999")
	again, err := l.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, again.CurrentPrice.Equal(dec("100")))
}
