package auction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimumBid(t *testing.T) {
	a := &Auction{
		StartPrice:   decimal.NewFromInt(100),
		CurrentPrice: decimal.NewFromInt(100),
		StepPrice:    decimal.NewFromInt(10),
	}
	assert.True(t, a.MinimumBid().Equal(decimal.NewFromInt(100)), "no leader: start price is enough")

	a.SetLeader(decimal.NewFromInt(100), uuid.New(), time.Now())
	assert.True(t, a.MinimumBid().Equal(decimal.NewFromInt(110)), "led: current plus step")
}

func TestSetLeader_PriceNeverDrops(t *testing.T) {
	a := &Auction{CurrentPrice: decimal.NewFromInt(140)}

	late := uuid.New()
	a.SetLeader(decimal.NewFromInt(120), late, time.Now())

	assert.True(t, a.CurrentPrice.Equal(decimal.NewFromInt(140)))
	require.NotNil(t, a.WinnerID)
	assert.Equal(t, late, *a.WinnerID)
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusActive.IsTerminal())
	assert.True(t, StatusSold.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestClone_IsDeep(t *testing.T) {
	buyNow := decimal.NewFromInt(500)
	winner := uuid.New()
	a := &Auction{
		ID:          uuid.New(),
		BuyNowPrice: &buyNow,
		WinnerID:    &winner,
	}

	cp := a.Clone()
	*cp.BuyNowPrice = decimal.NewFromInt(999)
	*cp.WinnerID = uuid.New()

	assert.True(t, a.BuyNowPrice.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, winner, *a.WinnerID)
}
