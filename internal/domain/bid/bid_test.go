package bid

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOutranks(t *testing.T) {
	auctionID := uuid.New()
	base := time.Now()

	high := New(auctionID, uuid.New(), decimal.NewFromInt(100), decimal.NewFromInt(200), true, base.Add(time.Second))
	low := New(auctionID, uuid.New(), decimal.NewFromInt(100), decimal.NewFromInt(150), true, base)

	assert.True(t, high.Outranks(low), "higher ceiling wins regardless of time")
	assert.False(t, low.Outranks(high))

	early := New(auctionID, uuid.New(), decimal.NewFromInt(100), decimal.NewFromInt(200), true, base)
	assert.True(t, early.Outranks(high), "equal ceiling: earlier bid wins")
	assert.False(t, high.Outranks(early))

	assert.True(t, low.Outranks(nil))
}
