package ws

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebidz-core-service/internal/domain/shared"
)

func TestParseClientMessage_PlaceBid(t *testing.T) {
	auctionID := uuid.New()
	raw := []byte(`{
		"type": "place_bid",
		"auction_id": "` + auctionID.String() + `",
		"amount": 150.55,
		"is_proxy": true,
		"max_amount": 300.10
	}`)

	msg, err := ParseClientMessage(raw)
	require.NoError(t, err)
	require.NoError(t, msg.Validate())

	assert.Equal(t, MessageTypePlaceBid, msg.Type)
	assert.Equal(t, auctionID, *msg.AuctionID)
	assert.True(t, msg.IsProxy)
	// amounts survive the boundary without float rounding
	assert.Equal(t, "150.55", msg.Amount.String())
	assert.Equal(t, "300.1", msg.MaxAmount.String())
}

func TestParseClientMessage_Invalid(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{not json`))
	assert.Error(t, err)

	_, err = ParseClientMessage([]byte(`{"auction_id": "` + uuid.New().String() + `"}`))
	assert.ErrorIs(t, err, shared.ErrMessageTypeRequired)
}

func TestClientMessage_Validate(t *testing.T) {
	auctionID := uuid.New()
	amount := decimal.NewFromInt(100)

	tests := []struct {
		name    string
		msg     ClientMessage
		wantErr error
	}{
		{
			name: "subscribe needs auction id",
			msg:  ClientMessage{Type: MessageTypeSubscribe},
			wantErr: shared.ErrAuctionIDRequired,
		},
		{
			name: "nil auction uuid rejected",
			msg:  ClientMessage{Type: MessageTypeGetAuction, AuctionID: &uuid.Nil},
			wantErr: shared.ErrAuctionIDRequired,
		},
		{
			name: "place bid needs amount",
			msg:  ClientMessage{Type: MessageTypePlaceBid, AuctionID: &auctionID},
			wantErr: shared.ErrInvalidAmount,
		},
		{
			name: "place bid rejects non-positive amount",
			msg: ClientMessage{
				Type: MessageTypePlaceBid, AuctionID: &auctionID,
				Amount: decimalPtr(decimal.Zero),
			},
			wantErr: shared.ErrInvalidAmount,
		},
		{
			name: "proxy bid needs a ceiling",
			msg: ClientMessage{
				Type: MessageTypePlaceBid, AuctionID: &auctionID,
				Amount: &amount, IsProxy: true,
			},
			wantErr: shared.ErrInvalidAmount,
		},
		{
			name:    "unknown type",
			msg:     ClientMessage{Type: "dance"},
			wantErr: shared.ErrUnknownMessageType,
		},
		{
			name: "ping needs nothing",
			msg:  ClientMessage{Type: MessageTypePing},
		},
		{
			name: "direct bid",
			msg: ClientMessage{
				Type: MessageTypePlaceBid, AuctionID: &auctionID, Amount: &amount,
			},
		},
		{
			name: "buy now",
			msg:  ClientMessage{Type: MessageTypeBuyNow, AuctionID: &auctionID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewErrorMessage_CarriesKind(t *testing.T) {
	auctionID := uuid.New()

	msg := NewErrorMessage(shared.ErrBidBelowMinimum, &auctionID)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, auctionID, *msg.AuctionID)
	require.NotNil(t, msg.ErrorKind)
	assert.Equal(t, string(shared.KindInvalidBid), *msg.ErrorKind)

	msg = NewErrorMessage(shared.ErrLockWaitTimeout, nil)
	assert.Equal(t, string(shared.KindTransient), *msg.ErrorKind)
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
