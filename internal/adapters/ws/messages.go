package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"tradebidz-core-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MessageType string

const (
	// Client to Server message types
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypePlaceBid    MessageType = "place_bid"
	MessageTypeBuyNow      MessageType = "buy_now"
	MessageTypeGetAuction  MessageType = "get_auction"
	MessageTypeListBids    MessageType = "list_bids"
	MessageTypePing        MessageType = "ping"

	// Server to Client message types
	MessageTypeBidResult     MessageType = "bid_result"
	MessageTypeAuctionUpdate MessageType = "auction_update"
	MessageTypeAuctionEnded  MessageType = "auction_ended"
	MessageTypeError         MessageType = "error"
	MessageTypePong          MessageType = "pong"
)

// ClientMessage is a message sent from client to server. Amounts are decoded
// with decimal.Decimal so no precision is lost at the boundary.
type ClientMessage struct {
	Type      MessageType      `json:"type"`
	AuctionID *uuid.UUID       `json:"auction_id,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	IsProxy   bool             `json:"is_proxy,omitempty"`
	MaxAmount *decimal.Decimal `json:"max_amount,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// ServerMessage represents a message sent from server to client
type ServerMessage struct {
	Type      MessageType            `json:"type"`
	AuctionID *uuid.UUID             `json:"auction_id,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *string                `json:"error,omitempty"`
	ErrorKind *string                `json:"error_kind,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewServerMessage(msgType MessageType) *ServerMessage {
	return &ServerMessage{
		Type:      msgType,
		Data:      make(map[string]interface{}),
		Timestamp: time.Now().Unix(),
	}
}

// NewErrorMessage wraps a rejection so the client can distinguish retryable
// failures from invalid requests.
func NewErrorMessage(err error, auctionID *uuid.UUID) *ServerMessage {
	text := err.Error()
	kind := string(shared.KindOf(err))
	return &ServerMessage{
		Type:      MessageTypeError,
		AuctionID: auctionID,
		Error:     &text,
		ErrorKind: &kind,
		Timestamp: time.Now().Unix(),
	}
}

// ParseClientMessage parses a JSON message from client
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse client message: %w", err)
	}
	if msg.Type == "" {
		return nil, shared.ErrMessageTypeRequired
	}
	return &msg, nil
}

func (m *ClientMessage) validateAuctionID() error {
	if m.AuctionID == nil || *m.AuctionID == uuid.Nil {
		return shared.ErrAuctionIDRequired
	}
	return nil
}

// Validate validates a client message
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case MessageTypeSubscribe, MessageTypeUnsubscribe, MessageTypeBuyNow,
		MessageTypeGetAuction, MessageTypeListBids:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
	case MessageTypePlaceBid:
		if err := m.validateAuctionID(); err != nil {
			return err
		}
		if m.Amount == nil || m.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.ErrInvalidAmount
		}
		if m.IsProxy && m.MaxAmount == nil {
			return shared.ErrInvalidAmount
		}
	case MessageTypePing:

	default:
		return shared.ErrUnknownMessageType
	}
	return nil
}
