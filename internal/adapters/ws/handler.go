package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tradebidz-core-service/internal/domain/shared"
	"tradebidz-core-service/internal/ports/inbound"
	"tradebidz-core-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WsHandler manages WebSocket connections and message routing
type WsHandler struct {
	clients        map[string]*WsClient
	clientsMu      sync.RWMutex
	eventChannels  map[string]chan outbound.Event
	channelsMu     sync.RWMutex
	upgrader       websocket.Upgrader
	biddingService inbound.BiddingService
	auctionService inbound.AuctionService
	broadcaster    outbound.Broadcaster
	limiter        *ClientLimiter
	logger         zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader       websocket.Upgrader
	BiddingService inbound.BiddingService
	AuctionService inbound.AuctionService
	Broadcaster    outbound.Broadcaster
	Limiter        *ClientLimiter
	Logger         zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:        make(map[string]*WsClient),
		eventChannels:  make(map[string]chan outbound.Event),
		upgrader:       params.Upgrader,
		biddingService: params.BiddingService,
		auctionService: params.AuctionService,
		broadcaster:    params.Broadcaster,
		limiter:        params.Limiter,
		logger:         params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket handles WebSocket connection upgrades
func (h *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("user_id")
	if userIDStr == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		http.Error(w, "invalid user_id format", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		UserID:  userID,
		Conn:    conn,
		Handler: h,
		Logger:  h.logger,
	})

	h.registerClient(client)
	h.createEventChannel(client.id)
	client.Start()
	go h.listenForClientEvents(client)

	go func() {
		<-client.ctx.Done()
		h.unregisterClient(client)
	}()

	h.logger.Info().Str("client_id", client.id).Str("user_id", client.userID.String()).Msg("WebSocket client connected")
}

func (h *WsHandler) createEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	if eventChan, exists := h.eventChannels[clientID]; exists {
		return eventChan
	}
	eventChan := make(chan outbound.Event, 100)
	h.eventChannels[clientID] = eventChan
	return eventChan
}

func (h *WsHandler) getEventChannel(clientID string) chan outbound.Event {
	h.channelsMu.RLock()
	defer h.channelsMu.RUnlock()
	return h.eventChannels[clientID]
}

func (h *WsHandler) removeEventChannel(clientID string) {
	h.channelsMu.Lock()
	defer h.channelsMu.Unlock()

	if eventChan, exists := h.eventChannels[clientID]; exists {
		close(eventChan)
		delete(h.eventChannels, clientID)
	}
}

func (h *WsHandler) registerClient(client *WsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[client.id] = client
}

func (h *WsHandler) unregisterClient(client *WsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	delete(h.clients, client.id)
	client.Stop()
	h.removeEventChannel(client.id)

	h.logger.Info().Str("client_id", client.id).Int("total_clients", len(h.clients)).Msg("WebSocket client disconnected")
}

// listenForClientEvents forwards broadcast events to the client's socket
func (h *WsHandler) listenForClientEvents(client *WsClient) {
	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		h.logger.Error().Str("client_id", client.id).Msg("No event channel found for client")
		return
	}

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := client.Send(convertEventToMessage(event)); err != nil {
				h.logger.Error().Err(err).Str("client_id", client.id).Msg("Failed to forward event to client")
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func convertEventToMessage(event outbound.Event) *ServerMessage {
	msgType := MessageTypeAuctionUpdate
	if event.Type == outbound.EventTypeAuctionEnded {
		msgType = MessageTypeAuctionEnded
	}

	msg := NewServerMessage(msgType)
	msg.AuctionID = &event.AuctionID
	msg.Data["current_price"] = event.Snapshot.CurrentPrice
	msg.Data["end_time"] = event.Snapshot.EndTime.Format(time.RFC3339)
	msg.Data["status"] = event.Snapshot.Status
	if event.Snapshot.WinnerID != nil {
		msg.Data["winner_id"] = event.Snapshot.WinnerID.String()
	}
	msg.Timestamp = event.Timestamp
	return msg
}

// HandleClientMessage routes a validated client message
func (h *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	if h.limiter != nil && !h.limiter.Allow(client.id) {
		h.logger.Warn().Str("client_id", client.id).Msg("Client over rate limit")
		return client.Send(NewErrorMessage(shared.ErrRateLimited, msg.AuctionID))
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		return h.handleSubscribe(client, msg)
	case MessageTypeUnsubscribe:
		return h.handleUnsubscribe(client, msg)
	case MessageTypePlaceBid:
		return h.handlePlaceBid(client, msg)
	case MessageTypeBuyNow:
		return h.handleBuyNow(client, msg)
	case MessageTypeGetAuction:
		return h.handleGetAuction(client, msg)
	case MessageTypeListBids:
		return h.handleListBids(client, msg)
	default:
		return shared.ErrUnknownMessageType
	}
}

func (h *WsHandler) handleSubscribe(client *WsClient, msg *ClientMessage) error {
	eventChan := h.getEventChannel(client.id)
	if eventChan == nil {
		return shared.ErrUnknownMessageType
	}

	if err := h.broadcaster.Subscribe(context.Background(), *msg.AuctionID, client.id, eventChan); err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "subscribed"
	return client.Send(response)
}

func (h *WsHandler) handleUnsubscribe(client *WsClient, msg *ClientMessage) error {
	if err := h.broadcaster.Unsubscribe(context.Background(), *msg.AuctionID, client.id); err != nil {
		return err
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["status"] = "unsubscribed"
	return client.Send(response)
}

func (h *WsHandler) handlePlaceBid(client *WsClient, msg *ClientMessage) error {
	maxAmount := *msg.Amount
	if msg.IsProxy {
		maxAmount = *msg.MaxAmount
	}

	req := inbound.PlaceBidRequest{
		AuctionID: *msg.AuctionID,
		BidderID:  client.userID,
		Amount:    *msg.Amount,
		IsProxy:   msg.IsProxy,
		MaxAmount: maxAmount,
	}

	result, err := h.biddingService.PlaceBid(context.Background(), req)
	if err != nil {
		return client.Send(NewErrorMessage(err, msg.AuctionID))
	}

	return client.Send(bidResultMessage(msg.AuctionID, result))
}

func (h *WsHandler) handleBuyNow(client *WsClient, msg *ClientMessage) error {
	req := inbound.BuyNowRequest{
		AuctionID: *msg.AuctionID,
		BuyerID:   client.userID,
	}

	result, err := h.biddingService.BuyNow(context.Background(), req)
	if err != nil {
		return client.Send(NewErrorMessage(err, msg.AuctionID))
	}

	return client.Send(bidResultMessage(msg.AuctionID, result))
}

func (h *WsHandler) handleGetAuction(client *WsClient, msg *ClientMessage) error {
	a, err := h.auctionService.GetAuction(context.Background(), *msg.AuctionID)
	if err != nil {
		return client.Send(NewErrorMessage(err, msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["auction"] = a
	return client.Send(response)
}

func (h *WsHandler) handleListBids(client *WsClient, msg *ClientMessage) error {
	bids, err := h.auctionService.ListBids(context.Background(), *msg.AuctionID)
	if err != nil {
		return client.Send(NewErrorMessage(err, msg.AuctionID))
	}

	response := NewServerMessage(MessageTypeAuctionUpdate)
	response.AuctionID = msg.AuctionID
	response.Data["bids"] = bids
	response.Data["count"] = len(bids)
	return client.Send(response)
}

func bidResultMessage(auctionID *uuid.UUID, result *inbound.BidResult) *ServerMessage {
	response := NewServerMessage(MessageTypeBidResult)
	response.AuctionID = auctionID
	response.Data["accepted"] = result.Accepted
	response.Data["current_price"] = result.Snapshot.CurrentPrice
	response.Data["end_time"] = result.Snapshot.EndTime.Format(time.RFC3339)
	response.Data["status"] = result.Snapshot.Status
	if result.Snapshot.WinnerID != nil {
		response.Data["winner_id"] = result.Snapshot.WinnerID.String()
	}
	return response
}
