package broadcaster

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tradebidz-core-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBroadcaster implements the live update publisher using Redis pub/sub.
// Each committed bid/buy-now and each close publishes one snapshot on the
// auction's channel; subscribed WebSocket clients receive it through a local
// channel. Publishing is best-effort and never blocks the bidding path.
type RedisBroadcaster struct {
	client           *redis.Client
	subscribers      map[string]chan outbound.Event // clientID -> local channel
	pubsubs          map[string]*redis.PubSub       // clientID -> pubsub instance
	clientsToAuction map[string]map[string]bool     // clientID -> auctionID -> subscribed
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	logger           zerolog.Logger
}

type RedisBroadcasterParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewBroadcaster(params RedisBroadcasterParams) *RedisBroadcaster {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisBroadcaster{
		client:           params.RedisClient,
		subscribers:      make(map[string]chan outbound.Event),
		pubsubs:          make(map[string]*redis.PubSub),
		clientsToAuction: make(map[string]map[string]bool),
		ctx:              ctx,
		cancel:           cancel,
		logger:           params.Logger.With().Str("component", "redis_broadcaster").Logger(),
	}
}

func channelName(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction:%s", auctionID.String())
}

// Subscribe subscribes a client to live updates for a specific auction
func (r *RedisBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan outbound.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clientsToAuction[clientID] != nil && r.clientsToAuction[clientID][auctionID.String()] {
		return nil
	}

	if r.subscribers[clientID] == nil {
		r.subscribers[clientID] = eventChan
	}
	if r.clientsToAuction[clientID] == nil {
		r.clientsToAuction[clientID] = make(map[string]bool)
	}
	r.clientsToAuction[clientID][auctionID.String()] = true

	pubsub, exists := r.pubsubs[clientID]
	if !exists {
		pubsub = r.client.Subscribe(ctx)
		r.pubsubs[clientID] = pubsub
		go r.forwardMessages(pubsub, clientID, eventChan)
	}

	if err := pubsub.Subscribe(ctx, channelName(auctionID)); err != nil {
		r.logger.Error().Err(err).Str("client_id", clientID).Str("auction_id", auctionID.String()).Msg("Failed to subscribe to Redis channel")
		return err
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client subscribed to auction")
	return nil
}

// Unsubscribe removes a client's subscription to one auction
func (r *RedisBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clientAuctions, exists := r.clientsToAuction[clientID]
	if !exists {
		return nil
	}
	delete(clientAuctions, auctionID.String())

	if len(clientAuctions) == 0 {
		delete(r.clientsToAuction, clientID)

		// the ws handler owns the event channel and closes it on disconnect;
		// only the reference is dropped here
		delete(r.subscribers, clientID)
		if pubsub, ok := r.pubsubs[clientID]; ok {
			if err := pubsub.Close(); err != nil {
				r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
			}
			delete(r.pubsubs, clientID)
		}
	} else if pubsub, ok := r.pubsubs[clientID]; ok {
		if err := pubsub.Unsubscribe(ctx, channelName(auctionID)); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Str("auction_id", auctionID.String()).Msg("Error unsubscribing from Redis channel")
		}
	}

	r.logger.Info().
		Str("client_id", clientID).
		Str("auction_id", auctionID.String()).
		Msg("Client unsubscribed from auction")
	return nil
}

// Publish publishes a snapshot event to all subscribers of an auction
func (r *RedisBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	result := r.client.Publish(ctx, channelName(auctionID), payload)
	if err := result.Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis: %w", err)
	}

	r.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("auction_id", auctionID.String()).
		Int64("subscriber_count", result.Val()).
		Msg("Published event to auction channel")
	return nil
}

// IsSubscribed checks if a client is subscribed to an auction
func (r *RedisBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clientAuctions, exists := r.clientsToAuction[clientID]
	if !exists {
		return false
	}
	return clientAuctions[auctionID.String()]
}

// forwardMessages moves Redis messages onto the client's local channel,
// dropping events when the client cannot keep up.
func (r *RedisBroadcaster) forwardMessages(pubsub *redis.PubSub, clientID string, localChan chan outbound.Event) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Str("client_id", clientID).Msg("Broadcaster forwarder panic")
		}
	}()

	ch := pubsub.Channel()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				r.logger.Info().Str("client_id", clientID).Msg("Redis channel closed for client")
				return
			}

			var event outbound.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to unmarshal broadcast message")
				continue
			}

			select {
			case localChan <- event:
			default:
				r.logger.Warn().Str("client_id", clientID).Msg("Local channel full, dropping event")
			}

		case <-r.ctx.Done():
			return
		}
	}
}

// Close shuts down all subscriptions and the underlying client
func (r *RedisBroadcaster) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers = make(map[string]chan outbound.Event)
	for clientID, pubsub := range r.pubsubs {
		if err := pubsub.Close(); err != nil {
			r.logger.Error().Err(err).Str("client_id", clientID).Msg("Error closing Redis pubsub for client")
		}
		delete(r.pubsubs, clientID)
	}

	return r.client.Close()
}
