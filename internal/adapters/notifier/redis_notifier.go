// Package notifier dispatches notification events onto a Redis stream. A
// separate mailer service consumes the stream and owns delivery, queueing and
// retries; from the core's side every send is at-most-once effort.
package notifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tradebidz-core-service/internal/ports/outbound"
)

const notificationStream = "notification_stream"

// RedisNotifier implements the notifier port with XADD on a well-known stream
type RedisNotifier struct {
	client *redis.Client
	logger zerolog.Logger
}

type RedisNotifierParams struct {
	RedisClient *redis.Client
	Logger      zerolog.Logger
}

func NewNotifier(params RedisNotifierParams) *RedisNotifier {
	return &RedisNotifier{
		client: params.RedisClient,
		logger: params.Logger.With().Str("component", "redis_notifier").Logger(),
	}
}

// BidPlaced emits a BID_PLACED event
func (n *RedisNotifier) BidPlaced(ctx context.Context, notice outbound.BidPlacedNotice) error {
	return n.add(ctx, map[string]interface{}{
		"type":              "BID_PLACED",
		"product_name":      notice.ProductName,
		"new_price":         notice.NewPrice.String(),
		"seller_email":      notice.SellerEmail,
		"bidder_email":      notice.BidderEmail,
		"prev_bidder_email": notice.PrevBidderEmail,
	})
}

// AuctionSuccess emits an AUCTION_SUCCESS event
func (n *RedisNotifier) AuctionSuccess(ctx context.Context, notice outbound.AuctionSuccessNotice) error {
	return n.add(ctx, map[string]interface{}{
		"type":           "AUCTION_SUCCESS",
		"product_name":   notice.ProductName,
		"price":          notice.FinalPrice.String(),
		"seller_email":   notice.SellerEmail,
		"seller_name":    notice.SellerName,
		"winner_email":   notice.WinnerEmail,
		"winner_name":    notice.WinnerName,
		"winner_address": notice.WinnerAddress,
	})
}

// AuctionFail emits an AUCTION_FAIL event
func (n *RedisNotifier) AuctionFail(ctx context.Context, notice outbound.AuctionFailNotice) error {
	return n.add(ctx, map[string]interface{}{
		"type":         "AUCTION_FAIL",
		"product_name": notice.ProductName,
		"seller_email": notice.SellerEmail,
	})
}

// BidRejected emits a BID_REJECTED event
func (n *RedisNotifier) BidRejected(ctx context.Context, notice outbound.BidRejectedNotice) error {
	return n.add(ctx, map[string]interface{}{
		"type":         "BID_REJECTED",
		"product_name": notice.ProductName,
		"new_price":    notice.Price.String(),
		"bidder_email": notice.BidderEmail,
	})
}

func (n *RedisNotifier) add(ctx context.Context, values map[string]interface{}) error {
	err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: notificationStream,
		Values: values,
	}).Err()
	if err != nil {
		n.logger.Error().Err(err).Interface("values", values).Msg("Failed to append notification event")
		return fmt.Errorf("failed to append notification event: %w", err)
	}

	n.logger.Debug().Str("type", fmt.Sprint(values["type"])).Msg("Notification event appended")
	return nil
}
