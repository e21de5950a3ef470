// Package events publishes reservation lifecycle events to a message broker.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restaurant-reservation/pkg/utils"

	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

// Reservation subjects
const (
	ReservationCreated  = "reservation.created"
	ReservationAccepted = "reservation.accepted"
	ReservationDenied   = "reservation.denied"
	ReservationCanceled = "reservation.canceled"
	ReservationVisited  = "reservation.visited"
	ReservationExpired  = "reservation.expired"
)

type ReservationEvent struct {
	Number         string    `json:"reservation_number"`
	MemberID       string    `json:"member_id"`
	RestaurantID   string    `json:"restaurant_id"`
	RestaurantName string    `json:"restaurant_name,omitempty"`
	RequestedHour  string    `json:"requested_hour"`
	Status         string    `json:"status"`
	Resolution     string    `json:"resolution,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewPublisher picks the broker named in config. "none" or an empty kind
// yields a publisher that drops every event.
func NewPublisher(config utils.BrokerConfig, log *zap.Logger) (Publisher, error) {
	switch strings.ToLower(config.Kind) {
	case "", "none":
		return NoopPublisher{}, nil
	case "nats":
		return NewNATSPublisher(config.NATSURL, log)
	case "rabbitmq", "amqp":
		return NewRabbitMQPublisher(config.RabbitMQURL, log)
	default:
		return nil, fmt.Errorf("unknown event broker %q", config.Kind)
	}
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                               { return nil }
