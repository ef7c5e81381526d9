package service

import (
	"context"
	"log"
	"time"

	"carpool/internal/domain"
)

// EventType is the routing key of a domain event.
type EventType string

const (
	EventGroupCreated     EventType = "group.created"
	EventGroupJoined      EventType = "group.joined"
	EventPaymentConfirmed EventType = "payment.confirmed"
	EventPaymentFailed    EventType = "payment.failed"
)

// Event is the message published for a domain event.
type Event struct {
	Type          EventType              `json:"type"`
	RideRequestID string                 `json:"ride_request_id,omitempty"`
	Data          map[string]interface{} `json:"data"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// Publisher delivers messages to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// NotificationService announces grouping and payment events.
// Delivery is best effort; failures are logged and never fail the caller.
type NotificationService struct {
	publisher Publisher
}

// NewNotificationService creates a new NotificationService. A nil publisher only logs.
func NewNotificationService(publisher Publisher) *NotificationService {
	return &NotificationService{publisher: publisher}
}

// NotifyGroupCreated announces a new group with its first member.
func (s *NotificationService) NotifyGroupCreated(ctx context.Context, group *domain.RideGroup, rideRequestID string) {
	s.send(ctx, Event{
		Type:          EventGroupCreated,
		RideRequestID: rideRequestID,
		Data: map[string]interface{}{
			"ride_group_id":  group.ID,
			"vehicle_id":     group.VehicleID,
			"fixed_route_id": group.FixedRouteID,
			"requested_time": group.RequestedTime,
		},
	})
}

// NotifyGroupJoined announces that a request joined an existing group.
func (s *NotificationService) NotifyGroupJoined(ctx context.Context, group *domain.RideGroup, rideRequestID string) {
	s.send(ctx, Event{
		Type:          EventGroupJoined,
		RideRequestID: rideRequestID,
		Data: map[string]interface{}{
			"ride_group_id":        group.ID,
			"vehicle_id":           group.VehicleID,
			"total_passengers":     group.TotalPassengers,
			"total_luggage_volume": group.TotalLuggageVolume,
		},
	})
}

// NotifyPaymentConfirmed announces a confirmed payment.
func (s *NotificationService) NotifyPaymentConfirmed(ctx context.Context, rideRequestID, paymentID, txHash string) {
	s.send(ctx, Event{
		Type:          EventPaymentConfirmed,
		RideRequestID: rideRequestID,
		Data: map[string]interface{}{
			"payment_id": paymentID,
			"tx_hash":    txHash,
		},
	})
}

// NotifyPaymentFailed announces a payment an administrator marked failed.
func (s *NotificationService) NotifyPaymentFailed(ctx context.Context, payment *domain.Payment) {
	s.send(ctx, Event{
		Type:          EventPaymentFailed,
		RideRequestID: payment.RideRequestID,
		Data: map[string]interface{}{
			"payment_id": payment.ID,
			"amount":     payment.Amount,
			"currency":   payment.Currency,
		},
	})
}

func (s *NotificationService) send(ctx context.Context, event Event) {
	if s == nil {
		return
	}
	event.OccurredAt = time.Now()

	log.Printf("[EVENT] Type=%s, RideRequest=%s", event.Type, event.RideRequestID)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, string(event.Type), event); err != nil {
		log.Printf("failed to publish %s: %v", event.Type, err)
	}
}
