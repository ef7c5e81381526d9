package service

import (
	"context"
	"errors"
	"testing"

	"carpool/internal/domain"
	"carpool/internal/tests"
)

func TestNotification_PublishFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	publisher := &tests.MockPublisher{Error: errors.New("broker down")}
	svc := NewNotificationService(publisher)

	svc.NotifyPaymentFailed(context.Background(), &domain.Payment{ID: "p-1", RideRequestID: "r-1"})

	if keys := publisher.Published(); len(keys) != 1 || keys[0] != "payment.failed" {
		t.Errorf("unexpected routing keys %v", keys)
	}
}

func TestNotification_NilServiceAndPublisherAreSafe(t *testing.T) {
	t.Parallel()

	var nilSvc *NotificationService
	nilSvc.NotifyGroupCreated(context.Background(), &domain.RideGroup{ID: "g-1"}, "r-1")

	NewNotificationService(nil).NotifyGroupJoined(context.Background(), &domain.RideGroup{ID: "g-1"}, "r-1")
}
