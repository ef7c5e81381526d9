package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/tests"
)

func TestHasConflict_WindowIsInclusiveAndRouteAgnostic(t *testing.T) {
	t.Parallel()

	requests := tests.NewMockRideRequestRepository()
	groups := tests.NewMockRideGroupRepository(requests)
	groups.AddGroup(&domain.RideGroup{
		ID:            "g-1",
		VehicleID:     "v-1",
		FixedRouteID:  "route-1",
		RequestedTime: baseTime,
		Status:        domain.RideGroupStatusPending,
	})
	groups.AddGroup(&domain.RideGroup{
		ID:            "g-2",
		VehicleID:     "v-2",
		FixedRouteID:  "route-1",
		RequestedTime: baseTime,
		Status:        domain.RideGroupStatusCancelled,
	})

	conflicts := NewConflictService(groups, 30*time.Minute)

	testCases := []struct {
		name      string
		vehicleID string
		routeID   string
		at        time.Time
		want      bool
	}{
		{name: "same time other route", vehicleID: "v-1", routeID: "route-9", at: baseTime, want: true},
		{name: "20 minutes later", vehicleID: "v-1", routeID: "route-2", at: baseTime.Add(20 * time.Minute), want: true},
		{name: "exactly 30 minutes before", vehicleID: "v-1", routeID: "route-1", at: baseTime.Add(-30 * time.Minute), want: true},
		{name: "31 minutes later", vehicleID: "v-1", routeID: "route-1", at: baseTime.Add(31 * time.Minute), want: false},
		{name: "one hour later", vehicleID: "v-1", routeID: "route-2", at: baseTime.Add(time.Hour), want: false},
		{name: "cancelled group does not block", vehicleID: "v-2", routeID: "route-1", at: baseTime, want: false},
		{name: "other vehicle", vehicleID: "v-3", routeID: "route-1", at: baseTime, want: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := conflicts.HasConflict(context.Background(), tc.vehicleID, tc.routeID, tc.at)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestHasConflict_EmptyVehicleRejected(t *testing.T) {
	t.Parallel()

	conflicts := NewConflictService(tests.NewMockRideGroupRepository(tests.NewMockRideRequestRepository()), 0)

	if _, err := conflicts.HasConflict(context.Background(), "", "route-1", baseTime); !errors.Is(err, ErrInvalidVehicleID) {
		t.Errorf("expected ErrInvalidVehicleID, got %v", err)
	}
	if conflicts.Window() != DefaultGroupWindow {
		t.Errorf("expected default window, got %v", conflicts.Window())
	}
}
