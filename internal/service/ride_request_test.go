package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
	"carpool/internal/tests"
)

type rideRequestFixture struct {
	*groupingFixture
	routes  *tests.MockRouteRepository
	service *RideRequestService
}

func newRideRequestFixture() *rideRequestFixture {
	g := newGroupingFixture()
	routes := tests.NewMockRouteRepository()
	routes.AddRoute(&domain.FixedRoute{ID: "route-1", MarketPrice: 80, OurPrice: 60, Currency: "USDT"})

	fares := NewFareService(routes, g.vehicles, nil)
	return &rideRequestFixture{
		groupingFixture: g,
		routes:          routes,
		service:         NewRideRequestService(g.requests, fares, g.grouping),
	}
}

func validCreateRequest() CreateRideRequestRequest {
	return CreateRideRequestRequest{
		RequesterName:   "Dana",
		StartLocation:   "Airport",
		EndLocation:     "Downtown",
		RequestedTime:   baseTime,
		Luggage:         []domain.LuggageItem{{Size: domain.LuggageSizeMedium, Quantity: 1}},
		FixedRouteID:    strPtr("route-1"),
		PaymentRequired: true,
	}
}

func TestCreateRideRequest_DefaultsAndPricing(t *testing.T) {
	t.Parallel()

	f := newRideRequestFixture()

	req, err := f.service.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.ID == "" {
		t.Error("expected an ID to be assigned")
	}
	if req.PassengerCount != 1 {
		t.Errorf("expected default passenger count 1, got %d", req.PassengerCount)
	}
	if req.Status != domain.RideRequestStatusPending || req.PaymentStatus != domain.RequestPaymentUnpaid {
		t.Errorf("unexpected initial statuses %s/%s", req.Status, req.PaymentStatus)
	}
	if req.PaymentAmount != 60 || req.PaymentCurrency != "USDT" {
		t.Errorf("expected fare 60 USDT, got %v %s", req.PaymentAmount, req.PaymentCurrency)
	}
	if req.IsMatched() {
		t.Error("new request must not be grouped")
	}
	if f.requests.CreateCallCount != 1 {
		t.Errorf("expected one create, got %d", f.requests.CreateCallCount)
	}
}

func TestCreateRideRequest_SenderWalletMarksPaymentPending(t *testing.T) {
	t.Parallel()

	f := newRideRequestFixture()
	in := validCreateRequest()
	in.SenderWallet = " 0xabc "

	req, err := f.service.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SenderWallet != "0xabc" || req.PaymentStatus != domain.RequestPaymentPending {
		t.Errorf("unexpected wallet/payment status %q/%s", req.SenderWallet, req.PaymentStatus)
	}
}

func TestCreateRideRequest_Validation(t *testing.T) {
	t.Parallel()

	f := newRideRequestFixture()

	testCases := []struct {
		name   string
		mutate func(r *CreateRideRequestRequest)
		want   error
	}{
		{name: "no requester", mutate: func(r *CreateRideRequestRequest) { r.RequesterName = " " }, want: ErrInvalidRideRequest},
		{name: "no start", mutate: func(r *CreateRideRequestRequest) { r.StartLocation = "" }, want: ErrInvalidRideRequest},
		{name: "no time", mutate: func(r *CreateRideRequestRequest) { r.RequestedTime = time.Time{} }, want: ErrInvalidRideRequest},
		{name: "negative passengers", mutate: func(r *CreateRideRequestRequest) { r.PassengerCount = -1 }, want: ErrInvalidRideRequest},
		{name: "zero quantity luggage", mutate: func(r *CreateRideRequestRequest) {
			r.Luggage = []domain.LuggageItem{{Size: domain.LuggageSizeSmall}}
		}, want: ErrInvalidRideRequest},
		{name: "unknown size", mutate: func(r *CreateRideRequestRequest) {
			r.Luggage = []domain.LuggageItem{{Size: "huge", Quantity: 1}}
		}, want: ErrInvalidRideRequest},
		{name: "unknown route", mutate: func(r *CreateRideRequestRequest) { r.FixedRouteID = strPtr("ghost") }, want: repository.ErrNotFound},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			in := validCreateRequest()
			tc.mutate(&in)
			if _, err := f.service.Create(context.Background(), in); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMatchRideRequest_RepricesAgainstVehicle(t *testing.T) {
	t.Parallel()

	f := newRideRequestFixture()
	v := testVehicle("v-1", 4)
	v.DiscountPercentage = floatPtr(50)
	f.vehicles.AddVehicle(v)

	req, err := f.service.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := f.service.Match(context.Background(), req.ID, strPtr("v-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeCreated {
		t.Fatalf("expected created, got %s", result.Outcome)
	}

	stored := f.requests.Request(req.ID)
	if stored.PaymentAmount != 40 {
		t.Errorf("expected 80 x 50/100 = 40, got %v", stored.PaymentAmount)
	}
}

func TestMatchRideRequest_UnmatchedLeavesPriceAlone(t *testing.T) {
	t.Parallel()

	f := newRideRequestFixture()

	req, err := f.service.Create(context.Background(), validCreateRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := f.service.Match(context.Background(), req.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != OutcomeUnmatched {
		t.Fatalf("expected unmatched, got %s", result.Outcome)
	}
	if f.requests.SetPaymentTermsCallCount != 0 {
		t.Error("unmatched request must not be re-priced")
	}
}

func TestUpdateRideRequestStatus_CancelFreesSeat(t *testing.T) {
	t.Parallel()

	f := newRideRequestFixture()
	f.vehicles.AddVehicle(testVehicle("v-1", 4))
	a := f.addRequest("a", "route-1", baseTime, 2, nil)
	b := f.addRequest("b", "route-1", baseTime, 1, nil)
	f.addGroup("g-1", "v-1", "route-1", baseTime, domain.RideGroupStatusPending, a, b)

	req, err := f.service.UpdateStatus(context.Background(), "a", domain.RideRequestStatusCancelled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Status != domain.RideRequestStatusCancelled || req.IsMatched() {
		t.Errorf("expected cancelled and ungrouped, got %+v", req)
	}
	if got := f.groups.Group("g-1").TotalPassengers; got != 1 {
		t.Errorf("expected 1 passenger left, got %d", got)
	}

	if _, err := f.service.UpdateStatus(context.Background(), "a", domain.RideRequestStatusPending); !errors.Is(err, ErrRideRequestClosed) {
		t.Errorf("expected ErrRideRequestClosed, got %v", err)
	}
}

func TestUpdateRideRequestStatus_UnknownStatus(t *testing.T) {
	t.Parallel()

	f := newRideRequestFixture()
	f.addRequest("a", "route-1", baseTime, 1, nil)

	if _, err := f.service.UpdateStatus(context.Background(), "a", "teleported"); !errors.Is(err, ErrInvalidRideRequest) {
		t.Errorf("expected ErrInvalidRideRequest, got %v", err)
	}
}

func TestSetSenderWallet(t *testing.T) {
	t.Parallel()

	f := newRideRequestFixture()
	f.addRequest("a", "route-1", baseTime, 1, nil)

	req, err := f.service.SetSenderWallet(context.Background(), "a", "0xsender")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.SenderWallet != "0xsender" || req.PaymentStatus != domain.RequestPaymentPending {
		t.Errorf("unexpected request %+v", req)
	}

	if _, err := f.service.SetSenderWallet(context.Background(), "a", ""); !errors.Is(err, ErrInvalidWallet) {
		t.Errorf("expected ErrInvalidWallet, got %v", err)
	}
}

func TestListRideRequests_FiltersAndCapsLimit(t *testing.T) {
	t.Parallel()

	f := newRideRequestFixture()
	f.addRequest("a", "route-1", baseTime, 1, nil)
	f.addRequest("b", "route-2", baseTime.Add(time.Minute), 1, nil)

	list, err := f.service.List(context.Background(), repository.RideRequestFilter{FixedRouteID: "route-2", Limit: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 1 || list[0].ID != "b" {
		t.Errorf("unexpected list %v", list)
	}
}
