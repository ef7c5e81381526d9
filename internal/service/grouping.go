package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// MatchOutcome describes what happened to a request during matching.
type MatchOutcome string

const (
	OutcomeJoined    MatchOutcome = "joined"
	OutcomeCreated   MatchOutcome = "created"
	OutcomeUnmatched MatchOutcome = "unmatched"
)

// Reasons reported with OutcomeUnmatched.
const (
	ReasonNoGroupAvailable    = "no_group_available"
	ReasonCapacityExceeded    = "capacity_exceeded"
	ReasonSchedulingConflict  = "scheduling_conflict"
	ReasonPersistenceConflict = "persistence_conflict"
)

// GroupingService places ride requests into ride groups.
type GroupingService struct {
	requestRepo repository.RideRequestRepository
	groupRepo   repository.RideGroupRepository
	vehicleRepo repository.VehicleRepository
	conflicts   *ConflictService
	planner     *CapacityPlanner
	notifier    *NotificationService
	window      time.Duration
}

// NewGroupingService creates a new GroupingService.
func NewGroupingService(
	requestRepo repository.RideRequestRepository,
	groupRepo repository.RideGroupRepository,
	vehicleRepo repository.VehicleRepository,
	conflicts *ConflictService,
	planner *CapacityPlanner,
	notifier *NotificationService,
) *GroupingService {
	return &GroupingService{
		requestRepo: requestRepo,
		groupRepo:   groupRepo,
		vehicleRepo: vehicleRepo,
		conflicts:   conflicts,
		planner:     planner,
		notifier:    notifier,
		window:      conflicts.Window(),
	}
}

// MatchRequest contains the parameters for matching a ride request.
type MatchRequest struct {
	RideRequestID string
	VehicleID     *string // set when a driver or admin assigns a vehicle explicitly
}

// MatchResult is the outcome of a matching attempt.
// Unmatched is an expected result, not an error. Cause carries the typed
// reason (*CapacityExceededError, ErrSchedulingConflict or ErrPersistenceConflict)
// when there is one.
type MatchResult struct {
	Outcome MatchOutcome
	Group   *domain.RideGroup
	Reason  string
	Cause   error
}

// Match finds a pending group on the request's route that can take the
// request, or creates one when a vehicle is supplied and free.
// A lost race against a concurrent join is retried once.
func (s *GroupingService) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	if req.RideRequestID == "" {
		return nil, ErrInvalidRideRequestID
	}

	for attempt := 0; ; attempt++ {
		result, err := s.attempt(ctx, req)
		if errors.Is(err, ErrPersistenceConflict) {
			if attempt == 0 {
				continue
			}
			return &MatchResult{Outcome: OutcomeUnmatched, Reason: ReasonPersistenceConflict, Cause: ErrPersistenceConflict}, nil
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

// AssignVehicle matches a request with an explicitly chosen vehicle.
func (s *GroupingService) AssignVehicle(ctx context.Context, rideRequestID, vehicleID string) (*MatchResult, error) {
	if vehicleID == "" {
		return nil, ErrInvalidVehicleID
	}
	return s.Match(ctx, MatchRequest{RideRequestID: rideRequestID, VehicleID: &vehicleID})
}

func (s *GroupingService) attempt(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	rideReq, err := s.requestRepo.GetByID(ctx, req.RideRequestID)
	if err != nil {
		return nil, err
	}
	if rideReq.IsTerminal() {
		return nil, ErrRideRequestClosed
	}
	if rideReq.IsMatched() {
		return nil, ErrAlreadyGrouped
	}
	if rideReq.FixedRouteID == nil || *rideReq.FixedRouteID == "" {
		return nil, ErrRouteRequired
	}

	result, err := s.joinExisting(ctx, rideReq)
	if err != nil || result.Outcome == OutcomeJoined {
		return result, err
	}

	if req.VehicleID == nil || *req.VehicleID == "" {
		return result, nil
	}

	return s.createGroup(ctx, rideReq, *req.VehicleID)
}

// joinExisting tries pending groups closest in time first.
func (s *GroupingService) joinExisting(ctx context.Context, rideReq *domain.RideRequest) (*MatchResult, error) {
	t := rideReq.RequestedTime
	candidates, err := s.groupRepo.FindPendingForRoute(ctx, *rideReq.FixedRouteID, t.Add(-s.window), t.Add(s.window))
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := absDuration(candidates[i].RequestedTime.Sub(t)), absDuration(candidates[j].RequestedTime.Sub(t))
		if di != dj {
			return di < dj
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	unmatched := &MatchResult{Outcome: OutcomeUnmatched, Reason: ReasonNoGroupAvailable}
	vehicles := make(map[string]*domain.Vehicle)

	for _, group := range candidates {
		vehicle, ok := vehicles[group.VehicleID]
		if !ok {
			vehicle, err = s.vehicleRepo.GetByID(ctx, group.VehicleID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			vehicles[group.VehicleID] = vehicle
		}
		if vehicle == nil || !vehicle.IsActive {
			continue
		}

		existing, err := s.memberRequests(ctx, group.ID)
		if err != nil {
			return nil, err
		}

		decision := s.planner.CanFormGroup(existing, rideReq, vehicle)
		if !decision.OK {
			unmatched.Reason = ReasonCapacityExceeded
			unmatched.Cause = decision.Violation
			continue
		}

		joined, err := s.groupRepo.AddMember(ctx, repository.AddMemberParams{
			Member:          domain.NewMember(uuid.New().String(), group.ID, rideReq, time.Now()),
			ExpectedVersion: group.Version,
			MaxPassengers:   vehicle.MaxPassengers,
			MaxLuggage:      vehicle.CapacityVolume(),
		})
		if err != nil {
			switch {
			case errors.Is(err, repository.ErrVersionConflict):
				return nil, ErrPersistenceConflict
			case errors.Is(err, repository.ErrDuplicate):
				return nil, ErrAlreadyGrouped
			}
			return nil, err
		}

		s.notifier.NotifyGroupJoined(ctx, joined, rideReq.ID)
		return &MatchResult{Outcome: OutcomeJoined, Group: joined}, nil
	}

	return unmatched, nil
}

// createGroup opens a new group on vehicleID with the request as first member.
func (s *GroupingService) createGroup(ctx context.Context, rideReq *domain.RideRequest, vehicleID string) (*MatchResult, error) {
	vehicle, err := s.vehicleRepo.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.IsActive {
		return nil, ErrVehicleInactive
	}

	if decision := s.planner.CanFormGroup(nil, rideReq, vehicle); !decision.OK {
		return &MatchResult{Outcome: OutcomeUnmatched, Reason: ReasonCapacityExceeded, Cause: decision.Violation}, nil
	}

	conflict, err := s.conflicts.HasConflict(ctx, vehicle.ID, *rideReq.FixedRouteID, rideReq.RequestedTime)
	if err != nil {
		return nil, err
	}
	if conflict {
		return &MatchResult{Outcome: OutcomeUnmatched, Reason: ReasonSchedulingConflict, Cause: ErrSchedulingConflict}, nil
	}

	now := time.Now()
	group := &domain.RideGroup{
		ID:            uuid.New().String(),
		VehicleID:     vehicle.ID,
		FixedRouteID:  *rideReq.FixedRouteID,
		RequestedTime: rideReq.RequestedTime,
		Status:        domain.RideGroupStatusPending,
		CreatedAt:     now,
	}

	err = s.groupRepo.CreateWithMember(ctx, group, domain.NewMember(uuid.New().String(), group.ID, rideReq, now))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOverlappingGroup):
			// Lost the race for the slot to a concurrent booking.
			return &MatchResult{Outcome: OutcomeUnmatched, Reason: ReasonSchedulingConflict, Cause: ErrSchedulingConflict}, nil
		case errors.Is(err, repository.ErrDuplicate):
			// A concurrent match already seated the request.
			return nil, ErrAlreadyGrouped
		}
		return nil, err
	}

	s.notifier.NotifyGroupCreated(ctx, group, rideReq.ID)
	return &MatchResult{Outcome: OutcomeCreated, Group: group}, nil
}

// memberRequests loads the ride requests currently riding in a group.
func (s *GroupingService) memberRequests(ctx context.Context, groupID string) ([]*domain.RideRequest, error) {
	members, err := s.groupRepo.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.RideRequestID
	}

	return s.requestRepo.GetByIDs(ctx, ids)
}

// GetGroup retrieves a ride group by ID.
func (s *GroupingService) GetGroup(ctx context.Context, groupID string) (*domain.RideGroup, error) {
	if groupID == "" {
		return nil, ErrInvalidGroupID
	}
	return s.groupRepo.GetByID(ctx, groupID)
}

// ListMembers returns the members of a group.
func (s *GroupingService) ListMembers(ctx context.Context, groupID string) ([]*domain.RideGroupMember, error) {
	if groupID == "" {
		return nil, ErrInvalidGroupID
	}
	if _, err := s.groupRepo.GetByID(ctx, groupID); err != nil {
		return nil, err
	}
	return s.groupRepo.ListMembers(ctx, groupID)
}

// RemoveMember takes a request out of its group and recomputes the group's totals.
func (s *GroupingService) RemoveMember(ctx context.Context, groupID, rideRequestID string) (*domain.RideGroup, error) {
	if groupID == "" {
		return nil, ErrInvalidGroupID
	}
	if rideRequestID == "" {
		return nil, ErrInvalidRideRequestID
	}
	return s.groupRepo.RemoveMember(ctx, groupID, rideRequestID)
}

// RecomputeTotals repairs a group's totals from its member rows.
func (s *GroupingService) RecomputeTotals(ctx context.Context, groupID string) (*domain.RideGroup, error) {
	if groupID == "" {
		return nil, ErrInvalidGroupID
	}
	return s.groupRepo.RecomputeTotals(ctx, groupID)
}

// UpdateGroupStatus moves a group to a new status. Cancelling or completing
// a group releases its vehicle's time slot.
func (s *GroupingService) UpdateGroupStatus(ctx context.Context, groupID string, status domain.RideGroupStatus) (*domain.RideGroup, error) {
	if groupID == "" {
		return nil, ErrInvalidGroupID
	}
	switch status {
	case domain.RideGroupStatusPending, domain.RideGroupStatusConfirmed,
		domain.RideGroupStatusCancelled, domain.RideGroupStatusCompleted:
	default:
		return nil, ErrInvalidGroupStatus
	}

	if err := s.groupRepo.UpdateStatus(ctx, groupID, status); err != nil {
		if errors.Is(err, repository.ErrOverlappingGroup) {
			return nil, ErrSchedulingConflict
		}
		return nil, err
	}
	return s.groupRepo.GetByID(ctx, groupID)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
