// Package tests holds in-memory repositories and collaborators shared by the
// service tests and the HTTP scenario tests.
package tests

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"carpool/internal/domain"
	"carpool/internal/ledger"
	"carpool/internal/maps"
	"carpool/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK ROUTE REPOSITORY
// ──────────────────────────────────────────────

type MockRouteRepository struct {
	mu     sync.RWMutex
	routes map[string]*domain.FixedRoute

	GetByIDCallCount int32
	CreateError      error
}

func NewMockRouteRepository() *MockRouteRepository {
	return &MockRouteRepository{routes: make(map[string]*domain.FixedRoute)}
}

func (m *MockRouteRepository) AddRoute(route *domain.FixedRoute) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[route.ID] = route
}

func (m *MockRouteRepository) Create(ctx context.Context, route *domain.FixedRoute) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.AddRoute(route)
	return nil
}

func (m *MockRouteRepository) GetByID(ctx context.Context, id string) (*domain.FixedRoute, error) {
	atomic.AddInt32(&m.GetByIDCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	route, ok := m.routes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *route
	return &copy, nil
}

func (m *MockRouteRepository) GetAll(ctx context.Context) ([]*domain.FixedRoute, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.FixedRoute, 0, len(m.routes))
	for _, r := range m.routes {
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK ROUTE CACHE
// ──────────────────────────────────────────────

type MockRouteCache struct {
	mu     sync.Mutex
	routes map[string]*domain.FixedRoute

	GetError error
	SetCount int32
}

func NewMockRouteCache() *MockRouteCache {
	return &MockRouteCache{routes: make(map[string]*domain.FixedRoute)}
}

func (m *MockRouteCache) GetRoute(ctx context.Context, routeID string) (*domain.FixedRoute, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routes[routeID], nil
}

func (m *MockRouteCache) SetRoute(ctx context.Context, route *domain.FixedRoute) error {
	atomic.AddInt32(&m.SetCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *route
	m.routes[route.ID] = &copy
	return nil
}

func (m *MockRouteCache) InvalidateRoute(ctx context.Context, routeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.routes, routeID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

type MockVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.Vehicle

	CreateError error
}

func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{vehicles: make(map[string]*domain.Vehicle)}
}

func (m *MockVehicleRepository) AddVehicle(v *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
}

func (m *MockVehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.AddVehicle(v)
	return nil
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *v
	return &copy, nil
}

func (m *MockVehicleRepository) ListActive(ctx context.Context, driverID string) ([]*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Vehicle
	for _, v := range m.vehicles {
		if !v.IsActive || (driverID != "" && v.DriverID != driverID) {
			continue
		}
		copy := *v
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockVehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vehicles[v.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *v
	m.vehicles[v.ID] = &copy
	return nil
}

func (m *MockVehicleRepository) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vehicles[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.IsActive = false
	return nil
}

// ──────────────────────────────────────────────
// MOCK RIDE REQUEST REPOSITORY
// ──────────────────────────────────────────────

type MockRideRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]*domain.RideRequest

	CreateCallCount          int32
	SetPaymentTermsCallCount int32

	CreateError error
}

func NewMockRideRequestRepository() *MockRideRequestRepository {
	return &MockRideRequestRepository{requests: make(map[string]*domain.RideRequest)}
}

func (m *MockRideRequestRepository) AddRequest(req *domain.RideRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req
}

// Request returns the stored request for assertions.
func (m *MockRideRequestRepository) Request(id string) *domain.RideRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil
	}
	copy := *req
	return &copy
}

func (m *MockRideRequestRepository) Create(ctx context.Context, req *domain.RideRequest) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	copy := *req
	m.AddRequest(&copy)
	return nil
}

func (m *MockRideRequestRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	if req := m.Request(id); req != nil {
		return req, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockRideRequestRepository) List(ctx context.Context, filter repository.RideRequestFilter) ([]*domain.RideRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.RideRequest
	for _, r := range m.requests {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.FixedRouteID != "" && (r.FixedRouteID == nil || *r.FixedRouteID != filter.FixedRouteID) {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *MockRideRequestRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.RideRequest, error) {
	var result []*domain.RideRequest
	for _, id := range ids {
		if req := m.Request(id); req != nil {
			result = append(result, req)
		}
	}
	return result, nil
}

func (m *MockRideRequestRepository) mutate(id string, fn func(r *domain.RideRequest)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(req)
	return nil
}

func (m *MockRideRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.RideRequestStatus) error {
	return m.mutate(id, func(r *domain.RideRequest) { r.Status = status })
}

func (m *MockRideRequestRepository) UpdatePayment(ctx context.Context, id string, status domain.RequestPaymentStatus, txHash string) error {
	return m.mutate(id, func(r *domain.RideRequest) {
		r.PaymentStatus = status
		if txHash != "" {
			r.TxHash = txHash
		}
	})
}

// confirmPaymentFrom mirrors the guarded confirmation in the postgres store.
func (m *MockRideRequestRepository) confirmPaymentFrom(id, txHash string, from []domain.RequestPaymentStatus) (bool, error) {
	changed := false
	err := m.mutate(id, func(r *domain.RideRequest) {
		for _, status := range from {
			if r.PaymentStatus != status {
				continue
			}
			r.PaymentStatus = domain.RequestPaymentConfirmed
			if txHash != "" {
				r.TxHash = txHash
			}
			changed = true
			return
		}
	})
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return changed, err
}

func (m *MockRideRequestRepository) SetSenderWallet(ctx context.Context, id, wallet string) error {
	return m.mutate(id, func(r *domain.RideRequest) {
		r.SenderWallet = wallet
		if r.PaymentStatus == domain.RequestPaymentUnpaid {
			r.PaymentStatus = domain.RequestPaymentPending
		}
	})
}

func (m *MockRideRequestRepository) SetPaymentTerms(ctx context.Context, id string, required bool, amount float64, currency string) error {
	atomic.AddInt32(&m.SetPaymentTermsCallCount, 1)
	return m.mutate(id, func(r *domain.RideRequest) {
		r.PaymentRequired = required
		r.PaymentAmount = amount
		r.PaymentCurrency = currency
	})
}

func (m *MockRideRequestRepository) Assign(ctx context.Context, id string, groupID, vehicleID *string) error {
	var linkErr error
	err := m.mutate(id, func(r *domain.RideRequest) {
		if groupID != nil && r.RideGroupID != nil && *r.RideGroupID != *groupID {
			linkErr = repository.ErrDuplicate
			return
		}
		r.RideGroupID = groupID
		r.VehicleID = vehicleID
	})
	if err != nil {
		return err
	}
	return linkErr
}

// ──────────────────────────────────────────────
// MOCK RIDE GROUP REPOSITORY
// ──────────────────────────────────────────────

// MockRideGroupRepository mirrors the store's guarantees: totals are
// recomputed from members, joins are compare-and-set on version, and two
// committed groups of one vehicle may not be within overlapWindow.
type MockRideGroupRepository struct {
	mu       sync.Mutex
	groups   map[string]*domain.RideGroup
	members  map[string][]*domain.RideGroupMember
	requests *MockRideRequestRepository

	overlapWindow time.Duration

	AddMemberCallCount int32

	// BeforeAddMember runs before the compare-and-set, outside the lock.
	BeforeAddMember func(groupID string)
	// SkipExistsCheck makes ExistsCommittedForVehicle report no conflict so
	// a create can race past the read and hit the exclusion emulation.
	SkipExistsCheck bool
}

func NewMockRideGroupRepository(requests *MockRideRequestRepository) *MockRideGroupRepository {
	return &MockRideGroupRepository{
		groups:        make(map[string]*domain.RideGroup),
		members:       make(map[string][]*domain.RideGroupMember),
		requests:      requests,
		overlapWindow: 30 * time.Minute,
	}
}

// AddGroup seeds a group with members and recomputed totals.
func (m *MockRideGroupRepository) AddGroup(group *domain.RideGroup, members ...*domain.RideGroupMember) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group.ID] = group
	m.members[group.ID] = append(m.members[group.ID], members...)
	group.TotalPassengers, group.TotalLuggageVolume = domain.Totals(m.members[group.ID])
}

// Group returns the stored group for assertions.
func (m *MockRideGroupRepository) Group(id string) *domain.RideGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return nil
	}
	copy := *g
	return &copy
}

// SetCreatedAt overrides a group's creation time.
func (m *MockRideGroupRepository) SetCreatedAt(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[id]; ok {
		g.CreatedAt = at
	}
}

// GroupCount returns the number of stored groups.
func (m *MockRideGroupRepository) GroupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.groups)
}

// BumpVersion simulates a concurrent writer.
func (m *MockRideGroupRepository) BumpVersion(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[id].Version++
}

func (m *MockRideGroupRepository) overlapsLocked(vehicleID string, at time.Time) bool {
	for _, g := range m.groups {
		if g.VehicleID != vehicleID || !g.Status.IsCommitted() {
			continue
		}
		if d := g.RequestedTime.Sub(at); d <= m.overlapWindow && d >= -m.overlapWindow {
			return true
		}
	}
	return false
}

// memberLocked emulates UNIQUE (ride_request_id) on group members.
func (m *MockRideGroupRepository) memberLocked(rideRequestID string) bool {
	for _, members := range m.members {
		for _, member := range members {
			if member.RideRequestID == rideRequestID {
				return true
			}
		}
	}
	return false
}

func (m *MockRideGroupRepository) CreateWithMember(ctx context.Context, group *domain.RideGroup, member *domain.RideGroupMember) error {
	m.mu.Lock()
	if m.overlapsLocked(group.VehicleID, group.RequestedTime) {
		m.mu.Unlock()
		return repository.ErrOverlappingGroup
	}
	if m.memberLocked(member.RideRequestID) {
		m.mu.Unlock()
		return repository.ErrDuplicate
	}
	group.TotalPassengers, group.TotalLuggageVolume = member.PassengerCount, member.LuggageVolume
	group.Version = 1
	copy := *group
	m.groups[group.ID] = &copy
	m.members[group.ID] = []*domain.RideGroupMember{member}
	m.mu.Unlock()

	return m.requests.Assign(ctx, member.RideRequestID, &group.ID, &group.VehicleID)
}

func (m *MockRideGroupRepository) GetByID(ctx context.Context, id string) (*domain.RideGroup, error) {
	if g := m.Group(id); g != nil {
		return g, nil
	}
	return nil, repository.ErrNotFound
}

func (m *MockRideGroupRepository) FindPendingForRoute(ctx context.Context, routeID string, from, to time.Time) ([]*domain.RideGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.RideGroup
	for _, g := range m.groups {
		if g.FixedRouteID != routeID || g.Status != domain.RideGroupStatusPending {
			continue
		}
		if g.RequestedTime.Before(from) || g.RequestedTime.After(to) {
			continue
		}
		copy := *g
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockRideGroupRepository) ExistsCommittedForVehicle(ctx context.Context, vehicleID string, from, to time.Time) (bool, error) {
	if m.SkipExistsCheck {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.groups {
		if g.VehicleID != vehicleID || !g.Status.IsCommitted() {
			continue
		}
		if !g.RequestedTime.Before(from) && !g.RequestedTime.After(to) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRideGroupRepository) ListMembers(ctx context.Context, groupID string) ([]*domain.RideGroupMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.RideGroupMember, len(m.members[groupID]))
	copy(result, m.members[groupID])
	return result, nil
}

func (m *MockRideGroupRepository) AddMember(ctx context.Context, params repository.AddMemberParams) (*domain.RideGroup, error) {
	atomic.AddInt32(&m.AddMemberCallCount, 1)
	groupID := params.Member.RideGroupID
	if m.BeforeAddMember != nil {
		m.BeforeAddMember(groupID)
	}

	m.mu.Lock()
	g, ok := m.groups[groupID]
	if !ok {
		m.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	if m.memberLocked(params.Member.RideRequestID) {
		m.mu.Unlock()
		return nil, repository.ErrDuplicate
	}
	candidate := append(append([]*domain.RideGroupMember{}, m.members[groupID]...), params.Member)
	passengers, volume := domain.Totals(candidate)
	if g.Version != params.ExpectedVersion || passengers > params.MaxPassengers || volume > params.MaxLuggage+1e-9 {
		m.mu.Unlock()
		return nil, repository.ErrVersionConflict
	}
	m.members[groupID] = candidate
	g.TotalPassengers, g.TotalLuggageVolume = passengers, volume
	g.Version++
	copy := *g
	m.mu.Unlock()

	if err := m.requests.Assign(ctx, params.Member.RideRequestID, &copy.ID, &copy.VehicleID); err != nil {
		return nil, err
	}
	return &copy, nil
}

func (m *MockRideGroupRepository) RemoveMember(ctx context.Context, groupID, rideRequestID string) (*domain.RideGroup, error) {
	m.mu.Lock()
	g, ok := m.groups[groupID]
	if !ok {
		m.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	var kept []*domain.RideGroupMember
	removed := false
	for _, member := range m.members[groupID] {
		if member.RideRequestID == rideRequestID {
			removed = true
			continue
		}
		kept = append(kept, member)
	}
	if !removed {
		m.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	m.members[groupID] = kept
	g.TotalPassengers, g.TotalLuggageVolume = domain.Totals(kept)
	g.Version++
	copy := *g
	m.mu.Unlock()

	if err := m.requests.Assign(ctx, rideRequestID, nil, nil); err != nil {
		return nil, err
	}
	return &copy, nil
}

func (m *MockRideGroupRepository) RecomputeTotals(ctx context.Context, groupID string) (*domain.RideGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[groupID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	g.TotalPassengers, g.TotalLuggageVolume = domain.Totals(m.members[groupID])
	g.Version++
	copy := *g
	return &copy, nil
}

func (m *MockRideGroupRepository) UpdateStatus(ctx context.Context, id string, status domain.RideGroupStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[id]
	if !ok {
		return repository.ErrNotFound
	}
	g.Status = status
	g.Version++
	return nil
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	requests *MockRideRequestRepository

	ConfirmCallCount         int32
	ConfirmDetectedCallCount int32
	CreateError              error
}

func NewMockPaymentRepository(requests *MockRideRequestRepository) *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
		requests: requests,
	}
}

func (m *MockPaymentRepository) AddPayment(p *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	copy := *p
	m.AddPayment(&copy)
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (m *MockPaymentRepository) ListByRideRequest(ctx context.Context, rideRequestID string) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Payment
	for _, p := range m.payments {
		if p.RideRequestID == rideRequestID {
			copy := *p
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockPaymentRepository) Confirm(ctx context.Context, id, txHash string, at time.Time) (*domain.Payment, error) {
	atomic.AddInt32(&m.ConfirmCallCount, 1)
	m.mu.Lock()
	p, ok := m.payments[id]
	if !ok {
		m.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	p.Status = domain.PaymentStatusConfirmed
	if p.ConfirmedAt == nil {
		p.ConfirmedAt = &at
	}
	if txHash != "" {
		p.TxHash = txHash
	}
	copy := *p
	m.mu.Unlock()

	if err := m.requests.UpdatePayment(ctx, copy.RideRequestID, domain.RequestPaymentConfirmed, copy.TxHash); err != nil {
		return nil, err
	}
	return &copy, nil
}

func (m *MockPaymentRepository) ConfirmPending(ctx context.Context, id, txHash string, at time.Time) (*domain.Payment, error) {
	atomic.AddInt32(&m.ConfirmCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Status != domain.PaymentStatusPending {
		return nil, repository.ErrStateConflict
	}

	hash := p.TxHash
	if txHash != "" {
		hash = txHash
	}
	open := append(domain.AutomaticSources(domain.RequestPaymentConfirmed), domain.RequestPaymentConfirmed)
	changed, err := m.requests.confirmPaymentFrom(p.RideRequestID, hash, open)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, repository.ErrStateConflict
	}

	p.Status = domain.PaymentStatusConfirmed
	p.TxHash = hash
	if p.ConfirmedAt == nil {
		p.ConfirmedAt = &at
	}
	copy := *p
	return &copy, nil
}

func (m *MockPaymentRepository) ConfirmDetected(ctx context.Context, rideRequestID, txHash string, at time.Time) (*domain.Payment, bool, error) {
	atomic.AddInt32(&m.ConfirmDetectedCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()

	changed, err := m.requests.confirmPaymentFrom(rideRequestID, txHash, domain.AutomaticSources(domain.RequestPaymentConfirmed))
	if err != nil || !changed {
		return nil, false, err
	}

	var latest *domain.Payment
	for _, p := range m.payments {
		if p.RideRequestID != rideRequestID || p.Status != domain.PaymentStatusPending {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, true, nil
	}

	latest.Status = domain.PaymentStatusConfirmed
	latest.TxHash = txHash
	if latest.ConfirmedAt == nil {
		latest.ConfirmedAt = &at
	}
	copy := *latest
	return &copy, true, nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, txHash string) error {
	m.mu.Lock()
	p, ok := m.payments[id]
	if !ok {
		m.mu.Unlock()
		return repository.ErrNotFound
	}
	p.Status = status
	if txHash != "" {
		p.TxHash = txHash
	}
	rideRequestID, storedHash := p.RideRequestID, p.TxHash
	m.mu.Unlock()

	requestStatus, mirrored := domain.RequestStatusFor(status)
	if !mirrored {
		return nil
	}
	return m.requests.UpdatePayment(ctx, rideRequestID, requestStatus, storedHash)
}

func (m *MockPaymentRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.payments {
		if p.Status == domain.PaymentStatusPending && p.CreatedAt.Before(cutoff) {
			p.Status = domain.PaymentStatusExpired
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────
// MOCK WALLETS, VERIFIER, EXPLORERS, LOCKS
// ──────────────────────────────────────────────

type MockWalletRepository struct {
	Wallets []*domain.WalletAddress
	Error   error
}

func (m *MockWalletRepository) ListActiveByCurrency(ctx context.Context, currency string) ([]*domain.WalletAddress, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	var result []*domain.WalletAddress
	for _, w := range m.Wallets {
		if w.IsActive && w.Currency == currency {
			result = append(result, w)
		}
	}
	return result, nil
}

type MockVerifier struct {
	Result    bool
	Error     error
	CallCount int32
}

func (m *MockVerifier) Verify(ctx context.Context, paymentID, txHash string) (bool, error) {
	atomic.AddInt32(&m.CallCount, 1)
	return m.Result, m.Error
}

type MockExplorer struct {
	ChainName domain.Chain
	Result    []domain.LedgerTransfer
	Error     error

	mu      sync.Mutex
	Queries []ledger.TransferQuery
}

func (m *MockExplorer) Chain() domain.Chain {
	return m.ChainName
}

func (m *MockExplorer) Transfers(ctx context.Context, q ledger.TransferQuery) ([]domain.LedgerTransfer, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, q)
	m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Result, nil
}

type MockLockStore struct {
	mu     sync.Mutex
	held   map[string]string
	Error  error
	nextID int
}

func NewMockLockStore() *MockLockStore {
	return &MockLockStore{held: make(map[string]string)}
}

func (m *MockLockStore) AcquireDetectionLock(ctx context.Context, rideRequestID string, ttl time.Duration) (string, bool, error) {
	if m.Error != nil {
		return "", false, m.Error
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[rideRequestID]; ok {
		return "", false, nil
	}
	m.nextID++
	token := strconv.Itoa(m.nextID)
	m.held[rideRequestID] = token
	return token, true, nil
}

func (m *MockLockStore) ReleaseDetectionLock(ctx context.Context, rideRequestID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[rideRequestID] == token {
		delete(m.held, rideRequestID)
	}
	return nil
}

// Held reports whether the detection lock for a request is taken.
func (m *MockLockStore) Held(rideRequestID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[rideRequestID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK PUBLISHER AND ESTIMATOR
// ──────────────────────────────────────────────

type MockPublisher struct {
	mu    sync.Mutex
	Keys  []string
	Error error
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, routingKey)
	return m.Error
}

// Published returns the routing keys published so far.
func (m *MockPublisher) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Keys...)
}

type MockEstimator struct {
	Result    *maps.Estimate
	Error     error
	CallCount int32
}

func (m *MockEstimator) Estimate(ctx context.Context, origin, destination string) (*maps.Estimate, error) {
	atomic.AddInt32(&m.CallCount, 1)
	if m.Error != nil {
		return nil, m.Error
	}
	return m.Result, nil
}
