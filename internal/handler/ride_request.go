package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// RideRequestHandler handles HTTP requests for ride requests.
type RideRequestHandler struct {
	rideRequestService *service.RideRequestService
	paymentService     *service.PaymentService
}

// NewRideRequestHandler creates a new RideRequestHandler.
func NewRideRequestHandler(rideRequestService *service.RideRequestService, paymentService *service.PaymentService) *RideRequestHandler {
	return &RideRequestHandler{
		rideRequestService: rideRequestService,
		paymentService:     paymentService,
	}
}

// CreateRideRequestRequest is the HTTP request body for creating a ride request.
type CreateRideRequestRequest struct {
	RequesterName   string               `json:"requester_name"`
	StartLocation   string               `json:"start_location"`
	EndLocation     string               `json:"end_location"`
	RequestedTime   time.Time            `json:"requested_time"`
	PassengerCount  int                  `json:"passenger_count"`
	Luggage         []domain.LuggageItem `json:"luggage"`
	FixedRouteID    *string              `json:"fixed_route_id"`
	VehicleID       *string              `json:"vehicle_id"`
	PaymentRequired bool                 `json:"payment_required"`
	SenderWallet    string               `json:"sender_wallet"`
}

// RideRequestResponse is the HTTP response for ride request operations.
type RideRequestResponse struct {
	ID              string               `json:"id"`
	RequesterName   string               `json:"requester_name"`
	StartLocation   string               `json:"start_location"`
	EndLocation     string               `json:"end_location"`
	RequestedTime   time.Time            `json:"requested_time"`
	PassengerCount  int                  `json:"passenger_count"`
	Luggage         []domain.LuggageItem `json:"luggage"`
	LuggageVolume   float64              `json:"luggage_volume"`
	Status          string               `json:"status"`
	PaymentRequired bool                 `json:"payment_required"`
	PaymentAmount   float64              `json:"payment_amount"`
	PaymentCurrency string               `json:"payment_currency,omitempty"`
	PaymentStatus   string               `json:"payment_status"`
	TxHash          string               `json:"tx_hash,omitempty"`
	SenderWallet    string               `json:"sender_wallet,omitempty"`
	FixedRouteID    *string              `json:"fixed_route_id,omitempty"`
	VehicleID       *string              `json:"vehicle_id,omitempty"`
	RideGroupID     *string              `json:"ride_group_id,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

func toRideRequestResponse(r *domain.RideRequest) RideRequestResponse {
	luggage := r.Luggage
	if luggage == nil {
		luggage = []domain.LuggageItem{}
	}
	return RideRequestResponse{
		ID:              r.ID,
		RequesterName:   r.RequesterName,
		StartLocation:   r.StartLocation,
		EndLocation:     r.EndLocation,
		RequestedTime:   r.RequestedTime,
		PassengerCount:  r.Passengers(),
		Luggage:         luggage,
		LuggageVolume:   r.LuggageVolume(),
		Status:          string(r.Status),
		PaymentRequired: r.PaymentRequired,
		PaymentAmount:   r.PaymentAmount,
		PaymentCurrency: r.PaymentCurrency,
		PaymentStatus:   string(r.PaymentStatus),
		TxHash:          r.TxHash,
		SenderWallet:    r.SenderWallet,
		FixedRouteID:    r.FixedRouteID,
		VehicleID:       r.VehicleID,
		RideGroupID:     r.RideGroupID,
		CreatedAt:       r.CreatedAt,
	}
}

// MatchRideRequestRequest is the optional HTTP request body for matching.
type MatchRideRequestRequest struct {
	VehicleID *string `json:"vehicle_id"`
}

// MatchResponse is the HTTP response for a grouping attempt.
type MatchResponse struct {
	Outcome      string             `json:"outcome"`
	Reason       string             `json:"reason,omitempty"`
	CapacityKind string             `json:"capacity_kind,omitempty"`
	Group        *RideGroupResponse `json:"group,omitempty"`
}

func toMatchResponse(result *service.MatchResult) MatchResponse {
	resp := MatchResponse{
		Outcome: string(result.Outcome),
		Reason:  result.Reason,
	}
	var capacityErr *service.CapacityExceededError
	if errors.As(result.Cause, &capacityErr) {
		resp.CapacityKind = string(capacityErr.Kind)
	}
	if result.Group != nil {
		g := toRideGroupResponse(result.Group)
		resp.Group = &g
	}
	return resp
}

// UpdateRideRequestStatusRequest is the HTTP request body for a status change.
type UpdateRideRequestStatusRequest struct {
	Status string `json:"status"`
}

// SetSenderWalletRequest is the HTTP request body for recording the sender wallet.
type SetSenderWalletRequest struct {
	Wallet string `json:"wallet"`
}

// DetectionResponse is the HTTP response for payment auto-detection.
type DetectionResponse struct {
	Found            bool     `json:"found"`
	AlreadyConfirmed bool     `json:"already_confirmed"`
	PaymentID        string   `json:"payment_id,omitempty"`
	TxHash           string   `json:"tx_hash,omitempty"`
	Chain            string   `json:"chain,omitempty"`
	Amount           float64  `json:"amount,omitempty"`
	WalletAddress    string   `json:"wallet_address,omitempty"`
	FailedChains     []string `json:"failed_chains,omitempty"`
}

// CreateRideRequest handles POST /v1/ride-requests
func (h *RideRequestHandler) CreateRideRequest(c *gin.Context) {
	var req CreateRideRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.StartLocation == "" || req.EndLocation == "" {
		respondBadRequest(c, "start_location and end_location are required")
		return
	}

	if req.RequestedTime.IsZero() {
		respondBadRequest(c, "requested_time is required")
		return
	}

	rideReq, err := h.rideRequestService.Create(c.Request.Context(), service.CreateRideRequestRequest{
		RequesterName:   req.RequesterName,
		StartLocation:   req.StartLocation,
		EndLocation:     req.EndLocation,
		RequestedTime:   req.RequestedTime,
		PassengerCount:  req.PassengerCount,
		Luggage:         req.Luggage,
		FixedRouteID:    req.FixedRouteID,
		VehicleID:       req.VehicleID,
		PaymentRequired: req.PaymentRequired,
		SenderWallet:    req.SenderWallet,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideRequestResponse(rideReq))
}

// GetRideRequest handles GET /v1/ride-requests/:id
func (h *RideRequestHandler) GetRideRequest(c *gin.Context) {
	rideReq, err := h.rideRequestService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideRequestResponse(rideReq))
}

// GetAll handles GET /v1/ride-requests?status=...&route_id=...&limit=...
func (h *RideRequestHandler) GetAll(c *gin.Context) {
	filter := repository.RideRequestFilter{
		Status:       domain.RideRequestStatus(c.Query("status")),
		FixedRouteID: c.Query("route_id"),
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			respondBadRequest(c, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	requests, err := h.rideRequestService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]RideRequestResponse, 0, len(requests))
	for _, r := range requests {
		resp = append(resp, toRideRequestResponse(r))
	}

	respondJSON(c, http.StatusOK, resp)
}

// MatchRideRequest handles POST /v1/ride-requests/:id/match
// An unmatched outcome is a normal answer, not an error.
func (h *RideRequestHandler) MatchRideRequest(c *gin.Context) {
	var req MatchRideRequestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	result, err := h.rideRequestService.Match(c.Request.Context(), c.Param("id"), req.VehicleID)
	if err != nil {
		respondError(c, err)
		return
	}

	code := http.StatusOK
	if result.Outcome == service.OutcomeCreated {
		code = http.StatusCreated
	}

	respondJSON(c, code, toMatchResponse(result))
}

// UpdateStatus handles POST /v1/ride-requests/:id/status
func (h *RideRequestHandler) UpdateStatus(c *gin.Context) {
	var req UpdateRideRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	if req.Status == "" {
		respondBadRequest(c, "status is required")
		return
	}

	rideReq, err := h.rideRequestService.UpdateStatus(c.Request.Context(), c.Param("id"), domain.RideRequestStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideRequestResponse(rideReq))
}

// SetSenderWallet handles POST /v1/ride-requests/:id/sender-wallet
func (h *RideRequestHandler) SetSenderWallet(c *gin.Context) {
	var req SetSenderWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	rideReq, err := h.rideRequestService.SetSenderWallet(c.Request.Context(), c.Param("id"), req.Wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideRequestResponse(rideReq))
}

// DetectPayment handles POST /v1/ride-requests/:id/detect-payment
func (h *RideRequestHandler) DetectPayment(c *gin.Context) {
	result, err := h.paymentService.AutoDetect(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := DetectionResponse{
		Found:            result.Found,
		AlreadyConfirmed: result.AlreadyConfirmed,
		PaymentID:        result.PaymentID,
		TxHash:           result.TxHash,
		Chain:            string(result.Chain),
		Amount:           result.Amount,
		WalletAddress:    result.WalletAddress,
	}
	for _, chain := range result.FailedChains {
		resp.FailedChains = append(resp.FailedChains, string(chain))
	}

	respondJSON(c, http.StatusOK, resp)
}

// ListPayments handles GET /v1/ride-requests/:id/payments
func (h *RideRequestHandler) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListByRideRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}

	respondJSON(c, http.StatusOK, resp)
}
