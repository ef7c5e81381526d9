package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// GroupHandler handles HTTP requests for ride groups.
type GroupHandler struct {
	groupingService *service.GroupingService
}

// NewGroupHandler creates a new GroupHandler.
func NewGroupHandler(groupingService *service.GroupingService) *GroupHandler {
	return &GroupHandler{groupingService: groupingService}
}

// RideGroupResponse is the HTTP response for ride group operations.
type RideGroupResponse struct {
	ID                 string    `json:"id"`
	VehicleID          string    `json:"vehicle_id"`
	FixedRouteID       string    `json:"fixed_route_id"`
	RequestedTime      time.Time `json:"requested_time"`
	TotalPassengers    int       `json:"total_passengers"`
	TotalLuggageVolume float64   `json:"total_luggage_volume"`
	Status             string    `json:"status"`
	Version            int       `json:"version"`
}

func toRideGroupResponse(g *domain.RideGroup) RideGroupResponse {
	return RideGroupResponse{
		ID:                 g.ID,
		VehicleID:          g.VehicleID,
		FixedRouteID:       g.FixedRouteID,
		RequestedTime:      g.RequestedTime,
		TotalPassengers:    g.TotalPassengers,
		TotalLuggageVolume: g.TotalLuggageVolume,
		Status:             string(g.Status),
		Version:            g.Version,
	}
}

// MemberResponse is one member of a ride group.
type MemberResponse struct {
	RideRequestID  string    `json:"ride_request_id"`
	PassengerCount int       `json:"passenger_count"`
	LuggageVolume  float64   `json:"luggage_volume"`
	JoinedAt       time.Time `json:"joined_at"`
}

// UpdateGroupStatusRequest is the HTTP request body for a group status change.
type UpdateGroupStatusRequest struct {
	Status string `json:"status"`
}

// GetGroup handles GET /v1/groups/:id
func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, err := h.groupingService.GetGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideGroupResponse(group))
}

// ListMembers handles GET /v1/groups/:id/members
func (h *GroupHandler) ListMembers(c *gin.Context) {
	members, err := h.groupingService.ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, MemberResponse{
			RideRequestID:  m.RideRequestID,
			PassengerCount: m.PassengerCount,
			LuggageVolume:  m.LuggageVolume,
			JoinedAt:       m.JoinedAt,
		})
	}

	respondJSON(c, http.StatusOK, resp)
}

// RemoveMember handles DELETE /v1/groups/:id/members/:requestId
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	group, err := h.groupingService.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("requestId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideGroupResponse(group))
}

// RecomputeTotals handles POST /v1/groups/:id/recompute
func (h *GroupHandler) RecomputeTotals(c *gin.Context) {
	group, err := h.groupingService.RecomputeTotals(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideGroupResponse(group))
}

// UpdateStatus handles POST /v1/groups/:id/status
func (h *GroupHandler) UpdateStatus(c *gin.Context) {
	var req UpdateGroupStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	group, err := h.groupingService.UpdateGroupStatus(c.Request.Context(), c.Param("id"), domain.RideGroupStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideGroupResponse(group))
}
