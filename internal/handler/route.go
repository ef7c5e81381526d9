package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// RouteHandler handles HTTP requests for fixed routes.
type RouteHandler struct {
	routeService *service.RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(routeService *service.RouteService) *RouteHandler {
	return &RouteHandler{routeService: routeService}
}

// CreateRouteRequest is the HTTP request body for creating a fixed route.
// Distance and duration are estimated when omitted.
type CreateRouteRequest struct {
	Name                 string  `json:"name"`
	StartLocation        string  `json:"start_location"`
	Destination          string  `json:"destination"`
	DistanceKm           float64 `json:"distance_km"`
	EstimatedDurationMin float64 `json:"estimated_duration_min"`
	MarketPrice          float64 `json:"market_price"`
	OurPrice             float64 `json:"our_price"`
	Currency             string  `json:"currency"`
}

// RouteResponse is the HTTP response for fixed route operations.
type RouteResponse struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	StartLocation        string  `json:"start_location"`
	Destination          string  `json:"destination"`
	DistanceKm           float64 `json:"distance_km"`
	EstimatedDurationMin float64 `json:"estimated_duration_min"`
	MarketPrice          float64 `json:"market_price,omitempty"`
	OurPrice             float64 `json:"our_price,omitempty"`
	Currency             string  `json:"currency"`
}

func toRouteResponse(r *domain.FixedRoute) RouteResponse {
	return RouteResponse{
		ID:                   r.ID,
		Name:                 r.Name,
		StartLocation:        r.StartLocation,
		Destination:          r.Destination,
		DistanceKm:           r.DistanceKm,
		EstimatedDurationMin: r.EstimatedDurationMin,
		MarketPrice:          r.MarketPrice,
		OurPrice:             r.OurPrice,
		Currency:             r.Currency,
	}
}

// CreateRoute handles POST /v1/routes
func (h *RouteHandler) CreateRoute(c *gin.Context) {
	var req CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	route, err := h.routeService.Create(c.Request.Context(), service.CreateRouteRequest{
		Name:                 req.Name,
		StartLocation:        req.StartLocation,
		Destination:          req.Destination,
		DistanceKm:           req.DistanceKm,
		EstimatedDurationMin: req.EstimatedDurationMin,
		MarketPrice:          req.MarketPrice,
		OurPrice:             req.OurPrice,
		Currency:             req.Currency,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRouteResponse(route))
}

// GetRoute handles GET /v1/routes/:id
func (h *RouteHandler) GetRoute(c *gin.Context) {
	route, err := h.routeService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRouteResponse(route))
}

// GetAll handles GET /v1/routes
func (h *RouteHandler) GetAll(c *gin.Context) {
	routes, err := h.routeService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		resp = append(resp, toRouteResponse(r))
	}

	respondJSON(c, http.StatusOK, resp)
}
