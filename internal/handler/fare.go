package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// FareHandler handles HTTP requests for fare quotes.
type FareHandler struct {
	fareService *service.FareService
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(fareService *service.FareService) *FareHandler {
	return &FareHandler{fareService: fareService}
}

// FareResponse is the HTTP response for a fare quote.
type FareResponse struct {
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	IsDiscounted bool    `json:"is_discounted"`
}

func toFareResponse(f *domain.Fare) FareResponse {
	return FareResponse{
		Amount:       f.Amount,
		Currency:     f.Currency,
		IsDiscounted: f.IsDiscounted,
	}
}

// GetFare handles GET /v1/fares?route_id=...&vehicle_id=...
func (h *FareHandler) GetFare(c *gin.Context) {
	routeID := c.Query("route_id")
	if routeID == "" {
		respondBadRequest(c, "route_id is required")
		return
	}

	var vehicleID *string
	if v := c.Query("vehicle_id"); v != "" {
		vehicleID = &v
	}

	fare, err := h.fareService.Calculate(c.Request.Context(), routeID, vehicleID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toFareResponse(fare))
}
