package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// VehicleHandler handles HTTP requests for vehicles.
type VehicleHandler struct {
	vehicleService *service.VehicleService
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(vehicleService *service.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

// VehicleRequest is the HTTP request body for registering or updating a vehicle.
type VehicleRequest struct {
	DriverID           string   `json:"driver_id"`
	LicensePlate       string   `json:"license_plate"`
	MaxPassengers      int      `json:"max_passengers"`
	TrunkLengthCm      float64  `json:"trunk_length_cm"`
	TrunkWidthCm       float64  `json:"trunk_width_cm"`
	TrunkHeightCm      float64  `json:"trunk_height_cm"`
	DiscountPercentage *float64 `json:"discount_percentage"`
}

func (r VehicleRequest) toService() service.VehicleRequest {
	return service.VehicleRequest{
		DriverID:           r.DriverID,
		LicensePlate:       r.LicensePlate,
		MaxPassengers:      r.MaxPassengers,
		TrunkLengthCm:      r.TrunkLengthCm,
		TrunkWidthCm:       r.TrunkWidthCm,
		TrunkHeightCm:      r.TrunkHeightCm,
		DiscountPercentage: r.DiscountPercentage,
	}
}

// VehicleResponse is the HTTP response for vehicle operations.
type VehicleResponse struct {
	ID                 string    `json:"id"`
	DriverID           string    `json:"driver_id"`
	LicensePlate       string    `json:"license_plate"`
	MaxPassengers      int       `json:"max_passengers"`
	TrunkLengthCm      float64   `json:"trunk_length_cm"`
	TrunkWidthCm       float64   `json:"trunk_width_cm"`
	TrunkHeightCm      float64   `json:"trunk_height_cm"`
	CapacityVolume     float64   `json:"capacity_volume"`
	DiscountPercentage *float64  `json:"discount_percentage,omitempty"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

func toVehicleResponse(v *domain.Vehicle) VehicleResponse {
	return VehicleResponse{
		ID:                 v.ID,
		DriverID:           v.DriverID,
		LicensePlate:       v.LicensePlate,
		MaxPassengers:      v.MaxPassengers,
		TrunkLengthCm:      v.TrunkLengthCm,
		TrunkWidthCm:       v.TrunkWidthCm,
		TrunkHeightCm:      v.TrunkHeightCm,
		CapacityVolume:     v.CapacityVolume(),
		DiscountPercentage: v.DiscountPercentage,
		IsActive:           v.IsActive,
		CreatedAt:          v.CreatedAt,
	}
}

// Register handles POST /v1/vehicles
func (h *VehicleHandler) Register(c *gin.Context) {
	var req VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	vehicle, err := h.vehicleService.Register(c.Request.Context(), req.toService())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toVehicleResponse(vehicle))
}

// Update handles PUT /v1/vehicles/:id
func (h *VehicleHandler) Update(c *gin.Context) {
	var req VehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	vehicle, err := h.vehicleService.Update(c.Request.Context(), c.Param("id"), req.toService())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toVehicleResponse(vehicle))
}

// GetVehicle handles GET /v1/vehicles/:id
func (h *VehicleHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.vehicleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toVehicleResponse(vehicle))
}

// GetAll handles GET /v1/vehicles?driver_id=...
func (h *VehicleHandler) GetAll(c *gin.Context) {
	vehicles, err := h.vehicleService.ListActive(c.Request.Context(), c.Query("driver_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		resp = append(resp, toVehicleResponse(v))
	}

	respondJSON(c, http.StatusOK, resp)
}

// Deactivate handles DELETE /v1/vehicles/:id
func (h *VehicleHandler) Deactivate(c *gin.Context) {
	if err := h.vehicleService.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
