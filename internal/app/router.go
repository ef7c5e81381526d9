package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/handler"
	"carpool/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	FareHandler        *handler.FareHandler
	RideRequestHandler *handler.RideRequestHandler
	VehicleHandler     *handler.VehicleHandler
	RouteHandler       *handler.RouteHandler
	GroupHandler       *handler.GroupHandler
	PaymentHandler     *handler.PaymentHandler
	RedisClient        redis.Cmdable
	NewRelicApp        *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		v1.GET("/fares", deps.FareHandler.GetFare)

		// Ride request routes.
		requests := v1.Group("/ride-requests")
		{
			requests.POST("", deps.RideRequestHandler.CreateRideRequest)
			requests.GET("", deps.RideRequestHandler.GetAll)
			requests.GET("/:id", deps.RideRequestHandler.GetRideRequest)
			requests.POST("/:id/match", deps.RideRequestHandler.MatchRideRequest)
			requests.POST("/:id/status", deps.RideRequestHandler.UpdateStatus)
			requests.POST("/:id/sender-wallet", deps.RideRequestHandler.SetSenderWallet)
			requests.POST("/:id/detect-payment", deps.RideRequestHandler.DetectPayment)
			requests.GET("/:id/payments", deps.RideRequestHandler.ListPayments)
		}

		// Vehicle routes.
		vehicles := v1.Group("/vehicles")
		{
			vehicles.POST("", deps.VehicleHandler.Register)
			vehicles.GET("", deps.VehicleHandler.GetAll)
			vehicles.GET("/:id", deps.VehicleHandler.GetVehicle)
			vehicles.PUT("/:id", deps.VehicleHandler.Update)
			vehicles.DELETE("/:id", deps.VehicleHandler.Deactivate)
		}

		// Fixed route routes.
		routes := v1.Group("/routes")
		{
			routes.POST("", deps.RouteHandler.CreateRoute)
			routes.GET("", deps.RouteHandler.GetAll)
			routes.GET("/:id", deps.RouteHandler.GetRoute)
		}

		// Ride group routes.
		groups := v1.Group("/groups")
		{
			groups.GET("/:id", deps.GroupHandler.GetGroup)
			groups.GET("/:id/members", deps.GroupHandler.ListMembers)
			groups.DELETE("/:id/members/:requestId", deps.GroupHandler.RemoveMember)
			groups.POST("/:id/recompute", deps.GroupHandler.RecomputeTotals)
			groups.POST("/:id/status", deps.GroupHandler.UpdateStatus)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("", deps.PaymentHandler.CreatePayment)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
			payments.POST("/:id/confirm", deps.PaymentHandler.ConfirmPayment)
			payments.POST("/:id/status", deps.PaymentHandler.UpdateStatus)
		}

		v1.GET("/wallets", deps.PaymentHandler.ListWallets)
	}

	return router
}
