package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/campuscove/internal/container"
	"github.com/joshua-takyi/campuscove/internal/handlers"
	"github.com/joshua-takyi/campuscove/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	if container.Config != nil && container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	origins := []string{"http://localhost:3000"}
	if container.Config != nil && len(container.Config.CORSOrigins) > 0 {
		origins = container.Config.CORSOrigins
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "OK",
				"service": "campuscove-api",
			})
		})
	}

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware(container.TokenValidator, container.UserService, container.Logger))

	protected.GET("/profile", handlers.GetProfile(container.UserService))

	bookingRoutes := protected.Group("/bookings")
	{
		bookingRoutes.POST("", handlers.CreateBooking(container.BookingService))
		bookingRoutes.GET("", handlers.ListBookings(container.BookingService))
		bookingRoutes.GET("/:id", handlers.GetBooking(container.BookingService))
		bookingRoutes.PUT("/:id", handlers.UpdateBookingStatus(container.BookingService))
		bookingRoutes.PUT("/:id/cancel", handlers.CancelBooking(container.BookingService))
		bookingRoutes.PUT("/:id/payment", handlers.UpdatePaymentStatus(container.BookingService))
	}

	subscriptionRoutes := protected.Group("/subscriptions")
	{
		subscriptionRoutes.POST("", handlers.Subscribe(container.SubscriptionService))
		subscriptionRoutes.GET("", handlers.ListSubscriptions(container.SubscriptionService))
		subscriptionRoutes.PUT("/:id", handlers.RespondToSubscription(container.SubscriptionService))
	}

	return r
}
