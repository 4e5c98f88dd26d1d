package routes

import (
	"github.com/gin-gonic/gin"
	middleware "github.com/joy095/reservation/middlewares"
)

// RegisterBookingRoutes registers the guest-facing routes.
func RegisterBookingRoutes(router *gin.Engine, ctrl Controllers, limiters *middleware.RateLimiters) {
	api := router.Group("/api")

	rooms := api.Group("/rooms")
	{
		rooms.GET("", limiters.Limit("60-1m", "list-rooms"), ctrl.Rooms.ListRooms)
		rooms.GET("/:id", limiters.Limit("60-1m", "get-room"), ctrl.Rooms.GetRoom)
		rooms.GET("/:id/quote", limiters.Limit("30-1m", "quote"), ctrl.Rooms.Quote)
	}

	api.GET("/availability",
		limiters.Limit("30-1m", "availability"),
		ctrl.Availability.CheckAvailability)

	api.POST("/bookings",
		limiters.Combined("create-booking", "5-1m", "20-10m"),
		ctrl.Orders.CreateBooking)

	payment := api.Group("/payment")
	{
		payment.POST("/verify",
			limiters.Combined("verify-payment", "10-1m", "40-10m"),
			ctrl.Payments.Verify)
		// Gateway retries are not rate limited.
		payment.POST("/webhook", ctrl.Payments.Webhook)
	}

	api.POST("/contact",
		limiters.Combined("contact", "3-1m", "10-1h"),
		ctrl.Contact.Submit)
}
