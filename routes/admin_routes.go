package routes

import (
	"github.com/gin-gonic/gin"
	middleware "github.com/joy095/reservation/middlewares"
	"github.com/joy095/reservation/middlewares/auth"
)

// RegisterAdminRoutes registers the staff console. Everything except login
// needs a staff bearer token.
func RegisterAdminRoutes(router *gin.Engine, ctrl Controllers, limiters *middleware.RateLimiters, jwtSecret []byte) {
	admin := router.Group("/api/admin")

	admin.POST("/login",
		limiters.Combined("staff-login", "5-1m", "20-1h"),
		ctrl.Admin.Login)

	protected := admin.Group("")
	protected.Use(auth.StaffAuth(jwtSecret))
	{
		protected.GET("/bookings", ctrl.Admin.ListBookings)
		protected.GET("/bookings/stats", ctrl.Admin.Stats)
		protected.GET("/bookings/export",
			limiters.Limit("5-1m", "export-bookings"),
			ctrl.Admin.ExportBookings)
		protected.POST("/bookings/:id/cancel", ctrl.Admin.CancelBooking)

		protected.POST("/rooms", ctrl.Rooms.AddRoom)
		protected.PUT("/rooms/:id", ctrl.Rooms.UpdateRoom)
		protected.PATCH("/rooms/:id/status", ctrl.Rooms.SetRoomStatus)
	}
}
