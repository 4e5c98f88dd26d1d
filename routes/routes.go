package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/controllers/admin_controller"
	"github.com/joy095/reservation/controllers/availability_controller"
	"github.com/joy095/reservation/controllers/contact_controller"
	"github.com/joy095/reservation/controllers/order_controller"
	"github.com/joy095/reservation/controllers/payment_controller"
	"github.com/joy095/reservation/controllers/room_controller"
	middleware "github.com/joy095/reservation/middlewares"
)

// Controllers is everything the router serves.
type Controllers struct {
	Rooms        *room_controller.RoomController
	Availability *availability_controller.AvailabilityController
	Orders       *order_controller.OrderController
	Payments     *payment_controller.PaymentController
	Contact      *contact_controller.ContactController
	Admin        *admin_controller.AdminController
}

// Register mounts the public and staff routes on r.
func Register(r *gin.Engine, ctrl Controllers, limiters *middleware.RateLimiters, jwtSecret []byte) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok from reservation service"})
	})

	RegisterBookingRoutes(r, ctrl, limiters)
	RegisterAdminRoutes(r, ctrl, limiters, jwtSecret)
}
