package room_controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/controllers/availability_controller"
	"github.com/joy095/reservation/logger"
	"github.com/joy095/reservation/models/booking_models"
	"github.com/joy095/reservation/models/room_models"
	"github.com/joy095/reservation/utils"
)

// Quoter prices a stay.
type Quoter interface {
	Quote(ctx context.Context, roomID string, checkIn, checkOut time.Time) (booking_models.Charges, error)
}

// RoomController serves the public catalog and the staff catalog mutations.
type RoomController struct {
	Catalog room_models.Catalog
	Quoter  Quoter
}

func NewRoomController(catalog room_models.Catalog, quoter Quoter) *RoomController {
	return &RoomController{Catalog: catalog, Quoter: quoter}
}

// ListRooms handles GET /api/rooms.
func (rc *RoomController) ListRooms(c *gin.Context) {
	rooms, err := rc.Catalog.List(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if rooms == nil {
		rooms = []room_models.Room{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rooms": rooms})
}

// GetRoom handles GET /api/rooms/:id.
func (rc *RoomController) GetRoom(c *gin.Context) {
	room, err := rc.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

// Quote handles GET /api/rooms/:id/quote.
func (rc *RoomController) Quote(c *gin.Context) {
	checkIn, checkOut, err := availability_controller.ParseStay(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	charges, err := rc.Quoter.Quote(c.Request.Context(), c.Param("id"), checkIn, checkOut)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room_id": c.Param("id"), "quote": charges})
}

type RoomRequest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name" binding:"required"`
	Type         string   `json:"type" binding:"required"`
	NightlyPrice int64    `json:"nightly_price" binding:"required,gt=0"`
	Capacity     int      `json:"capacity" binding:"required,gt=0"`
	Size         string   `json:"size"`
	Description  string   `json:"description"`
	Amenities    []string `json:"amenities"`
	Status       string   `json:"status"`
}

func (r RoomRequest) toRoom() room_models.Room {
	return room_models.Room{
		ID:           strings.TrimSpace(r.ID),
		Name:         strings.TrimSpace(r.Name),
		Type:         strings.TrimSpace(r.Type),
		NightlyPrice: r.NightlyPrice,
		Capacity:     r.Capacity,
		Size:         r.Size,
		Description:  r.Description,
		Amenities:    r.Amenities,
		Status:       room_models.RoomStatus(strings.ToLower(r.Status)),
	}
}

// AddRoom handles POST /api/admin/rooms.
func (rc *RoomController) AddRoom(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "name, type, nightly_price and capacity are required")
		return
	}
	room := req.toRoom()
	if err := rc.Catalog.Create(c.Request.Context(), &room); err != nil {
		utils.RespondError(c, err)
		return
	}
	staff, _ := utils.GetStaffFromContext(c)
	logger.InfoLogger.Infof("Room %s added by %s", room.ID, staff)
	c.JSON(http.StatusCreated, gin.H{"success": true, "room": room})
}

// UpdateRoom handles PUT /api/admin/rooms/:id.
func (rc *RoomController) UpdateRoom(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "name, type, nightly_price and capacity are required")
		return
	}
	room := req.toRoom()
	room.ID = c.Param("id")

	existing, err := rc.Catalog.Get(c.Request.Context(), room.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if room.Status == "" {
		room.Status = existing.Status
	}
	room.CurrentGuest = existing.CurrentGuest

	if err := rc.Catalog.Update(c.Request.Context(), &room); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

type statusRequest struct {
	Status       string  `json:"status" binding:"required"`
	CurrentGuest *string `json:"current_guest"`
}

// SetRoomStatus handles PATCH /api/admin/rooms/:id/status. The status is
// operational only and never changes what can be booked.
func (rc *RoomController) SetRoomStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "status is required")
		return
	}
	status, err := room_models.ParseStatus(req.Status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	guest := req.CurrentGuest
	if status != room_models.RoomStatusOccupied {
		guest = nil
	}

	room, err := rc.Catalog.SetStatus(c.Request.Context(), c.Param("id"), status, guest)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}
