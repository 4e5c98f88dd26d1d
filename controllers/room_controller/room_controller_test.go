package room_controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/models/booking_models"
	"github.com/joy095/reservation/models/room_models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuoter struct{}

func (stubQuoter) Quote(ctx context.Context, roomID string, checkIn, checkOut time.Time) (booking_models.Charges, error) {
	if roomID != "R1" {
		return booking_models.Charges{}, room_models.ErrRoomNotFound
	}
	return booking_models.ComputeCharges(booking_models.NightsBetween(checkIn, checkOut), 2000, 1200), nil
}

func newRouter(t *testing.T) (*gin.Engine, *room_models.MemoryCatalog) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	catalog := room_models.NewMemoryCatalog(
		room_models.Room{ID: "R1", Name: "Deluxe", Type: "deluxe", NightlyPrice: 2000, Capacity: 2},
		room_models.Room{ID: "R2", Name: "Family Suite", Type: "suite", NightlyPrice: 3500, Capacity: 4},
	)
	rc := NewRoomController(catalog, stubQuoter{})

	r := gin.New()
	r.GET("/api/rooms", rc.ListRooms)
	r.GET("/api/rooms/:id", rc.GetRoom)
	r.GET("/api/rooms/:id/quote", rc.Quote)
	r.POST("/api/admin/rooms", rc.AddRoom)
	r.PUT("/api/admin/rooms/:id", rc.UpdateRoom)
	r.PATCH("/api/admin/rooms/:id/status", rc.SetRoomStatus)
	return r, catalog
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestListAndGetRooms(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Rooms []room_models.Room `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Rooms, 2)
	assert.Equal(t, "R1", list.Rooms[0].ID)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/rooms/R2", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/rooms/R9", "").Code)
}

func TestQuoteHandler(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodGet, "/api/rooms/R1/quote?check_in=2024-07-10&check_out=2024-07-12", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Quote booking_models.Charges `json:"quote"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(4000), body.Quote.RoomCharges)
	assert.Equal(t, int64(480), body.Quote.Tax)
	assert.Equal(t, int64(4480), body.Quote.Total)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/rooms/R1/quote?check_in=soon", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/rooms/R9/quote?check_in=2024-07-10&check_out=2024-07-12", "").Code)
}

func TestAddAndUpdateRoom(t *testing.T) {
	r, catalog := newRouter(t)

	w := do(r, http.MethodPost, "/api/admin/rooms", `{"id":"R3","name":"Garden","type":"standard","nightly_price":1500,"capacity":2,"amenities":["wifi"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	room, err := catalog.Get(context.Background(), "R3")
	require.NoError(t, err)
	assert.Equal(t, room_models.RoomStatusAvailable, room.Status)

	w = do(r, http.MethodPost, "/api/admin/rooms", `{"id":"R3","name":"Garden","type":"standard","nightly_price":1500,"capacity":2}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = do(r, http.MethodPost, "/api/admin/rooms", `{"name":"Nameless","type":"standard","nightly_price":1500,"capacity":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodPost, "/api/admin/rooms", `{"id":"R4","name":"Free","type":"standard","nightly_price":0,"capacity":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/api/admin/rooms/R3", `{"name":"Garden View","type":"standard","nightly_price":1800,"capacity":3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	room, err = catalog.Get(context.Background(), "R3")
	require.NoError(t, err)
	assert.Equal(t, "Garden View", room.Name)
	assert.Equal(t, int64(1800), room.NightlyPrice)

	w = do(r, http.MethodPut, "/api/admin/rooms/R9", `{"name":"Ghost","type":"standard","nightly_price":1800,"capacity":3}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetRoomStatus(t *testing.T) {
	r, catalog := newRouter(t)

	w := do(r, http.MethodPatch, "/api/admin/rooms/R1/status", `{"status":"occupied","current_guest":"Asha Rao"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	room, err := catalog.Get(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, room_models.RoomStatusOccupied, room.Status)
	require.NotNil(t, room.CurrentGuest)
	assert.Equal(t, "Asha Rao", *room.CurrentGuest)

	w = do(r, http.MethodPatch, "/api/admin/rooms/R1/status", `{"status":"maintenance","current_guest":"Asha Rao"}`)
	require.Equal(t, http.StatusOK, w.Code)
	room, err = catalog.Get(context.Background(), "R1")
	require.NoError(t, err)
	assert.Nil(t, room.CurrentGuest, "only occupied rooms carry a guest")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, "/api/admin/rooms/R1/status", `{"status":"flooded"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, "/api/admin/rooms/R9/status", `{"status":"available"}`).Code)
}
