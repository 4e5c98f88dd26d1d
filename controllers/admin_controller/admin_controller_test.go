package admin_controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/reservation/models/admin_models"
	"github.com/joy095/reservation/models/booking_models"
	"github.com/joy095/reservation/utils"
	"github.com/joy095/reservation/utils/jwt_parse"
	"github.com/joy095/reservation/utils/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var jwtSecret = []byte("staff-secret")

type recordingDispatcher struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (d *recordingDispatcher) Dispatch(msg mail.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.msgs)
}

type fixture struct {
	svc    *Service
	ctrl   *AdminController
	ledger *booking_models.MemoryLedger
	mails  *recordingDispatcher
	now    time.Time
	seq    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Date(2024, 5, 30, 9, 0, 0, 0, time.UTC)
	ledger := booking_models.NewMemoryLedger()
	mails := &recordingDispatcher{}
	svc := NewService(ledger, mails, time.UTC)
	svc.Now = func() time.Time { return now }

	staff := admin_models.NewMemoryAdminStore()
	require.NoError(t, staff.Seed(context.Background(), "desk", "correct horse"))

	return &fixture{
		svc:    svc,
		ctrl:   NewAdminController(svc, staff, jwtSecret, time.Hour),
		ledger: ledger,
		mails:  mails,
		now:    now,
	}
}

// admit stores a hold on room for [in, out) created at the fixture clock.
func (f *fixture) admit(t *testing.T, room, in, out string) *booking_models.Booking {
	t.Helper()
	checkIn, err := booking_models.ParseDate(in)
	require.NoError(t, err)
	checkOut, err := booking_models.ParseDate(out)
	require.NoError(t, err)

	f.seq++
	charges := booking_models.ComputeCharges(booking_models.NightsBetween(checkIn, checkOut), 2000, 1200)
	guest := booking_models.Guest{FullName: "Asha Rao", Email: "Asha@Example.com", Phone: "+919800000000"}
	hold, err := booking_models.NewHold(guest, room, checkIn, checkOut, 2, charges, "INR", f.now.Add(time.Duration(f.seq)*time.Second), 15*time.Minute)
	require.NoError(t, err)
	hold.PaymentOrderID = "order_" + uuid.NewString()
	require.NoError(t, f.ledger.Admit(context.Background(), hold))
	return hold
}

func (f *fixture) confirm(t *testing.T, b *booking_models.Booking) {
	t.Helper()
	_, transitioned, err := f.ledger.Confirm(context.Background(), b.PaymentOrderID, "pay_"+b.ID.String(), f.now)
	require.NoError(t, err)
	require.True(t, transitioned)
}

func (f *fixture) router() *gin.Engine {
	r := gin.New()
	r.POST("/api/admin/login", f.ctrl.Login)
	staff := r.Group("/api/admin", func(c *gin.Context) {
		c.Set(utils.StaffContextKey, "desk")
		c.Next()
	})
	staff.GET("/bookings", f.ctrl.ListBookings)
	staff.GET("/bookings/stats", f.ctrl.Stats)
	staff.GET("/bookings/export", f.ctrl.ExportBookings)
	staff.POST("/bookings/:id/cancel", f.ctrl.CancelBooking)
	return r
}

func TestCancelBookingFreesDates(t *testing.T) {
	f := newFixture(t)
	b := f.admit(t, "R1", "2024-07-10", "2024-07-12")
	f.confirm(t, b)

	cancelled, err := f.svc.CancelBooking(context.Background(), b.ID, "desk")
	require.NoError(t, err)
	assert.Equal(t, booking_models.BookingStatusCancelled, cancelled.BookingStatus)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, booking_models.ReasonStaffCancel, *cancelled.CancellationReason)
	assert.Equal(t, 1, f.mails.count())

	blocking, err := f.ledger.Overlapping(context.Background(), "R1", b.CheckIn, b.CheckOut, f.now)
	require.NoError(t, err)
	assert.Empty(t, blocking)

	_, err = f.svc.CancelBooking(context.Background(), b.ID, "desk")
	assert.ErrorIs(t, err, booking_models.ErrAlreadyCancelled)
	assert.Equal(t, 1, f.mails.count(), "second cancel must not notify")

	_, err = f.svc.CancelBooking(context.Background(), uuid.New(), "desk")
	assert.ErrorIs(t, err, booking_models.ErrBookingNotFound)
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)
	a := f.admit(t, "R1", "2024-07-10", "2024-07-12")
	f.admit(t, "R2", "2024-07-10", "2024-07-12")
	c := f.admit(t, "R3", "2024-07-01", "2024-07-02")
	f.confirm(t, a)
	f.confirm(t, c)

	stats, err := f.svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(3), stats.Today)
	assert.Equal(t, int64(2), stats.Confirmed)
	assert.Equal(t, a.Amount+c.Amount, stats.Revenue)

	f.svc.Now = func() time.Time { return f.now.AddDate(0, 0, 1) }
	stats, err = f.svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Today)
	assert.Equal(t, int64(3), stats.Total)
}

func TestLoginHandler(t *testing.T) {
	f := newFixture(t)
	r := f.router()

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"username":"desk","password":"correct horse"}`, http.StatusOK},
		{"wrong password", `{"username":"desk","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"ghost","password":"correct horse"}`, http.StatusUnauthorized},
		{"missing password", `{"username":"desk"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Token string `json:"token"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			username, err := jwt_parse.ParseStaffTokenAt(jwtSecret, body.Token, f.svc.Now)
			require.NoError(t, err)
			assert.Equal(t, "desk", username)

			// Issued from the service clock, so the wall clock sees it as long expired.
			_, err = jwt_parse.ParseStaffToken(jwtSecret, body.Token)
			assert.ErrorIs(t, err, jwt_parse.ErrInvalidToken)
		})
	}
}

func TestListBookingsHandler(t *testing.T) {
	f := newFixture(t)
	first := f.admit(t, "R1", "2024-07-10", "2024-07-12")
	second := f.admit(t, "R2", "2024-07-10", "2024-07-12")
	f.confirm(t, first)
	r := f.router()

	list := func(query string) (int, []booking_models.Booking) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/bookings"+query, nil))
		var body struct {
			Bookings []booking_models.Booking `json:"bookings"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		return w.Code, body.Bookings
	}

	code, all := list("")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	_, confirmed := list("?status=confirmed")
	require.Len(t, confirmed, 1)
	assert.Equal(t, first.ID, confirmed[0].ID)

	_, byEmail := list("?email=asha@example.com&room_id=R2")
	require.Len(t, byEmail, 1)
	assert.Equal(t, second.ID, byEmail[0].ID)

	_, paged := list("?limit=1&offset=1")
	require.Len(t, paged, 1)
	assert.Equal(t, first.ID, paged[0].ID)

	code, _ = list("?status=bogus")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = list("?limit=ten")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCancelHandler(t *testing.T) {
	f := newFixture(t)
	b := f.admit(t, "R1", "2024-07-10", "2024-07-12")
	r := f.router()

	cancel := func(id string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/bookings/"+id+"/cancel", nil))
		return w
	}

	assert.Equal(t, http.StatusOK, cancel(b.ID.String()).Code)
	w := cancel(b.ID.String())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "ALREADY_CANCELLED")
	assert.Equal(t, http.StatusBadRequest, cancel("not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, cancel(uuid.NewString()).Code)
}

func TestStatsHandler(t *testing.T) {
	f := newFixture(t)
	f.confirm(t, f.admit(t, "R1", "2024-07-10", "2024-07-12"))

	w := httptest.NewRecorder()
	f.router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/bookings/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Stats booking_models.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Stats.Confirmed)
	assert.Equal(t, int64(4480), body.Stats.Revenue)
}

func TestExportBookings(t *testing.T) {
	f := newFixture(t)
	b := f.admit(t, "R1", "2024-07-10", "2024-07-12")
	f.confirm(t, b)
	f.admit(t, "R2", "2024-08-01", "2024-08-03")

	w := httptest.NewRecorder()
	f.router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/bookings/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bookings_20240530_090000.xlsx")

	book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{exportSheet}, book.GetSheetList())
	rows, err := book.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeader[0], rows[0][0])
	assert.Equal(t, "R2", rows[1][4], "newest first")
	assert.Equal(t, b.ID.String(), rows[2][0])
	assert.Equal(t, "2024-07-10", rows[2][5])
	assert.Equal(t, "confirmed", rows[2][13])
}
