package admin_controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/joy095/reservation/models/booking_models"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Bookings"

var exportHeader = []string{
	"Booking ID", "Guest", "Email", "Phone", "Room", "Check-in", "Check-out", "Nights", "Guests",
	"Room Charges", "Tax", "Amount", "Currency", "Booking Status", "Payment Status",
	"Order ID", "Payment ID", "Created At", "Cancelled At", "Cancellation Reason",
}

var exportWidths = []float64{38, 22, 28, 16, 10, 12, 12, 8, 8, 14, 10, 12, 10, 16, 14, 24, 24, 20, 20, 20}

// ExportBookings renders every booking matching f as an XLSX workbook. Paging
// in f is ignored; the export walks the whole result.
func (s *Service) ExportBookings(ctx context.Context, f booking_models.Filter) ([]byte, error) {
	var all []booking_models.Booking
	f.Offset = 0
	f.Limit = 500
	for {
		page, err := s.Ledger.List(ctx, f)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < f.Limit {
			break
		}
		f.Offset += len(page)
	}
	return s.workbook(all)
}

func (s *Service) workbook(bookings []booking_models.Booking) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(exportSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	// Indices shift once the default sheet is gone.
	if index, err := f.GetSheetIndex(exportSheet); err == nil {
		f.SetActiveSheet(index)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheet, name, name, exportWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, b := range bookings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := s.exportRow(&b)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) exportRow(b *booking_models.Booking) []any {
	const stamp = "2006-01-02 15:04"
	var paymentID, cancelledAt, reason string
	if b.PaymentID != nil {
		paymentID = *b.PaymentID
	}
	if b.CancelledAt != nil {
		cancelledAt = b.CancelledAt.In(s.Location).Format(stamp)
	}
	if b.CancellationReason != nil {
		reason = *b.CancellationReason
	}
	return []any{
		b.ID.String(), b.FullName, b.Email, b.Phone, b.RoomID,
		b.CheckIn.Format(booking_models.DateLayout), b.CheckOut.Format(booking_models.DateLayout),
		b.Nights(), b.Guests, b.RoomCharges, b.Tax, b.Amount, b.Currency,
		string(b.BookingStatus), string(b.PaymentStatus), b.PaymentOrderID, paymentID,
		b.CreatedAt.In(s.Location).Format(stamp), cancelledAt, reason,
	}
}
