package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/opuscenter/tutor-center-api/internal/models"
)

// Day sheet rendering: the front desk prints one table per day with every
// booking, its room assignment and its attendance state.

var daySheetColumns = []string{"Time", "Room", "Course", "Teacher", "Student", "Status"}

func daySheetRow(b models.BookingDetail) []string {
	return []string{
		b.TimeRange(),
		b.Room,
		b.DisplayCourse("Unknown"),
		b.DisplayTeacher("TBD"),
		b.DisplayStudent("Unknown"),
		string(b.Attendance),
	}
}

// DaySheetCSV renders the bookings of one day as CSV.
func DaySheetCSV(bookings []models.BookingDetail) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(daySheetColumns); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, b := range bookings {
		if err := writer.Write(daySheetRow(b)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DaySheetPDF renders the bookings of one day as a tabular PDF headed by
// the date.
func DaySheetPDF(date string, bookings []models.BookingDetail) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("CLASS DAY SHEET %s", date), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	colWidth := 277.0 / float64(len(daySheetColumns))
	for _, header := range daySheetColumns {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, b := range bookings {
		for _, cell := range daySheetRow(b) {
			pdf.CellFormat(colWidth, 7, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render day sheet pdf: %w", err)
	}
	return buf.Bytes(), nil
}
