package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opuscenter/tutor-center-api/internal/models"
)

// BookingRepository provides persistence for bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `b.id, b.session_id, b.course_id, b.student_id, b.teacher_id, b.room, b.date, b.start_time, b.end_time, b.attendance, b.remark, b.teacher_feedback, b.feedback_verified, b.created_at, b.updated_at`

const bookingDetailSelect = `SELECT ` + bookingColumns + `, c.title AS course_title, t.full_name AS teacher_name, s.full_name AS student_name FROM bookings b LEFT JOIN courses c ON c.id = b.course_id LEFT JOIN teachers t ON t.id = b.teacher_id LEFT JOIN students s ON s.id = b.student_id`

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id int64) (*models.Booking, error) {
	const query = `SELECT id, session_id, course_id, student_id, teacher_id, room, date, start_time, end_time, attendance, remark, teacher_feedback, feedback_verified, created_at, updated_at FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindDetailByID loads a booking together with its display names.
func (r *BookingRepository) FindDetailByID(ctx context.Context, id int64) (*models.BookingDetail, error) {
	query := bookingDetailSelect + ` WHERE b.id = $1`
	var detail models.BookingDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindOverlapping returns non-cancelled bookings on the candidate's date
// whose half-open interval overlaps the candidate's and which share at
// least one of room, teacher or student. Results are ordered by id so the
// first row is the stable "first match" reported to callers. The candidate's
// own row is excluded when ExcludeID is set.
func (r *BookingRepository) FindOverlapping(ctx context.Context, cand models.BookingCandidate) ([]models.BookingDetail, error) {
	query := bookingDetailSelect + ` WHERE b.date = $1 AND b.start_time < $2 AND b.end_time > $3 AND b.attendance <> $4 AND (b.room = $5 OR b.student_id = $6 OR ($7::bigint IS NOT NULL AND b.teacher_id = $7)) AND ($8 = 0 OR b.id <> $8) ORDER BY b.id ASC`
	var details []models.BookingDetail
	err := r.db.SelectContext(ctx, &details, query,
		cand.Date, cand.EndTime, cand.StartTime, models.AttendanceCancelled,
		cand.Room, cand.StudentID, cand.TeacherID, cand.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping bookings: %w", err)
	}
	return details, nil
}

// ListPendingByDate returns pending bookings on a date in schedule order.
func (r *BookingRepository) ListPendingByDate(ctx context.Context, date string) ([]models.BookingDetail, error) {
	query := bookingDetailSelect + ` WHERE b.date = $1 AND b.attendance = $2 ORDER BY b.start_time ASC, b.id ASC`
	var details []models.BookingDetail
	if err := r.db.SelectContext(ctx, &details, query, date, models.AttendancePending); err != nil {
		return nil, fmt.Errorf("list pending bookings by date: %w", err)
	}
	return details, nil
}

// ListDetailByDate returns every booking on a date for the day sheet.
func (r *BookingRepository) ListDetailByDate(ctx context.Context, date string) ([]models.BookingDetail, error) {
	query := bookingDetailSelect + ` WHERE b.date = $1 ORDER BY b.start_time ASC, b.room ASC, b.id ASC`
	var details []models.BookingDetail
	if err := r.db.SelectContext(ctx, &details, query, date); err != nil {
		return nil, fmt.Errorf("list bookings by date: %w", err)
	}
	return details, nil
}

// Update persists a modified booking record.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings SET teacher_id = :teacher_id, room = :room, date = :date, start_time = :start_time, end_time = :end_time, attendance = :attendance, remark = :remark, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}
