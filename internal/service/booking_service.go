package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opuscenter/tutor-center-api/internal/models"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
)

type bookingRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Booking, error)
	ListDetailByDate(ctx context.Context, date string) ([]models.BookingDetail, error)
	Update(ctx context.Context, booking *models.Booking) error
}

type conflictChecker interface {
	Check(ctx context.Context, cand models.BookingCandidate) (*models.ConflictReport, error)
}

// TransitionHook observes committed attendance transitions. The broader
// system hangs replacement-booking provisioning off cancellations here;
// the gateway itself never creates bookings.
type TransitionHook func(ctx context.Context, booking *models.Booking, from, to models.AttendanceStatus)

// UpdateBookingRequest carries a partial update; only non-nil fields are
// applied.
type UpdateBookingRequest struct {
	Attendance *models.AttendanceStatus `json:"attendance,omitempty"`
	Remark     *string                  `json:"remark,omitempty"`
	Date       *string                  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime  *string                  `json:"start_time,omitempty"`
	EndTime    *string                  `json:"end_time,omitempty"`
	Room       *string                  `json:"room,omitempty"`
	TeacherID  *int64                   `json:"teacher_id,omitempty"`
}

func (r UpdateBookingRequest) reschedules() bool {
	return r.Date != nil || r.StartTime != nil || r.EndTime != nil || r.Room != nil || r.TeacherID != nil
}

// BookingService is the single authority for mutating bookings, in
// particular for attendance transitions. Every write re-reads the current
// state first so repeated transitions to the same state collapse into
// no-ops instead of duplicate side effects.
type BookingService struct {
	repo      bookingRepository
	conflicts conflictChecker
	validator *validator.Validate
	logger    *zap.Logger
	hooks     []TransitionHook
}

// NewBookingService instantiates BookingService.
func NewBookingService(repo bookingRepository, conflicts conflictChecker, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{repo: repo, conflicts: conflicts, validator: validate, logger: logger}
}

// OnTransition registers a hook fired after an attendance transition has
// been persisted. Hooks run synchronously in registration order.
func (s *BookingService) OnTransition(hook TransitionHook) {
	s.hooks = append(s.hooks, hook)
}

// Update applies the present fields of req to the booking. Schedule
// changes (date, time, room, teacher) are conflict-checked against the
// rest of the calendar with the booking itself excluded.
func (s *BookingService) Update(ctx context.Context, id int64, req UpdateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if req.Attendance != nil && !req.Attendance.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown attendance status %q", *req.Attendance))
	}

	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := booking.Attendance

	dirty := false
	if req.Date != nil && *req.Date != booking.Date {
		booking.Date = *req.Date
		dirty = true
	}
	if req.StartTime != nil && *req.StartTime != booking.StartTime {
		booking.StartTime = *req.StartTime
		dirty = true
	}
	if req.EndTime != nil && *req.EndTime != booking.EndTime {
		booking.EndTime = *req.EndTime
		dirty = true
	}
	if req.Room != nil && *req.Room != booking.Room {
		booking.Room = *req.Room
		dirty = true
	}
	if req.TeacherID != nil && (booking.TeacherID == nil || *booking.TeacherID != *req.TeacherID) {
		booking.TeacherID = req.TeacherID
		dirty = true
	}
	if req.Remark != nil && (booking.Remark == nil || *booking.Remark != *req.Remark) {
		booking.Remark = req.Remark
		dirty = true
	}

	if dirty && req.reschedules() {
		report, err := s.conflicts.Check(ctx, models.BookingCandidate{
			Date:      booking.Date,
			StartTime: booking.StartTime,
			EndTime:   booking.EndTime,
			Room:      booking.Room,
			TeacherID: booking.TeacherID,
			StudentID: booking.StudentID,
			ExcludeID: booking.ID,
		})
		if err != nil {
			return nil, err
		}
		if report != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("booking conflict (%s) with %s / %s / %s at %s", report.ConflictType, report.CourseTitle, report.TeacherName, report.StudentName, report.StartTime))
		}
	}

	transitioned := false
	if req.Attendance != nil && *req.Attendance != from {
		if err := guardTransition(from, *req.Attendance); err != nil {
			return nil, err
		}
		booking.Attendance = *req.Attendance
		transitioned = true
		dirty = true
	}

	// Requests that change nothing, including same-state attendance
	// transitions, are answered without re-persisting.
	if !dirty {
		return booking, nil
	}

	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
	}
	if transitioned {
		s.fireHooks(ctx, booking, from, booking.Attendance)
	}
	return booking, nil
}

// Confirm transitions the booking to confirmed. The second return value is
// false when the booking was already confirmed and nothing was written.
func (s *BookingService) Confirm(ctx context.Context, id int64, remark string) (*models.Booking, bool, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if booking.Attendance.Committed() {
		return booking, false, nil
	}
	if booking.Attendance == models.AttendanceCancelled {
		return nil, false, appErrors.Clone(appErrors.ErrConflict, "booking was cancelled, contact staff to rebook")
	}

	from := booking.Attendance
	booking.Attendance = models.AttendanceConfirmed
	booking.Remark = &remark
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm booking")
	}
	s.fireHooks(ctx, booking, from, booking.Attendance)
	return booking, true, nil
}

// Cancel transitions the booking to cancelled. Re-cancelling is a no-op;
// cancelling a booking staff already committed to is rejected.
func (s *BookingService) Cancel(ctx context.Context, id int64, remark string) (*models.Booking, bool, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if booking.Attendance == models.AttendanceCancelled {
		return booking, false, nil
	}
	if err := guardTransition(booking.Attendance, models.AttendanceCancelled); err != nil {
		return nil, false, err
	}

	from := booking.Attendance
	booking.Attendance = models.AttendanceCancelled
	booking.Remark = &remark
	if err := s.repo.Update(ctx, booking); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}
	s.fireHooks(ctx, booking, from, booking.Attendance)
	return booking, true, nil
}

// DaySheet returns every booking on the given date with display names.
func (s *BookingService) DaySheet(ctx context.Context, date string) ([]models.BookingDetail, error) {
	details, err := s.repo.ListDetailByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return details, nil
}

func (s *BookingService) load(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// guardTransition rejects cancellations of bookings staff has already
// committed resources to.
func guardTransition(from, to models.AttendanceStatus) error {
	if to == models.AttendanceCancelled && from.Committed() {
		return appErrors.Clone(appErrors.ErrAlreadyConfirmed, "")
	}
	return nil
}

func (s *BookingService) fireHooks(ctx context.Context, booking *models.Booking, from, to models.AttendanceStatus) {
	for _, hook := range s.hooks {
		hook(ctx, booking, from, to)
	}
}
