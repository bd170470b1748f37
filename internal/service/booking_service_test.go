package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opuscenter/tutor-center-api/internal/models"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
)

type bookingRepoStub struct {
	booking *models.Booking
	findErr error
	updated []models.Booking
	details []models.BookingDetail
}

func (s *bookingRepoStub) FindByID(context.Context, int64) (*models.Booking, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	b := *s.booking
	return &b, nil
}

func (s *bookingRepoStub) ListDetailByDate(context.Context, string) ([]models.BookingDetail, error) {
	return s.details, nil
}

func (s *bookingRepoStub) Update(_ context.Context, booking *models.Booking) error {
	s.updated = append(s.updated, *booking)
	return nil
}

type checkerStub struct {
	report  *models.ConflictReport
	lastArg *models.BookingCandidate
}

func (s *checkerStub) Check(_ context.Context, cand models.BookingCandidate) (*models.ConflictReport, error) {
	s.lastArg = &cand
	return s.report, nil
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:         42,
		SessionID:  1,
		CourseID:   2,
		StudentID:  11,
		TeacherID:  ptrI64(7),
		Room:       "R1",
		Date:       "2025-06-04",
		StartTime:  "09:00",
		EndTime:    "10:00",
		Attendance: models.AttendancePending,
	}
}

func TestBookingServiceConfirmFromPending(t *testing.T) {
	repo := &bookingRepoStub{booking: pendingBooking()}
	svc := NewBookingService(repo, &checkerStub{}, nil, nil)

	var hookFrom, hookTo models.AttendanceStatus
	hookCount := 0
	svc.OnTransition(func(_ context.Context, _ *models.Booking, from, to models.AttendanceStatus) {
		hookCount++
		hookFrom, hookTo = from, to
	})

	booking, changed, err := svc.Confirm(context.Background(), 42, "confirmed via phone")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.AttendanceConfirmed, booking.Attendance)
	require.NotNil(t, booking.Remark)
	assert.Equal(t, "confirmed via phone", *booking.Remark)
	require.Len(t, repo.updated, 1)
	assert.Equal(t, 1, hookCount)
	assert.Equal(t, models.AttendancePending, hookFrom)
	assert.Equal(t, models.AttendanceConfirmed, hookTo)
}

func TestBookingServiceConfirmIdempotent(t *testing.T) {
	booking := pendingBooking()
	booking.Attendance = models.AttendanceConfirmed
	repo := &bookingRepoStub{booking: booking}
	svc := NewBookingService(repo, &checkerStub{}, nil, nil)

	hookCount := 0
	svc.OnTransition(func(context.Context, *models.Booking, models.AttendanceStatus, models.AttendanceStatus) {
		hookCount++
	})

	got, changed, err := svc.Confirm(context.Background(), 42, "again")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.AttendanceConfirmed, got.Attendance)
	assert.Empty(t, repo.updated)
	assert.Zero(t, hookCount)
}

func TestBookingServiceConfirmCancelledRejected(t *testing.T) {
	booking := pendingBooking()
	booking.Attendance = models.AttendanceCancelled
	svc := NewBookingService(&bookingRepoStub{booking: booking}, &checkerStub{}, nil, nil)

	_, _, err := svc.Confirm(context.Background(), 42, "late confirm")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestBookingServiceCancelFromPending(t *testing.T) {
	repo := &bookingRepoStub{booking: pendingBooking()}
	svc := NewBookingService(repo, &checkerStub{}, nil, nil)

	booking, changed, err := svc.Cancel(context.Background(), 42, "guardian request")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.AttendanceCancelled, booking.Attendance)
	require.Len(t, repo.updated, 1)
}

func TestBookingServiceCancelIdempotent(t *testing.T) {
	booking := pendingBooking()
	booking.Attendance = models.AttendanceCancelled
	repo := &bookingRepoStub{booking: booking}
	svc := NewBookingService(repo, &checkerStub{}, nil, nil)

	got, changed, err := svc.Cancel(context.Background(), 42, "again")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.AttendanceCancelled, got.Attendance)
	assert.Empty(t, repo.updated)
}

func TestBookingServiceCancelConfirmedRejected(t *testing.T) {
	for _, state := range []models.AttendanceStatus{models.AttendanceConfirmed, models.AttendancePresent} {
		booking := pendingBooking()
		booking.Attendance = state
		svc := NewBookingService(&bookingRepoStub{booking: booking}, &checkerStub{}, nil, nil)

		_, _, err := svc.Cancel(context.Background(), 42, "too late")
		require.Error(t, err, string(state))
		assert.True(t, appErrors.HasCode(err, appErrors.ErrAlreadyConfirmed), string(state))
	}
}

func TestBookingServiceUpdateRescheduleChecksConflicts(t *testing.T) {
	repo := &bookingRepoStub{booking: pendingBooking()}
	checker := &checkerStub{}
	svc := NewBookingService(repo, checker, nil, nil)

	newRoom := "R2"
	booking, err := svc.Update(context.Background(), 42, UpdateBookingRequest{Room: &newRoom})
	require.NoError(t, err)
	assert.Equal(t, "R2", booking.Room)

	require.NotNil(t, checker.lastArg)
	assert.Equal(t, "R2", checker.lastArg.Room)
	assert.Equal(t, int64(42), checker.lastArg.ExcludeID)
}

func TestBookingServiceUpdateConflictRejected(t *testing.T) {
	repo := &bookingRepoStub{booking: pendingBooking()}
	checker := &checkerStub{report: &models.ConflictReport{
		ConflictType: models.ConflictRoom,
		BookingID:    99,
		CourseTitle:  "Physics",
		StartTime:    "09:00",
	}}
	svc := NewBookingService(repo, checker, nil, nil)

	newRoom := "R2"
	_, err := svc.Update(context.Background(), 42, UpdateBookingRequest{Room: &newRoom})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	assert.Empty(t, repo.updated)
}

func TestBookingServiceUpdateAttendanceOnlySkipsConflictCheck(t *testing.T) {
	repo := &bookingRepoStub{booking: pendingBooking()}
	checker := &checkerStub{}
	svc := NewBookingService(repo, checker, nil, nil)

	absent := models.AttendanceAbsent
	booking, err := svc.Update(context.Background(), 42, UpdateBookingRequest{Attendance: &absent})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, booking.Attendance)
	assert.Nil(t, checker.lastArg)
}

func TestBookingServiceUpdateSameStateSkipsWrite(t *testing.T) {
	repo := &bookingRepoStub{booking: pendingBooking()}
	svc := NewBookingService(repo, &checkerStub{}, nil, nil)

	hookCount := 0
	svc.OnTransition(func(context.Context, *models.Booking, models.AttendanceStatus, models.AttendanceStatus) {
		hookCount++
	})

	pending := models.AttendancePending
	booking, err := svc.Update(context.Background(), 42, UpdateBookingRequest{Attendance: &pending})
	require.NoError(t, err)
	assert.Equal(t, models.AttendancePending, booking.Attendance)
	assert.Empty(t, repo.updated)
	assert.Zero(t, hookCount)
}

func TestBookingServiceUpdateUnchangedFieldsSkipWrite(t *testing.T) {
	current := pendingBooking()
	repo := &bookingRepoStub{booking: current}
	checker := &checkerStub{}
	svc := NewBookingService(repo, checker, nil, nil)

	sameRoom := current.Room
	sameDate := current.Date
	booking, err := svc.Update(context.Background(), 42, UpdateBookingRequest{Room: &sameRoom, Date: &sameDate})
	require.NoError(t, err)
	assert.Equal(t, current.Room, booking.Room)
	assert.Empty(t, repo.updated)
	assert.Nil(t, checker.lastArg)
}

func TestBookingServiceUpdateUnknownAttendanceRejected(t *testing.T) {
	svc := NewBookingService(&bookingRepoStub{booking: pendingBooking()}, &checkerStub{}, nil, nil)

	bogus := models.AttendanceStatus("maybe")
	_, err := svc.Update(context.Background(), 42, UpdateBookingRequest{Attendance: &bogus})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestBookingServiceNotFound(t *testing.T) {
	svc := NewBookingService(&bookingRepoStub{findErr: sql.ErrNoRows}, &checkerStub{}, nil, nil)

	_, _, err := svc.Confirm(context.Background(), 42, "")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}
