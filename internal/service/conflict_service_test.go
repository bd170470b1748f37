package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opuscenter/tutor-center-api/internal/models"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
)

type overlapRepoStub struct {
	matches []models.BookingDetail
	err     error
	lastArg models.BookingCandidate
}

func (s *overlapRepoStub) FindOverlapping(_ context.Context, cand models.BookingCandidate) ([]models.BookingDetail, error) {
	s.lastArg = cand
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

func ptrI64(v int64) *int64 { return &v }

func ptrStr(v string) *string { return &v }

func existingBooking(id int64, room string, teacherID *int64, studentID int64) models.BookingDetail {
	return models.BookingDetail{
		Booking: models.Booking{
			ID:         id,
			Room:       room,
			TeacherID:  teacherID,
			StudentID:  studentID,
			Date:       "2025-06-04",
			StartTime:  "09:00",
			EndTime:    "10:00",
			Attendance: models.AttendancePending,
		},
		CourseTitle: ptrStr("Math M2"),
		TeacherName: ptrStr("Kru Somchai"),
		StudentName: ptrStr("Nong May"),
	}
}

func candidate() models.BookingCandidate {
	return models.BookingCandidate{
		Date:      "2025-06-04",
		StartTime: "09:30",
		EndTime:   "10:30",
		Room:      "R1",
		TeacherID: ptrI64(7),
		StudentID: 11,
	}
}

func TestConflictServiceCheckNoOverlap(t *testing.T) {
	repo := &overlapRepoStub{}
	svc := NewConflictService(repo, nil, nil)

	report, err := svc.Check(context.Background(), candidate())
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestConflictServiceCheckRoomConflict(t *testing.T) {
	repo := &overlapRepoStub{matches: []models.BookingDetail{
		existingBooking(42, "R1", ptrI64(99), 55),
	}}
	svc := NewConflictService(repo, nil, nil)

	report, err := svc.Check(context.Background(), candidate())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, models.ConflictRoom, report.ConflictType)
	assert.Equal(t, int64(42), report.BookingID)
	assert.Equal(t, "Math M2", report.CourseTitle)
}

func TestConflictServiceCheckAllDimensions(t *testing.T) {
	repo := &overlapRepoStub{matches: []models.BookingDetail{
		existingBooking(42, "R1", ptrI64(7), 11),
	}}
	svc := NewConflictService(repo, nil, nil)

	report, err := svc.Check(context.Background(), candidate())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, models.ConflictAll, report.ConflictType)
}

func TestConflictServiceCheckTeacherStudentConflict(t *testing.T) {
	repo := &overlapRepoStub{matches: []models.BookingDetail{
		existingBooking(42, "R9", ptrI64(7), 11),
	}}
	svc := NewConflictService(repo, nil, nil)

	report, err := svc.Check(context.Background(), candidate())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, models.ConflictTeacherStudent, report.ConflictType)
}

func TestConflictServiceNilTeacherNeverMatchesTeacher(t *testing.T) {
	repo := &overlapRepoStub{matches: []models.BookingDetail{
		existingBooking(42, "R1", ptrI64(7), 55),
	}}
	svc := NewConflictService(repo, nil, nil)

	cand := candidate()
	cand.TeacherID = nil
	report, err := svc.Check(context.Background(), cand)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, models.ConflictRoom, report.ConflictType)
}

func TestConflictServiceFirstMatchWins(t *testing.T) {
	repo := &overlapRepoStub{matches: []models.BookingDetail{
		existingBooking(42, "R1", ptrI64(99), 55),
		existingBooking(43, "R1", ptrI64(7), 11),
	}}
	svc := NewConflictService(repo, nil, nil)

	report, err := svc.Check(context.Background(), candidate())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, int64(42), report.BookingID)
	assert.Equal(t, models.ConflictRoom, report.ConflictType)
}

func TestConflictServiceRejectsInvertedInterval(t *testing.T) {
	svc := NewConflictService(&overlapRepoStub{}, nil, nil)

	cand := candidate()
	cand.StartTime = "10:30"
	cand.EndTime = "09:30"
	_, err := svc.Check(context.Background(), cand)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestConflictServiceRejectsEmptyInterval(t *testing.T) {
	svc := NewConflictService(&overlapRepoStub{}, nil, nil)

	cand := candidate()
	cand.EndTime = cand.StartTime
	_, err := svc.Check(context.Background(), cand)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestConflictServiceCheckBatchSkipsCleanCandidates(t *testing.T) {
	clean := candidate()
	dirty := candidate()
	dirty.Room = "R2"
	dirty.StudentID = 55

	// Only the second candidate collides.
	calls := 0
	repo := overlapFunc(func(ctx context.Context, cand models.BookingCandidate) ([]models.BookingDetail, error) {
		calls++
		if cand.Room == "R2" {
			return []models.BookingDetail{existingBooking(42, "R2", nil, 99)}, nil
		}
		return nil, nil
	})
	svc := NewConflictService(repo, nil, nil)

	reports, err := svc.CheckBatch(context.Background(), []models.BookingCandidate{clean, dirty})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, reports, 1)
	assert.Equal(t, "R2", reports[0].Room)
	assert.Equal(t, models.ConflictRoom, reports[0].ConflictType)
}

type overlapFunc func(ctx context.Context, cand models.BookingCandidate) ([]models.BookingDetail, error)

func (f overlapFunc) FindOverlapping(ctx context.Context, cand models.BookingCandidate) ([]models.BookingDetail, error) {
	return f(ctx, cand)
}
