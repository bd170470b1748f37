package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opuscenter/tutor-center-api/internal/models"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
)

type conflictBookingRepository interface {
	FindOverlapping(ctx context.Context, cand models.BookingCandidate) ([]models.BookingDetail, error)
}

// ConflictService detects double bookings across the room, teacher and
// student dimensions. Two bookings collide when their half-open time
// intervals overlap on the same date AND they share at least one of those
// dimensions; intervals that merely touch (one ends exactly when the other
// starts) do not overlap.
type ConflictService struct {
	repo      conflictBookingRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConflictService instantiates ConflictService.
func NewConflictService(repo conflictBookingRepository, validate *validator.Validate, logger *zap.Logger) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{repo: repo, validator: validate, logger: logger}
}

// Check compares one candidate against the stored bookings and returns a
// report for the first colliding booking, or nil when the slot is free.
func (s *ConflictService) Check(ctx context.Context, cand models.BookingCandidate) (*models.ConflictReport, error) {
	if err := s.validator.Struct(cand); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking candidate")
	}
	if cand.StartTime >= cand.EndTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}

	matches, err := s.repo.FindOverlapping(ctx, cand)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking conflicts")
	}
	if len(matches) == 0 {
		return nil, nil
	}

	// Only the first colliding booking is reported even when several
	// exist; callers rely on the stable count of one report per candidate.
	first := matches[0]

	roomHit := first.Room == cand.Room
	teacherHit := cand.TeacherID != nil && first.TeacherID != nil && *first.TeacherID == *cand.TeacherID
	studentHit := first.StudentID == cand.StudentID

	report := &models.ConflictReport{
		Date:         cand.Date,
		Room:         cand.Room,
		StartTime:    cand.StartTime,
		EndTime:      cand.EndTime,
		ConflictType: models.ClassifyConflict(roomHit, teacherHit, studentHit),
		BookingID:    first.ID,
		CourseTitle:  first.DisplayCourse("Unknown"),
		TeacherName:  first.DisplayTeacher("Unknown"),
		StudentName:  first.DisplayStudent("Unknown"),
	}
	return report, nil
}

// CheckBatch checks each candidate independently and returns a report for
// every one that conflicts; clean candidates are skipped. Each candidate
// costs one storage round trip, which is fine for the expected batch sizes
// (tens of items) and keeps the per-candidate first-match semantics intact.
func (s *ConflictService) CheckBatch(ctx context.Context, cands []models.BookingCandidate) ([]models.ConflictReport, error) {
	reports := make([]models.ConflictReport, 0, len(cands))
	for _, cand := range cands {
		report, err := s.Check(ctx, cand)
		if err != nil {
			return nil, err
		}
		if report != nil {
			reports = append(reports, *report)
		}
	}
	return reports, nil
}
