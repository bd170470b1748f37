package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/opuscenter/tutor-center-api/internal/models"
	"github.com/opuscenter/tutor-center-api/pkg/config"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
	"github.com/opuscenter/tutor-center-api/pkg/line"
)

type reminderBookingRepository interface {
	ListPendingByDate(ctx context.Context, date string) ([]models.BookingDetail, error)
	FindDetailByID(ctx context.Context, id int64) (*models.BookingDetail, error)
}

type reminderGuardianRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Guardian, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.Guardian, error)
}

type reminderSender interface {
	PushBookingReminder(ctx context.Context, to string, card line.ReminderCard) error
}

type runLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RunReport summarizes one dispatcher pass.
type RunReport struct {
	TargetDate string `json:"target_date"`
	Selected   int    `json:"selected"`
	Sent       int    `json:"sent"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

// ReminderService sends the interactive class reminder to the guardians of
// every still-pending booking on the target date. One failing recipient
// never aborts the pass; failures are counted and logged per booking.
type ReminderService struct {
	bookings  reminderBookingRepository
	guardians reminderGuardianRepository
	sender    reminderSender
	locker    runLocker
	cfg       config.ReminderConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewReminderService instantiates ReminderService. locker may be nil when
// scheduled runs are not used (manual runs never lock).
func NewReminderService(bookings reminderBookingRepository, guardians reminderGuardianRepository, sender reminderSender, locker runLocker, cfg config.ReminderConfig, logger *zap.Logger) *ReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		bookings:  bookings,
		guardians: guardians,
		sender:    sender,
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run dispatches reminders for bookings dated exactly offsetDays from today.
// A negative offset falls back to the configured one.
func (s *ReminderService) Run(ctx context.Context, offsetDays int) (*RunReport, error) {
	if offsetDays < 0 {
		offsetDays = s.cfg.OffsetDays
	}
	target := s.now().AddDate(0, 0, offsetDays).Format("2006-01-02")

	pending, err := s.bookings.ListPendingByDate(ctx, target)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending bookings")
	}

	report := &RunReport{TargetDate: target, Selected: len(pending)}

	// Guardians repeat across siblings' bookings; cache lookups per student.
	guardiansByStudent := make(map[int64][]models.Guardian)

	for i := range pending {
		booking := &pending[i]

		guardians, ok := guardiansByStudent[booking.StudentID]
		if !ok {
			guardians, err = s.guardians.ListByStudent(ctx, booking.StudentID)
			if err != nil {
				s.logger.Error("failed to resolve guardians",
					zap.Int64("booking_id", booking.ID),
					zap.Int64("student_id", booking.StudentID),
					zap.Error(err))
				report.Failed++
				continue
			}
			guardiansByStudent[booking.StudentID] = guardians
		}

		delivered := false
		reachable := 0
		for _, guardian := range guardians {
			if !guardian.Reachable() {
				s.logger.Warn("guardian has no linked LINE account, skipping",
					zap.Int64("booking_id", booking.ID),
					zap.Int64("guardian_id", guardian.ID))
				continue
			}
			reachable++
			if err := s.sender.PushBookingReminder(ctx, *guardian.LineUserID, reminderCard(booking)); err != nil {
				s.logger.Error("failed to push reminder",
					zap.Int64("booking_id", booking.ID),
					zap.Int64("guardian_id", guardian.ID),
					zap.Error(err))
				continue
			}
			delivered = true
		}

		switch {
		case reachable == 0:
			// No guardian has a linked LINE account; staff follow up by phone.
			report.Skipped++
		case delivered:
			report.Sent++
		default:
			report.Failed++
		}
	}

	s.logger.Info("reminder run finished",
		zap.String("target_date", report.TargetDate),
		zap.Int("selected", report.Selected),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

// RunScheduled performs the daily pass behind a distributed lock so only one
// instance sends on a given day. Returns (nil, nil) when another instance
// already holds the lock.
func (s *ReminderService) RunScheduled(ctx context.Context) (*RunReport, error) {
	if s.locker != nil {
		key := "reminders:run:" + s.now().Format("2006-01-02")
		acquired, err := s.locker.Acquire(ctx, key, s.cfg.RunLockTTL)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire reminder run lock")
		}
		if !acquired {
			s.logger.Info("reminder run already taken by another instance")
			return nil, nil
		}
	}
	return s.Run(ctx, s.cfg.OffsetDays)
}

// SendTest pushes the reminder for one booking to one guardian regardless of
// date or attendance state. Unlike Run, failures propagate so the operator
// sees them.
func (s *ReminderService) SendTest(ctx context.Context, guardianID, bookingID int64) error {
	guardian, err := s.guardians.FindByID(ctx, guardianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
	}
	if !guardian.Reachable() {
		return appErrors.Clone(appErrors.ErrValidation, "guardian has no linked LINE account")
	}

	booking, err := s.bookings.FindDetailByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	if err := s.sender.PushBookingReminder(ctx, *guardian.LineUserID, reminderCard(booking)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to push test reminder")
	}
	return nil
}

func reminderCard(booking *models.BookingDetail) line.ReminderCard {
	return line.ReminderCard{
		BookingID:   booking.ID,
		StudentName: booking.DisplayStudent("Unknown"),
		CourseTitle: booking.DisplayCourse("Unknown"),
		Date:        booking.Date,
		TimeRange:   booking.TimeRange(),
		Room:        booking.Room,
		TeacherName: booking.DisplayTeacher("TBD"),
	}
}
