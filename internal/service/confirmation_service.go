package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/opuscenter/tutor-center-api/internal/models"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
)

const (
	remarkGuardianConfirmed  = "Attendance confirmed by guardian via LINE"
	remarkGuardianReschedule = "Reschedule requested by guardian via LINE"
)

type attendanceGateway interface {
	Confirm(ctx context.Context, id int64, remark string) (*models.Booking, bool, error)
	Cancel(ctx context.Context, id int64, remark string) (*models.Booking, bool, error)
}

type confirmationGuardianRepository interface {
	FindByLineUserID(ctx context.Context, lineUserID string) (*models.Guardian, error)
	IsLinked(ctx context.Context, guardianID, studentID int64) (bool, error)
}

type confirmationBookingRepository interface {
	FindDetailByID(ctx context.Context, id int64) (*models.BookingDetail, error)
}

type transitionNotifier interface {
	BookingConfirmed(ctx context.Context, detail *models.BookingDetail)
	BookingCancelled(ctx context.Context, detail *models.BookingDetail)
}

// ConfirmationService handles guardian responses to reminder cards. Every
// action is authorized against the guardian-student link first; any failure
// in that chain collapses into one generic refusal so the payload cannot be
// used to probe which booking ids exist.
type ConfirmationService struct {
	gateway   attendanceGateway
	guardians confirmationGuardianRepository
	bookings  confirmationBookingRepository
	notifier  transitionNotifier
	logger    *zap.Logger
}

// NewConfirmationService instantiates ConfirmationService. notifier may be
// nil when staff notifications are disabled.
func NewConfirmationService(gateway attendanceGateway, guardians confirmationGuardianRepository, bookings confirmationBookingRepository, notifier transitionNotifier, logger *zap.Logger) *ConfirmationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfirmationService{
		gateway:   gateway,
		guardians: guardians,
		bookings:  bookings,
		notifier:  notifier,
		logger:    logger,
	}
}

// Confirm marks the booking confirmed on behalf of the sender. The returned
// string is the chat reply for the guardian.
func (s *ConfirmationService) Confirm(ctx context.Context, lineUserID string, bookingID int64) (string, error) {
	detail, err := s.authorize(ctx, lineUserID, bookingID)
	if err != nil {
		return "", err
	}

	_, changed, err := s.gateway.Confirm(ctx, bookingID, remarkGuardianConfirmed)
	if err != nil {
		return "", err
	}
	if changed && s.notifier != nil {
		s.notifier.BookingConfirmed(ctx, detail)
	}

	return fmt.Sprintf("Attendance confirmed for %s on %s %s. See you in class!",
		detail.DisplayCourse("the class"), detail.Date, detail.TimeRange()), nil
}

// RequestReschedule cancels the booking on behalf of the sender so staff can
// rebook a new slot. Bookings staff already committed to are rejected.
func (s *ConfirmationService) RequestReschedule(ctx context.Context, lineUserID string, bookingID int64) (string, error) {
	detail, err := s.authorize(ctx, lineUserID, bookingID)
	if err != nil {
		return "", err
	}

	_, changed, err := s.gateway.Cancel(ctx, bookingID, remarkGuardianReschedule)
	if err != nil {
		return "", err
	}
	if changed && s.notifier != nil {
		s.notifier.BookingCancelled(ctx, detail)
	}

	return fmt.Sprintf("Reschedule request received for %s on %s. Our staff will contact you to arrange a new time.",
		detail.DisplayCourse("the class"), detail.Date), nil
}

// authorize resolves the sender to a guardian and checks the guardian is
// linked to the booking's student. All failure modes return the same
// refusal.
func (s *ConfirmationService) authorize(ctx context.Context, lineUserID string, bookingID int64) (*models.BookingDetail, error) {
	refusal := appErrors.Clone(appErrors.ErrUnauthorized, "not allowed to act on this booking")

	guardian, err := s.guardians.FindByLineUserID(ctx, lineUserID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("failed to resolve guardian from line identity", zap.Error(err))
		}
		return nil, refusal
	}

	detail, err := s.bookings.FindDetailByID(ctx, bookingID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error("failed to load booking for authorization", zap.Int64("booking_id", bookingID), zap.Error(err))
		}
		return nil, refusal
	}

	linked, err := s.guardians.IsLinked(ctx, guardian.ID, detail.StudentID)
	if err != nil {
		s.logger.Error("failed to check guardian-student link",
			zap.Int64("guardian_id", guardian.ID),
			zap.Int64("student_id", detail.StudentID),
			zap.Error(err))
		return nil, refusal
	}
	if !linked {
		return nil, refusal
	}
	return detail, nil
}
