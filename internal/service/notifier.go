package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opuscenter/tutor-center-api/internal/models"
	"github.com/opuscenter/tutor-center-api/pkg/config"
	"github.com/opuscenter/tutor-center-api/pkg/jobs"
)

type staffDirectory interface {
	ListNotifiableByRoles(ctx context.Context, roles ...models.UserRole) ([]models.User, error)
}

type teacherDirectory interface {
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
}

type textPusher interface {
	PushText(ctx context.Context, to string, text string) error
}

// staffNotice is one queued message for one recipient, so a failing
// recipient is retried in isolation.
type staffNotice struct {
	To   string
	Text string
}

// StaffNotifier fans out booking-transition notices to registrar/admin
// staff and the assigned teacher over the async job queue. Delivery is
// best-effort: the state transition that triggered a notice is never
// rolled back when sending fails.
type StaffNotifier struct {
	staff    staffDirectory
	teachers teacherDirectory
	pusher   textPusher
	queue    *jobs.Queue
	logger   *zap.Logger
}

// NewStaffNotifier builds the notifier and its backing queue.
func NewStaffNotifier(staff staffDirectory, teachers teacherDirectory, pusher textPusher, cfg config.NotifyConfig, logger *zap.Logger) *StaffNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &StaffNotifier{staff: staff, teachers: teachers, pusher: pusher, logger: logger}
	n.queue = jobs.NewQueue("staff-notify", n.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return n
}

// Start launches the queue workers.
func (n *StaffNotifier) Start(ctx context.Context) { n.queue.Start(ctx) }

// Stop drains the queue workers.
func (n *StaffNotifier) Stop() { n.queue.Stop() }

// BookingConfirmed notifies staff and the assigned teacher that a guardian
// confirmed attendance.
func (n *StaffNotifier) BookingConfirmed(ctx context.Context, detail *models.BookingDetail) {
	summary := fmt.Sprintf("Attendance confirmed: %s / %s on %s %s (room %s)",
		detail.DisplayStudent("Unknown"), detail.DisplayCourse("Unknown"),
		detail.Date, detail.TimeRange(), detail.Room)
	n.fanOut(ctx, detail, summary, summary)
}

// BookingCancelled notifies staff that a guardian requested a reschedule
// (the booking keeps its old slot data for manual rebooking) and tells the
// assigned teacher the class will not take place.
func (n *StaffNotifier) BookingCancelled(ctx context.Context, detail *models.BookingDetail) {
	staffText := fmt.Sprintf("Reschedule requested: %s / %s originally on %s %s (room %s). Please contact the guardian to rebook.",
		detail.DisplayStudent("Unknown"), detail.DisplayCourse("Unknown"),
		detail.Date, detail.TimeRange(), detail.Room)
	teacherText := fmt.Sprintf("Class cancelled: %s / %s on %s %s will not take place.",
		detail.DisplayStudent("Unknown"), detail.DisplayCourse("Unknown"),
		detail.Date, detail.TimeRange())
	n.fanOut(ctx, detail, staffText, teacherText)
}

func (n *StaffNotifier) fanOut(ctx context.Context, detail *models.BookingDetail, staffText, teacherText string) {
	staff, err := n.staff.ListNotifiableByRoles(ctx, models.RoleAdmin, models.RoleRegistrar)
	if err != nil {
		n.logger.Error("failed to resolve staff recipients", zap.Int64("booking_id", detail.ID), zap.Error(err))
	}
	for _, u := range staff {
		n.enqueue(*u.LineUserID, staffText, detail.ID)
	}

	if detail.TeacherID != nil {
		teacher, err := n.teachers.FindByID(ctx, *detail.TeacherID)
		if err != nil {
			n.logger.Warn("failed to resolve assigned teacher", zap.Int64("booking_id", detail.ID), zap.Error(err))
			return
		}
		if teacher.LineUserID != nil && *teacher.LineUserID != "" {
			n.enqueue(*teacher.LineUserID, teacherText, detail.ID)
		}
	}
}

func (n *StaffNotifier) enqueue(to, text string, bookingID int64) {
	err := n.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "staff-notice",
		Payload: staffNotice{To: to, Text: text},
	})
	if err != nil {
		n.logger.Error("failed to enqueue staff notice", zap.Int64("booking_id", bookingID), zap.Error(err))
	}
}

func (n *StaffNotifier) handle(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(staffNotice)
	if !ok {
		n.logger.Error("unexpected staff notice payload", zap.String("job_id", job.ID))
		return nil
	}
	return n.pusher.PushText(ctx, notice.To, notice.Text)
}
