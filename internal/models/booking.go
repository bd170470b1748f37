package models

import "time"

// AttendanceStatus is the lifecycle state of a booking.
type AttendanceStatus string

const (
	AttendancePending   AttendanceStatus = "pending"
	AttendanceConfirmed AttendanceStatus = "confirmed"
	AttendancePresent   AttendanceStatus = "present"
	AttendanceAbsent    AttendanceStatus = "absent"
	AttendanceCancelled AttendanceStatus = "cancelled"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePending, AttendanceConfirmed, AttendancePresent, AttendanceAbsent, AttendanceCancelled:
		return true
	default:
		return false
	}
}

// Committed reports whether staff has already committed resources for this
// state. Committed bookings cannot be cancelled through the guardian flow.
func (s AttendanceStatus) Committed() bool {
	return s == AttendanceConfirmed || s == AttendancePresent
}

// Booking is one scheduled class occurrence. Dates are stored as YYYY-MM-DD
// and times as zero-padded HH:MM so lexicographic comparison matches
// chronological order.
type Booking struct {
	ID               int64            `db:"id" json:"id"`
	SessionID        int64            `db:"session_id" json:"session_id"`
	CourseID         int64            `db:"course_id" json:"course_id"`
	StudentID        int64            `db:"student_id" json:"student_id"`
	TeacherID        *int64           `db:"teacher_id" json:"teacher_id,omitempty"`
	Room             string           `db:"room" json:"room"`
	Date             string           `db:"date" json:"date"`
	StartTime        string           `db:"start_time" json:"start_time"`
	EndTime          string           `db:"end_time" json:"end_time"`
	Attendance       AttendanceStatus `db:"attendance" json:"attendance"`
	Remark           *string          `db:"remark" json:"remark,omitempty"`
	TeacherFeedback  *string          `db:"teacher_feedback" json:"teacher_feedback,omitempty"`
	FeedbackVerified bool             `db:"feedback_verified" json:"feedback_verified"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// BookingDetail joins the booking with denormalized display names used in
// conflict reports and outbound messages.
type BookingDetail struct {
	Booking
	CourseTitle *string `db:"course_title" json:"course_title,omitempty"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
	StudentName *string `db:"student_name" json:"student_name,omitempty"`
}

// DisplayCourse returns the course title or the fallback literal.
func (d *BookingDetail) DisplayCourse(fallback string) string {
	if d.CourseTitle != nil && *d.CourseTitle != "" {
		return *d.CourseTitle
	}
	return fallback
}

// DisplayTeacher returns the teacher name or the fallback literal.
func (d *BookingDetail) DisplayTeacher(fallback string) string {
	if d.TeacherName != nil && *d.TeacherName != "" {
		return *d.TeacherName
	}
	return fallback
}

// DisplayStudent returns the student name or the fallback literal.
func (d *BookingDetail) DisplayStudent(fallback string) string {
	if d.StudentName != nil && *d.StudentName != "" {
		return *d.StudentName
	}
	return fallback
}

// TimeRange formats the booking interval for human-readable output.
func (b *Booking) TimeRange() string {
	return b.StartTime + " - " + b.EndTime
}
