package models

// ConflictType labels the set of resource dimensions shared by two
// overlapping bookings.
type ConflictType string

const (
	ConflictRoom           ConflictType = "room"
	ConflictTeacher        ConflictType = "teacher"
	ConflictStudent        ConflictType = "student"
	ConflictRoomTeacher    ConflictType = "room_teacher"
	ConflictRoomStudent    ConflictType = "room_student"
	ConflictTeacherStudent ConflictType = "teacher_student"
	ConflictAll            ConflictType = "all"
)

// ClassifyConflict combines every matching dimension into a single label.
// At least one flag must be true; callers only classify actual collisions.
func ClassifyConflict(room, teacher, student bool) ConflictType {
	switch {
	case room && teacher && student:
		return ConflictAll
	case room && teacher:
		return ConflictRoomTeacher
	case room && student:
		return ConflictRoomStudent
	case teacher && student:
		return ConflictTeacherStudent
	case room:
		return ConflictRoom
	case teacher:
		return ConflictTeacher
	default:
		return ConflictStudent
	}
}

// BookingCandidate is a proposed booking checked against the existing set.
// ExcludeID removes the booking itself from the comparison set when a
// stored booking is re-checked during an update.
type BookingCandidate struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Room      string `json:"room" validate:"required"`
	TeacherID *int64 `json:"teacher_id,omitempty"`
	StudentID int64  `json:"student_id" validate:"required"`
	ExcludeID int64  `json:"exclude_id,omitempty"`
}

// ConflictReport describes one candidate colliding with one existing
// booking. It echoes the candidate's slot so batch callers can correlate
// results, and carries display names for human-readable errors.
type ConflictReport struct {
	Date         string       `json:"date"`
	Room         string       `json:"room"`
	StartTime    string       `json:"start_time"`
	EndTime      string       `json:"end_time"`
	ConflictType ConflictType `json:"conflict_type"`
	BookingID    int64        `json:"booking_id"`
	CourseTitle  string       `json:"course_title"`
	TeacherName  string       `json:"teacher_name"`
	StudentName  string       `json:"student_name"`
}
