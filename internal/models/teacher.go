package models

import "time"

// Teacher is a member of the teaching staff assignable to bookings.
// LineUserID allows class-confirmation and cancellation notices to reach
// the teacher directly.
type Teacher struct {
	ID         int64     `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	LineUserID *string   `db:"line_user_id" json:"line_user_id,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
