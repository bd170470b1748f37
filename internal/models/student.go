package models

import "time"

// Student is an enrolled student.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Nickname  *string   `db:"nickname" json:"nickname,omitempty"`
	School    *string   `db:"school" json:"school,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
