package models

import "time"

// Guardian is a parent/guardian account. LineUserID is the optional
// messaging identity; a guardian without one is unreachable and skipped by
// the reminder dispatcher.
type Guardian struct {
	ID         int64     `db:"id" json:"id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Phone      *string   `db:"phone" json:"phone,omitempty"`
	LineUserID *string   `db:"line_user_id" json:"line_user_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Reachable reports whether the guardian has a bound messaging identity.
func (g *Guardian) Reachable() bool {
	return g.LineUserID != nil && *g.LineUserID != ""
}
