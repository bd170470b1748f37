package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opuscenter/tutor-center-api/internal/models"
)

// GuardianRepository provides persistence for guardians and their student
// links.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository creates a new guardian repository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

const guardianColumns = `id, full_name, phone, line_user_id, created_at, updated_at`

// FindByID loads a guardian by id.
func (r *GuardianRepository) FindByID(ctx context.Context, id int64) (*models.Guardian, error) {
	query := `SELECT ` + guardianColumns + ` FROM guardians WHERE id = $1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, id); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// FindByLineUserID resolves a guardian from a LINE messaging identity.
func (r *GuardianRepository) FindByLineUserID(ctx context.Context, lineUserID string) (*models.Guardian, error) {
	query := `SELECT ` + guardianColumns + ` FROM guardians WHERE line_user_id = $1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, lineUserID); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// ListByStudent returns every guardian linked to a student.
func (r *GuardianRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Guardian, error) {
	query := `SELECT g.id, g.full_name, g.phone, g.line_user_id, g.created_at, g.updated_at FROM guardians g JOIN guardian_students gs ON gs.guardian_id = g.id WHERE gs.student_id = $1 ORDER BY g.id ASC`
	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, studentID); err != nil {
		return nil, fmt.Errorf("list guardians by student: %w", err)
	}
	return guardians, nil
}

// IsLinked reports whether a guardian-student link exists.
func (r *GuardianRepository) IsLinked(ctx context.Context, guardianID, studentID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM guardian_students WHERE guardian_id = $1 AND student_id = $2)`
	var linked bool
	if err := r.db.GetContext(ctx, &linked, query, guardianID, studentID); err != nil {
		return false, fmt.Errorf("check guardian-student link: %w", err)
	}
	return linked, nil
}

// BindLineUserID stores the messaging identity on a guardian. Uniqueness
// across guardians is enforced by the service before calling this.
func (r *GuardianRepository) BindLineUserID(ctx context.Context, guardianID int64, lineUserID string) error {
	const query = `UPDATE guardians SET line_user_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, guardianID, lineUserID, time.Now().UTC()); err != nil {
		return fmt.Errorf("bind line user id: %w", err)
	}
	return nil
}
