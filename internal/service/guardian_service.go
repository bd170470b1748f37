package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/opuscenter/tutor-center-api/internal/models"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
)

type guardianRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Guardian, error)
	FindByLineUserID(ctx context.Context, lineUserID string) (*models.Guardian, error)
	BindLineUserID(ctx context.Context, guardianID int64, lineUserID string) error
}

// GuardianService manages guardian messaging identities.
type GuardianService struct {
	repo   guardianRepository
	logger *zap.Logger
}

// NewGuardianService instantiates GuardianService.
func NewGuardianService(repo guardianRepository, logger *zap.Logger) *GuardianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardianService{repo: repo, logger: logger}
}

// BindIdentity links a LINE user id to a guardian. Rebinding the same
// identity to the same guardian is a no-op; binding an identity already
// owned by another guardian is rejected.
func (s *GuardianService) BindIdentity(ctx context.Context, guardianID int64, lineUserID string) (*models.Guardian, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "line user id is required")
	}

	guardian, err := s.repo.FindByID(ctx, guardianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
	}

	owner, err := s.repo.FindByLineUserID(ctx, lineUserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check identity ownership")
	}
	if owner != nil {
		if owner.ID == guardianID {
			return owner, nil
		}
		return nil, appErrors.Clone(appErrors.ErrIdentityTaken, "")
	}

	if err := s.repo.BindLineUserID(ctx, guardianID, lineUserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bind identity")
	}

	guardian.LineUserID = &lineUserID
	s.logger.Info("guardian identity linked", zap.Int64("guardian_id", guardianID))
	return guardian, nil
}
