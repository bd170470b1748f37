package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opuscenter/tutor-center-api/internal/models"
	appErrors "github.com/opuscenter/tutor-center-api/pkg/errors"
)

type guardianRepoStub struct {
	byID   map[int64]*models.Guardian
	byLine map[string]*models.Guardian
	bound  []string
}

func (s *guardianRepoStub) FindByID(_ context.Context, id int64) (*models.Guardian, error) {
	if g, ok := s.byID[id]; ok {
		g2 := *g
		return &g2, nil
	}
	return nil, sql.ErrNoRows
}

func (s *guardianRepoStub) FindByLineUserID(_ context.Context, lineUserID string) (*models.Guardian, error) {
	if g, ok := s.byLine[lineUserID]; ok {
		g2 := *g
		return &g2, nil
	}
	return nil, sql.ErrNoRows
}

func (s *guardianRepoStub) BindLineUserID(_ context.Context, guardianID int64, lineUserID string) error {
	s.bound = append(s.bound, lineUserID)
	return nil
}

func TestGuardianServiceBindIdentity(t *testing.T) {
	repo := &guardianRepoStub{byID: map[int64]*models.Guardian{
		3: {ID: 3, FullName: "Guardian"},
	}}
	svc := NewGuardianService(repo, nil)

	guardian, err := svc.BindIdentity(context.Background(), 3, "U-parent")
	require.NoError(t, err)
	require.NotNil(t, guardian.LineUserID)
	assert.Equal(t, "U-parent", *guardian.LineUserID)
	assert.Equal(t, []string{"U-parent"}, repo.bound)
}

func TestGuardianServiceBindIdentityIdempotent(t *testing.T) {
	owner := &models.Guardian{ID: 3, FullName: "Guardian", LineUserID: ptrStr("U-parent")}
	repo := &guardianRepoStub{
		byID:   map[int64]*models.Guardian{3: owner},
		byLine: map[string]*models.Guardian{"U-parent": owner},
	}
	svc := NewGuardianService(repo, nil)

	guardian, err := svc.BindIdentity(context.Background(), 3, "U-parent")
	require.NoError(t, err)
	assert.Equal(t, int64(3), guardian.ID)
	assert.Empty(t, repo.bound)
}

func TestGuardianServiceBindIdentityTaken(t *testing.T) {
	owner := &models.Guardian{ID: 9, FullName: "Other", LineUserID: ptrStr("U-parent")}
	repo := &guardianRepoStub{
		byID:   map[int64]*models.Guardian{3: {ID: 3}, 9: owner},
		byLine: map[string]*models.Guardian{"U-parent": owner},
	}
	svc := NewGuardianService(repo, nil)

	_, err := svc.BindIdentity(context.Background(), 3, "U-parent")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIdentityTaken))
	assert.Empty(t, repo.bound)
}

func TestGuardianServiceBindIdentityUnknownGuardian(t *testing.T) {
	svc := NewGuardianService(&guardianRepoStub{}, nil)

	_, err := svc.BindIdentity(context.Background(), 404, "U-parent")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestGuardianServiceBindIdentityEmptyRejected(t *testing.T) {
	svc := NewGuardianService(&guardianRepoStub{}, nil)

	_, err := svc.BindIdentity(context.Background(), 3, "   ")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
