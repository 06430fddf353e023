package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	apperrors "github.com/yourusername/studyhub-api/internal/pkg/errors"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

func TestProfileService_GetOrCreate_CreatesStudent(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)
	svc := NewProfileService(profiles, new(MockCountryPackRepo), newFakeStorage(), logger.NewNop())
	userID := uuid.New()

	profiles.On("GetByID", ctx, userID).Return(nil, apperrors.ErrNotFound)
	profiles.On("Create", ctx, mock.MatchedBy(func(p *entity.Profile) bool {
		return p.ID == userID && p.Role == entity.RoleStudent
	})).Return(nil)

	p, err := svc.GetOrCreate(ctx, userID)

	require.NoError(t, err)
	assert.Equal(t, entity.RoleStudent, p.Role)
	assert.False(t, p.IsAdmin())
}

func TestProfileService_GetOrCreate_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)
	svc := NewProfileService(profiles, new(MockCountryPackRepo), newFakeStorage(), logger.NewNop())
	userID := uuid.New()
	existing := &entity.Profile{ID: userID, Role: entity.RoleAdmin}

	profiles.On("GetByID", ctx, userID).Return(nil, apperrors.ErrNotFound).Once()
	profiles.On("Create", ctx, mock.Anything).Return(apperrors.ErrConflict)
	profiles.On("GetByID", ctx, userID).Return(existing, nil).Once()

	p, err := svc.GetOrCreate(ctx, userID)

	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
}

func TestProfileService_Update(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)
	packs := new(MockCountryPackRepo)
	svc := NewProfileService(profiles, packs, newFakeStorage(), logger.NewNop())
	userID := uuid.New()

	profiles.On("GetByID", ctx, userID).Return(&entity.Profile{ID: userID, Role: entity.RoleStudent}, nil)
	profiles.On("Update", ctx, mock.Anything).Return(nil)
	packs.On("Exists", ctx, "uz").Return(true, nil)
	packs.On("Exists", ctx, "zz").Return(false, nil)

	name, code := "  Aida  ", "UZ"
	p, err := svc.Update(ctx, userID, UpdateProfileInput{FullName: &name, CountryCode: &code})
	require.NoError(t, err)
	assert.Equal(t, "Aida", p.FullName)
	assert.Equal(t, "uz", p.CountryCode)

	bad := "zz"
	_, err = svc.Update(ctx, userID, UpdateProfileInput{CountryCode: &bad})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProfileService_UploadAvatar(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)
	store := newFakeStorage()
	svc := NewProfileService(profiles, new(MockCountryPackRepo), store, logger.NewNop())
	userID := uuid.New()

	profiles.On("GetByID", ctx, userID).Return(&entity.Profile{ID: userID}, nil)
	profiles.On("Update", ctx, mock.Anything).Return(nil)

	p, err := svc.UploadAvatar(ctx, userID, FileUpload{Name: "me.PNG", Reader: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Contains(t, p.AvatarURL, "avatars/"+userID.String())
	assert.Len(t, store.objects, 1)

	_, err = svc.UploadAvatar(ctx, userID, FileUpload{Name: "script.exe", Reader: strings.NewReader("x")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProfileService_IsAdmin(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)
	svc := NewProfileService(profiles, new(MockCountryPackRepo), newFakeStorage(), logger.NewNop())
	admin, student, missing := uuid.New(), uuid.New(), uuid.New()

	profiles.On("GetByID", ctx, admin).Return(&entity.Profile{ID: admin, Role: entity.RoleAdmin}, nil)
	profiles.On("GetByID", ctx, student).Return(&entity.Profile{ID: student, Role: entity.RoleStudent}, nil)
	profiles.On("GetByID", ctx, missing).Return(nil, apperrors.ErrNotFound)

	ok, err := svc.IsAdmin(ctx, admin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = svc.IsAdmin(ctx, student)
	assert.False(t, ok)

	ok, err = svc.IsAdmin(ctx, missing)
	require.NoError(t, err)
	assert.False(t, ok)
}
