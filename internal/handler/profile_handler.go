package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/studyhub-api/internal/domain/entity"
	"github.com/yourusername/studyhub-api/internal/handler/helper"
	"github.com/yourusername/studyhub-api/internal/service"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// ProfileUseCase - операции с профилем пользователя
type ProfileUseCase interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, in service.UpdateProfileInput) (*entity.Profile, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, file service.FileUpload) (*entity.Profile, error)
}

// DashboardUseCase - статистика личного кабинета
type DashboardUseCase interface {
	Stats(ctx context.Context, userID uuid.UUID) (*service.DashboardStats, error)
}

// ProfileHandler обрабатывает запросы профиля и личного кабинета
type ProfileHandler struct {
	profiles  ProfileUseCase
	dashboard DashboardUseCase
	log       *logger.Logger
}

// NewProfileHandler создает обработчик профиля
func NewProfileHandler(profiles ProfileUseCase, dashboard DashboardUseCase, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, dashboard: dashboard, log: log}
}

// UpdateProfileRequest представляет запрос на обновление профиля
type UpdateProfileRequest struct {
	FullName    *string `json:"full_name" binding:"omitempty,max=255"`
	CountryCode *string `json:"country_code" binding:"omitempty,max=8"`
}

// GetProfile возвращает профиль, создавая его при первом обращении
// GET /api/profile
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	profile, err := h.profiles.GetOrCreate(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateProfile меняет имя и страновую версию
// PUT /api/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	profile, err := h.profiles.Update(c.Request.Context(), userID, service.UpdateProfileInput{
		FullName:    req.FullName,
		CountryCode: req.CountryCode,
	})
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UploadAvatar загружает аватар пользователя
// POST /api/profile/avatar
func (h *ProfileHandler) UploadAvatar(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	file, closeFile, err := helper.FormFile(c, "avatar")
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	defer closeFile()
	if file == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}

	profile, err := h.profiles.UploadAvatar(c.Request.Context(), userID, *file)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Dashboard возвращает статистику ученика
// GET /api/dashboard
func (h *ProfileHandler) Dashboard(c *gin.Context) {
	userID, err := helper.UserID(c)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	stats, err := h.dashboard.Stats(c.Request.Context(), userID)
	if err != nil {
		handleError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
