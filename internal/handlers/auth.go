package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/membership/backend/internal/middleware"
	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/internal/services"
	"github.com/membership/backend/pkg/logger"
	"github.com/membership/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewAuthHandler(db *gorm.DB, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{DB: db, Audit: audit}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	var admin models.Admin
	if err := h.DB.First(&admin, "email = ?", req.Email).Error; err != nil {
		logger.Warn("login_failed_admin_not_found", map[string]interface{}{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !utils.CheckPassword(req.Password, admin.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"admin_id": admin.ID.String(),
			"email":    req.Email,
			"ip":       c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(&admin)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	logger.Info("admin_login", map[string]interface{}{
		"admin_id": admin.ID.String(),
		"email":    admin.Email,
		"ip":       c.IP(),
	})
	h.Audit.LogAsync(services.AuditEntry{
		AdminID:      &admin.ID,
		BranchID:     admin.BranchID,
		Action:       "admin.login",
		ResourceType: "admin",
		ResourceID:   &admin.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"token": token, "admin": admin})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	admin := middleware.GetCurrentAdmin(c)
	if admin == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.JSON(c, fiber.StatusOK, admin)
}
