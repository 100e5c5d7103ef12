package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/membership/backend/internal/middleware"
	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/internal/services"
	"github.com/membership/backend/pkg/logger"
	"github.com/membership/backend/pkg/utils"
	"gorm.io/gorm"
)

type MembersHandler struct {
	DB       *gorm.DB
	Audit    *services.AuditService
	Notifier *services.SignupNotifier
}

func NewMembersHandler(db *gorm.DB, audit *services.AuditService, notifier *services.SignupNotifier) *MembersHandler {
	return &MembersHandler{DB: db, Audit: audit, Notifier: notifier}
}

func (h *MembersHandler) List(c *fiber.Ctx) error {
	branchID, ok := middleware.GetBranchID(c)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "invalid branch id")
	}

	var members []models.Member
	if err := h.DB.
		Where("branch_id = ?", branchID).
		Order("last_name ASC, first_name ASC").
		Find(&members).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing members")
	}

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"members": models.SummarizeMembers(members)})
}

type signupRequest struct {
	FirstName          string `json:"firstName"`
	LastName           string `json:"lastName"`
	Email              string `json:"email"`
	PrimaryPhoneNumber string `json:"primaryPhoneNumber"`
	BranchID           string `json:"branchId"`
	AdditionalInfo     string `json:"additionalInfo"`
}

func (h *MembersHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if req.FirstName == "" || req.LastName == "" {
		return utils.Error(c, fiber.StatusBadRequest, "firstName and lastName are required")
	}
	email, ok := normalizeEmail(req.Email)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}
	req.Email = email

	branch, status, msg := h.resolveSignupBranch(strings.TrimSpace(req.BranchID))
	if branch == nil {
		return utils.Error(c, status, msg)
	}

	var existing int64
	if err := h.DB.Model(&models.Member{}).
		Where("branch_id = ? AND email = ?", branch.ID, req.Email).
		Count(&existing).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing member")
	}
	if existing > 0 {
		return utils.Error(c, fiber.StatusConflict, "email already registered for this branch")
	}

	member := models.Member{
		BranchID:           branch.ID,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		PrimaryPhoneNumber: optionalString(req.PrimaryPhoneNumber),
		AdditionalInfo:     optionalString(req.AdditionalInfo),
	}
	if err := h.DB.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Error(c, fiber.StatusConflict, "email already registered for this branch")
		}
		logger.Error("member_signup_failed", err, map[string]interface{}{
			"branch_id": branch.ID.String(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating member")
	}

	logger.Info("member_signed_up", map[string]interface{}{
		"member_id": member.ID.String(),
		"branch_id": branch.ID.String(),
	})
	h.Audit.LogAsync(services.AuditEntry{
		BranchID:     &branch.ID,
		Action:       "member.signup",
		ResourceType: "member",
		ResourceID:   &member.ID,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	})

	h.Notifier.MemberJoined(member, *branch)

	return utils.JSON(c, fiber.StatusOK, member)
}

// resolveSignupBranch falls back to the only branch when none is named.
func (h *MembersHandler) resolveSignupBranch(raw string) (*models.Branch, int, string) {
	if raw == "" {
		var branches []models.Branch
		if err := h.DB.Limit(2).Find(&branches).Error; err != nil {
			return nil, fiber.StatusInternalServerError, "failed loading branches"
		}
		if len(branches) != 1 {
			return nil, fiber.StatusBadRequest, "branchId is required"
		}
		return &branches[0], 0, ""
	}

	branchID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fiber.StatusBadRequest, "invalid branch id"
	}

	var branch models.Branch
	if err := h.DB.First(&branch, "id = ?", branchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.StatusNotFound, "branch not found"
		}
		return nil, fiber.StatusInternalServerError, "failed loading branch"
	}
	return &branch, 0, ""
}

// normalizeEmail reduces "Name <addr>" forms to the bare lower-cased address.
func normalizeEmail(raw string) (string, bool) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
