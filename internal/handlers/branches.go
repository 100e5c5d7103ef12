package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/pkg/utils"
	"gorm.io/gorm"
)

type BranchesHandler struct {
	DB *gorm.DB
}

func NewBranchesHandler(db *gorm.DB) *BranchesHandler {
	return &BranchesHandler{DB: db}
}

// List is public; the signup form uses it to pick a branch.
func (h *BranchesHandler) List(c *fiber.Ctx) error {
	var branches []models.Branch
	if err := h.DB.Order("name ASC").Find(&branches).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing branches")
	}

	summaries := make([]models.BranchSummary, 0, len(branches))
	for _, b := range branches {
		summaries = append(summaries, b.Summary())
	}
	return utils.JSON(c, fiber.StatusOK, fiber.Map{"branches": summaries})
}
