package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/membership/backend/internal/middleware"
	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/pkg/utils"
	"gorm.io/gorm"
)

const auditExportLimit = 10000

type AuditHandler struct {
	DB *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{DB: db}
}

// ExportBranchLog downloads the branch's audit trail, newest first, as CSV
// (default) or JSON.
func (h *AuditHandler) ExportBranchLog(c *fiber.Ctx) error {
	branchID, ok := middleware.GetBranchID(c)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "invalid branch id")
	}

	format := strings.ToLower(strings.TrimSpace(c.Query("format", "csv")))
	if format != "csv" && format != "json" {
		return utils.Error(c, fiber.StatusBadRequest, "format must be csv or json")
	}

	var logs []models.AuditLog
	if err := h.DB.Where("branch_id = ?", branchID).
		Order("created_at DESC").
		Limit(auditExportLimit).
		Find(&logs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading audit logs")
	}

	if format == "json" {
		c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "audit-log.json"))
		return utils.JSON(c, fiber.StatusOK, fiber.Map{"entries": logs})
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "audit-log.csv"))

	return writeAuditCSV(c.Response().BodyWriter(), logs)
}

// writeAuditCSV stops at the first failed row.
func writeAuditCSV(w io.Writer, logs []models.AuditLog) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Timestamp", "Admin ID", "Action", "Resource Type", "Resource ID", "IP Address", "Details"}); err != nil {
		return err
	}

	for _, log := range logs {
		if err := writer.Write([]string{
			log.CreatedAt.Format(time.RFC3339),
			optionalUUID(log.AdminID),
			log.Action,
			log.ResourceType,
			optionalUUID(log.ResourceID),
			log.IPAddress,
			formatDetails(log.Details),
		}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func optionalUUID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// formatDetails renders details as sorted key=value pairs so exports diff cleanly.
func formatDetails(details map[string]interface{}) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return strings.Join(parts, "; ")
}
