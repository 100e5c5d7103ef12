package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/membership/backend/internal/middleware"
	"github.com/membership/backend/internal/services"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func getRequestID(c *fiber.Ctx) string {
	return middleware.GetRequestID(c)
}

// auditEntry fills in the actor, branch and request fields shared by every
// branch-scoped audit record.
func auditEntry(c *fiber.Ctx, action, resourceType string, resourceID *uuid.UUID, details map[string]interface{}) services.AuditEntry {
	entry := services.AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	}
	if admin := middleware.GetCurrentAdmin(c); admin != nil {
		adminID := admin.ID
		entry.AdminID = &adminID
	}
	if branchID, ok := middleware.GetBranchID(c); ok {
		entry.BranchID = &branchID
	}
	return entry
}

func actorID(c *fiber.Ctx) string {
	if admin := middleware.GetCurrentAdmin(c); admin != nil {
		return admin.ID.String()
	}
	return ""
}
