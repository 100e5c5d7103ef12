package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/membership/backend/internal/middleware"
	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/internal/services"
	"github.com/membership/backend/pkg/logger"
	"github.com/membership/backend/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errUnknownMember = errors.New("member does not exist in branch")

type GroupMembersHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewGroupMembersHandler(db *gorm.DB, audit *services.AuditService) *GroupMembersHandler {
	return &GroupMembersHandler{DB: db, Audit: audit}
}

func (h *GroupMembersHandler) List(c *fiber.Ctx) error {
	branchID, ok := middleware.GetBranchID(c)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "invalid branch id")
	}
	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	if _, err := findGroup(h.DB, branchID, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "group not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading group")
	}

	members, err := groupMembers(h.DB, groupID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing group members")
	}

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"members": models.SummarizeMembers(members)})
}

type addMembersRequest struct {
	MemberIDs []interface{} `json:"memberIds"`
}

// AddMembers attaches every id in the request or none of them. Only a
// missing or empty memberIds list is reported as a client error; every
// later failure (bad id, unknown member, member from another branch,
// unknown group) answers 500 with no body, which existing clients rely on.
func (h *GroupMembersHandler) AddMembers(c *fiber.Ctx) error {
	branchID, ok := middleware.GetBranchID(c)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "invalid branch id")
	}

	var req addMembersRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.MemberIDs) == 0 {
		return utils.Error(c, fiber.StatusBadRequest, "memberIds must be a non-empty array")
	}

	fail := func(reason string, err error) error {
		logger.ErrorWithActor(actorID(c), "group_members_add_failed", err, map[string]interface{}{
			"branch_id": branchID.String(),
			"group_id":  c.Params("groupId"),
			"reason":    reason,
		})
		return utils.Empty(c, fiber.StatusInternalServerError)
	}

	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return fail("invalid_group_id", err)
	}

	memberIDs, err := parseMemberIDs(req.MemberIDs)
	if err != nil {
		return fail("invalid_member_id", err)
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := findGroup(tx, branchID, groupID); err != nil {
			return fmt.Errorf("load group: %w", err)
		}

		var found int64
		if err := tx.Model(&models.Member{}).
			Where("id IN ? AND branch_id = ?", memberIDs, branchID).
			Count(&found).Error; err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		if found != int64(len(memberIDs)) {
			return errUnknownMember
		}

		memberships := make([]models.GroupMembership, 0, len(memberIDs))
		for _, memberID := range memberIDs {
			memberships = append(memberships, models.GroupMembership{GroupID: groupID, MemberID: memberID})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&memberships).Error
	})
	if err != nil {
		reason := "transaction_failed"
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			reason = "group_not_found"
		case errors.Is(err, errUnknownMember):
			reason = "unknown_member"
		}
		return fail(reason, err)
	}

	members, err := groupMembers(h.DB, groupID)
	if err != nil {
		return fail("reload_failed", err)
	}

	logger.InfoWithActor(actorID(c), "group_members_added", map[string]interface{}{
		"group_id": groupID.String(),
		"count":    len(memberIDs),
	})
	h.Audit.LogAsync(auditEntry(c, "group.members_add", "group", &groupID, map[string]interface{}{
		"member_ids": uuidStrings(memberIDs),
	}))

	return utils.JSON(c, fiber.StatusOK, fiber.Map{"members": models.SummarizeMembers(members)})
}

func (h *GroupMembersHandler) RemoveMember(c *fiber.Ctx) error {
	branchID, ok := middleware.GetBranchID(c)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, "invalid branch id")
	}
	groupID, err := parseUUID(c.Params("groupId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	memberID, err := parseUUID(c.Params("memberId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid member id")
	}

	if _, err := findGroup(h.DB, branchID, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "group not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading group")
	}

	result := h.DB.Where("group_id = ? AND member_id = ?", groupID, memberID).Delete(&models.GroupMembership{})
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed removing member")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "member not found in group")
	}

	logger.InfoWithActor(actorID(c), "group_member_removed", map[string]interface{}{
		"group_id":  groupID.String(),
		"member_id": memberID.String(),
	})
	h.Audit.LogAsync(auditEntry(c, "group.member_remove", "group", &groupID, map[string]interface{}{
		"member_id": memberID.String(),
	}))

	return utils.Message(c, fiber.StatusOK, "member removed")
}

// parseMemberIDs accepts only UUID strings and drops duplicates, keeping
// first-seen order.
func parseMemberIDs(raw []interface{}) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for i, value := range raw {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("memberIds[%d] is not a string", i)
		}
		id, err := parseUUID(s)
		if err != nil {
			return nil, fmt.Errorf("memberIds[%d]: %w", i, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func groupMembers(db *gorm.DB, groupID uuid.UUID) ([]models.Member, error) {
	var members []models.Member
	err := db.
		Joins("JOIN group_memberships ON group_memberships.member_id = members.id").
		Where("group_memberships.group_id = ?", groupID).
		Order("members.last_name ASC, members.first_name ASC").
		Find(&members).Error
	return members, err
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
