package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/pkg/logger"
	"github.com/membership/backend/pkg/utils"
	"gorm.io/gorm"
)

const (
	currentAdminKey = "currentAdmin"
	branchIDKey     = "branchID"
)

type AuthMiddleware struct {
	DB *gorm.DB
}

func NewAuthMiddleware(db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{DB: db}
}

func CORS(frontendURL string) fiber.Handler {
	origins := frontendURL
	if strings.Contains(frontendURL, "localhost") {
		origins = frontendURL + "," + strings.Replace(frontendURL, "localhost", "127.0.0.1", 1)
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	})
}

func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		logger.Warn("auth_missing_header", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if tokenString == authHeader || tokenString == "" {
		logger.Warn("auth_invalid_format", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		logger.Warn("jwt_validation_failed", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	var admin models.Admin
	if err := a.DB.First(&admin, "id = ?", claims.AdminID).Error; err != nil {
		logger.Warn("jwt_admin_not_found", map[string]interface{}{
			"ip":       c.IP(),
			"path":     c.Path(),
			"admin_id": claims.AdminID.String(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "admin not found")
	}

	c.Locals(currentAdminKey, &admin)
	c.Locals(logger.ActorKey, admin.ID.String())
	return c.Next()
}

// RequireBranchAccess validates :branchId and checks the current admin may
// manage it. Must run after RequireAuth.
func RequireBranchAccess(c *fiber.Ctx) error {
	admin := GetCurrentAdmin(c)
	if admin == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	branchID, err := uuid.Parse(strings.TrimSpace(c.Params("branchId")))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid branch id")
	}

	if !admin.CanManage(branchID) {
		return utils.Error(c, fiber.StatusForbidden, "branch access denied")
	}

	c.Locals(branchIDKey, branchID)
	return c.Next()
}

func GetCurrentAdmin(c *fiber.Ctx) *models.Admin {
	admin, ok := c.Locals(currentAdminKey).(*models.Admin)
	if !ok {
		return nil
	}
	return admin
}

// GetBranchID returns the branch validated by RequireBranchAccess.
func GetBranchID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(branchIDKey).(uuid.UUID)
	return id, ok
}
