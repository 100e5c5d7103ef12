package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/membership/backend/internal/config"
	"github.com/membership/backend/internal/models"
	"github.com/membership/backend/pkg/logger"
	"github.com/membership/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@membership.local"
	defaultAdminPassword = "admin123"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedSuperAdmin(db); err != nil {
		return nil, err
	}

	return db, nil
}

// GormConfig turns driver constraint errors into gorm.ErrDuplicatedKey and friends.
func GormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Branch{},
		&models.Admin{},
		&models.Member{},
		&models.Group{},
		&models.GroupMembership{},
		&models.AuditLog{},
		&models.AuditExportCursor{},
	)
}

func seedSuperAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Admin{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(defaultAdminPassword)
	if err != nil {
		return err
	}

	admin := models.Admin{
		Email:        defaultAdminEmail,
		PasswordHash: hash,
		Name:         "System Admin",
		Role:         models.AdminRoleSuper,
	}

	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	logger.Warn("default_admin_seeded", map[string]interface{}{
		"email": defaultAdminEmail,
		"hint":  "rotate it with memberctl admin password",
	})
	return nil
}
