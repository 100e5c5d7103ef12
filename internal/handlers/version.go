package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/membership/backend/pkg/utils"
)

// Version is the server version, injected at build time:
//
//	go build -ldflags "-X github.com/membership/backend/internal/handlers.Version=1.2.3"
var Version = "dev"

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func Health(c *fiber.Ctx) error {
	return utils.JSON(c, fiber.StatusOK, healthResponse{Status: "ok", Version: Version})
}
