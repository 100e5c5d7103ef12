package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/membership/backend/pkg/logger"
)

const requestIDKey = "requestID"

func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		// Header values alias the request buffer; the id outlives the request via audit rows.
		requestID := utils.CopyString(c.Get(fiber.HeaderXRequestID))
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		c.Locals(requestIDKey, requestID)
		c.Set(fiber.HeaderXRequestID, requestID)

		err := c.Next()

		statusCode := c.Response().StatusCode()
		details := map[string]interface{}{
			"method":        c.Method(),
			"path":          c.Path(),
			"status_code":   statusCode,
			"latency_ms":    time.Since(start).Milliseconds(),
			"ip":            c.IP(),
			"request_body":  logger.GetRequestBodySummary(c),
			"response_body": logger.GetResponseSizeSummary(c),
			"request_id":    requestID,
		}

		actorID := logger.GetActorIDFromContext(c)
		switch {
		case statusCode >= 500 && actorID != nil:
			logger.ErrorWithActor(*actorID, "http_request", err, details)
		case statusCode >= 500:
			logger.Error("http_request", err, details)
		case statusCode >= 400 && actorID != nil:
			logger.WarnWithActor(*actorID, "http_request", details)
		case statusCode >= 400:
			logger.Warn("http_request", details)
		case actorID != nil:
			logger.InfoWithActor(*actorID, "http_request", details)
		default:
			logger.Info("http_request", details)
		}

		return err
	}
}

// SecurityLogger records denied branch access separately from request logs.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		statusCode := c.Response().StatusCode()
		if statusCode != fiber.StatusUnauthorized && statusCode != fiber.StatusForbidden {
			return err
		}

		reason := "access_denied"
		if statusCode == fiber.StatusUnauthorized {
			reason = "unauthenticated"
		}
		details := map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
			"ip":     c.IP(),
			"reason": reason,
		}

		if actorID := logger.GetActorIDFromContext(c); actorID != nil {
			logger.WarnWithActor(*actorID, reason, details)
		} else {
			logger.Warn(reason, details)
		}

		return err
	}
}

// GetRequestID returns the id assigned by RequestLogger, if any.
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}
