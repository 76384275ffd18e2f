package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// ============================================================
// Logger Middleware
// ============================================================

// Logger пишет строку на каждый запрос с тегом сервиса. Пробы /health
// не логируются.
func Logger(service string) fiber.Handler {
	return logger.New(logger.Config{
		Next: func(c fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/health")
		},
		Format:     "[${time}] [" + service + "] ${status} - ${latency} ${method} ${path} | in ${bytesReceived}B out ${bytesSent}B\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	})
}
