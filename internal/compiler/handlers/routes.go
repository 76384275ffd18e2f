package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// Register mounts every compiler route on app.
func Register(app *fiber.App, health *HealthHandler, compiler *CompilerHandler, sessions *SessionHandler) {
	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", health.Live)
	app.Get("/health/ready", health.Ready)

	// ============================================================
	// Compiler Routes
	// ============================================================

	app.Post("/validate", compiler.Validate)
	app.Post("/parse", compiler.Parse)
	app.Post("/compile", compiler.Compile)
	app.Post("/map-height", compiler.MapHeight)

	// ============================================================
	// Wizard Routes
	// ============================================================

	app.Post("/sessions", sessions.Create)
	app.Get("/sessions/:id", sessions.Get)
	app.Post("/sessions/:id/stage", sessions.Navigate)
	app.Post("/sessions/:id/corrections", sessions.Correct)
	app.Post("/sessions/:id/export", sessions.Export)
	app.Delete("/sessions/:id", sessions.Delete)
	app.Get("/variants/:id", sessions.GetVariant)
}
