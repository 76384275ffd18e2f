package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"variant-compiler/internal/compiler/parser"
	"variant-compiler/internal/compiler/repository"
	"variant-compiler/internal/compiler/service"
	"variant-compiler/internal/compiler/wizard"
)

const codeStructural = "STRUCTURAL_ERROR"

// writeError maps pipeline errors onto HTTP statuses and a JSON body with a
// stable code where one exists.
func writeError(c fiber.Ctx, err error) error {
	var (
		verr *parser.ValidationError
		serr *parser.StructuralError
	)
	if errors.As(err, &verr) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": verr.Message, "code": verr.Code})
	}
	if errors.As(err, &serr) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": serr.Error(), "code": codeStructural})
	}
	if eerr, ok := wizard.AsExportError(err); ok {
		return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": eerr.Message,
			"code":  eerr.Code,
			"ref":   eerr.Ref,
			"stage": eerr.Stage,
		})
	}

	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, repository.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, wizard.ErrWrongStage), errors.Is(err, wizard.ErrLastStage), errors.Is(err, wizard.ErrFirstStage):
		return c.Status(http.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, wizard.ErrUnknownElement), errors.Is(err, wizard.ErrInvalidValue),
		errors.Is(err, wizard.ErrUnknownCorrection), errors.Is(err, wizard.ErrUnknownStage):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	log.Printf("[COMPILER] Internal error: %v", err)
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
