package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"

	"variant-compiler/internal/compiler/models"
	"variant-compiler/internal/compiler/parser"
	"variant-compiler/internal/compiler/sizing"
	"variant-compiler/internal/compiler/wizard"
)

// ============================================================
// Compiler Handler
// ============================================================

type CompilerHandler struct {
	opts wizard.Options
}

func NewCompilerHandler(opts wizard.Options) *CompilerHandler {
	return &CompilerHandler{opts: opts}
}

// Validate проверяет SVG и возвращает код ошибки валидации.
func (h *CompilerHandler) Validate(c fiber.Ctx) error {
	svg, err := readSVG(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result := parser.Validate(svg)
	if !result.Valid {
		log.Printf("[COMPILER] Validation failed: %s", result.Error.Code)
	}
	return c.JSON(result)
}

// Parse возвращает извлечённую геометрию документа.
func (h *CompilerHandler) Parse(c fiber.Ctx) error {
	svg, err := readSVG(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	parsed, err := parser.ParseSVG(strings.NewReader(svg))
	if err != nil {
		return writeError(c, err)
	}

	log.Printf("[COMPILER] Parsed %d provinces, %d coasts, %d texts, %d decorative elements",
		len(parsed.ProvincePaths), len(parsed.CoastPaths), len(parsed.TextElements), len(parsed.DecorativeElements))
	return c.JSON(fiber.Map{
		"parsed":    parsed,
		"maxHeight": sizing.CalculateMapMaxHeight(parsed.Dimensions),
	})
}

// Compile прогоняет весь мастер без интерактива.
func (h *CompilerHandler) Compile(c fiber.Ctx) error {
	var req wizard.CompileRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.SVG == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "svg required"})
	}

	def, err := wizard.Compile(req, h.opts)
	if err != nil {
		log.Printf("[COMPILER] Compile failed: %v", err)
		return writeError(c, err)
	}

	log.Printf("[COMPILER] Compiled %q: %d provinces, %d coasts", def.Name, len(def.Provinces), len(def.NamedCoasts))
	return c.JSON(fiber.Map{
		"definition": def,
		"maxHeight":  sizing.CalculateMapMaxHeight(def.Dimensions),
	})
}

// MapHeight считает высоту карты для отображения.
func (h *CompilerHandler) MapHeight(c fiber.Ctx) error {
	var dim models.Dimensions
	if err := json.Unmarshal(c.Body(), &dim); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	return c.JSON(fiber.Map{"maxHeight": sizing.CalculateMapMaxHeight(dim)})
}

// ============================================================
// Helpers
// ============================================================

// readSVG takes the document from a multipart "file" field, falling back to
// the raw request body.
func readSVG(c fiber.Ctx) (string, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return "", errors.New("failed to open file")
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return "", errors.New("failed to read file")
		}
		return string(data), nil
	}

	if len(c.Body()) == 0 {
		return "", errors.New("svg required in body or multipart file")
	}
	return string(c.Body()), nil
}
