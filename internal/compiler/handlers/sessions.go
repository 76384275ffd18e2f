package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"variant-compiler/internal/compiler/repository"
	"variant-compiler/internal/compiler/service"
	"variant-compiler/internal/compiler/sizing"
	"variant-compiler/internal/compiler/wizard"
)

// VariantReader returns stored variants. *repository.Repository implements it.
type VariantReader interface {
	GetVariant(ctx context.Context, id string) (*repository.StoredVariant, error)
}

// ============================================================
// Session Handler
// ============================================================

type SessionHandler struct {
	sessions *service.SessionManager
	variants VariantReader
}

// NewSessionHandler builds the wizard handler; variants may be nil when
// nothing is persisted.
func NewSessionHandler(sessions *service.SessionManager, variants VariantReader) *SessionHandler {
	return &SessionHandler{sessions: sessions, variants: variants}
}

type sessionResponse struct {
	ID   string      `json:"id"`
	View wizard.View `json:"view"`
}

// Create открывает новую сессию мастера по загруженному SVG.
func (h *SessionHandler) Create(c fiber.Ctx) error {
	svg, err := readSVG(c)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	id, view, err := h.sessions.Create(c.Context(), svg)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(sessionResponse{ID: id, View: view})
}

// Get возвращает текущее состояние сессии.
func (h *SessionHandler) Get(c fiber.Ctx) error {
	id := c.Params("id")
	view, err := h.sessions.View(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sessionResponse{ID: id, View: view})
}

// stageRequest either names a target stage or asks for "next"/"back".
type stageRequest struct {
	Stage  string `json:"stage"`
	Action string `json:"action"`
}

// Navigate переключает этап мастера.
func (h *SessionHandler) Navigate(c fiber.Ctx) error {
	var req stageRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}

	id := c.Params("id")
	var view wizard.View
	err := h.sessions.Do(c.Context(), id, func(s *wizard.Session) error {
		var err error
		switch {
		case req.Stage != "":
			var st wizard.Stage
			if st, err = wizard.ParseStage(req.Stage); err == nil {
				err = s.GoTo(st)
			}
		case req.Action == "next":
			err = s.Next()
		case req.Action == "back":
			err = s.Back()
		default:
			err = fmt.Errorf("%w: stage or action required", wizard.ErrInvalidValue)
		}
		if err != nil {
			return err
		}
		view = s.View()
		return nil
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(sessionResponse{ID: id, View: view})
}

type correctionsRequest struct {
	Corrections []wizard.Correction `json:"corrections"`
}

// Correct применяет правки пользователя по порядку; первая ошибка
// останавливает применение, уже применённые правки остаются в журнале
// и сохраняются в хранилище.
func (h *SessionHandler) Correct(c fiber.Ctx) error {
	var req correctionsRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if len(req.Corrections) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "corrections required"})
	}

	id := c.Params("id")
	var (
		view    wizard.View
		applied int
	)
	err := h.sessions.Do(c.Context(), id, func(s *wizard.Session) error {
		for _, corr := range req.Corrections {
			if err := s.Apply(corr); err != nil {
				return fmt.Errorf("correction %d: %w", applied, err)
			}
			applied++
		}
		view = s.View()
		return nil
	})
	if err != nil {
		log.Printf("[COMPILER] Session %s: %d of %d corrections applied: %v", id, applied, len(req.Corrections), err)
		return writeError(c, err)
	}
	return c.JSON(sessionResponse{ID: id, View: view})
}

// Export проверяет вариант и сохраняет его.
func (h *SessionHandler) Export(c fiber.Ctx) error {
	variantID, def, err := h.sessions.Export(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"variantId":  variantID,
		"definition": def,
		"maxHeight":  sizing.CalculateMapMaxHeight(def.Dimensions),
	})
}

// Delete удаляет сессию и её черновик.
func (h *SessionHandler) Delete(c fiber.Ctx) error {
	if err := h.sessions.Delete(c.Context(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetVariant отдаёт сохранённый вариант.
func (h *SessionHandler) GetVariant(c fiber.Ctx) error {
	if h.variants == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "variant storage disabled"})
	}
	v, err := h.variants.GetVariant(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(v)
}
