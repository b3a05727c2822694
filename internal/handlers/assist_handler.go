package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/automate-app/automate_be/internal/services/advisor"
)

// AssistHandler exposes the stateless automotive chat assistant. No
// conversation is persisted; the client replays its own history on
// every call.
type AssistHandler struct {
	Advisor *advisor.AdvisorService
}

func NewAssistHandler(adv *advisor.AdvisorService) *AssistHandler {
	return &AssistHandler{Advisor: adv}
}

type AssistReq struct {
	Message string                `json:"message"`
	History []advisor.ChatMessage `json:"history"`
}

func (h *AssistHandler) Chat(c *fiber.Ctx) error {
	var req AssistReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Message is required",
		})
	}

	reply, err := h.Advisor.Chat(c.Context(), msg, req.History)
	if err != nil {
		logrus.WithError(err).Warn("assistant chat failed")
		return c.JSON(fiber.Map{
			"success": false,
			"error":   "The assistant is unavailable right now, please try again later",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"response": reply,
	})
}
