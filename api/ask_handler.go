package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papercomputeco/docent/pkg/answer"
	"github.com/papercomputeco/docent/pkg/llm"
	"github.com/papercomputeco/docent/pkg/retriever"
)

// askRequest is the POST /v1/ask request body.
type askRequest struct {
	Question string `json:"question"`
}

// handleAsk handles POST /v1/ask requests. It is the single point where
// the pipeline's internal failure kinds translate into the caller-visible
// response taxonomy; raw upstream error text never reaches the caller.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error: "invalid request body",
		})
	}

	result, err := s.orchestrator.Ask(c.Context(), answer.Question{
		Text:   req.Question,
		APIKey: c.Get("X-API-Key"),
	})

	if err != nil {
		return s.askError(c, err)
	}

	if result.Refused {
		// The specific reason is logged inside the orchestrator; callers
		// get a uniform refusal with a machine-readable reason code.
		return c.Status(fiber.StatusUnprocessableEntity).JSON(llm.ErrorResponse{
			Error:  "cannot answer confidently from the corpus",
			Reason: result.RefusalReason,
		})
	}

	return c.JSON(result)
}

func (s *Server) askError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, answer.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{
			Error: "unauthorized",
		})
	case errors.Is(err, answer.ErrEmptyQuestion):
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
			Error: "empty question",
		})
	case errors.Is(err, answer.ErrQuestionTooLong):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(llm.ErrorResponse{
			Error: "question too long",
		})
	case errors.Is(err, answer.ErrUpstreamTimeout):
		return c.Status(fiber.StatusGatewayTimeout).JSON(llm.ErrorResponse{
			Error: "upstream timeout",
		})
	case errors.Is(err, answer.ErrUpstream):
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{
			Error: "upstream failure",
		})
	case errors.Is(err, retriever.ErrVersionRequired):
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
			Error: "corpus version is not configured",
		})
	default:
		s.logger.Error("ask failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{
			Error: "internal error",
		})
	}
}
