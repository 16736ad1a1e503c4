package api

import (
	"github.com/gofiber/fiber/v2"
)

// handlePing returns a simple health check response. It is unconditional:
// liveness does not depend on upstream providers being reachable.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
