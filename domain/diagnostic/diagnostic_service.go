package diagnostic

import (
	"github.com/gofiber/fiber/v2"
)

// StatsProvider returns transmit statistics for the diagnostics endpoint.
type StatsProvider func() interface{}

// DiagnosticService serves link diagnostics
type DiagnosticService struct {
	link     *LinkState
	transmit StatsProvider
}

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService(link *LinkState, transmit StatsProvider) *DiagnosticService {
	return &DiagnosticService{link: link, transmit: transmit}
}

// GetLinkHandler handles API requests for link health
func (s *DiagnosticService) GetLinkHandler(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":  "success",
		"health":  s.link.Health(),
		"vehicle": s.link.Vehicle(),
	}
	if s.transmit != nil {
		resp["transmit"] = s.transmit()
	}
	return c.JSON(resp)
}

// RegisterRoutes registers the diagnostics endpoints under /api/v1/diagnostics.
func (s *DiagnosticService) RegisterRoutes(app fiber.Router) {
	app.Get("/api/v1/diagnostics/link", s.GetLinkHandler)
}
