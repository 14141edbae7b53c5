package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/console/pkg/config"
	customlog "github.com/open-teleop/console/pkg/log"
	"github.com/open-teleop/console/services"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.TeleopConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.TeleopConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("ConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the bindings API endpoints under /api/v1/config.
func RegisterConfigRoutes(app fiber.Router, configService services.TeleopConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	group := app.Group("/api/v1/config")
	group.Get("/bindings", h.handleGetBindings)
	group.Put("/bindings", h.handleUpdateBindings)
	group.Put("/bindings/keyboard", h.handleUpdateKeyboard)
	group.Put("/bindings/gamepad", h.handleUpdateGamepad)

	h.logger.Infof("Registered bindings configuration API endpoints under /api/v1/config")
}

func (h *ConfigHandler) handleGetBindings(c *fiber.Ctx) error {
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to get current bindings YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

func isYAML(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "", "application/x-yaml", "application/yaml", "text/yaml", "text/plain":
		return true
	}
	return false
}

func (h *ConfigHandler) handleUpdateBindings(c *fiber.Ctx) error {
	if ct := c.Get(fiber.HeaderContentType); !isYAML(ct) {
		return c.Status(http.StatusUnsupportedMediaType).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid Content-Type %q. Expected application/x-yaml.", ct),
		})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body cannot be empty.",
		})
	}

	return h.respond(c, h.configService.UpdateConfig(body))
}

func (h *ConfigHandler) handleUpdateKeyboard(c *fiber.Ctx) error {
	var kb config.KeyBindings
	if err := c.BodyParser(&kb); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid keyboard bindings: %v", err),
		})
	}
	return h.respond(c, h.configService.UpdateKeyBindings(kb))
}

func (h *ConfigHandler) handleUpdateGamepad(c *fiber.Ctx) error {
	var gb config.GamepadBindings
	if err := c.BodyParser(&gb); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Invalid gamepad bindings: %v", err),
		})
	}
	return h.respond(c, h.configService.UpdateGamepadBindings(gb))
}

// respond maps an update result to a status code: validation errors are the
// caller's fault, anything else (e.g. a failed write) is ours.
func (h *ConfigHandler) respond(c *fiber.Ctx, err error) error {
	if err != nil {
		h.logger.Errorf("Failed to update bindings: %v", err)
		var verr interface{ IsValidationError() bool }
		if errors.As(err, &verr) && verr.IsValidationError() {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Configuration update failed: %v", err),
			})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Internal server error during configuration update: %v", err),
		})
	}

	cfg := h.configService.GetCurrentConfig()
	h.logger.Infof("Bindings updated (config %s)", cfg.ConfigID)
	return c.JSON(fiber.Map{
		"message":      "Bindings updated",
		"config_id":    cfg.ConfigID,
		"last_updated": cfg.LastUpdated,
	})
}
