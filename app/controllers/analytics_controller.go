package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/makkara/makkara/app/repository"
)

// AnalyticsController reports how the model catalog is used.
type AnalyticsController struct {
	seed func() error
}

// NewAnalyticsController takes the catalog seeding step, which is run before
// every report so counts always cover every catalog model.
func NewAnalyticsController(seed func() error) *AnalyticsController {
	return &AnalyticsController{seed: seed}
}

// HandleModelUsage returns the number of chat sessions per model.
func (ac *AnalyticsController) HandleModelUsage(c *fiber.Ctx) error {
	if ac.seed != nil {
		if err := ac.seed(); err != nil {
			fiberlog.Errorf("[LLM] seeding model catalog: %v", err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load model usage")
		}
	}
	usage, err := repository.GetGlobalFactory().GetAIModelRepository().UsageCounts()
	if err != nil {
		fiberlog.Errorf("[LLM] counting model usage: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load model usage")
	}
	return c.JSON(usage)
}
