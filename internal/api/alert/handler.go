package alert

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"fluidmeter-api-server/internal/api/common/response"
	"fluidmeter-api-server/internal/auth"
)

type AlertHandler struct {
	as     AlertService
	logger *zap.Logger
}

func AlertRouter(route fiber.Router, as AlertService, logger *zap.Logger) {
	handler := &AlertHandler{
		as:     as,
		logger: logger,
	}

	// public: the cycle is guarded by its rate limit, not by identity
	route.Post("/alert", handler.runCycle)
	route.Get("/fluid-meter/:id/alert", handler.getMeterAlerts)
}

// @Summary Run one alert cycle
// @Description Evaluate every active fluid meter and notify owners of the findings.
// Rejected with TooFrequent while the cooldown since the last cycle has not elapsed.
// @Accept  json
// @Produce json
// @Success 200 {object} nil
// @Failure 400 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /v1/alert [post]
func (h *AlertHandler) runCycle(c *fiber.Ctx) error {
	if err := h.as.RunCycle(c.UserContext()); err != nil {
		h.logger.Debug("alert cycle failed", zap.Error(err))
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusOK).Send(nil)
}

// @Summary Current alerts of a fluid meter
// @Accept  json
// @Produce json
// @Param id path string true "the id of the fluid meter"
// @Success 200 {object} MeterFindings
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /v1/fluid-meter/{id}/alert [get]
func (h *AlertHandler) getMeterAlerts(c *fiber.Ctx) error {
	callerID, ok := auth.CallerID(c)
	if !ok {
		return response.Error(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "missing caller identity")
	}

	findings, err := h.as.MeterAlerts(c.UserContext(), callerID, c.Params("id"))
	if err != nil {
		h.logger.Debug("failed to get meter alerts", zap.String("meter_id", c.Params("id")), zap.Error(err))
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(findings)
}
