package fluidmeter

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"fluidmeter-api-server/internal/api/common/response"
	"fluidmeter-api-server/internal/auth"
)

type FluidMeterHandler struct {
	fs     FluidMeterService
	logger *zap.Logger
}

func FluidMeterRouter(route fiber.Router, fs FluidMeterService, logger *zap.Logger) {
	handler := &FluidMeterHandler{
		fs:     fs,
		logger: logger,
	}

	route.Get("/fluid-meter", handler.getFluidMeters)
	route.Get("/fluid-meter/:id", handler.getFluidMeter)
}

// @Summary Fluid meters of the caller
// @Produce json
// @Success 200 {object} []models.FluidMeter
// @Failure 401 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /v1/fluid-meter [get]
func (h *FluidMeterHandler) getFluidMeters(c *fiber.Ctx) error {
	callerID, ok := auth.CallerID(c)
	if !ok {
		return response.Error(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "missing caller identity")
	}

	meters, err := h.fs.GetFluidMeters(c.UserContext(), callerID)
	if err != nil {
		h.logger.Error("failed to list fluid meters", zap.Error(err))
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(meters)
}

// @Summary Get a fluid meter
// @Produce json
// @Param id path string true "the id of the fluid meter"
// @Success 200 {object} models.FluidMeter
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Router /v1/fluid-meter/{id} [get]
func (h *FluidMeterHandler) getFluidMeter(c *fiber.Ctx) error {
	callerID, ok := auth.CallerID(c)
	if !ok {
		return response.Error(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "missing caller identity")
	}

	meter, err := h.fs.GetFluidMeter(c.UserContext(), callerID, c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(meter)
}
