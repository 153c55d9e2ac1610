package measurement

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"fluidmeter-api-server/internal/api/common/query"
	"fluidmeter-api-server/internal/api/common/response"
	"fluidmeter-api-server/internal/auth"
)

type MeasurementHandler struct {
	ms     MeasurementService
	logger *zap.Logger
}

func MeasurementRouter(route fiber.Router, ms MeasurementService, logger *zap.Logger) {
	handler := &MeasurementHandler{
		ms:     ms,
		logger: logger,
	}

	route.Post("/measurement", handler.save)
	route.Get("/fluid-meter/:id/measurement", handler.getSeries)
}

// @Summary Save a measurement reported by a fluid meter
// @Accept  json
// @Produce json
// @Param input body SaveMeasurementInput true "device id and reading"
// @Success 200 {object} models.Measurement
// @Failure 400 {object} response.ErrorBody
// @Failure 422 {object} response.ErrorBody
// @Failure 500 {object} response.ErrorBody
// @Router /v1/measurement [post]
func (h *MeasurementHandler) save(c *fiber.Ctx) error {
	var input SaveMeasurementInput
	if err := c.BodyParser(&input); err != nil {
		h.logger.Debug("body parser error", zap.Error(err))
		return response.Error(c, fiber.StatusUnprocessableEntity, response.CodeInvalidInput, "Invalid JSON for this endpoint")
	}

	m, err := h.ms.Save(c.UserContext(), input)
	if err != nil {
		h.logger.Debug("measurement rejected", zap.String("device_id", input.DeviceID), zap.Error(err))
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(m)
}

// @Summary Measurement history of a fluid meter
// @Description Readings summed per hour or per day. Defaults to the last 7 days by day.
// @Produce json
// @Param id          path  string true  "the id of the fluid meter"
// @Param start       query string false "start time"
// @Param end         query string false "end time"
// @Param granularity query string false "hour or day"
// @Success 200 {object} Series
// @Failure 400 {object} response.ErrorBody
// @Failure 401 {object} response.ErrorBody
// @Router /v1/fluid-meter/{id}/measurement [get]
func (h *MeasurementHandler) getSeries(c *fiber.Ctx) error {
	callerID, ok := auth.CallerID(c)
	if !ok {
		return response.Error(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "missing caller identity")
	}

	q, err := query.ParseAndValidate(c)
	if err != nil {
		h.logger.Debug("query parser error", zap.Error(err))
		return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, err.Error())
	}

	series, err := h.ms.GetSeries(c.UserContext(), callerID, q)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(series)
}
