package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	commonerrors "fluidmeter-api-server/internal/api/common/errors"
)

const (
	CodeTooFrequent   = "TooFrequent"
	CodeInvalidInput  = "InvalidInput"
	CodeBadRequest    = "BadRequest"
	CodeNotFound      = "NotFound"
	CodeUnauthorized  = "Unauthorized"
	CodeInternalError = "InternalError"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func Error(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorBody{
		Code:    code,
		Message: message,
	})
}

// FromError maps domain errors onto status codes and machine codes.
func FromError(c *fiber.Ctx, err error) error {
	var (
		notFound   commonerrors.NotFoundError
		notUnique  commonerrors.NotUniqueError
		invalidErr commonerrors.InvalidInputError
	)

	switch {
	case errors.Is(err, commonerrors.ErrRateLimited):
		return Error(c, fiber.StatusBadRequest, CodeTooFrequent, err.Error())
	case errors.As(err, &invalidErr):
		return Error(c, fiber.StatusUnprocessableEntity, CodeInvalidInput, err.Error())
	case errors.Is(err, commonerrors.ErrNotOwner),
		errors.Is(err, commonerrors.ErrMeterInactive),
		errors.Is(err, commonerrors.ErrDuplicateMeasurement),
		errors.As(err, &notFound),
		errors.As(err, &notUnique):
		// unknown and foreign meters are indistinguishable to the caller
		return Error(c, fiber.StatusBadRequest, CodeBadRequest, err.Error())
	default:
		return Error(c, fiber.StatusInternalServerError, CodeInternalError, "internal error")
	}
}
