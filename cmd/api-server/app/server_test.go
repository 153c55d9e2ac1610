package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fluidmeter-api-server/internal/api/alert"
	"fluidmeter-api-server/internal/api/common/query"
	"fluidmeter-api-server/internal/api/common/response"
	"fluidmeter-api-server/internal/api/measurement"
	"fluidmeter-api-server/internal/auth"
	"fluidmeter-api-server/internal/models"
)

const testSecret = "server-secret"

type stubAlerts struct{}

func (stubAlerts) RunCycle(ctx context.Context) error { return nil }

func (stubAlerts) MeterAlerts(ctx context.Context, callerID, meterID string) (*alert.MeterFindings, error) {
	return &alert.MeterFindings{Alerts: []alert.AlertKind{}}, nil
}

type stubMeters struct{}

func (stubMeters) GetFluidMeter(ctx context.Context, callerID, id string) (*models.FluidMeter, error) {
	return &models.FluidMeter{ID: id, OwnerID: callerID, Status: models.FluidMeterActive}, nil
}

func (stubMeters) GetFluidMeters(ctx context.Context, callerID string) ([]*models.FluidMeter, error) {
	return []*models.FluidMeter{}, nil
}

type stubMeasurements struct{}

func (stubMeasurements) Save(ctx context.Context, input measurement.SaveMeasurementInput) (*models.Measurement, error) {
	return &models.Measurement{ID: "x", DeviceID: input.DeviceID, Value: input.Measurement}, nil
}

func (stubMeasurements) GetSeries(ctx context.Context, callerID string, q query.Query) (*measurement.Series, error) {
	return &measurement.Series{Granularity: q.Granularity, Items: []measurement.SeriesItem{}}, nil
}

func testApp() *fiber.App {
	return newApp("release", &auth.Config{Secret: testSecret}, services{
		alerts:       stubAlerts{},
		meters:       stubMeters{},
		measurements: stubMeasurements{},
	}, zap.NewNop())
}

func token(t *testing.T) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "owner-a",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestPublicRoutes(t *testing.T) {
	app := testApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/v1/alert", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fluidmeter_http_requests_total")
}

func TestProtectedRoutes(t *testing.T) {
	app := testApp()

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/v1/fluid-meter/m-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(fiber.MethodGet, "/v1/fluid-meter/m-1", nil)
	req.Header.Set(fiber.HeaderAuthorization, token(t))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var meter models.FluidMeter
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meter))
	assert.Equal(t, "m-1", meter.ID)
}

func TestUnknownRoute(t *testing.T) {
	for name, header := range map[string]string{
		"with token":    token(t),
		"without token": "",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/v2/nothing", nil)
			if header != "" {
				req.Header.Set(fiber.HeaderAuthorization, header)
			}
			resp, err := testApp().Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

			var body response.ErrorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, response.CodeNotFound, body.Code)
		})
	}
}

func TestTaskLogFile(t *testing.T) {
	assert.Equal(t, "/var/log/app.log.worker", taskLogFile("/var/log/app.log"))
	assert.NotEmpty(t, taskLogFile(""))
}
