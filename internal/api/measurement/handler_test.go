package measurement

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fluidmeter-api-server/internal/api/common/response"
	"fluidmeter-api-server/internal/auth"
)

const testSecret = "measurement-secret"

func newTestApp(t *testing.T) (*fiber.App, *fakeRepository) {
	t.Helper()
	now := testNow
	repo := &fakeRepository{}

	app := fiber.New()
	app.Use(auth.New(&auth.Config{Secret: testSecret}, app))
	MeasurementRouter(app.Group("/v1"), newTestService(repo, &now), zap.NewNop())
	return app, repo
}

func postMeasurement(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/v1/measurement", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Code
}

func TestSaveHandler(t *testing.T) {
	app, repo := newTestApp(t)

	resp := postMeasurement(t, app, `{"device_id":"m-1","measurement":"0.125"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stored struct {
		ID          string `json:"id"`
		DeviceID    string `json:"device_id"`
		Measurement string `json:"measurement"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "m-1", stored.DeviceID)
	assert.Equal(t, "0.125", stored.Measurement)
	assert.Len(t, repo.saved, 1)

	resp = postMeasurement(t, app, `{"device_id":"m-1","measurement":"0.125"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, response.CodeBadRequest, errorCode(t, resp))
}

func TestSaveHandlerRejects(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"device_id":`, fiber.StatusUnprocessableEntity, response.CodeInvalidInput},
		{"empty object", `{}`, fiber.StatusUnprocessableEntity, response.CodeInvalidInput},
		{"unknown device", `{"device_id":"nope","measurement":"1"}`, fiber.StatusBadRequest, response.CodeBadRequest},
		{"inactive device", `{"device_id":"m-2","measurement":"1"}`, fiber.StatusBadRequest, response.CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, repo := newTestApp(t)

			resp := postMeasurement(t, app, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, errorCode(t, resp))
			assert.Empty(t, repo.saved)
		})
	}
}

func TestSeriesHandler(t *testing.T) {
	app, _ := newTestApp(t)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "owner-a",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	get := func(target string, withToken bool) *http.Response {
		req := httptest.NewRequest(fiber.MethodGet, target, nil)
		if withToken {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signed)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := get("/v1/fluid-meter/m-1/measurement", false)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = get("/v1/fluid-meter/m-1/measurement?granularity=week", true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = get("/v1/fluid-meter/m-1/measurement?granularity=hour", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var series Series
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&series))
	assert.Equal(t, "hour", string(series.Granularity))
	assert.Empty(t, series.Items)
}
