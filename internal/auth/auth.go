package auth

import (
	"github.com/caarlos0/env/v6"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt"

	"fluidmeter-api-server/internal/api/common/response"
)

const contextKey = "caller"

type Config struct {
	Secret string `env:"JWT_SECRET,required,unset"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// publicPaths lists what may be called without a bearer token, per method.
var publicPaths = map[string]map[string]struct{}{
	"/health":         {fiber.MethodGet: {}, fiber.MethodHead: {}},
	"/metrics":        {fiber.MethodGet: {}},
	"/v1/alert":       {fiber.MethodPost: {}},
	"/v1/measurement": {fiber.MethodPost: {}},
}

func IsPublic(c *fiber.Ctx) bool {
	methods, ok := publicPaths[normalize(c.Path())]
	if !ok {
		return false
	}
	_, ok = methods[c.Method()]
	return ok
}

// New returns the bearer token gate for app. Public paths skip it, and so
// do requests no route answers, which fall through to the 404 handler.
func New(cfg *Config, app *fiber.App) fiber.Handler {
	routes := newRouteTable(app)
	return jwtware.New(jwtware.Config{
		Filter: func(c *fiber.Ctx) bool {
			return IsPublic(c) || !routes.Has(c.Method(), c.Path())
		},
		SigningKey:    []byte(cfg.Secret),
		SigningMethod: "HS256",
		ContextKey:    contextKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return response.Error(c, fiber.StatusUnauthorized, response.CodeUnauthorized, err.Error())
		},
	})
}

// CallerID returns the subject of the verified token.
func CallerID(c *fiber.Ctx) (string, bool) {
	token, ok := c.Locals(contextKey).(*jwt.Token)
	if !ok || !token.Valid {
		return "", false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}
