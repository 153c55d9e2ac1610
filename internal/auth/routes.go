package auth

import (
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
)

// routeTable answers whether a request reaches a registered handler. It
// reads the app's stack on first use, after every router has been mounted.
type routeTable struct {
	app *fiber.App

	once   sync.Once
	routes map[string][][]string
}

func newRouteTable(app *fiber.App) *routeTable {
	return &routeTable{app: app}
}

func (t *routeTable) load() {
	t.routes = make(map[string][][]string)
	for _, r := range t.app.GetRoutes(true) {
		// catch-alls answer everything and say nothing about what exists
		if strings.Contains(r.Path, "*") {
			continue
		}
		t.routes[r.Method] = append(t.routes[r.Method], segments(r.Path))
	}
}

func (t *routeTable) Has(method, path string) bool {
	t.once.Do(t.load)

	got := segments(path)
	for _, want := range t.routes[method] {
		if matchSegments(want, got) {
			return true
		}
	}
	return false
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if path[i] == "" {
				return false
			}
			continue
		}
		if !strings.EqualFold(p, path[i]) {
			return false
		}
	}
	return true
}

func segments(path string) []string {
	return strings.Split(strings.Trim(normalize(path), "/"), "/")
}

// normalize folds the variants fiber routes to the same handler: a trailing
// slash and letter case.
func normalize(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return strings.ToLower(path)
}
