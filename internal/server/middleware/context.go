package middleware

import (
	"github.com/OFFIS-RIT/scholargraph/backend/internal/app"
	"github.com/OFFIS-RIT/scholargraph/backend/internal/queue"

	"github.com/labstack/echo/v4"
)

// App is what handlers can reach through the request context.
type App struct {
	*app.App
	Queue  queue.Publisher
	APIKey string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(a *app.App, ch queue.Publisher, apiKey string) echo.MiddlewareFunc {
	shared := &App{App: a, Queue: ch, APIKey: apiKey}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, shared})
		}
	}
}
