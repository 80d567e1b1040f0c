// Package http provides the HTTP server implementation for the call synchronizer.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/RadishSystems/choiceview-webapi-demo/internal/service"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/transport/http/internalapi"
	v1 "github.com/RadishSystems/choiceview-webapi-demo/internal/transport/http/v1"
	"github.com/RadishSystems/choiceview-webapi-demo/internal/transport/ws"
)

// NewExternalServer creates the server the ChoiceView session service calls
// back into with state_change and new_message notifications.
func NewExternalServer(svc *service.Service, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())

	v1Handler := v1.NewHandler(svc)
	v1Handler.RegisterRoutes(e)

	return e
}

// NewInternalServer creates the server for the voice gateway and the call
// ledger API.
func NewInternalServer(svc *service.Service, gateway *ws.Server, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())

	internalHandler := internalapi.NewHandler(svc, gateway)
	internalHandler.RegisterRoutes(e)

	return e
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Debug("request", fields...)
			return nil
		},
	})
}
