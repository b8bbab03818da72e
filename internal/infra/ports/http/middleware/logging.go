package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/qrave1/InterviewRoom/internal/application/constant"
	"github.com/qrave1/InterviewRoom/internal/infra/appctx"
)

// SlogLogger пишет HTTP запросы через slog. Уровень зависит от статуса.
func SlogLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(
		middleware.RequestLoggerConfig{
			LogStatus:   true,
			LogURIPath:  true,
			LogMethod:   true,
			LogLatency:  true,
			LogRemoteIP: true,
			LogError:    true,

			// websocket живет долго, его логирует сам обработчик
			Skipper: func(c echo.Context) bool {
				return c.IsWebSocket()
			},

			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				level := slog.LevelInfo
				if v.Error != nil || v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				} else if v.Status >= http.StatusBadRequest {
					level = slog.LevelWarn
				}

				attrs := []slog.Attr{
					slog.Int("status", v.Status),
					// query не пишем, в нем могут быть токены
					slog.String("uri", v.URIPath),
					slog.String("method", v.Method),
					slog.Duration("latency", v.Latency),
					slog.String("remote_ip", v.RemoteIP),
				}

				if identity, ok := appctx.Identity(c.Request().Context()); ok {
					attrs = append(attrs, slog.String(constant.Identity, identity))
				}

				if v.Error != nil {
					attrs = append(attrs, slog.Any(constant.Error, v.Error))
				}

				slog.LogAttrs(c.Request().Context(), level, "HTTP request", attrs...)

				return nil
			},
		},
	)
}
