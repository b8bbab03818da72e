package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/InterviewRoom/internal/application/metric"
)

// PrometheusMiddleware создает middleware для сбора метрик HTTP запросов
func PrometheusMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			statusCode := c.Response().Status
			if statusCode == 0 {
				statusCode = 200
			}

			// Если произошла ошибка, но статус не установлен, устанавливаем 500
			if err != nil && statusCode < 400 {
				statusCode = 500
			}

			// c.Path() - шаблон маршрута, а не URI, чтобы не раздувать кардинальность
			metric.RecordHTTPMetrics(c.Request().Method, c.Path(), statusCode, time.Since(start))

			return err
		}
	}
}
