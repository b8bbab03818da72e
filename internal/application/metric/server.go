package metric

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats - сводка релея для /health
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

type healthResponse struct {
	Status string `json:"status"`
	Stats
}

// NewServer поднимает отдельный echo сервер с /metrics и /health.
// stats может быть nil, тогда /health отвечает только статусом.
func NewServer(stats func() Stats) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/health", func(c echo.Context) error {
		resp := healthResponse{Status: "ok"}
		if stats != nil {
			resp.Stats = stats()
		}
		return c.JSON(http.StatusOK, resp)
	})

	return e
}
