package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/qrave1/InterviewRoom/internal/application/config"
	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/handlers"
	"github.com/qrave1/InterviewRoom/internal/infra/ports/http/middleware"
	"github.com/qrave1/InterviewRoom/internal/usecase"
)

func New(
	cfg *config.Config,
	tokens usecase.TokenUsecase,
	iceHandler *handlers.IceHandler,
	roomHandler *handlers.RoomHandler,
	notifyHandler *handlers.NotifyHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigin,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowCredentials: true,
	}))

	api := e.Group("/api")
	{
		v1 := api.Group("/v1")
		v1.Use(middleware.JWTAuthMiddleware(tokens))
		{
			v1.GET("/ice", iceHandler.IceServers)

			v1.GET("/ws", wsHandler.Handle)

			v1.GET("/interviews", roomHandler.ListMyInterviews)
		}

		internal := api.Group("/internal")
		internal.Use(middleware.APIKeyMiddleware(cfg.InternalAPIKey))
		{
			internal.POST("/notify", notifyHandler.Notify)

			// снимки реестра раскрывают чужие handle, только для операторов
			internal.GET("/rooms", roomHandler.ListRooms)
			internal.GET("/rooms/:id", roomHandler.GetRoom)
		}
	}

	e.Static("/", cfg.StaticDir)

	return e
}
