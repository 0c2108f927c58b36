package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"newswire/internal/logx"
	"newswire/internal/search"
)

const healthTimeout = 2 * time.Second

// SearchEngine is the slice of the search client the API layer needs.
type SearchEngine interface {
	Search(ctx context.Context, params search.Params) (*search.Result, error)
	RetrieveDocument(ctx context.Context, id string) (map[string]any, error)
	Health(ctx context.Context) (map[string]any, error)
}

// ProfileStore reads and updates per-user interest vectors.
type ProfileStore interface {
	Get(ctx context.Context, userID string) ([]float64, int, error)
	ApplyClick(ctx context.Context, userID string, vec []float64) error
}

type Encoder interface {
	Encode(text string) []float64
}

type Config struct {
	Search   SearchEngine
	Profiles ProfileStore
	Encoder  Encoder
	Service  string
	Metrics  *Metrics
}

func NewServer(cfg Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(cfg.Service))
	e.Use(cfg.Metrics.Middleware())

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()

		status, err := cfg.Search.Health(ctx)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "typesense unreachable").SetInternal(err)
		}
		return c.JSON(http.StatusOK, map[string]any{"typesense": status})
	})

	e.GET("/metrics", echo.WrapHandler(cfg.Metrics.Handler()))

	e.GET("/search", searchHandler(cfg))
	e.POST("/click/:user_id/:doc_id", clickHandler(cfg))

	return e
}

func requestLogger(service string) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:      true,
		LogMethod:       true,
		LogURI:          true,
		LogStatus:       true,
		LogError:        true,
		LogResponseSize: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			extra := map[string]any{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
				"size":    v.ResponseSize,
			}
			if v.Error != nil {
				logx.Error(service, "request", v.Error, extra)
			} else {
				logx.Info(service, "request", extra)
			}
			return nil
		},
	})
}
