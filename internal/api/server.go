package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"countrydash/internal/render"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

type templateRenderer struct{}

func (templateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return render.Templates.ExecuteTemplate(w, name, data)
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(h *Handler, maxUploadBytes int64) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Renderer = templateRenderer{}

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("HTTP request")
			return nil
		},
	}))
	if maxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", maxUploadBytes)))
	}

	h.RegisterRoutes(e)
	return e
}

// Serve runs e on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, e *echo.Echo, addr string, shutdownTimeout time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server ready")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
