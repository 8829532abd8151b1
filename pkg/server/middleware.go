package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// requestLogger logs each request as one structured line and feeds the
// HTTP metrics. Fields match the LogQL queries the dashboards use:
// method, uri, status, duration_ms, request_id.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			duration := time.Since(start)
			path := c.Path()
			if path == "" {
				path = req.URL.Path
			}

			s.metrics.HTTPRequests.WithLabelValues(
				req.Method, path, strconv.Itoa(res.Status)).Inc()
			s.metrics.HTTPDuration.WithLabelValues(
				req.Method, path).Observe(duration.Seconds())

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", res.Status),
				zap.Float64("duration_ms", float64(duration.Microseconds())/1000),
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}

			switch {
			case res.Status >= 500:
				s.logger.Error("request", fields...)
			case res.Status >= 400:
				s.logger.Warn("request", fields...)
			default:
				s.logger.Info("request", fields...)
			}

			return nil
		}
	}
}
