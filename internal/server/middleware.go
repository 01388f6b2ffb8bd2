package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"adaptstudio/internal/core"
	"adaptstudio/internal/studio"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "adapt_session"

// studioKey is the echo context key holding the session's studio.
const studioKey = "studio"

// RequestIDMiddleware ensures every request carries an X-Request-ID, echoes it on the
// response and stores it in the request context.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
				req.Header.Set(echo.HeaderXRequestID, id)
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			c.SetRequest(req.WithContext(core.WithRequestID(req.Context(), id)))
			return next(c)
		}
	}
}

// RequestLogger writes one slog line per request.
func RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	})
}

// SessionMiddleware resolves the caller's studio from the session cookie, issuing a
// new session when the cookie is missing or malformed.
func SessionMiddleware(sessions *studio.Sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var id string
			if ck, err := c.Cookie(SessionCookie); err == nil {
				if _, err := uuid.Parse(ck.Value); err == nil {
					id = ck.Value
				}
			}
			if id == "" {
				id = studio.NewID()
				c.SetCookie(&http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			st, created := sessions.GetOrCreate(id)
			if created {
				slog.Debug("session created", "session_id", id)
			}
			c.Set(studioKey, st)

			req := c.Request()
			c.SetRequest(req.WithContext(core.WithSessionID(req.Context(), id)))
			return next(c)
		}
	}
}

// studioFrom returns the studio resolved by SessionMiddleware.
func studioFrom(c echo.Context) (*studio.Studio, error) {
	st, ok := c.Get(studioKey).(*studio.Studio)
	if !ok || st == nil {
		return nil, core.NewInvalidRequestError("no studio session", nil)
	}
	return st, nil
}

// GenerateRateLimiter limits generate calls per session. A non-positive limit disables it.
func GenerateRateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     2,
		ExpiresIn: 10 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id := core.GetSessionID(c.Request().Context()); id != "" {
				return id, nil
			}
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return handleError(c, core.NewInvalidRequestError("failed to identify caller", err))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"error": map[string]interface{}{
					"type":    "rate_limit_error",
					"message": "too many generation requests, slow down",
				},
			})
		},
	})
}
