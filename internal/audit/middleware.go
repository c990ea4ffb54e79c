package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ActorFunc and PayloadFunc are pure extractors supplied per call site.
type ActorFunc func(c echo.Context) string
type PayloadFunc func(c echo.Context) any

// ActorFromUID reads the authenticated uid the auth middleware stored.
func ActorFromUID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

// Middleware always invokes the wrapped handler and records its outcome
// afterwards; whatever the handler returned is passed through untouched.
func Middleware(rec *Recorder, action string, actor ActorFunc, payload PayloadFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			// A committed response already carries the mapped status even
			// when the handler also surfaces the error for recording.
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			var p any
			if payload != nil {
				p = payload(c)
			}
			rec.Record(c.Request().Context(), action, actor(c), p, status, err)
			return err
		}
	}
}
