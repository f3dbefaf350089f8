package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/safedev/accessgate/internal/api/middleware"
)

// ctxAdmin extracts the claims injected by the Auth middleware and fails fast
// when they are absent (the route was mounted without Auth).
func ctxAdmin(c echo.Context) (subject, role string, err error) {
	role, _ = c.Get(middleware.CtxRole).(string)
	if role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	subject, _ = c.Get(middleware.CtxSubject).(string)
	return subject, role, nil
}

// bindAndValidate decodes the JSON body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if c.Echo().Validator == nil {
		return nil
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
