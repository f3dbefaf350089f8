package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/safedev/accessgate/internal/api/metrics"
	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

// AuthHandler serves the client login endpoint.
type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Authenticate checks credentials and the hardware id, binding it on first use.
//
// @Summary      Authenticate a client
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authRequest  true  "Credentials and hardware id"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Failure      403   {object}  map[string]any
// @Failure      429   {object}  map[string]any
// @Failure      500   {object}  map[string]any
// @Router       /auth [post]
func (h *AuthHandler) Authenticate(c echo.Context) error {
	var req authRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("bad_request").Inc()
		return err
	}
	if req.HWID == "" {
		metrics.AuthAttemptsTotal.WithLabelValues("bad_request").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "hwid is required")
	}

	start := time.Now()
	_, err := h.authService.Authenticate(c.Request().Context(), ports.AuthInput{
		Username: req.Username,
		Password: req.Password,
		HWID:     req.HWID,
		ClientIP: c.RealIP(),
	})
	metrics.AuthDuration.Observe(time.Since(start).Seconds())
	metrics.AuthAttemptsTotal.WithLabelValues(authOutcome(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func authOutcome(err error) string {
	switch {
	case err == nil:
		return "authenticated"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrHwidMismatch):
		return "hwid_mismatch"
	case errors.Is(err, domain.ErrForbidden):
		return "banned"
	case errors.Is(err, domain.ErrTooManyTries):
		return "rate_limited"
	default:
		return "error"
	}
}
