package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/api/metrics"
	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

// RegisterHandler opens accounts for invite holders.
type RegisterHandler struct {
	registration ports.RegistrationService
	log          zerolog.Logger
}

func NewRegisterHandler(registration ports.RegistrationService, log zerolog.Logger) *RegisterHandler {
	return &RegisterHandler{registration: registration, log: log}
}

// Register redeems an invite code and creates the account.
//
// @Summary      Register with an invite code
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details and invite code"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]any
// @Failure      404   {object}  map[string]any
// @Failure      409   {object}  map[string]any
// @Failure      410   {object}  map[string]any
// @Failure      500   {object}  map[string]any
// @Router       /register [post]
func (h *RegisterHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.registration.Register(c.Request().Context(), ports.RegisterInput{
		Username:   req.Username,
		Password:   req.Password,
		InviteCode: req.InviteCode,
		ExternalID: req.ExternalID,
	})
	if result := consumeResult(err); result != "" {
		metrics.InvitesConsumedTotal.WithLabelValues(result).Inc()
	}
	if err != nil {
		return err
	}

	metrics.UsersRegisteredTotal.Inc()
	h.log.Info().Int64("uid", user.UID).Str("username", user.Username).Msg("user registered")
	return c.JSON(http.StatusCreated, registerResponse{Success: true, User: toUserResponse(user)})
}

// consumeResult labels the invite side of a registration; "" when the invite was never tried.
func consumeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidInviteCode):
		return "invalid"
	case errors.Is(err, domain.ErrInviteAlreadyUsed):
		return "used"
	case errors.Is(err, domain.ErrInviteExpired):
		return "expired"
	case errors.Is(err, domain.ErrUsernameTaken), errors.Is(err, domain.ErrInvalidInput):
		return ""
	default:
		return "error"
	}
}
