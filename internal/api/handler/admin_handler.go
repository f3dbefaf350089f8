package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/safedev/accessgate/internal/api/metrics"
	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

// AdminHandler exposes invite and account administration.
type AdminHandler struct {
	invites ports.InviteService
	users   ports.UserService
	log     zerolog.Logger
	now     func() time.Time
}

func NewAdminHandler(invites ports.InviteService, users ports.UserService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{invites: invites, users: users, log: log, now: time.Now}
}

// CreateInvite handles POST /admin/invites.
//
// @Summary      Create an invite code
// @Tags         invites
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createInviteRequest  false  "Validity in days (0 for default)"
// @Success      201   {object}  inviteResponse
// @Failure      400   {object}  map[string]any
// @Failure      401   {object}  map[string]any
// @Failure      403   {object}  map[string]any
// @Router       /admin/invites [post]
func (h *AdminHandler) CreateInvite(c echo.Context) error {
	subject, _, err := ctxAdmin(c)
	if err != nil {
		return err
	}
	// An empty body means the default validity.
	var req createInviteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	inv, err := h.invites.Create(c.Request().Context(), req.Days)
	if err != nil {
		return err
	}
	metrics.InvitesCreatedTotal.Inc()
	h.log.Info().Str("admin", subject).Str("code", inv.Code).Msg("invite created")
	return c.JSON(http.StatusCreated, toInviteResponse(inv, h.now()))
}

// CreateInviteBatch handles POST /admin/invites/batch (invite wave).
//
// @Summary      Create a batch of invite codes
// @Tags         invites
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createInviteBatchRequest  true  "Number of codes and validity"
// @Success      201   {object}  inviteListResponse
// @Failure      400   {object}  map[string]any
// @Router       /admin/invites/batch [post]
func (h *AdminHandler) CreateInviteBatch(c echo.Context) error {
	subject, _, err := ctxAdmin(c)
	if err != nil {
		return err
	}
	var req createInviteBatchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	invites, err := h.invites.CreateBatch(c.Request().Context(), req.Count, req.Days)
	if err != nil {
		return err
	}
	metrics.InvitesCreatedTotal.Add(float64(len(invites)))
	h.log.Info().Str("admin", subject).Int("count", len(invites)).Msg("invite wave created")
	return c.JSON(http.StatusCreated, toInviteListResponse(invites, h.now()))
}

// ListInvites handles GET /admin/invites.
//
// @Summary      List invite codes
// @Tags         invites
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  inviteListResponse
// @Router       /admin/invites [get]
func (h *AdminHandler) ListInvites(c echo.Context) error {
	invites, err := h.invites.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toInviteListResponse(invites, h.now()))
}

// GetUser handles GET /admin/users/:uid.
//
// @Summary      Show account details
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        uid  path      int  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      404  {object}  map[string]any
// @Router       /admin/users/{uid} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	uid, err := uidParam(c)
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// ListUsers handles GET /admin/users.
//
// @Summary      List accounts
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userListResponse
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserListResponse(users))
}

// BanUser handles POST /admin/users/:uid/ban.
//
// @Summary      Ban an account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        uid  path      int  true  "User id"
// @Success      200  {object}  successResponse
// @Failure      404  {object}  map[string]any
// @Router       /admin/users/{uid}/ban [post]
func (h *AdminHandler) BanUser(c echo.Context) error {
	return h.setStatus(c, domain.StatusBanned, "ban")
}

// UnbanUser handles POST /admin/users/:uid/unban.
//
// @Summary      Lift a ban
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        uid  path      int  true  "User id"
// @Success      200  {object}  successResponse
// @Failure      404  {object}  map[string]any
// @Router       /admin/users/{uid}/unban [post]
func (h *AdminHandler) UnbanUser(c echo.Context) error {
	return h.setStatus(c, domain.StatusActive, "unban")
}

// ResetHWID handles POST /admin/users/:uid/reset-hwid.
//
// @Summary      Clear the bound hardware id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        uid  path      int  true  "User id"
// @Success      200  {object}  successResponse
// @Failure      404  {object}  map[string]any
// @Router       /admin/users/{uid}/reset-hwid [post]
func (h *AdminHandler) ResetHWID(c echo.Context) error {
	subject, _, err := ctxAdmin(c)
	if err != nil {
		return err
	}
	uid, err := uidParam(c)
	if err != nil {
		return err
	}
	if err := h.users.ResetHWID(c.Request().Context(), uid); err != nil {
		return err
	}
	metrics.AdminActionsTotal.WithLabelValues("reset_hwid").Inc()
	h.log.Info().Str("admin", subject).Int64("uid", uid).Msg("hwid reset")
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func (h *AdminHandler) setStatus(c echo.Context, status domain.UserStatus, action string) error {
	subject, _, err := ctxAdmin(c)
	if err != nil {
		return err
	}
	uid, err := uidParam(c)
	if err != nil {
		return err
	}
	if err := h.users.SetStatus(c.Request().Context(), uid, status); err != nil {
		return err
	}
	metrics.AdminActionsTotal.WithLabelValues(action).Inc()
	h.log.Info().Str("admin", subject).Int64("uid", uid).Str("status", string(status)).Msg("account status changed")
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

func uidParam(c echo.Context) (int64, error) {
	uid, err := strconv.ParseInt(c.Param("uid"), 10, 64)
	if err != nil || uid <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "uid must be a positive integer")
	}
	return uid, nil
}
