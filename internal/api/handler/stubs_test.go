package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/safedev/accessgate/internal/api/middleware"
	"github.com/safedev/accessgate/internal/core/domain"
	"github.com/safedev/accessgate/internal/core/ports"
)

type stubAuthService struct {
	authenticateFn func(ctx context.Context, in ports.AuthInput) (*domain.User, error)
}

func (s *stubAuthService) Authenticate(ctx context.Context, in ports.AuthInput) (*domain.User, error) {
	return s.authenticateFn(ctx, in)
}

type stubRegistrationService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
}

func (s *stubRegistrationService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

type stubInviteService struct {
	createFn      func(ctx context.Context, days int) (*domain.Invite, error)
	createBatchFn func(ctx context.Context, count, days int) ([]*domain.Invite, error)
	listFn        func(ctx context.Context) ([]*domain.Invite, error)
}

func (s *stubInviteService) Create(ctx context.Context, days int) (*domain.Invite, error) {
	return s.createFn(ctx, days)
}

func (s *stubInviteService) CreateBatch(ctx context.Context, count, days int) ([]*domain.Invite, error) {
	return s.createBatchFn(ctx, count, days)
}

func (s *stubInviteService) Consume(context.Context, string) (*domain.Ticket, error) {
	panic("not used by handlers")
}

func (s *stubInviteService) Release(context.Context, *domain.Ticket) error {
	panic("not used by handlers")
}

func (s *stubInviteService) List(ctx context.Context) ([]*domain.Invite, error) {
	return s.listFn(ctx)
}

type stubUserService struct {
	setStatusFn func(ctx context.Context, uid int64, status domain.UserStatus) error
	resetFn     func(ctx context.Context, uid int64) error
	getFn       func(ctx context.Context, uid int64) (*domain.User, error)
	listFn      func(ctx context.Context) ([]*domain.User, error)
}

func (s *stubUserService) Register(context.Context, ports.RegisterInput, *domain.Ticket) (*domain.User, error) {
	panic("not used by handlers")
}

func (s *stubUserService) Exists(context.Context, string) (bool, error) {
	panic("not used by handlers")
}

func (s *stubUserService) SetStatus(ctx context.Context, uid int64, status domain.UserStatus) error {
	return s.setStatusFn(ctx, uid, status)
}

func (s *stubUserService) ResetHWID(ctx context.Context, uid int64) error {
	return s.resetFn(ctx, uid)
}

func (s *stubUserService) Get(ctx context.Context, uid int64) (*domain.User, error) {
	return s.getFn(ctx, uid)
}

func (s *stubUserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.listFn(ctx)
}

// newTestContext builds an echo context with the production validator and,
// when role is set, the claims the Auth middleware would inject.
func newTestContext(method, target, body, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != "" {
		c.Set(middleware.CtxRole, role)
		c.Set(middleware.CtxSubject, "tester")
	}
	return c, rec
}

func httpCode(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 0
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
