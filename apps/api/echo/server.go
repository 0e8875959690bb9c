package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/developer0000009-hue/schoolportal/core"
	"github.com/developer0000009-hue/schoolportal/core/branch"
	"github.com/developer0000009-hue/schoolportal/core/dashboard"
	"github.com/developer0000009-hue/schoolportal/core/expense"
	"github.com/developer0000009-hue/schoolportal/core/fee"
	"github.com/developer0000009-hue/schoolportal/core/onboarding"
	"github.com/developer0000009-hue/schoolportal/core/profile"
	"github.com/developer0000009-hue/schoolportal/core/role"
	"github.com/developer0000009-hue/schoolportal/core/sharecode"
	"github.com/developer0000009-hue/schoolportal/services/metrics"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metrics.Metrics

		Onboarding   *onboarding.Controller
		ProfileSvc   *profile.Service
		BranchSvc    *branch.Service
		FeeSvc       *fee.Service
		ExpenseSvc   *expense.Service
		ShareCodeSvc *sharecode.Service
		DashboardSvc *dashboard.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	if s.deps.Metrics != nil {
		s.app.Use(s.deps.Metrics.Middleware())
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}
	s.app.Use(boundaryMiddleware(s.deps.Logger))

	s.app.GET("/", s.home)
	s.app.GET("/healthz", healthz)

	v1 := s.app.Group("/v1", newJWTMiddleware(conf.Server.JWTSecret), principalMiddleware)

	admins := roleMiddleware(s.deps.ProfileSvc, role.SchoolAdmin, role.BranchAdmin)
	finance := roleMiddleware(s.deps.ProfileSvc, role.Finance, role.SchoolAdmin)

	registerOnboardingAPI(v1, s.deps.Onboarding)
	registerBranchAPI(v1, admins, s.deps.BranchSvc)
	registerFeeAPI(v1, finance, s.deps.FeeSvc, s.deps.Validate)
	registerExpenseAPI(v1, finance, s.deps.ExpenseSvc)
	registerShareCodeAPI(v1, admins, s.deps.ShareCodeSvc)
	registerDashboardAPI(v1, s.deps.ProfileSvc, s.deps.DashboardSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

func healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
