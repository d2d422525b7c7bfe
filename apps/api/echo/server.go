package echoapi

import (
	"context"
	"net/http"
	"sync"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/studygroups/core"
	"github.com/trezcool/studygroups/core/study"
)

type (
	Options struct {
		Address        string
		AppName        string
		SecretKey      string
		Debug          bool
		TestMode       bool
		DisableReqLogs bool
	}

	Server struct {
		opts   *Options
		app    *echo.Echo
		logger core.Logger

		shutdown     chan struct{}
		shutdownOnce sync.Once
	}
)

var _ http.Handler = (*Server)(nil)

func NewServer(
	opts *Options,
	logger core.Logger,
	studySvc *study.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		logger:   logger,
		shutdown: make(chan struct{}),
	}
	s.setup(&studyApi{
		svc:        studySvc,
		validate:   validate,
		translator: translator,
	})
	return s
}

func (s *Server) setup(api *studyApi) {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.opts.Debug || s.opts.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, api.translator, s.signalShutdown)
	s.app.Debug = s.opts.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(s.opts.SecretKey))

	registerStudyAPI(v1, jwt, api)
}

// Start blocks until the server stops. A graceful Stop is not an error.
func (s *Server) Start() error {
	if err := s.app.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// ShutdownRequested is closed when a request hit an error the process cannot recover from.
func (s *Server) ShutdownRequested() <-chan struct{} {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdown) })
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.AppName+" API!")
}
