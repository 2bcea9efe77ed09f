// Package web assembles the fiber application of the portal API.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	accesslog "github.com/nita-portal/nita/internal/logger/adapter/fiber"
	"github.com/nita-portal/nita/internal/web/handler"
	"github.com/nita-portal/nita/internal/web/handler/account"
	"github.com/nita-portal/nita/internal/web/handler/admin/audit"
	"github.com/nita-portal/nita/internal/web/handler/admin/directory"
	"github.com/nita-portal/nita/internal/web/handler/admin/media"
	"github.com/nita-portal/nita/internal/web/handler/admin/registry"
	"github.com/nita-portal/nita/internal/web/handler/admin/role"
	"github.com/nita-portal/nita/internal/web/handler/admin/service"
	"github.com/nita-portal/nita/internal/web/handler/admin/user"
	"github.com/nita-portal/nita/internal/web/handler/dashboard"
	"github.com/nita-portal/nita/internal/web/handler/login"
	"github.com/nita-portal/nita/internal/web/handler/logout"
)

const (
	// CheckAlivePath is polled by load balancers.
	CheckAlivePath = "/checkalive"
	// MetricsPath exposes prometheus metrics when enabled.
	MetricsPath = "/metrics"
	// IconsURL serves uploaded icons read-only.
	IconsURL = "/storage/icons"
	// IconsCSP is the Content-Security-Policy sent with every icon.
	IconsCSP = "default-src 'none'; style-src 'unsafe-inline'; sandbox"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan error, 1)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneFiber <- err

			return
		}

		doneFiber <- nil
	}()

	return <-doneFiber
}

// WaitShutdown blocks until SIGINT or SIGTERM and stops the server gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// handlers lists every route group of the API.
func handlers() []handler.Service {
	return []handler.Service{
		&login.Handler,
		&logout.Handler,
		&account.Handler,
		&dashboard.Handler,
		&user.Handler,
		&directory.Handler,
		&role.Handler,
		&service.Handler,
		&media.Handler,
		&audit.Handler,
		&registry.Handler,
	}
}

// New creates the web service and registers all routes.
func New(cfg *config.Config, db *gorm.DB, authService *auth.Service) (*Service, error) {
	if cfg == nil || db == nil || authService == nil {
		return nil, handler.ErrNilDependency
	}

	app := fiber.New(handler.FiberConfig(cfg))

	s := &Service{
		cfg:          cfg,
		App:          app,
		db:           db,
		authService:  authService,
		fastShutDown: cfg.DevMode,
	}
	s.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(accesslog.New(accesslog.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
		UserID:        auth.CurrentUserID,
	}))

	if len(cfg.Webserver.AllowOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.Webserver.AllowOrigins, ","),
			AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		}))
	}

	if cfg.Webserver.LoginRateLimit > 0 {
		app.Post(login.Path, limiter.New(limiter.Config{
			Max:        cfg.Webserver.LoginRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "Too many login attempts. Please try again later.")
			},
		}))
	}

	app.Get(CheckAlivePath, s.checkAlive)

	if cfg.Webserver.EnableMetrics {
		app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	app.Static(IconsURL, cfg.Media.IconPath, fiber.Static{
		Browse: false,
		// uploaded SVGs may carry scripts; never let them run on this origin
		ModifyResponse: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderContentSecurityPolicy, IconsCSP)
			c.Set(fiber.HeaderXContentTypeOptions, "nosniff")

			return nil
		},
	})

	for _, h := range handlers() {
		if err := h.Init(app, cfg, db, authService); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}
