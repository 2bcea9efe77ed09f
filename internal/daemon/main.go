// Package daemon wires the database, the auth service and the web server together.
package daemon

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/dsn"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/logger/adapter/stdlogger"
	"github.com/nita-portal/nita/internal/web"
)

const (
	breakerFailures = 5
	breakerOpenFor  = 30 * time.Second
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the web service and blocks until it stops.
func (d *Daemon) Start() error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
	}()

	go d.webService.WaitShutdown()

	return <-errCh
}

// OpenDB connects to the configured database and migrates the schema.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dsn.Dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if cfg.DevMode {
		level = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(stdlogger.New("gorm"), gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = models.Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// ApplyPasswordParams tunes argon2id hashing from the configuration.
func ApplyPasswordParams(cfg *config.Config) {
	p := *models.PasswordParams

	if cfg.Auth.Argon2.Memory > 0 {
		p.Memory = cfg.Auth.Argon2.Memory
	}

	if cfg.Auth.Argon2.Iterations > 0 {
		p.Iterations = cfg.Auth.Argon2.Iterations
	}

	if cfg.Auth.Argon2.Parallelism > 0 {
		p.Parallelism = cfg.Auth.Argon2.Parallelism
	}

	models.PasswordParams = &p
}

// NewAuthService builds the auth service with every enabled directory behind a circuit breaker.
func NewAuthService(cfg *config.Config, db *gorm.DB) (*auth.Service, error) {
	opts := []auth.Option{
		auth.WithTokenExpiry(cfg.Auth.TokenExpiry),
		auth.WithEmailDomain(cfg.Auth.EmailDomain),
	}

	for _, p := range []struct {
		cfg    auth.LDAPConfig
		source models.UserSource
	}{
		{cfg.Directory.OpenLDAP, models.SourceOpenLDAP},
		{cfg.Directory.FreeIPA, models.SourceFreeIPA},
	} {
		dir, err := auth.NewLDAPDirectory(p.cfg, p.source)
		if errors.Is(err, auth.ErrDirectoryDisabled) {
			continue
		}

		if err != nil {
			return nil, err
		}

		log.Info().Str("directory", p.source.String()).Str("host", p.cfg.Host).Msg("directory enabled")

		opts = append(opts, auth.WithDirectory(auth.NewBreakerDirectory(dir, breakerFailures, breakerOpenFor)))
	}

	return auth.NewService(db, opts...), nil
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, config.ErrNilConfig
	}

	ApplyPasswordParams(cfg)

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	if err = Seed(cfg, db); err != nil {
		return nil, err
	}

	authService, err := NewAuthService(cfg, db)
	if err != nil {
		return nil, err
	}

	webService, err := web.New(cfg, db, authService)
	if err != nil {
		return nil, err
	}

	return &Daemon{cfg: cfg, webService: webService}, nil
}
