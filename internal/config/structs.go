package config

import (
	"time"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
	Directory Directory
	Media     Media
	Seed      Seed
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool     // disable recover middleware
	Port           int      // listening port for the webserver
	ShutDownTime   int      // wait time for shutdown
	URL            string   // base url for the webserver
	AllowOrigins   []string // CORS origins of the single-page front end
	LoginRateLimit int      // max login attempts per client IP and minute, 0 disables the limiter
	EnableMetrics  bool     // expose /metrics
}

// Auth holds the token and password settings.
type Auth struct {
	// TokenExpiry is the lifetime of bearer tokens. 0 means tokens never expire.
	TokenExpiry time.Duration
	// EmailDomain is used to build a fallback email for directory users without one.
	EmailDomain string
	// Argon2 tunes password hashing. Zero values keep the argon2id defaults.
	Argon2 Argon2
}

// Argon2 holds argon2id parameters.
type Argon2 struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// Directory holds the two supported directory profiles.
type Directory struct {
	OpenLDAP auth.LDAPConfig
	FreeIPA  auth.LDAPConfig
}

// Media holds the icon storage settings.
type Media struct {
	IconPath    string // directory for uploaded icons
	MaxIconSize int64  // bytes
}

// Seed holds first-start provisioning settings.
type Seed struct {
	AdminPassword  string
	SampleServices bool
}
