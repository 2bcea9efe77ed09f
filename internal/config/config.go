// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	// EnvConfigJSON holds a JSON document merged over the TOML configuration.
	EnvConfigJSON = "NITA_CONFIG_JSON"

	defaultShutDownTime     = 5
	defaultDirectoryTimeout = 10
	defaultMaxIconSize      = 2 << 20
	defaultIconPath         = "./storage/icons"
)

// secretEnv maps environment variables onto secret fields. They win over file values.
var secretEnv = map[string]func(c *Config, v string){ //nolint:gochecknoglobals
	"NITA_DB_PASSWORD":            func(c *Config, v string) { c.DB.Password = v },
	"NITA_OPENLDAP_BIND_PASSWORD": func(c *Config, v string) { c.Directory.OpenLDAP.BindPassword = v },
	"NITA_FREEIPA_BIND_PASSWORD":  func(c *Config, v string) { c.Directory.FreeIPA.BindPassword = v },
}

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	// an optional .env next to the config provides secrets
	if err = godotenv.Load(filepath.Join(path, ".env")); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "failed to read .env file")
	}

	if _, err = toml.DecodeFile(filepath.Join(path, "main.toml"), &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	for name, set := range secretEnv {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			set(&c, v)
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err //nolint: wrapcheck
	}

	return string(out) + "\n", nil
}

// validate minimal config settings and fill in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineMySQL
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrap(ErrUnknownGormEngine, invalidErrMessage)
	}

	for _, d := range []*struct {
		name    string
		enabled bool
		host    string
		baseDN  string
		timeout *int
	}{
		{"openldap", c.Directory.OpenLDAP.Enabled, c.Directory.OpenLDAP.Host,
			c.Directory.OpenLDAP.BaseDN, &c.Directory.OpenLDAP.Timeout},
		{"freeipa", c.Directory.FreeIPA.Enabled, c.Directory.FreeIPA.Host,
			c.Directory.FreeIPA.BaseDN, &c.Directory.FreeIPA.Timeout},
	} {
		if d.enabled && (d.host == "" || d.baseDN == "") {
			return errors.Wrapf(ErrDirectoryIncomplete, "%s: directory %s", invalidErrMessage, d.name)
		}

		if *d.timeout <= 0 {
			*d.timeout = defaultDirectoryTimeout
		}
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Media.IconPath == "" {
		c.Media.IconPath = defaultIconPath
	}

	if c.Media.MaxIconSize <= 0 {
		c.Media.MaxIconSize = defaultMaxIconSize
	}

	if c.Auth.TokenExpiry < 0 {
		c.Auth.TokenExpiry = time.Duration(0)
	}

	return nil
}

// Redact returns a copy of c with passwords blanked, for display.
func Redact(c Config) Config {
	const hidden = "********"

	for _, p := range []*string{
		&c.DB.Password,
		&c.Directory.OpenLDAP.BindPassword,
		&c.Directory.FreeIPA.BindPassword,
		&c.Seed.AdminPassword,
	} {
		if *p != "" {
			*p = hidden
		}
	}

	return c
}
