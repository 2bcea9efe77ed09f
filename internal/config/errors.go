package config

import (
	"errors"
)

var (
	// ErrNilConfig error if no configuration was loaded.
	ErrNilConfig = errors.New("config is nil")

	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormEngine is not supported.
	ErrUnknownGormEngine = errors.New("toml config db.gormEngine must be mysql, postgres or sqlite")

	// ErrDirectoryIncomplete error if an enabled directory profile lacks host or base dn.
	ErrDirectoryIncomplete = errors.New("toml config enabled directory needs host and baseDN")
)
