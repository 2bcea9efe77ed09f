// Package dsn builds database connection strings and gorm dialectors from the configuration.
package dsn

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/config"
)

// SQLiteBusyTimeout makes sqlite connections wait up to 5s for a lock.
const SQLiteBusyTimeout = "_pragma=busy_timeout(5000)"

// Create builds the Data Source Name for the configured engine.
func Create(cfg *config.Config) string {
	db := cfg.DB

	switch db.GormEngine {
	case config.EnginePostgres:
		out := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			db.Host, db.Port, db.User, db.Password, db.Name)
		if db.Extras != "" {
			out += " " + strings.TrimSpace(db.Extras)
		}

		return out
	case config.EngineSQLite:
		params := strings.TrimPrefix(db.Extras, "?")

		// without a busy timeout concurrent writers fail at once with SQLITE_BUSY
		if !strings.Contains(params, "busy_timeout") {
			params = strings.TrimPrefix(params+"&"+SQLiteBusyTimeout, "&")
		}

		return db.Path + "?" + params
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			db.User,
			db.Password,
			db.Host,
			db.Port,
			db.Name,
			db.Extras,
		)
	}
}

// Dialector returns the gorm dialector for the configured engine.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DB.GormEngine {
	case config.EngineMySQL, "":
		return mysql.Open(Create(cfg)), nil
	case config.EnginePostgres:
		return postgres.Open(Create(cfg)), nil
	case config.EngineSQLite:
		return sqlite.Open(Create(cfg)), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownGormEngine, cfg.DB.GormEngine)
	}
}
