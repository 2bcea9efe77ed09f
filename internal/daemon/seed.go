package daemon

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/controller/link"
	"github.com/nita-portal/nita/internal/db/controller/role"
	"github.com/nita-portal/nita/internal/db/controller/service"
	"github.com/nita-portal/nita/internal/db/controller/setting"
	"github.com/nita-portal/nita/internal/db/controller/user"
	"github.com/nita-portal/nita/internal/db/models"
)

const (
	seedSetting = "seed"
	adminName   = "admin"
)

// ErrSeedPassword is returned when the database needs seeding but no admin password is configured.
var ErrSeedPassword = errors.New("toml config seed.adminPassword is required on first start")

type seedState struct {
	SeededAt time.Time `json:"seeded_at"`
}

var sampleServices = []service.Input{ //nolint:gochecknoglobals
	{Name: "Wiki", Slug: "wiki", URL: "https://wiki.example.org", Category: "Documentation", Icon: "book"},
	{Name: "GitLab", Slug: "gitlab", URL: "https://gitlab.example.org", Category: "Development", Icon: "gitlab"},
	{Name: "NMS", Slug: "nms", URL: "https://nms.example.org", Category: "Monitoring", Icon: "activity"},
}

// Seed provisions the base roles, the local admin account and optionally the sample services.
// It runs once per database.
func Seed(cfg *config.Config, db *gorm.DB) error {
	var state seedState

	err := setting.Load(db, seedSetting, &state)
	if err == nil {
		return nil
	}

	if !errors.Is(err, setting.ErrSettingNotFound) {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin, errTx := role.Ensure(tx, adminName)
		if errTx != nil {
			return errTx
		}

		if _, errTx = role.Ensure(tx, "user"); errTx != nil {
			return errTx
		}

		if errTx = seedAdmin(cfg, tx, admin); errTx != nil {
			return errTx
		}

		if cfg.Seed.SampleServices {
			if errTx = seedServices(tx, admin); errTx != nil {
				return errTx
			}
		}

		log.Info().Bool("samples", cfg.Seed.SampleServices).Msg("database seeded")

		return setting.Store(tx, seedSetting, seedState{SeededAt: time.Now().UTC()})
	})
}

func seedAdmin(cfg *config.Config, db *gorm.DB, admin *models.Role) error {
	_, err := user.FindByUsername(db, adminName)
	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrUserNotFound) {
		return err
	}

	if cfg.Seed.AdminPassword == "" {
		return ErrSeedPassword
	}

	if _, err = user.CreateLocal(db, adminName, "Administrator", "", cfg.Seed.AdminPassword, uint64(admin.ID)); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Warn().Str("username", adminName).Msg("created local admin account, change its password")

	return nil
}

func seedServices(db *gorm.DB, admin *models.Role) error {
	for _, in := range sampleServices {
		s, err := service.GetBySlugOrName(db, in.Slug)
		if errors.Is(err, service.ErrServiceNotFound) {
			s, err = service.Create(db, in)
		}

		if err != nil {
			return err
		}

		if _, err = link.Replace(db, link.ServiceRoles, uint64(s.ID), []uint64{uint64(admin.ID)}); err != nil {
			return err
		}
	}

	return nil
}
