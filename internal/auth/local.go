package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nita-portal/nita/internal/db/controller/user"
	"github.com/nita-portal/nita/internal/db/models"
)

// localVerifier checks local credentials.
type localVerifier struct {
	svc *Service

	dummyOnce sync.Once
	dummy     models.User
}

// verify returns the local account if the password matches.
// Only source 0 accounts are considered, a shadow user can never log in locally.
func (v *localVerifier) verify(ctx context.Context, c LocalCredential) (*models.User, error) {
	u, err := user.FindLocal(v.svc.db.WithContext(ctx), c.Username)
	if errors.Is(err, user.ErrUserNotFound) {
		// spend the same time as a real comparison so unknown usernames do not stand out
		v.dummyUser().VerifyPassword(c.Password)

		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, err
	}

	if !u.VerifyPassword(c.Password) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (v *localVerifier) dummyUser() *models.User {
	v.dummyOnce.Do(func() {
		hash, err := models.HashPassword("nita-dummy-password")
		if err != nil {
			log.Error().Err(err).Msg("failed to create dummy hash")
		}

		v.dummy = models.User{Password: hash}
	})

	return &v.dummy
}

// ChangePassword replaces the password of a local account after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	u, err := user.Get(s.db.WithContext(ctx), userID)
	if err != nil {
		return err
	}

	if u.Source != models.SourceLocal {
		return ErrPasswordManagedByDirectory
	}

	if !u.VerifyPassword(current) {
		return ErrInvalidOldPassword
	}

	return user.SetPassword(s.db.WithContext(ctx), userID, next)
}
