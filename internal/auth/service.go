package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	svcctl "github.com/nita-portal/nita/internal/db/controller/service"
	"github.com/nita-portal/nita/internal/db/controller/user"
	"github.com/nita-portal/nita/internal/db/models"
)

// discoveryOrder is the order directories are asked during discovery.
var discoveryOrder = []models.UserSource{models.SourceOpenLDAP, models.SourceFreeIPA} //nolint:gochecknoglobals

// Service bundles login, session and authorization.
type Service struct {
	db          *gorm.DB
	tokens      *TokenIssuer
	gate        *Gate
	local       *localVerifier
	directories map[models.UserSource]Directory
	emailDomain string
	tokenExpiry time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithDirectory registers a directory for its source.
func WithDirectory(d Directory) Option {
	return func(s *Service) {
		if d != nil {
			s.directories[d.Source()] = d
		}
	}
}

// WithTokenExpiry sets the bearer token lifetime. 0 means no expiry.
func WithTokenExpiry(d time.Duration) Option {
	return func(s *Service) { s.tokenExpiry = d }
}

// WithEmailDomain sets the domain of fallback emails for directory users without one.
func WithEmailDomain(domain string) Option {
	return func(s *Service) { s.emailDomain = strings.TrimPrefix(strings.TrimSpace(domain), "@") }
}

// NewService creates a new auth service.
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:          db,
		gate:        NewGate(db),
		directories: map[models.UserSource]Directory{},
	}

	for _, o := range opts {
		o(s)
	}

	s.tokens = NewTokenIssuer(db, s.tokenExpiry)
	s.local = &localVerifier{svc: s}

	return s
}

// Gate returns the authorization gate.
func (s *Service) Gate() *Gate { return s.gate }

// Tokens returns the token issuer.
func (s *Service) Tokens() *TokenIssuer { return s.tokens }

// DirectoryEnabled reports whether a directory is registered for the source.
func (s *Service) DirectoryEnabled(source models.UserSource) bool {
	_, ok := s.directories[source]

	return ok
}

// Session is the result of a successful login.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login verifies the credential and issues a session.
func (s *Service) Login(ctx context.Context, cred Credential) (*Session, error) {
	if cred == nil {
		return nil, &FieldError{Field: "type", Message: "The type field is required."}
	}

	var (
		u   *models.User
		err error
	)

	switch c := cred.(type) {
	case LocalCredential:
		u, err = s.local.verify(ctx, c)
	case DirectoryCredential:
		u, err = s.verifyDirectory(ctx, c)
	default:
		err = &FieldError{Field: "type", Message: "The selected type is invalid."}
	}

	if err != nil {
		loginAttempts.WithLabelValues(cred.Source().String(), loginResult(err)).Inc()

		return nil, err
	}

	session, err := s.issueSession(ctx, u)
	if err != nil {
		loginAttempts.WithLabelValues(cred.Source().String(), "error").Inc()

		return nil, err
	}

	loginAttempts.WithLabelValues(cred.Source().String(), "success").Inc()
	log.Info().Str("username", u.Username).Str("source", u.Source.String()).Msg("user logged in")

	return session, nil
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid"
	case errors.Is(err, ErrAuthSystem):
		return "system_error"
	default:
		return "error"
	}
}

// issueSession is the shared tail of every login path: revoke, issue, load roles.
func (s *Service) issueSession(ctx context.Context, u *models.User) (*Session, error) {
	token, err := s.tokens.Issue(ctx, u.ID, DefaultTokenName)
	if err != nil {
		return nil, err
	}

	fresh, err := user.Get(s.db.WithContext(ctx), u.ID)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, User: fresh}, nil
}

func (s *Service) directory(source models.UserSource) (Directory, error) {
	d, ok := s.directories[source]
	if !ok {
		return nil, &FieldError{Field: "type", Message: "The selected directory is not enabled."}
	}

	return d, nil
}

// verifyDirectory binds against the directory and upserts the shadow user.
func (s *Service) verifyDirectory(ctx context.Context, c DirectoryCredential) (*models.User, error) {
	d, err := s.directory(c.Profile)
	if err != nil {
		return nil, err
	}

	e, err := d.Authenticate(ctx, c.Username, c.Password)
	if err != nil {
		return nil, s.classify(c.Profile, c.Username, err)
	}

	s.complete(e, c.Username)

	u, _, err := user.UpsertShadow(s.db.WithContext(ctx), user.Shadow{
		Username: e.Username,
		Name:     e.Name,
		Email:    e.Email,
		Source:   c.Profile,
	})
	if errors.Is(err, user.ErrLocalAccount) {
		log.Warn().Str("username", e.Username).Str("source", c.Profile.String()).
			Msg("directory login for a local account refused")

		return nil, ErrInvalidCredentials
	}

	return u, err
}

// classify maps a directory error onto the login taxonomy and logs faults.
func (s *Service) classify(source models.UserSource, username string, err error) error {
	if errors.Is(err, ErrDirectoryUserNotFound) || errors.Is(err, ErrBindFailed) {
		return ErrInvalidCredentials
	}

	var sysErr *SystemError
	if !errors.As(err, &sysErr) {
		sysErr = &SystemError{Profile: source.String(), Err: err}
	}

	log.Error().Err(sysErr.Err).Str("directory", sysErr.Profile).Str("username", username).
		Msg("directory request failed")

	return sysErr
}

// complete applies the fallbacks for missing directory attributes.
func (s *Service) complete(e *Entry, username string) {
	if e.Username == "" {
		e.Username = username
	}

	if e.Name == "" {
		e.Name = e.Username
	}

	if e.Email == "" && s.emailDomain != "" {
		e.Email = e.Username + "@" + s.emailDomain
	}
}

// Discover asks the directories in order for the username and returns the first hit.
// Nothing is persisted. If no directory has the user, ErrDirectoryUserNotFound is returned,
// unless a directory failed, in which case its SystemError is returned.
func (s *Service) Discover(ctx context.Context, username string) (*Entry, error) {
	var (
		fault   error
		enabled int
	)

	for _, source := range discoveryOrder {
		d, ok := s.directories[source]
		if !ok {
			continue
		}

		enabled++

		e, err := d.Lookup(ctx, username)
		if err == nil {
			s.complete(e, username)

			return e, nil
		}

		if errors.Is(err, ErrDirectoryUserNotFound) {
			continue
		}

		fault = s.classify(source, username, err)
	}

	switch {
	case enabled == 0:
		return nil, ErrNoDirectory
	case fault != nil:
		return nil, fault
	default:
		return nil, ErrDirectoryUserNotFound
	}
}

// ImportDirectoryUser upserts the shadow user for a discovered entry.
// It returns user.ErrLocalAccount when the username belongs to a local account.
func (s *Service) ImportDirectoryUser(ctx context.Context, e Entry) (*models.User, bool, error) {
	if !e.Source.IsDirectory() {
		return nil, false, &FieldError{Field: "provider", Message: "The selected provider is invalid."}
	}

	s.complete(&e, e.Username)

	return user.UpsertShadow(s.db.WithContext(ctx), user.Shadow{
		Username: e.Username,
		Name:     e.Name,
		Email:    e.Email,
		Source:   e.Source,
	})
}

// Authenticate resolves a bearer token to its user with roles.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*models.User, error) {
	tok, err := s.tokens.Resolve(ctx, bearer)
	if err != nil {
		return nil, err
	}

	u, err := user.Get(s.db.WithContext(ctx), tok.UserID)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrUnauthenticated
	}

	return u, err
}

// Logout revokes every token of the user.
func (s *Service) Logout(ctx context.Context, userID uint64) error {
	return s.tokens.Revoke(ctx, userID)
}

// VisibleServices returns the services the user may see: all of them for an admin,
// otherwise the union of the services linked to the user's roles.
func (s *Service) VisibleServices(ctx context.Context, userID uint64) ([]models.Service, error) {
	admin, err := s.gate.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}

	if admin {
		return svcctl.List(s.db.WithContext(ctx))
	}

	services, err := svcctl.ListForUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, fmt.Errorf("visible services: %w", err)
	}

	return services, nil
}
