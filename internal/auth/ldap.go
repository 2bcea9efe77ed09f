package auth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/nita-portal/nita/internal/db/models"
)

const defaultLDAPTimeout = 10 * time.Second

// LDAPConfig holds the connection profile of one directory.
type LDAPConfig struct {
	// Enabled indicates if the directory can be used.
	Enabled bool
	// Host is the directory server hostname or IP address.
	Host string
	// Port is the server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS.
	UseSSL bool
	// UseTLS enables StartTLS on a plain connection.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// BindDN is the service account used for searches. Empty means anonymous search.
	BindDN string
	// BindPassword is the password of BindDN.
	BindPassword string `json:"-" toml:"BindPassword"`
	// BaseDN is the search base for users.
	BaseDN string
	// UserFilter finds a user, e.g. "(uid={username})".
	UserFilter string
	// UsernameAttr holds the login name. Defaults to "uid".
	UsernameAttr string
	// Timeout bounds dialing and every request, in seconds.
	Timeout int
}

// LDAPDirectory implements Directory with go-ldap.
type LDAPDirectory struct {
	cfg    LDAPConfig
	source models.UserSource
}

// NewLDAPDirectory creates a directory for the given profile.
func NewLDAPDirectory(cfg LDAPConfig, source models.UserSource) (*LDAPDirectory, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryDisabled, source)
	}

	if cfg.UserFilter == "" {
		cfg.UserFilter = "(uid={username})"
	}

	if cfg.UsernameAttr == "" {
		cfg.UsernameAttr = "uid"
	}

	if cfg.Port == 0 {
		cfg.Port = 389
		if cfg.UseSSL {
			cfg.Port = 636
		}
	}

	return &LDAPDirectory{cfg: cfg, source: source}, nil
}

// Source implements Directory.
func (d *LDAPDirectory) Source() models.UserSource { return d.source }

func (d *LDAPDirectory) timeout() time.Duration {
	if d.cfg.Timeout <= 0 {
		return defaultLDAPTimeout
	}

	return time.Duration(d.cfg.Timeout) * time.Second
}

func (d *LDAPDirectory) url() string {
	hostPort := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	if d.cfg.UseSSL {
		return "ldaps://" + hostPort
	}

	return "ldap://" + hostPort
}

func (d *LDAPDirectory) fault(err error) error {
	return &SystemError{Profile: d.source.String(), Err: err}
}

// connect dials the server. The returned release func closes the connection;
// cancelling ctx closes it early and aborts any request in flight.
func (d *LDAPDirectory) connect(ctx context.Context) (*ldap.Conn, func(), error) {
	var tlsConfig *tls.Config
	if d.cfg.UseSSL || d.cfg.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: d.cfg.SkipVerify, //nolint:gosec // opt-in for lab setups
			ServerName:         d.cfg.Host,
			MinVersion:         tls.VersionTLS12,
		}
	}

	dialer := &net.Dialer{Timeout: d.timeout()}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	conn, err := ldap.DialURL(d.url(), ldap.DialWithDialer(dialer), ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", d.url(), err)
	}

	conn.SetTimeout(d.timeout())

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	release := func() {
		stop()

		if errClose := conn.Close(); errClose != nil {
			log.Debug().Err(errClose).Str("directory", d.source.String()).Msg("failed to close LDAP connection")
		}
	}

	if !d.cfg.UseSSL && d.cfg.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			release()

			return nil, nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	return conn, release, nil
}

// bindService binds with the configured service account, if any.
func (d *LDAPDirectory) bindService(conn *ldap.Conn) error {
	if d.cfg.BindDN == "" {
		return nil
	}

	if err := conn.Bind(d.cfg.BindDN, d.cfg.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// searchRequest builds the user search. The username is escaped.
func (d *LDAPDirectory) searchRequest(username string) *ldap.SearchRequest {
	filter := strings.ReplaceAll(d.cfg.UserFilter, "{username}", ldap.EscapeFilter(username))

	return ldap.NewSearchRequest(
		d.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, // one is enough, two detects ambiguous filters
		int(d.timeout().Seconds()),
		false,
		filter,
		[]string{d.cfg.UsernameAttr, "cn", "displayName", "mail", "mailAlternateAddress"},
		nil,
	)
}

func (d *LDAPDirectory) search(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	res, err := conn.Search(d.searchRequest(username))
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, ErrDirectoryUserNotFound
		}

		return nil, d.fault(fmt.Errorf("failed to search for user: %w", err))
	}

	if res == nil {
		return nil, d.fault(ErrMultipleUsersFound)
	}

	switch len(res.Entries) {
	case 0:
		return nil, ErrDirectoryUserNotFound
	case 1:
		return res.Entries[0], nil
	default:
		return nil, d.fault(ErrMultipleUsersFound)
	}
}

// Lookup implements Directory. It only reads, nothing is bound as the user.
func (d *LDAPDirectory) Lookup(ctx context.Context, username string) (*Entry, error) {
	conn, release, err := d.connect(ctx)
	if err != nil {
		return nil, d.fault(err)
	}
	defer release()

	if err = d.bindService(conn); err != nil {
		return nil, d.fault(err)
	}

	e, err := d.search(conn, username)
	if err != nil {
		return nil, err
	}

	return d.toEntry(e, username), nil
}

// Authenticate implements Directory: search the user's DN, then bind as the user.
func (d *LDAPDirectory) Authenticate(ctx context.Context, username, password string) (*Entry, error) {
	// an empty password would be an unauthenticated bind, which most servers accept
	if password == "" {
		return nil, ErrBindFailed
	}

	conn, release, err := d.connect(ctx)
	if err != nil {
		return nil, d.fault(err)
	}
	defer release()

	if err = d.bindService(conn); err != nil {
		return nil, d.fault(err)
	}

	e, err := d.search(conn, username)
	if err != nil {
		return nil, err
	}

	if err = conn.Bind(e.DN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return nil, ErrBindFailed
		}

		return nil, d.fault(fmt.Errorf("user bind: %w", err))
	}

	return d.toEntry(e, username), nil
}

// toEntry maps directory attributes: name is cn then displayName, email is mail then
// mailAlternateAddress. Remaining fallbacks are applied by the Service.
func (d *LDAPDirectory) toEntry(e *ldap.Entry, username string) *Entry {
	out := &Entry{
		Username: firstNonEmpty(e.GetAttributeValue(d.cfg.UsernameAttr), username),
		Name:     firstNonEmpty(e.GetAttributeValue("cn"), e.GetAttributeValue("displayName")),
		Email:    firstNonEmpty(e.GetAttributeValue("mail"), e.GetAttributeValue("mailAlternateAddress")),
		Source:   d.source,
	}

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}
