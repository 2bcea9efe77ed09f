package login

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/testutil"
	"github.com/nita-portal/nita/internal/testutil/webtest"
)

// directory is a single-user Directory.
type directory struct {
	source   models.UserSource
	username string
	password string
	fault    error
}

func (d *directory) Source() models.UserSource { return d.source }

func (d *directory) Lookup(_ context.Context, username string) (*auth.Entry, error) {
	if d.fault != nil {
		return nil, d.fault
	}

	if username != d.username {
		return nil, auth.ErrDirectoryUserNotFound
	}

	return &auth.Entry{Username: username, Name: "Directory " + username, Source: d.source}, nil
}

func (d *directory) Authenticate(ctx context.Context, username, password string) (*auth.Entry, error) {
	e, err := d.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	if password != d.password {
		return nil, auth.ErrBindFailed
	}

	return e, nil
}

func newEnv(t *testing.T, opts ...auth.Option) *webtest.Env {
	t.Helper()

	env := webtest.New(t, opts...)
	env.Init(t, &Service{})

	return env
}

func TestLoginLocal(t *testing.T) {
	env := newEnv(t)

	admin := testutil.Role(t, env.DB, "admin")
	u := testutil.User(t, env.DB, "admin", "secret-password", models.SourceLocal, admin)

	for _, typ := range []any{"0", 0} {
		resp := env.Do(t, http.MethodPost, Path, "", map[string]any{
			"username": "admin", "password": "secret-password", "type": typ,
		})
		require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

		var body struct {
			Status string      `json:"status"`
			Token  string      `json:"token"`
			User   models.User `json:"user"`
		}
		resp.JSON(t, &body)

		assert.Equal(t, "success", body.Status)
		assert.NotEmpty(t, body.Token)
		assert.Equal(t, u.ID, body.User.ID)
		require.Len(t, body.User.Roles, 1)
		assert.Equal(t, "admin", body.User.Roles[0].Name)
		assert.NotContains(t, string(resp.Body), "argon2id", "the hash never leaves the server")

		n, err := env.Auth.Tokens().Count(t.Context(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	}
}

func TestLoginLocalWrongPassword(t *testing.T) {
	env := newEnv(t)

	u := testutil.User(t, env.DB, "admin", "secret-password", models.SourceLocal)

	resp := env.Do(t, http.MethodPost, Path, "", map[string]any{"username": "admin", "password": "wrong", "type": "0"})
	require.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, map[string]any{"status": "error", "message": "Invalid local credentials"}, resp.Map(t))

	n, err := env.Auth.Tokens().Count(t.Context(), u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoginValidation(t *testing.T) {
	env := newEnv(t)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{name: "missing username", body: map[string]any{"password": "x", "type": "0"}, field: "username"},
		{name: "missing password", body: map[string]any{"username": "x", "type": "0"}, field: "password"},
		{name: "missing type", body: map[string]any{"username": "x", "password": "x"}, field: "type"},
		{name: "unknown type", body: map[string]any{"username": "x", "password": "x", "type": "7"}, field: "type"},
		{name: "garbage type", body: map[string]any{"username": "x", "password": "x", "type": "ldap"}, field: "type"},
		{name: "disabled directory", body: map[string]any{"username": "x", "password": "x", "type": 2}, field: "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.Do(t, http.MethodPost, Path, "", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, resp.Status, string(resp.Body))

			body := resp.Map(t)
			assert.Equal(t, "error", body["status"])
			assert.Contains(t, body["errors"], tt.field)
		})
	}
}

func TestLoginForm(t *testing.T) {
	env := newEnv(t)

	testutil.User(t, env.DB, "admin", "secret-password", models.SourceLocal)

	form := url.Values{"username": {"admin"}, "password": {"secret-password"}, "type": {"0"}}
	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp := env.Send(t, req, "")
	assert.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
}

func TestLoginDirectory(t *testing.T) {
	dir := &directory{source: models.SourceOpenLDAP, username: "alice", password: "ldap-password"}
	env := newEnv(t, auth.WithDirectory(dir), auth.WithEmailDomain("example.org"))

	resp := env.Do(t, http.MethodPost, Path, "", map[string]any{"username": "alice", "password": "ldap-password", "type": "1"})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	var body struct {
		User models.User `json:"user"`
	}
	resp.JSON(t, &body)
	assert.Equal(t, "Directory alice", body.User.Name)
	assert.Equal(t, "alice@example.org", body.User.Email)
	assert.Equal(t, models.SourceOpenLDAP, body.User.Source)
	assert.NotNil(t, body.User.Roles)

	resp = env.Do(t, http.MethodPost, Path, "", map[string]any{"username": "alice", "password": "nope", "type": "1"})
	require.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Invalid LDAP/IPA credentials", resp.Map(t)["message"])
}

func TestLoginDirectoryFault(t *testing.T) {
	dir := &directory{source: models.SourceFreeIPA, fault: errors.New("dial tcp 10.1.1.1:636: i/o timeout")}
	env := newEnv(t, auth.WithDirectory(dir))

	resp := env.Do(t, http.MethodPost, Path, "", map[string]any{"username": "alice", "password": "pw", "type": "2"})
	require.Equal(t, http.StatusInternalServerError, resp.Status)

	body := resp.Map(t)
	assert.Equal(t, "error", body["status"])
	assert.NotContains(t, body["message"], "10.1.1.1")
	assert.NotContains(t, body, "debug")
}
