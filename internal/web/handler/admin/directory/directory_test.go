package directory

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/testutil"
	"github.com/nita-portal/nita/internal/testutil/webtest"
)

type directory struct {
	source  models.UserSource
	entries map[string]auth.Entry
	fault   error
}

func (d *directory) Source() models.UserSource { return d.source }

func (d *directory) Lookup(_ context.Context, username string) (*auth.Entry, error) {
	if d.fault != nil {
		return nil, d.fault
	}

	e, ok := d.entries[username]
	if !ok {
		return nil, auth.ErrDirectoryUserNotFound
	}

	e.Source = d.source

	return &e, nil
}

func (d *directory) Authenticate(context.Context, string, string) (*auth.Entry, error) {
	return nil, auth.ErrBindFailed
}

func newEnv(t *testing.T, dirs ...*directory) (*webtest.Env, string) {
	t.Helper()

	opts := make([]auth.Option, 0, len(dirs))
	for _, d := range dirs {
		opts = append(opts, auth.WithDirectory(d))
	}

	env := webtest.New(t, append(opts, auth.WithEmailDomain("example.org"))...)
	env.Init(t, &Service{})

	token, _ := env.Token(t, "root", "admin")

	return env, token
}

func countUsers(t *testing.T, env *webtest.Env) int64 {
	t.Helper()

	var n int64
	require.NoError(t, env.DB.Model(&models.User{}).Count(&n).Error)

	return n
}

func TestDiscover(t *testing.T) {
	openldap := &directory{source: models.SourceOpenLDAP, entries: map[string]auth.Entry{
		"alice": {Username: "alice", Name: "Alice Liddell", Email: "alice@corp.example"},
	}}
	freeipa := &directory{source: models.SourceFreeIPA, entries: map[string]auth.Entry{
		"bob": {Username: "bob"},
	}}
	env, token := newEnv(t, openldap, freeipa)

	resp := env.Do(t, http.MethodPost, Path+"/discover", token, map[string]string{"username": " alice "})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.Equal(t, map[string]any{
		"username": "alice", "name": "Alice Liddell", "email": "alice@corp.example", "provider": "OpenLDAP",
	}, resp.Map(t))

	resp = env.Do(t, http.MethodPost, Path+"/discover", token, map[string]string{"username": "bob"})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, map[string]any{
		"username": "bob", "name": "bob", "email": "bob@example.org", "provider": "FreeIPA",
	}, resp.Map(t))

	resp = env.Do(t, http.MethodPost, Path+"/discover", token, map[string]string{"username": "carol"})
	require.Equal(t, http.StatusNotFound, resp.Status)

	body := resp.Map(t)
	assert.Contains(t, body["message"], "carol")
	assert.Equal(t, "carol", body["username"])

	assert.Equal(t, int64(1), countUsers(t, env), "only root exists")

	resp = env.Do(t, http.MethodPost, Path+"/discover", token, map[string]string{"username": "c*"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)
}

func TestDiscoverFault(t *testing.T) {
	openldap := &directory{source: models.SourceOpenLDAP, fault: errors.New("connection refused")}
	env, token := newEnv(t, openldap)

	resp := env.Do(t, http.MethodPost, Path+"/discover", token, map[string]string{"username": "carol"})
	require.Equal(t, http.StatusInternalServerError, resp.Status)

	body := resp.Map(t)
	assert.Equal(t, MessageConnectionFailed, body["message"])
	assert.NotContains(t, body, "debug")
}

func TestDiscoverWithoutDirectories(t *testing.T) {
	env, token := newEnv(t)

	resp := env.Do(t, http.MethodPost, Path+"/discover", token, map[string]string{"username": "carol"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
}

func TestSync(t *testing.T) {
	env, token := newEnv(t)

	payload := map[string]string{
		"username": "alice", "name": "Alice Liddell", "email": "alice@corp.example", "provider": "FreeIPA",
	}

	resp := env.Do(t, http.MethodPost, Path+"/sync", token, payload)
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

	var body struct {
		Status  string      `json:"status"`
		Created bool        `json:"created"`
		User    models.User `json:"user"`
	}
	resp.JSON(t, &body)
	assert.Equal(t, "success", body.Status)
	assert.True(t, body.Created)
	assert.Equal(t, models.SourceFreeIPA, body.User.Source)
	assert.Equal(t, "Alice Liddell", body.User.Name)

	payload["name"] = "Alice L."
	env.Do(t, http.MethodPost, Path+"/sync", token, payload).JSON(t, &body)
	assert.False(t, body.Created)
	assert.Equal(t, "Alice L.", body.User.Name)

	payload["provider"] = "ActiveDirectory"
	resp = env.Do(t, http.MethodPost, Path+"/sync", token, payload)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Contains(t, resp.Map(t)["errors"], "provider")
}

func TestSyncRefusesLocalAccount(t *testing.T) {
	env, token := newEnv(t)
	testutil.User(t, env.DB, "alice", "pw", models.SourceLocal)

	resp := env.Do(t, http.MethodPost, Path+"/sync", token, map[string]string{
		"username": "alice", "name": "Alice", "provider": "OpenLDAP",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Contains(t, resp.Map(t)["errors"], "username")
}
