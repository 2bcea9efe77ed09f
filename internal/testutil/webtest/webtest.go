// Package webtest builds fiber apps backed by a test database for handler tests.
package webtest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/testutil"
	"github.com/nita-portal/nita/internal/web/handler"
)

// Env is an app with its database, config and auth service.
type Env struct {
	App  *fiber.App
	DB   *gorm.DB
	Cfg  *config.Config
	Auth *auth.Service
}

// New creates an Env. The config is minimal and valid, icons go to a temp dir.
func New(t *testing.T, opts ...auth.Option) *Env {
	t.Helper()

	cfg := &config.Config{
		Webserver: config.Webserver{Port: 8080, URL: "http://localhost:8080"},
		Media:     config.Media{IconPath: t.TempDir(), MaxIconSize: 4096},
	}

	db := testutil.DB(t)

	return &Env{
		App:  fiber.New(handler.FiberConfig(cfg)),
		DB:   db,
		Cfg:  cfg,
		Auth: auth.NewService(db, opts...),
	}
}

// Init registers the routes of h.
func (e *Env) Init(t *testing.T, h handler.Service) {
	t.Helper()

	require.NoError(t, h.Init(e.App, e.Cfg, e.DB, e.Auth))
}

// Token creates a local user holding the named roles and returns a bearer token for it.
func (e *Env) Token(t *testing.T, username string, roles ...string) (string, models.User) {
	t.Helper()

	held := make([]models.Role, 0, len(roles))

	for _, name := range roles {
		var r models.Role
		require.NoError(t, e.DB.Where(models.Role{Name: name}).FirstOrCreate(&r).Error)
		held = append(held, r)
	}

	u := testutil.User(t, e.DB, username, "password-"+username, models.SourceLocal, held...)

	s, err := e.Auth.Login(context.Background(), auth.LocalCredential{Username: username, Password: "password-" + username})
	require.NoError(t, err)

	return s.Token, u
}

// Response is a finished request.
type Response struct {
	Status int
	Body   []byte
}

// JSON decodes the body into out.
func (r Response) JSON(t *testing.T, out any) {
	t.Helper()

	require.NoError(t, json.Unmarshal(r.Body, out), string(r.Body))
}

// Map decodes the body as an object.
func (r Response) Map(t *testing.T) map[string]any {
	t.Helper()

	var m map[string]any
	r.JSON(t, &m)

	return m
}

// Do sends a request. A non-nil body is encoded as JSON, a non-empty token is sent as bearer.
func (e *Env) Do(t *testing.T, method, path, token string, body any) Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	return e.Send(t, req, token)
}

// Send sends a prepared request.
func (e *Env) Send(t *testing.T, req *http.Request, token string) Response {
	t.Helper()

	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := e.App.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return Response{Status: resp.StatusCode, Body: b}
}
