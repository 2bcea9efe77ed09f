package account

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/testutil"
	"github.com/nita-portal/nita/internal/testutil/webtest"
)

func newEnv(t *testing.T) *webtest.Env {
	t.Helper()

	env := webtest.New(t)
	env.Init(t, &Service{})

	return env
}

func TestMe(t *testing.T) {
	env := newEnv(t)

	adminToken, _ := env.Token(t, "root", "admin")
	staffToken, _ := env.Token(t, "alice", "staff")

	var body struct {
		User         models.User `json:"user"`
		Capabilities struct {
			Admin bool `json:"admin"`
		} `json:"capabilities"`
	}

	env.Do(t, http.MethodGet, MePath, adminToken, nil).JSON(t, &body)
	assert.Equal(t, "root", body.User.Username)
	assert.True(t, body.Capabilities.Admin)

	env.Do(t, http.MethodGet, MePath, staffToken, nil).JSON(t, &body)
	assert.Equal(t, "alice", body.User.Username)
	assert.False(t, body.Capabilities.Admin)
	require.Len(t, body.User.Roles, 1)
	assert.Equal(t, "staff", body.User.Roles[0].Name)

	assert.Equal(t, http.StatusUnauthorized, env.Do(t, http.MethodGet, MePath, "", nil).Status)
}

func TestChangePassword(t *testing.T) {
	env := newEnv(t)

	token, _ := env.Token(t, "alice")

	tests := []struct {
		name   string
		body   map[string]string
		status int
		field  string
	}{
		{
			name:   "wrong current password",
			body:   map[string]string{"current_password": "nope", "new_password": "brand-new-pw", "new_password_confirmation": "brand-new-pw"},
			status: http.StatusUnauthorized,
		},
		{
			name:   "confirmation mismatch",
			body:   map[string]string{"current_password": "password-alice", "new_password": "brand-new-pw", "new_password_confirmation": "other-pw-123"},
			status: http.StatusUnprocessableEntity,
			field:  "new_password_confirmation",
		},
		{
			name:   "too short",
			body:   map[string]string{"current_password": "password-alice", "new_password": "short", "new_password_confirmation": "short"},
			status: http.StatusUnprocessableEntity,
			field:  "new_password",
		},
		{
			name:   "success",
			body:   map[string]string{"current_password": "password-alice", "new_password": "brand-new-pw", "new_password_confirmation": "brand-new-pw"},
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.Do(t, http.MethodPost, PasswordPath, token, tt.body)
			require.Equal(t, tt.status, resp.Status, string(resp.Body))

			if tt.field != "" {
				assert.Contains(t, resp.Map(t)["errors"], tt.field)
			}
		})
	}

	_, err := env.Auth.Login(context.Background(), auth.LocalCredential{Username: "alice", Password: "brand-new-pw"})
	require.NoError(t, err)

	var n int64
	require.NoError(t, env.DB.Model(&models.AuditLog{}).Where("action = ?", "change_password").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestChangePasswordDirectoryUser(t *testing.T) {
	env := newEnv(t)

	testutil.User(t, env.DB, "bob", "random", models.SourceFreeIPA)

	// directory users cannot log in locally, so issue the token directly
	var u models.User
	require.NoError(t, env.DB.Where("username = ?", "bob").First(&u).Error)
	token, err := env.Auth.Tokens().Issue(context.Background(), u.ID, auth.DefaultTokenName)
	require.NoError(t, err)

	resp := env.Do(t, http.MethodPost, PasswordPath, token, map[string]string{
		"current_password": "random", "new_password": "brand-new-pw", "new_password_confirmation": "brand-new-pw",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Contains(t, resp.Map(t)["message"], "FreeIPA")
}
