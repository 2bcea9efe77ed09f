package service

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/testutil"
	"github.com/nita-portal/nita/internal/testutil/webtest"
)

func newEnv(t *testing.T) (*webtest.Env, string) {
	t.Helper()

	env := webtest.New(t)
	env.Init(t, &Service{})

	token, _ := env.Token(t, "root", "admin")

	return env, token
}

func gitlab() map[string]any {
	return map[string]any{
		"name": "GitLab", "slug": "gitlab", "url": "https://gitlab.example.org", "category": "Dev", "icon": "gitlab.svg",
	}
}

func TestCreateAndConflict(t *testing.T) {
	env, token := newEnv(t)

	resp := env.Do(t, http.MethodPost, Path, token, gitlab())
	require.Equal(t, http.StatusCreated, resp.Status, string(resp.Body))

	var first models.Service
	resp.JSON(t, &first)
	assert.Equal(t, "gitlab", first.Slug)
	assert.False(t, first.IsMaintenance)

	dup := gitlab()
	dup["name"] = "GitLab Two"
	dup["url"] = "https://other.example.org"

	resp = env.Do(t, http.MethodPost, Path, token, dup)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Equal(t, "The slug has already been taken.", resp.Map(t)["message"])

	dup = gitlab()
	dup["slug"] = "gitlab-2"

	resp = env.Do(t, http.MethodPost, Path, token, dup)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Status)
	assert.Contains(t, resp.Map(t)["errors"], "name")

	var stored models.Service
	require.NoError(t, env.DB.First(&stored, first.ID).Error)
	assert.Equal(t, "https://gitlab.example.org", stored.URL, "first service unchanged")

	var n int64
	require.NoError(t, env.DB.Model(&models.Service{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCreateValidation(t *testing.T) {
	env, token := newEnv(t)

	tests := map[string]map[string]any{
		"slug": {"name": "X", "slug": "Not A Slug", "url": "https://x.example.org"},
		"url":  {"name": "X", "slug": "x", "url": "not a url"},
		"name": {"slug": "x", "url": "https://x.example.org"},
	}

	for field, body := range tests {
		resp := env.Do(t, http.MethodPost, Path, token, body)
		require.Equal(t, http.StatusUnprocessableEntity, resp.Status, field)
		assert.Contains(t, resp.Map(t)["errors"], field)
	}
}

func TestUpdateKeepsMaintenance(t *testing.T) {
	env, token := newEnv(t)

	svc := testutil.Service(t, env.DB, "GitLab", "gitlab")
	require.NoError(t, env.DB.Model(&svc).Updates(map[string]any{
		"is_maintenance": true, "maintenance_message": "Upgrade",
	}).Error)

	path := fmt.Sprintf("%s/%d", Path, svc.ID)
	body := gitlab()
	body["name"] = "GitLab CE"

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		resp := env.Do(t, method, path, token, body)
		require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))

		var got models.Service
		resp.JSON(t, &got)
		assert.Equal(t, "GitLab CE", got.Name)
		assert.True(t, got.IsMaintenance)
		assert.Equal(t, "Upgrade", got.MaintenanceMessage)
	}

	assert.Equal(t, http.StatusNotFound, env.Do(t, http.MethodPut, Path+"/999", token, body).Status)
}

func TestMaintenance(t *testing.T) {
	env, token := newEnv(t)

	svc := testutil.Service(t, env.DB, "Wiki", "wiki")
	path := fmt.Sprintf("%s/%d/maintenance", Path, svc.ID)

	var got models.Service

	env.Do(t, http.MethodPatch, path, token, map[string]any{
		"is_maintenance": true, "maintenance_message": "Back at noon",
	}).JSON(t, &got)
	assert.True(t, got.IsMaintenance)
	assert.Equal(t, "Back at noon", got.MaintenanceMessage)

	// no flag toggles, leaving maintenance clears the message
	env.Do(t, http.MethodPatch, path, token, nil).JSON(t, &got)
	assert.False(t, got.IsMaintenance)
	assert.Empty(t, got.MaintenanceMessage)

	env.Do(t, http.MethodPatch, path, token, map[string]any{}).JSON(t, &got)
	assert.True(t, got.IsMaintenance)
}

func TestDeleteAndSyncRoles(t *testing.T) {
	env, token := newEnv(t)

	staff := testutil.Role(t, env.DB, "staff")
	guest := testutil.Role(t, env.DB, "guest")
	svc := testutil.Service(t, env.DB, "Wiki", "wiki")

	path := fmt.Sprintf("%s/%d", Path, svc.ID)

	resp := env.Do(t, http.MethodPut, path+"/roles", token, map[string]any{"role_ids": []uint{staff.ID, guest.ID}})
	require.Equal(t, http.StatusOK, resp.Status, string(resp.Body))
	assert.Equal(t, []uint{svc.ID}, testutil.LinkedServiceIDs(t, env.DB, guest.ID))

	resp = env.Do(t, http.MethodPut, path+"/roles", token, map[string]any{"role_ids": []uint{staff.ID}})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, testutil.LinkedServiceIDs(t, env.DB, guest.ID))

	resp = env.Do(t, http.MethodPut, path+"/roles", token, map[string]any{"role_ids": []uint{424242}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.Status)

	require.Equal(t, http.StatusOK, env.Do(t, http.MethodDelete, path, token, nil).Status)
	assert.Empty(t, testutil.LinkedServiceIDs(t, env.DB, staff.ID), "links removed with the service")
	assert.Equal(t, http.StatusNotFound, env.Do(t, http.MethodDelete, path, token, nil).Status)

	var n int64
	require.NoError(t, env.DB.Model(&models.AuditLog{}).Where("action = ?", "delete_service").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestListRequiresAdmin(t *testing.T) {
	env, token := newEnv(t)
	staff, _ := env.Token(t, "alice", "staff")

	testutil.Service(t, env.DB, "Wiki", "wiki")

	assert.Equal(t, http.StatusForbidden, env.Do(t, http.MethodGet, Path, staff, nil).Status)

	var services []models.Service
	env.Do(t, http.MethodGet, Path, token, nil).JSON(t, &services)
	assert.Len(t, services, 1)
}
