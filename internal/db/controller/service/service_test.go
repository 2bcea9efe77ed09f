package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/db/controller"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/testutil"
)

func gitlab() Input {
	return Input{Name: "GitLab", Slug: "gitlab", URL: "https://gitlab.example.org", Category: "Dev", Icon: "gitlab"}
}

func TestCreateDuplicateSlugConflicts(t *testing.T) {
	db := testutil.DB(t)

	first, err := Create(db, gitlab())
	require.NoError(t, err)

	second := gitlab()
	second.Name = "GitLab 2"
	second.URL = "https://other.example.org"

	_, err = Create(db, second)

	var conflict *controller.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "slug", conflict.Field)

	got, err := Get(db, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.org", got.URL)
	assert.Equal(t, "GitLab", got.Name)
}

func TestCreateDuplicateNameConflicts(t *testing.T) {
	db := testutil.DB(t)

	_, err := Create(db, gitlab())
	require.NoError(t, err)

	in := gitlab()
	in.Slug = "gitlab2"

	_, err = Create(db, in)

	var conflict *controller.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "name", conflict.Field)
}

func TestUpdate(t *testing.T) {
	db := testutil.DB(t)

	s, err := Create(db, gitlab())
	require.NoError(t, err)

	other := testutil.Service(t, db, "Wiki", "wiki")

	in := gitlab()
	in.URL = "https://git.example.org"
	in.Category = "Engineering"

	updated, err := Update(db, s.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "https://git.example.org", updated.URL)
	assert.Equal(t, "Engineering", updated.Category)

	in.Slug = other.Slug
	_, err = Update(db, s.ID, in)

	var conflict *controller.ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = Update(db, 999, in)
	require.ErrorIs(t, err, ErrServiceNotFound)
}

func TestSetMaintenance(t *testing.T) {
	db := testutil.DB(t)

	s := testutil.Service(t, db, "Wiki", "wiki")
	on := true
	msg := "upgrading"

	got, err := SetMaintenance(db, s.ID, &on, &msg)
	require.NoError(t, err)
	assert.True(t, got.IsMaintenance)
	assert.Equal(t, "upgrading", got.MaintenanceMessage)

	// toggle off clears the message
	got, err = SetMaintenance(db, s.ID, nil, nil)
	require.NoError(t, err)
	assert.False(t, got.IsMaintenance)
	assert.Empty(t, got.MaintenanceMessage)
}

func TestDeleteRemovesRoleLinks(t *testing.T) {
	db := testutil.DB(t)

	staff := testutil.Role(t, db, "staff")
	wiki := testutil.Service(t, db, "Wiki", "wiki")
	testutil.Link(t, db, staff, wiki)

	_, err := Delete(db, wiki.ID)
	require.NoError(t, err)
	assert.Empty(t, testutil.LinkedServiceIDs(t, db, staff.ID))

	_, err = Delete(db, wiki.ID)
	require.ErrorIs(t, err, ErrServiceNotFound)
}

func TestListForUser(t *testing.T) {
	db := testutil.DB(t)

	staff := testutil.Role(t, db, "staff")
	guest := testutil.Role(t, db, "guest")
	wiki := testutil.Service(t, db, "Wiki", "wiki")
	nms := testutil.Service(t, db, "NMS", "nms")
	testutil.Service(t, db, "GitLab", "gitlab")
	testutil.Link(t, db, staff, wiki, nms)
	testutil.Link(t, db, guest, wiki)

	alice := testutil.User(t, db, "alice", "secret-password", models.SourceLocal, staff, guest)
	carol := testutil.User(t, db, "carol", "secret-password", models.SourceLocal)

	services, err := ListForUser(db, alice.ID)
	require.NoError(t, err)

	var slugs []string
	for _, s := range services {
		slugs = append(slugs, s.Slug)
	}

	assert.ElementsMatch(t, []string{"wiki", "nms"}, slugs)

	services, err = ListForUser(db, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, services)
	assert.NotNil(t, services)
}

func TestGetBySlugOrName(t *testing.T) {
	db := testutil.DB(t)

	wiki := testutil.Service(t, db, "Wiki", "wiki")

	got, err := GetBySlugOrName(db, "wiki")
	require.NoError(t, err)
	assert.Equal(t, wiki.ID, got.ID)

	got, err = GetBySlugOrName(db, "Wiki")
	require.NoError(t, err)
	assert.Equal(t, wiki.ID, got.ID)

	_, err = GetBySlugOrName(db, "vpn")
	require.ErrorIs(t, err, ErrServiceNotFound)
}

func TestSyncRoles(t *testing.T) {
	db := testutil.DB(t)

	staff := testutil.Role(t, db, "staff")
	wiki := testutil.Service(t, db, "Wiki", "wiki")

	s, res, err := SyncRoles(db, wiki.ID, []uint64{uint64(staff.ID)})
	require.NoError(t, err)
	assert.Equal(t, []uint64{uint64(staff.ID)}, res.Added)
	require.Len(t, s.Roles, 1)
	assert.Equal(t, "staff", s.Roles[0].Name)

	_, _, err = SyncRoles(db, wiki.ID, []uint64{42})
	require.Error(t, err)
}
