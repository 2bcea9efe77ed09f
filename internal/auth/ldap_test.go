package auth

import (
	"context"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/db/models"
)

func TestNewLDAPDirectoryDefaults(t *testing.T) {
	_, err := NewLDAPDirectory(LDAPConfig{Host: "ldap.example.org"}, models.SourceOpenLDAP)
	require.ErrorIs(t, err, ErrDirectoryDisabled)

	d, err := NewLDAPDirectory(LDAPConfig{Enabled: true, Host: "ldap.example.org", BaseDN: "dc=example,dc=org"},
		models.SourceOpenLDAP)
	require.NoError(t, err)
	assert.Equal(t, "ldap://ldap.example.org:389", d.url())
	assert.Equal(t, defaultLDAPTimeout, d.timeout())

	d, err = NewLDAPDirectory(LDAPConfig{Enabled: true, Host: "ipa.example.org", UseSSL: true, Timeout: 3},
		models.SourceFreeIPA)
	require.NoError(t, err)
	assert.Equal(t, "ldaps://ipa.example.org:636", d.url())
	assert.Equal(t, 3*time.Second, d.timeout())
	assert.Equal(t, models.SourceFreeIPA, d.Source())
}

func TestSearchRequestEscapesUsername(t *testing.T) {
	d, err := NewLDAPDirectory(LDAPConfig{Enabled: true, Host: "localhost", BaseDN: "dc=example,dc=org"},
		models.SourceOpenLDAP)
	require.NoError(t, err)

	req := d.searchRequest("alice*)(uid=*")
	assert.Equal(t, "(uid="+ldap.EscapeFilter("alice*)(uid=*")+")", req.Filter)
	assert.NotContains(t, req.Filter, "*")
	assert.Equal(t, "dc=example,dc=org", req.BaseDN)
	assert.Equal(t, 2, req.SizeLimit)
}

func TestToEntry(t *testing.T) {
	d, err := NewLDAPDirectory(LDAPConfig{Enabled: true, Host: "localhost"}, models.SourceFreeIPA)
	require.NoError(t, err)

	tests := []struct {
		name  string
		attrs map[string][]string
		want  Entry
	}{
		{
			name:  "cn and mail",
			attrs: map[string][]string{"uid": {"alice"}, "cn": {"Alice A"}, "mail": {"alice@example.org"}},
			want:  Entry{Username: "alice", Name: "Alice A", Email: "alice@example.org", Source: models.SourceFreeIPA},
		},
		{
			name: "display name and alternate mail",
			attrs: map[string][]string{
				"uid": {"alice"}, "displayName": {"Alice"}, "mailAlternateAddress": {"a@example.org"},
			},
			want: Entry{Username: "alice", Name: "Alice", Email: "a@example.org", Source: models.SourceFreeIPA},
		},
		{
			name:  "nothing but the dn",
			attrs: map[string][]string{},
			want:  Entry{Username: "alice", Source: models.SourceFreeIPA},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ldap.NewEntry("uid=alice,cn=users,dc=example,dc=org", tt.attrs)
			assert.Equal(t, tt.want, *d.toEntry(e, "alice"))
		})
	}
}

func TestUnreachableDirectoryIsSystemError(t *testing.T) {
	d, err := NewLDAPDirectory(LDAPConfig{Enabled: true, Host: "127.0.0.1", Port: 1, Timeout: 1},
		models.SourceOpenLDAP)
	require.NoError(t, err)

	_, err = d.Lookup(context.Background(), "alice")
	require.ErrorIs(t, err, ErrAuthSystem)

	_, err = d.Authenticate(context.Background(), "alice", "pw")
	require.ErrorIs(t, err, ErrAuthSystem)

	_, err = d.Authenticate(context.Background(), "alice", "")
	require.ErrorIs(t, err, ErrBindFailed, "empty passwords never reach the server")
}
