package auth

import (
	"context"
	"sync"

	"github.com/nita-portal/nita/internal/db/models"
)

type fakeUser struct {
	password string
	entry    Entry
}

// fakeDirectory is an in-memory Directory.
type fakeDirectory struct {
	mu     sync.Mutex
	source models.UserSource
	users  map[string]fakeUser
	fault  error
	calls  int
}

func newFakeDirectory(source models.UserSource) *fakeDirectory {
	return &fakeDirectory{source: source, users: map[string]fakeUser{}}
}

func (f *fakeDirectory) add(username, password, name, email string) *fakeDirectory {
	f.users[username] = fakeUser{
		password: password,
		entry:    Entry{Username: username, Name: name, Email: email, Source: f.source},
	}

	return f
}

func (f *fakeDirectory) Source() models.UserSource { return f.source }

func (f *fakeDirectory) Lookup(_ context.Context, username string) (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++

	if f.fault != nil {
		return nil, f.fault
	}

	u, ok := f.users[username]
	if !ok {
		return nil, ErrDirectoryUserNotFound
	}

	e := u.entry

	return &e, nil
}

func (f *fakeDirectory) Authenticate(ctx context.Context, username, password string) (*Entry, error) {
	e, err := f.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	if f.users[username].password != password {
		return nil, ErrBindFailed
	}

	return e, nil
}
