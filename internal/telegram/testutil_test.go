package telegram

import (
	"context"
	"errors"
)

// fakeClient implements Client for resolver and profile tests
type fakeClient struct {
	me            *User
	meErr         error
	users         map[string]*User // keyed by @username
	lookupErr     error
	contacts      map[string][]User // keyed by phone
	importErr     error
	profileErr    error
	photoErr      error
	updatedFirst  string
	updatedLast   string
	profileCalls  int
	photoPath     string
	importedPhone string
	importedName  string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		me:       &User{ID: 100, FirstName: "Home", LastName: "Assistant"},
		users:    make(map[string]*User),
		contacts: make(map[string][]User),
	}
}

func (c *fakeClient) Start(ctx context.Context) error { return nil }
func (c *fakeClient) Stop(ctx context.Context) error  { return nil }

func (c *fakeClient) Me(ctx context.Context) (*User, error) {
	if c.meErr != nil {
		return nil, c.meErr
	}
	return c.me, nil
}

func (c *fakeClient) LookupUser(ctx context.Context, username string) (*User, error) {
	if c.lookupErr != nil {
		return nil, c.lookupErr
	}
	user, ok := c.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (c *fakeClient) ImportContact(ctx context.Context, phone, firstName string) ([]User, error) {
	c.importedPhone = phone
	c.importedName = firstName
	if c.importErr != nil {
		return nil, c.importErr
	}
	return c.contacts[phone], nil
}

func (c *fakeClient) UpdateProfile(ctx context.Context, firstName, lastName string) error {
	if c.profileErr != nil {
		return c.profileErr
	}
	c.profileCalls++
	c.updatedFirst = firstName
	c.updatedLast = lastName
	return nil
}

func (c *fakeClient) SetProfilePhoto(ctx context.Context, path string) error {
	if c.photoErr != nil {
		return c.photoErr
	}
	c.photoPath = path
	return nil
}

var errNetwork = errors.New("network unreachable")
