// Package telegram defines the messaging-client capability surface the call
// supervisor depends on, plus target resolution and profile mutation built
// on top of it. The concrete implementation lives in internal/engine.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// User is a messaging-platform user as reported by the client
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Client is the narrow contract against the messaging platform
type Client interface {
	// Start connects and logs in using the persisted session
	Start(ctx context.Context) error
	// Stop logs out of the transport session and releases resources
	Stop(ctx context.Context) error
	// Me returns the account this client is authenticated as
	Me(ctx context.Context) (*User, error)
	// LookupUser resolves a @username to a user
	LookupUser(ctx context.Context, username string) (*User, error)
	// ImportContact imports a phone contact and returns the matched users
	ImportContact(ctx context.Context, phone, firstName string) ([]User, error)
	// UpdateProfile overwrites the account's display name
	UpdateProfile(ctx context.Context, firstName, lastName string) error
	// SetProfilePhoto replaces the account's display photo
	SetProfilePhoto(ctx context.Context, path string) error
}

// ErrUserNotFound is returned by lookups that match no user
var ErrUserNotFound = errors.New("user not found")

// Identity is a resolved callable handle: either a numeric user ID or a
// username the call-placement step may still accept.
type Identity struct {
	UserID   int64
	Username string
}

// IsUser reports whether the identity carries a resolved numeric user ID
func (id Identity) IsUser() bool {
	return id.UserID != 0
}

func (id Identity) String() string {
	if id.UserID != 0 {
		return strconv.FormatInt(id.UserID, 10)
	}
	return id.Username
}

// UserIdentity builds an Identity from a numeric user ID
func UserIdentity(userID int64) Identity {
	return Identity{UserID: userID}
}

// UsernameIdentity builds an Identity from a username, normalizing the
// leading @.
func UsernameIdentity(username string) Identity {
	if len(username) > 0 && username[0] != '@' {
		username = "@" + username
	}
	return Identity{Username: username}
}

// EngineError is a vendor-specific failure reported by the platform client,
// kept distinct so callers can log it apart from local failures.
type EngineError struct {
	Op      string
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("telegram %s: %s", e.Op, e.Message)
}
