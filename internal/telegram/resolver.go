package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrInvalidTarget means the raw target cannot be turned into anything
	// callable (empty input, or a phone number without international format).
	ErrInvalidTarget = errors.New("invalid target")

	// ErrTargetNotResolvable means a syntactically valid phone target matched
	// no platform user.
	ErrTargetNotResolvable = errors.New("target not resolvable")
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{5,32}$`)
	nonPhoneChars   = regexp.MustCompile(`[^\d+]`)
)

// Resolver turns a free-form target string (numeric ID, @username, phone
// number) into a callable Identity.
type Resolver struct {
	client      Client
	contactName string
	logger      *slog.Logger
}

// NewResolver creates a Resolver. contactName is the display name used when
// importing phone contacts.
func NewResolver(client Client, contactName string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if contactName == "" {
		contactName = "tgcalld"
	}
	return &Resolver{client: client, contactName: contactName, logger: logger}
}

// Resolve resolves raw into an Identity. Resolution order: purely numeric
// input is a direct user ID; username-shaped input goes through a lookup and
// degrades to the username string when the lookup fails; anything else is
// treated as a phone number and imported as a contact.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Identity, error) {
	t := strings.TrimSpace(raw)
	if t == "" {
		return Identity{}, fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	if isDigits(t) {
		id, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %q", ErrInvalidTarget, raw)
		}
		return UserIdentity(id), nil
	}

	if strings.HasPrefix(t, "@") || usernamePattern.MatchString(t) {
		return r.resolveUsername(ctx, t), nil
	}

	return r.resolvePhone(ctx, t)
}

// resolveUsername looks the username up, falling back to the username string
// itself when the lookup fails: the call-placement step may still accept it.
func (r *Resolver) resolveUsername(ctx context.Context, t string) Identity {
	username := t
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}

	user, err := r.client.LookupUser(ctx, username)
	if err != nil || user == nil || user.ID == 0 {
		r.logger.Debug("username lookup failed, using username directly",
			"username", username, "error", err)
		return UsernameIdentity(username)
	}
	return UserIdentity(user.ID)
}

func (r *Resolver) resolvePhone(ctx context.Context, t string) (Identity, error) {
	digits := nonPhoneChars.ReplaceAllString(t, "")
	if strings.HasPrefix(digits, "00") {
		digits = "+" + digits[2:]
	}
	if !strings.HasPrefix(digits, "+") {
		return Identity{}, fmt.Errorf(
			"%w: phone numbers must be in international format, e.g. +393331112233", ErrInvalidTarget)
	}

	users, err := r.client.ImportContact(ctx, digits, r.contactName)
	if err != nil {
		return Identity{}, fmt.Errorf("importing contact %s: %w", digits, err)
	}
	if len(users) == 0 {
		return Identity{}, fmt.Errorf("%w: could not resolve phone number %s", ErrTargetNotResolvable, digits)
	}
	return UserIdentity(users[0].ID), nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
