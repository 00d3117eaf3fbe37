package call

import (
	"errors"
	"fmt"
	"strings"

	"tgcalld/internal/telegram"
)

var (
	// ErrCallInProgress is returned when a call request arrives while a
	// previous call is still running.
	ErrCallInProgress = errors.New("a call is already in progress")

	// ErrMissingTarget is returned when neither the request nor the
	// configuration names a target.
	ErrMissingTarget = errors.New("missing target")

	// ErrMissingMessage is returned when the call request has no message
	ErrMissingMessage = errors.New("missing message")

	// ErrNotAuthenticated is returned when no persisted session file exists
	ErrNotAuthenticated = errors.New("telegram is not authenticated yet (missing session file)")

	// ErrSelfCall is returned when the resolved identity is the caller itself
	ErrSelfCall = errors.New("cannot place a call to yourself")
)

// UnsupportedLanguageError is returned for language codes outside the
// supported set, carrying a typo-correction suggestion when one is known.
type UnsupportedLanguageError struct {
	Language   string
	Suggestion string
}

func (e *UnsupportedLanguageError) Error() string {
	supported := strings.Join(SupportedLanguages, ", ")
	if e.Suggestion != "" {
		return fmt.Sprintf("unsupported language %q, did you mean %q? supported: %s",
			e.Language, e.Suggestion, supported)
	}
	return fmt.Sprintf("unsupported language %q, supported: %s", e.Language, supported)
}

// ConnectError means the call never reached a connected state within the
// ring deadline, or hit a terminal transport signal while waiting.
type ConnectError struct {
	RawState string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("call did not connect (state=%s)", e.RawState)
}

// IsValidationError reports whether err is a user-facing validation failure
// rather than a runtime call failure.
func IsValidationError(err error) bool {
	var langErr *UnsupportedLanguageError
	return errors.Is(err, ErrCallInProgress) ||
		errors.Is(err, ErrMissingTarget) ||
		errors.Is(err, ErrMissingMessage) ||
		errors.Is(err, ErrSelfCall) ||
		errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, telegram.ErrInvalidTarget) ||
		errors.Is(err, telegram.ErrTargetNotResolvable) ||
		errors.As(err, &langErr)
}

// IsConnectError reports whether err is an expected call failure (timeout,
// declined, busy) rather than a bug.
func IsConnectError(err error) bool {
	var connErr *ConnectError
	return errors.As(err, &connErr)
}
