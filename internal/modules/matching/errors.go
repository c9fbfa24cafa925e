package matching

import (
	"errors"
	"net/http"
	"strings"

	"github.com/yungbote/solace-backend/internal/platform/apierr"
)

var (
	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("matching validation")
	// ErrNotFound indicates an unknown match or content id.
	ErrNotFound = errors.New("matching not found")
	// ErrForbidden indicates the actor is not a party to the record.
	ErrForbidden = errors.New("matching forbidden")
	// ErrInvalidTransition indicates the record is not in a state that allows the action.
	ErrInvalidTransition = errors.New("matching invalid transition")
)

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func NotFoundError(msg string) error {
	return errors.Join(ErrNotFound, errors.New(strings.TrimSpace(msg)))
}

func ForbiddenError(msg string) error {
	return errors.Join(ErrForbidden, errors.New(strings.TrimSpace(msg)))
}

func TransitionError(msg string) error {
	return errors.Join(ErrInvalidTransition, errors.New(strings.TrimSpace(msg)))
}

// ToAPIError maps matching failures onto HTTP statuses. Unknown errors become 500.
func ToAPIError(err error) *apierr.Error {
	if err == nil {
		return nil
	}
	if ae, ok := apierr.As(err); ok {
		return ae
	}
	switch {
	case errors.Is(err, ErrValidation):
		return apierr.New(http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrForbidden):
		return apierr.New(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, ErrInvalidTransition):
		return apierr.New(http.StatusConflict, "invalid_transition", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal_error", err)
	}
}
