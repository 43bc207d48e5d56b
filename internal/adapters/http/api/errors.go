package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/emberlink/ember/internal/adapters/repository"
	"github.com/emberlink/ember/internal/domain/boost"
	"github.com/emberlink/ember/internal/domain/settlement"
)

// Sentinel kinds for request validation.
var (
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("not found")
)

// Wrap annotates err with a handler context.
func Wrap(err error, msg string) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// NewKind builds a request error of the given sentinel kind.
func NewKind(kind error, msg string) error {
	return fmt.Errorf("%w: %s", kind, msg)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, boost.ErrPurchaseInvalid),
		errors.Is(err, settlement.ErrContactRequired):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrEntryNotFound),
		errors.Is(err, settlement.ErrMonthNotSettled):
		return http.StatusNotFound
	case errors.Is(err, settlement.ErrNotEligible):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
