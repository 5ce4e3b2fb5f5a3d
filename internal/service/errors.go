package service

import (
	"github.com/pkg/errors"

	"github.com/iliyamo/user-auth-service/internal/repository"
)

// Error kinds exposed to the HTTP layer. Every token or credential failure
// collapses into ErrUnauthenticated.
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrValidation      = errors.New("invalid request")
)

// fromRepo maps repository sentinels onto service kinds.
func fromRepo(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrConflict):
		return errors.Wrap(ErrConflict, op)
	case errors.Is(err, repository.ErrUnknownField):
		return errors.Wrap(ErrValidation, err.Error())
	default:
		return errors.Wrap(err, op)
	}
}
