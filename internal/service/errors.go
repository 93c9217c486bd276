package service

import (
	"errors"

	"github.com/spec-kit/helpdesk-router/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-router/pkg/util/errorutil"
)

// storeError wraps a repository failure as STORE_UNAVAILABLE unless it is
// already a domain error.
func storeError(op string, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewStoreError(op, err)
}

// lookupError maps a failed lookup to NOT_FOUND or STORE_UNAVAILABLE.
func lookupError(resource, key, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{key: id})
	}
	return storeError("get "+resource, err)
}
