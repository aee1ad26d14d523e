package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/lumahealth/luma-backend/internal/pkg/errors"
)

// statusFromError maps service sentinel errors onto HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
