// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"beef-back/internal/apperrors"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrInvalidCredentials), errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the error text safe to show a client. Storage errors are
// reduced to a fixed message; upstream errors keep their detail.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrPersistence):
		return "결과 저장 처리 중 오류가 발생했습니다."
	case statusFor(err) == http.StatusInternalServerError && !errors.Is(err, apperrors.ErrUpstream):
		return "요청 처리 중 오류가 발생했습니다."
	default:
		return err.Error()
	}
}
