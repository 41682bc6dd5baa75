package service

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/visit-intake-api/internal/models"
	"github.com/noah-isme/visit-intake-api/internal/repository"
	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
)

// validationError converts validator output into VALIDATION_ERROR with a field -> rule map.
func validationError(err error, message string) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[lowerFirst(fe.Field())] = fe.Tag()
	}
	wrapped := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	return appErrors.WithDetails(wrapped, map[string]interface{}{"fields": fields})
}

// storeError maps repository failures onto API errors.
func storeError(err error, notFound, internal string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	if errors.Is(err, repository.ErrStatusChanged) {
		return appErrors.Clone(appErrors.ErrConflict, "request status changed concurrently, reload and retry")
	}
	var full *repository.SlotFullError
	if errors.As(err, &full) {
		return admissionError(full)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func authorize(caller *models.JWTClaims, roles ...models.UserRole) error {
	if caller == nil {
		return appErrors.ErrUnauthorized
	}
	if !caller.HasRole(roles...) {
		return appErrors.Clone(appErrors.ErrForbidden, "role not allowed for this request type")
	}
	return nil
}

func optionalString(raw string) *string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	return &value
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
