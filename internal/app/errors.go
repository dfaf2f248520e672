package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

var (
	errForbidden          = domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	errNoteNotFound       = domainError(http.StatusNotFound, "NOT_FOUND", "Note not found", nil)
	errGroupNotFound      = domainError(http.StatusNotFound, "NOT_FOUND", "Group not found", nil)
	errAIUnavailable      = domainError(http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI provider not configured", nil)
	errInvalidPagination  = domainError(http.StatusBadRequest, "INVALID_PAGINATION", "Invalid pagination parameters", nil)
	errContentUnavailable = domainError(http.StatusNotFound, "CONTENT_UNAVAILABLE", "Note content is unavailable", nil)
)

func malformedContent(err error) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "CONTENT_MALFORMED", "Note content is not a valid document", map[string]any{"reason": err.Error()})
}
