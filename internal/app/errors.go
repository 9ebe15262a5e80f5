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

func errProgramNotFound(programID string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", "Program not found", map[string]any{"programId": programID})
}

func errSessionNotFound(code string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", "Session not found", map[string]any{"code": code})
}

func errLoginRejected(message string) *DomainError {
	return domainError(http.StatusUnauthorized, "LOGIN_REJECTED", message, nil)
}

func errRosterUnavailable() *DomainError {
	return domainError(http.StatusBadGateway, "ROSTER_UNAVAILABLE", "Could not reach the roster service", nil)
}

func errCatalogueUnavailable() *DomainError {
	return domainError(http.StatusServiceUnavailable, "CATALOGUE_UNAVAILABLE", "Catalogue has not been loaded", nil)
}

func errValidation(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}
