// Package errors provides RFC 7807 Problem Details for HTTP APIs.
package errors

import (
	"fmt"
	"net/http"
)

// ProblemDetail represents an RFC 7807 Problem Details response.
// See: https://www.rfc-editor.org/rfc/rfc7807
type ProblemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Instance   string         `json:"instance,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension returns a copy with an additional extension property.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	ext := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		ext[k] = v
	}
	ext[key] = value
	p.Extensions = ext
	return p
}

const (
	TypeValidation     = "/problems/validation-error"
	TypeInsufficient   = "/problems/insufficient-stock"
	TypeNotFound       = "/problems/not-found"
	TypeConflict       = "/problems/conflict"
	TypeUnauthorized   = "/problems/unauthorized"
	TypeForbidden      = "/problems/forbidden"
	TypeSignature      = "/problems/invalid-signature"
	TypeReconciliation = "/problems/reconciliation-required"
	TypeUpstream       = "/problems/upstream-failure"
	TypeRateLimited    = "/problems/rate-limited"
	TypeInternal       = "/problems/internal-error"
)

var (
	ErrValidation        = ProblemDetail{Type: TypeValidation, Title: "Validation Error", Status: http.StatusBadRequest}
	// ErrInsufficientStock carries the product and quantities as extensions.
	ErrInsufficientStock = ProblemDetail{Type: TypeInsufficient, Title: "Insufficient Stock", Status: http.StatusConflict}
	ErrNotFound          = ProblemDetail{Type: TypeNotFound, Title: "Resource Not Found", Status: http.StatusNotFound}
	ErrConflict          = ProblemDetail{Type: TypeConflict, Title: "Conflict", Status: http.StatusConflict}
	ErrUnauthorized      = ProblemDetail{Type: TypeUnauthorized, Title: "Unauthorized", Status: http.StatusUnauthorized}
	ErrForbidden         = ProblemDetail{Type: TypeForbidden, Title: "Forbidden", Status: http.StatusForbidden}
	// ErrInvalidSignature never echoes verification details back to the caller.
	ErrInvalidSignature  = ProblemDetail{Type: TypeSignature, Title: "Invalid Signature", Status: http.StatusBadRequest}
	ErrReconciliation    = ProblemDetail{Type: TypeReconciliation, Title: "Reconciliation Required", Status: http.StatusConflict}
	ErrUpstream          = ProblemDetail{Type: TypeUpstream, Title: "Upstream Service Failure", Status: http.StatusBadGateway}
	ErrTooManyRequests   = ProblemDetail{Type: TypeRateLimited, Title: "Too Many Requests", Status: http.StatusTooManyRequests}
	ErrInternal          = ProblemDetail{Type: TypeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError}
)

// NewValidationProblem creates a validation error with field-level details.
func NewValidationProblem(fieldErrors map[string]string) ProblemDetail {
	return ErrValidation.WithExtension("fields", fieldErrors)
}
