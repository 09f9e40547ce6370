// Package failure defines the error taxonomy shared by the order lifecycle contexts.
//
// Every error that crosses a bounded-context boundary wraps exactly one of the
// sentinel kinds below so transports can classify it with errors.Is.
package failure

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or out-of-range input. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrStock marks insufficient inventory for a requested quantity.
	ErrStock = errors.New("insufficient stock")
	// ErrAuthorization marks a missing identity or an ownership mismatch.
	ErrAuthorization = errors.New("not authorized")
	// ErrForbidden is the ownership-mismatch flavour of ErrAuthorization.
	ErrForbidden = fmt.Errorf("%w: forbidden", ErrAuthorization)
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrSignature marks an inbound callback whose signature does not verify.
	ErrSignature = errors.New("invalid signature")
	// ErrReconciliation marks a confirmed payment whose fulfillment cannot proceed automatically.
	ErrReconciliation = errors.New("reconciliation required")
	// ErrExternalService marks a failing collaborator (carrier, checkout provider, notifier).
	ErrExternalService = errors.New("external service failure")
	// ErrConflict marks an operation rejected by the current state of the resource.
	ErrConflict = errors.New("conflict")
)

// Validation wraps ErrValidation with a formatted detail.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrConflict with a formatted detail.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound for the named resource.
func NotFound(resource string, id any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, resource, id)
}

// Unauthorized wraps ErrAuthorization with a formatted detail.
func Unauthorized(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

// Forbidden wraps ErrForbidden, which also matches ErrAuthorization.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

// External wraps ErrExternalService, keeping the underlying cause in the chain.
func External(service string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrExternalService, service, err)
}

// StockError reports the first product that could not satisfy a requested quantity.
type StockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("insufficient stock for product %s: requested %d", e.ProductID, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Is lets errors.Is(err, ErrStock) match a *StockError.
func (e *StockError) Is(target error) bool {
	return target == ErrStock
}

// Stock builds a StockError. Pass available < 0 when the live level is unknown.
func Stock(productID string, requested, available int) error {
	return &StockError{ProductID: productID, Requested: requested, Available: available}
}

// Kind returns the sentinel kind wrapped by err, or nil when err is unclassified.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidation, ErrStock, ErrAuthorization, ErrNotFound,
		ErrSignature, ErrReconciliation, ErrExternalService, ErrConflict,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
