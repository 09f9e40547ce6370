package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/order-engine/internal/domains/orders/domain"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrMissingBuyer) ||
		errors.Is(err, domain.ErrNoItems) ||
		errors.Is(err, domain.ErrInvalidItem) ||
		errors.Is(err, domain.ErrInvalidAddress) ||
		errors.Is(err, domain.ErrInvalidPayment) ||
		errors.Is(err, domain.ErrInvalidStatus) ||
		errors.Is(err, domain.ErrAmountMismatch) ||
		errors.Is(err, domain.ErrNegativeDeliveryFee) {
		return fmt.Errorf("%w: %w", failure.ErrValidation, err)
	}
	if errors.Is(err, ports.ErrNotFound) {
		return fmt.Errorf("%w: %w", failure.ErrNotFound, err)
	}
	return err
}
