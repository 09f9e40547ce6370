package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/order-engine/internal/domains/inventory/domain"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

func mapError(index int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrMissingProductID) ||
		errors.Is(err, domain.ErrMissingName) ||
		errors.Is(err, domain.ErrMissingPrice) ||
		errors.Is(err, domain.ErrNegativePrice) ||
		errors.Is(err, domain.ErrQuantityRange) ||
		errors.Is(err, domain.ErrUnknownSize) {
		return fmt.Errorf("%w: item %d: %w", failure.ErrValidation, index, err)
	}
	return err
}
