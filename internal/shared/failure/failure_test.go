package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockErrorMatchesKind(t *testing.T) {
	err := fmt.Errorf("commit: %w", Stock("p-1", 3, 1))

	require.ErrorIs(t, err, ErrStock)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p-1", stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Contains(t, err.Error(), "available 1")
}

func TestKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"validation", Validation("quantity %d out of range", 120), ErrValidation},
		{"not found", NotFound("order", "o-1"), ErrNotFound},
		{"external keeps cause", External("carrier", errors.New("timeout")), ErrExternalService},
		{"conflict", Conflict("order already paid"), ErrConflict},
		{"unclassified", errors.New("boom"), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Kind(tc.err))
		})
	}
}

func TestForbiddenIsAuthorization(t *testing.T) {
	err := Forbidden("order %s belongs to another buyer", "o-1")

	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, ErrAuthorization)
	assert.NotErrorIs(t, Unauthorized("token missing"), ErrForbidden)
}
