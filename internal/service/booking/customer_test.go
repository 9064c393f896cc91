package booking_test

import (
	"testing"

	"github.com/kirinyoku/tix-checkout/internal/domain"
	"github.com/kirinyoku/tix-checkout/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCustomer(t *testing.T) {
	valid := domain.CustomerInfo{Name: " Noor ", Email: "Noor@Example.com", Phone: "+965 5555-1234"}

	got, err := booking.ValidateCustomer(valid)
	require.NoError(t, err)
	assert.Equal(t, domain.CustomerInfo{Name: "Noor", Email: "noor@example.com", Phone: "+96555551234"}, got)

	tests := []struct {
		name  string
		info  domain.CustomerInfo
		field string
	}{
		{name: "missing name", info: domain.CustomerInfo{Email: "a@b.co", Phone: "55551234"}, field: "name"},
		{name: "missing email", info: domain.CustomerInfo{Name: "A", Phone: "55551234"}, field: "email"},
		{name: "bad email", info: domain.CustomerInfo{Name: "A", Email: "not-an-email", Phone: "55551234"}, field: "email"},
		{name: "two at signs", info: domain.CustomerInfo{Name: "A", Email: "a@@b.co", Phone: "55551234"}, field: "email"},
		{name: "missing phone", info: domain.CustomerInfo{Name: "A", Email: "a@b.co"}, field: "phone"},
		{name: "short phone", info: domain.CustomerInfo{Name: "A", Email: "a@b.co", Phone: "123"}, field: "phone"},
		{name: "letters in phone", info: domain.CustomerInfo{Name: "A", Email: "a@b.co", Phone: "5555abcd"}, field: "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := booking.ValidateCustomer(tt.info)
			require.ErrorIs(t, err, booking.ErrInvalidCustomerInfo)

			var ce booking.CustomerInfoError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}
