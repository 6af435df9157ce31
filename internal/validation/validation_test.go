package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myfleet/internal/apperr"
)

type sample struct {
	Name   string  `json:"full_name" validate:"required"`
	Phone  string  `json:"phone" validate:"phone10"`
	Amount float64 `json:"amount" validate:"gte=0"`
	Kind   string  `json:"kind" validate:"omitempty,oneof=local airport"`
}

func TestStructMessages(t *testing.T) {
	tests := []struct {
		name  string
		in    sample
		field string
		msg   string
	}{
		{"missing name", sample{Phone: "9876543210"}, "full_name", "full_name is required"},
		{"short phone", sample{Name: "a", Phone: "98765"}, "phone", "phone must be exactly 10 digits"},
		{"letters in phone", sample{Name: "a", Phone: "98765abcde"}, "phone", "phone must be exactly 10 digits"},
		{"negative amount", sample{Name: "a", Phone: "9876543210", Amount: -1}, "amount", "amount must be 0 or more"},
		{"bad kind", sample{Name: "a", Phone: "9876543210", Kind: "space"}, "kind", "kind must be one of: local, airport"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, apperr.KindValidation, ae.Kind)
			assert.Equal(t, tt.field, ae.Field)
			assert.Equal(t, tt.msg, ae.Message)
		})
	}

	assert.NoError(t, Struct(sample{Name: "a", Phone: "9876543210"}))
}

func TestIsPhone(t *testing.T) {
	assert.True(t, IsPhone("9876543210"))
	assert.False(t, IsPhone("+919876543210"))
	assert.False(t, IsPhone("987654321"))
}
