package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"casepulse/pkg/contracts/domain"
)

func TestAmountCell(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{150, "150.00"},
		{13.4, "13.40"},
		{1234.5, "1234.50"},
		{-45.1, "-45.10"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, amountCell(tt.in))
	}
}

func TestCells(t *testing.T) {
	assert.Equal(t, "3", monthCell(domain.MonthPtr(3)))
	assert.Equal(t, "Unknown", monthCell(nil))

	assert.Nil(t, optionalCell(domain.Optional{}))
	assert.Equal(t, 2.5, optionalCell(domain.Optional{Value: 2.5, Valid: true}))

	assert.Equal(t, "Saint", truncateRunes("Saint Mary", 5))
	assert.Equal(t, "مستشفى", truncateRunes("مستشفى الكرخ", 6))
	assert.Equal(t, "A", truncateRunes("A", 31))
}
