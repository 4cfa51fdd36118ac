package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSome(t *testing.T) {
	tests := []struct {
		name      string
		input     float64
		wantValid bool
	}{
		{name: "finite value", input: 12.5, wantValid: true},
		{name: "zero", input: 0, wantValid: true},
		{name: "NaN becomes absent", input: math.NaN(), wantValid: false},
		{name: "positive infinity becomes absent", input: math.Inf(1), wantValid: false},
		{name: "negative infinity becomes absent", input: math.Inf(-1), wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Some(tt.input)
			assert.Equal(t, tt.wantValid, got.Valid)
			if tt.wantValid {
				assert.Equal(t, tt.input, got.Value)
			}
		})
	}
}

func TestOptional_Round(t *testing.T) {
	assert.Equal(t, Some(75.13), Some(75.125).Round(2))
	assert.Equal(t, Some(33.33), Some(100.0/3).Round(2))
	assert.False(t, None().Round(2).Valid)
}

func TestOptional_String(t *testing.T) {
	assert.Equal(t, "75.00", Some(75).String())
	assert.Equal(t, "n/a", None().String())
}

func TestOptional_Or(t *testing.T) {
	assert.Equal(t, 3.0, Some(3).Or(9))
	assert.Equal(t, 9.0, None().Or(9))
}

func TestOptional_JSON(t *testing.T) {
	type wrapper struct {
		A Optional `json:"a"`
		B Optional `json:"b"`
	}

	data, err := json.Marshal(wrapper{A: Some(1.5), B: None()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(data))

	var back wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"a":null,"b":2}`), &back))
	assert.False(t, back.A.Valid)
	assert.Equal(t, Some(2), back.B)
}

func TestGenderChart_MaxCount(t *testing.T) {
	chart := GenderChart{Panels: []GenderPanel{
		{Hospital: "A", Counts: []GenderCount{{Gender: "F", Count: 3}, {Gender: "M", Count: 1}}},
		{Hospital: "B", Counts: []GenderCount{{Gender: "M", Count: 7}}},
		{Hospital: "C"},
	}}
	assert.Equal(t, 7, chart.MaxCount())
	assert.Equal(t, 0, GenderChart{}.MaxCount())
}
