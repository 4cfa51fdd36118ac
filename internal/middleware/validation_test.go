package middleware

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "casepulse/internal/errors"
	"casepulse/internal/shared/testutil"
	v1 "casepulse/pkg/contracts/api/v1"
)

func TestValidator_ValidateStruct(t *testing.T) {
	tests := []struct {
		name       string
		input      interface{}
		wantFields []string
	}{
		{
			name:  "valid report request",
			input: v1.ReportRequest{Hospitals: []string{"St. Mary", ""}, Explicit: true},
		},
		{
			name:  "empty report request",
			input: v1.ReportRequest{},
		},
		{
			name:       "control characters",
			input:      v1.ReportRequest{Hospitals: []string{"ok", "bad\x00name"}},
			wantFields: []string{"hospital[1]"},
		},
		{
			name:       "name too long",
			input:      v1.ReportRequest{Hospitals: []string{strings.Repeat("h", 201)}},
			wantFields: []string{"hospital[0]"},
		},
		{
			name:  "valid chart request",
			input: v1.ChartRequest{Chart: "trend", Format: "svg"},
		},
		{
			name:       "unknown chart and format",
			input:      v1.ChartRequest{Chart: "pie", Format: "gif"},
			wantFields: []string{"chart", "format"},
		},
		{
			name:       "missing chart",
			input:      v1.ChartRequest{Format: "png"},
			wantFields: []string{"chart"},
		},
	}

	logger, _ := testutil.NewTestLogger(t)
	v := NewValidator(logger)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok)
			fields := make([]string, 0, len(details.Errors))
			for _, fe := range details.Errors {
				fields = append(fields, fe.Field)
				assert.NotEmpty(t, fe.Message)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestValidator_Messages(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewValidator(logger)

	err := v.ValidateStruct(v1.ChartRequest{Chart: "pie", Format: "png"})
	require.Error(t, err)

	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	details := apiErr.Details.(apierrors.ValidationErrors)
	require.Len(t, details.Errors, 1)
	assert.Equal(t, "chart must be one of: trend, gender", details.Errors[0].Message)
}
