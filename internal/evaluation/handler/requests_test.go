package handler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "txguard/pkg/domain-errors"
)

func TestCheckMagnitude(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		errMsg string
	}{
		{name: "cents", value: "1000.00"},
		{name: "sub cent", value: "0.015"},
		{name: "eighteen integer digits", value: "999999999999999999.99999999"},
		{name: "exponent within range", value: "5e17"},
		{name: "nineteen integer digits", value: "1000000000000000000", errMsg: "at most 18 integer digits"},
		{name: "positive exponent", value: "1e20000000", errMsg: "at most 18 integer digits"},
		{name: "negative exponent", value: "1e-20000000", errMsg: "at most 8 decimal places"},
		{name: "nine decimal places", value: "0.000000001", errMsg: "at most 8 decimal places"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkMagnitude("amount", decimal.RequireFromString(tt.value))
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
