package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateUsageDelta(t *testing.T) {
	assert.NoError(t, ValidateUsageDelta(decimal.Zero))
	assert.NoError(t, ValidateUsageDelta(decimal.RequireFromString("12.5")))
	assert.Error(t, ValidateUsageDelta(decimal.RequireFromString("-0.1")))
}

func TestValidateSecret(t *testing.T) {
	assert.NoError(t, ValidateSecret("connection_token", "abcDEF123-_"))
	assert.Error(t, ValidateSecret("connection_token", ""))
	assert.Error(t, ValidateSecret("connection_token", "has space"))
	assert.Error(t, ValidateSecret("connection_token", strings.Repeat("a", 65)))
}

func TestValidateCountry(t *testing.T) {
	assert.NoError(t, ValidateCountry("Zimbabwe"))
	assert.Error(t, ValidateCountry(""))
	assert.Error(t, ValidateCountry(strings.Repeat("x", 51)))
}
