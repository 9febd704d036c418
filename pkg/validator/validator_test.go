package validator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingsRequest struct {
	LiveAPIKey string `json:"live_api_key" validate:"max=128"`
	Currency   string `json:"currency" validate:"omitempty,iso4217"`
	Mode       string `json:"mode" validate:"required,oneof=live test"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(settingsRequest{Currency: "EUR", Mode: "test"})
	assert.NoError(t, err)
}

func TestValidate_FieldErrors(t *testing.T) {
	err := Validate(settingsRequest{Currency: "EURO"})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))
	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["Mode"])
	assert.Equal(t, "must be an ISO 4217 currency code", fields["Currency"])
	assert.Contains(t, err.Error(), "field 'Mode' is required")
}

func TestVar_HTTPURL(t *testing.T) {
	assert.NoError(t, Var("https://shop.example.com/checkout/finish?orderId=1", "required,http_url"))

	err := Var("javascript:alert(1)", "required,http_url")
	require.Error(t, err)
	assert.Equal(t, "value must be a valid URL", err.Error())

	assert.Error(t, Var("", "required,http_url"))
}

func TestDecodeAndValidate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"mode":"live"}`))
	var dst settingsRequest
	require.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, "live", dst.Mode)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err := DecodeAndValidate(req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
