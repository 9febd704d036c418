package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteCheckout_Outcome(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Outcome
	}{
		{"paid flag", `{"id":"c1","paid":true}`, OutcomePaid},
		{"paid wins over canceled", `{"id":"c1","paid":true,"canceled":true}`, OutcomePaid},
		{"canceled flag", `{"id":"c1","canceled":true}`, OutcomeCanceled},
		{"british flag", `{"id":"c1","cancelled":true}`, OutcomeCanceled},
		{"british status", `{"id":"c1","status":"Cancelled"}`, OutcomeCanceled},
		{"paid status", `{"id":"c1","status":"paid"}`, OutcomePaid},
		{"open", `{"id":"c1","status":"pending"}`, OutcomeOpen},
		{"nothing set", `{"id":"c1"}`, OutcomeOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c RemoteCheckout
			require.NoError(t, json.Unmarshal([]byte(tt.body), &c))
			assert.Equal(t, tt.want, c.Outcome())
		})
	}
}

func TestRemoteCheckout_UnmarshalKeepsFields(t *testing.T) {
	var c RemoteCheckout
	body := `{"id":"co_1","reference":"ORD1001","payment_url":"https://pay.example/co_1","status":"CANCELLED","amount":5000,"currency":"EUR"}`
	require.NoError(t, json.Unmarshal([]byte(body), &c))

	assert.Equal(t, "co_1", c.ID)
	assert.Equal(t, "ORD1001", c.Reference)
	assert.Equal(t, "https://pay.example/co_1", c.PaymentURL)
	assert.Equal(t, "canceled", c.Status)
}

func TestRemoteCheckout_UnmarshalIgnoresAmountFormat(t *testing.T) {
	for _, amount := range []string{`5000`, `50.0`, `"50.00"`, `{"value":"50.00","currency":"EUR"}`} {
		var c RemoteCheckout
		body := `{"id":"co_1","paid":true,"amount":` + amount + `}`
		require.NoError(t, json.Unmarshal([]byte(body), &c), amount)
		assert.Equal(t, OutcomePaid, c.Outcome())
	}
}

func TestSettings_Active(t *testing.T) {
	s := Settings{LiveAPIKey: "live_key_1234", TestAPIKey: "test_key_5678", LiveShopID: "L", TestShopID: "T", TestMode: true}
	assert.Equal(t, "test_key_5678", s.ActiveAPIKey())
	assert.Equal(t, "T", s.ActiveShopID())

	s.TestMode = false
	assert.Equal(t, "live_key_1234", s.ActiveAPIKey())
	assert.Equal(t, "L", s.ActiveShopID())

	r := s.Redacted()
	assert.Equal(t, "****1234", r.LiveAPIKey)
	assert.Equal(t, "****5678", r.TestAPIKey)
	assert.Equal(t, "live_key_1234", s.LiveAPIKey)
}

func TestMethodKind_Describe(t *testing.T) {
	d, ok := MethodCreditCard.Describe()
	require.True(t, ok)
	assert.Equal(t, "Kreditkarte", d.Name["de-DE"])
	assert.Equal(t, "creditcard", d.GatewayValue)

	assert.False(t, MethodKind("invoice").IsGatewayMethod())
	assert.Len(t, Methods(), 6)
}

func TestMethods_ReturnsIndependentCopies(t *testing.T) {
	got := Methods()
	got[0].Name["en-GB"] = "changed"
	got[0].Description = nil

	d, ok := got[0].Kind.Describe()
	require.True(t, ok)
	assert.Equal(t, "Trxps", d.Name["en-GB"])
	assert.Equal(t, "Pay with Trxps", d.Description["en-GB"])

	d.Name["de-DE"] = "changed"
	assert.Equal(t, "Trxps", Methods()[0].Name["de-DE"])
}
