package domain

import "maps"

// MethodKind identifies a payment method routed through the gateway.
type MethodKind string

// Payment method kinds handled by the gateway.
const (
	MethodTrxps        MethodKind = "trxps"
	MethodBankTransfer MethodKind = "banktransfer"
	MethodCreditCard   MethodKind = "creditcard"
	MethodPayPal       MethodKind = "paypal"
	MethodSofort       MethodKind = "sofort"
	MethodPayDirekt    MethodKind = "paydirekt"
)

// MethodDescriptor is the static description of a method kind.
type MethodDescriptor struct {
	Kind         MethodKind        `json:"kind"`
	Name         map[string]string `json:"name"`
	Description  map[string]string `json:"description"`
	GatewayValue string            `json:"gateway_value,omitempty"`
}

var methodDescriptors = []MethodDescriptor{
	{
		Kind:        MethodTrxps,
		Name:        map[string]string{"en-GB": "Trxps", "de-DE": "Trxps"},
		Description: map[string]string{"en-GB": "Pay with Trxps", "de-DE": "Bezahlen mit Trxps"},
	},
	{
		Kind:         MethodBankTransfer,
		Name:         map[string]string{"en-GB": "Bank transfer", "de-DE": "Überweisung"},
		Description:  map[string]string{"en-GB": "Pay by bank transfer via Trxps", "de-DE": "Per Überweisung über Trxps bezahlen"},
		GatewayValue: "banktransfer",
	},
	{
		Kind:         MethodCreditCard,
		Name:         map[string]string{"en-GB": "Credit card", "de-DE": "Kreditkarte"},
		Description:  map[string]string{"en-GB": "Pay by credit card via Trxps", "de-DE": "Per Kreditkarte über Trxps bezahlen"},
		GatewayValue: "creditcard",
	},
	{
		Kind:         MethodPayPal,
		Name:         map[string]string{"en-GB": "PayPal", "de-DE": "PayPal"},
		Description:  map[string]string{"en-GB": "Pay with PayPal via Trxps", "de-DE": "Mit PayPal über Trxps bezahlen"},
		GatewayValue: "paypal",
	},
	{
		Kind:         MethodSofort,
		Name:         map[string]string{"en-GB": "SOFORT", "de-DE": "SOFORT"},
		Description:  map[string]string{"en-GB": "Pay with SOFORT via Trxps", "de-DE": "Mit SOFORT über Trxps bezahlen"},
		GatewayValue: "sofort",
	},
	{
		Kind:        MethodPayDirekt,
		Name:        map[string]string{"en-GB": "paydirekt", "de-DE": "paydirekt"},
		Description: map[string]string{"en-GB": "Pay with paydirekt via Trxps", "de-DE": "Mit paydirekt über Trxps bezahlen"},
	},
}

// Methods returns the descriptors of all method kinds in display order.
func Methods() []MethodDescriptor {
	out := make([]MethodDescriptor, len(methodDescriptors))
	for i, d := range methodDescriptors {
		out[i] = d.clone()
	}
	return out
}

// Describe returns the descriptor of k.
func (k MethodKind) Describe() (MethodDescriptor, bool) {
	for _, d := range methodDescriptors {
		if d.Kind == k {
			return d.clone(), true
		}
	}
	return MethodDescriptor{}, false
}

func (d MethodDescriptor) clone() MethodDescriptor {
	d.Name = maps.Clone(d.Name)
	d.Description = maps.Clone(d.Description)
	return d
}

// IsGatewayMethod reports whether k is paid through the gateway.
func (k MethodKind) IsGatewayMethod() bool {
	_, ok := k.Describe()
	return ok
}
