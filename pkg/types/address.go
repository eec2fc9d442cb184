package types

import "strings"

// Address is the delivery address collected during checkout. State and
// postcode also feed the pricing service's shipping calculation.
type Address struct {
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"country"`
}

// HasShippingLocation reports whether enough of the address exists to
// quote shipping (state or postcode).
func (a Address) HasShippingLocation() bool {
	return strings.TrimSpace(a.State) != "" || strings.TrimSpace(a.Postcode) != ""
}

// Complete reports whether the address can be submitted for checkout.
func (a Address) Complete() bool {
	return strings.TrimSpace(a.Line1) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.State) != "" &&
		strings.TrimSpace(a.Postcode) != ""
}
