package domain

import "math"

// Payment type codes used by the TLC source.
const (
	PaymentCreditCard = 1
	PaymentCash       = 2
	PaymentNoCharge   = 3
	PaymentDispute    = 4
	PaymentUnknown    = 5
)

var paymentNames = map[int]string{
	PaymentCreditCard: "Credit Card",
	PaymentCash:       "Cash",
	PaymentNoCharge:   "No Charge",
	PaymentDispute:    "Dispute",
	PaymentUnknown:    "Unknown",
}

// PaymentName maps a payment code to its display name.
// Codes outside the table (and nulls) have no name.
func PaymentName(code float64) (string, bool) {
	if math.IsNaN(code) || code != math.Trunc(code) {
		return "", false
	}
	name, ok := paymentNames[int(code)]
	return name, ok
}
