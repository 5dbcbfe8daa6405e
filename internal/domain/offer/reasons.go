package offer

import (
	"errors"
	"strings"
)

var (
	ErrReasonRequired       = errors.New("offer: rejection reason is required")
	ErrReasonUnknown        = errors.New("offer: unknown rejection reason")
	ErrReasonDetailRequired = errors.New("offer: rejection detail is required for \"Other\"")
)

// Reason is one of the enumerated rejection reasons a buyer picks from.
type Reason string

const (
	ReasonPriceTooHigh    Reason = "Price too high"
	ReasonSpecsMismatch   Reason = "Does not meet specifications"
	ReasonDeliveryTooLong Reason = "Delivery time too long"
	ReasonMissingInfo     Reason = "Missing information/photos"
	ReasonPoorCondition   Reason = "Product in poor condition"
	ReasonOther           Reason = "Other"
)

// Reasons lists the choices in presentation order.
var Reasons = []Reason{
	ReasonPriceTooHigh,
	ReasonSpecsMismatch,
	ReasonDeliveryTooLong,
	ReasonMissingInfo,
	ReasonPoorCondition,
	ReasonOther,
}

func (r Reason) Valid() bool {
	for _, known := range Reasons {
		if r == known {
			return true
		}
	}
	return false
}

// ResolveReason turns the picked reason plus optional free text into the
// string stored on the offer. "Other" requires non-empty detail; every other
// reason ignores it.
func ResolveReason(reason Reason, detail string) (string, error) {
	trimmed := Reason(strings.TrimSpace(string(reason)))
	if trimmed == "" {
		return "", ErrReasonRequired
	}
	if !trimmed.Valid() {
		return "", ErrReasonUnknown
	}
	if trimmed == ReasonOther {
		text := strings.TrimSpace(detail)
		if text == "" {
			return "", ErrReasonDetailRequired
		}
		return text, nil
	}
	return string(trimmed), nil
}
