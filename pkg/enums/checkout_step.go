package enums

import "fmt"

// CheckoutStep tracks progress through the checkout flow. Steps only move
// forward within a session; there is no direct jump past an unfinished step.
type CheckoutStep string

const (
	CheckoutStepAddress  CheckoutStep = "address"
	CheckoutStepShipping CheckoutStep = "shipping"
	CheckoutStepPayment  CheckoutStep = "payment"
	CheckoutStepComplete CheckoutStep = "complete"
)

var checkoutStepOrder = []CheckoutStep{
	CheckoutStepAddress,
	CheckoutStepShipping,
	CheckoutStepPayment,
	CheckoutStepComplete,
}

// String implements fmt.Stringer.
func (s CheckoutStep) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutStep.
func (s CheckoutStep) IsValid() bool {
	for _, candidate := range checkoutStepOrder {
		if candidate == s {
			return true
		}
	}
	return false
}

// Rank returns the position of the step in the flow, or -1 for unknown steps.
func (s CheckoutStep) Rank() int {
	for i, candidate := range checkoutStepOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Before reports whether s precedes other in the flow.
func (s CheckoutStep) Before(other CheckoutStep) bool {
	return s.Rank() < other.Rank()
}

// ParseCheckoutStep converts raw input into a CheckoutStep.
func ParseCheckoutStep(value string) (CheckoutStep, error) {
	for _, candidate := range checkoutStepOrder {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout step %q", value)
}
