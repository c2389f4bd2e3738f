package enums

import "testing"

func TestCheckoutStepOrdering(t *testing.T) {
	t.Parallel()

	if !CheckoutStepAddress.Before(CheckoutStepShipping) {
		t.Fatal("address must precede shipping")
	}
	if !CheckoutStepShipping.Before(CheckoutStepPayment) {
		t.Fatal("shipping must precede payment")
	}
	if CheckoutStepComplete.Before(CheckoutStepAddress) {
		t.Fatal("complete is the terminal step")
	}
}

func TestParseCheckoutStep(t *testing.T) {
	t.Parallel()

	step, err := ParseCheckoutStep("payment")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if step != CheckoutStepPayment {
		t.Fatalf("unexpected step %q", step)
	}

	if _, err := ParseCheckoutStep("review"); err == nil {
		t.Fatal("expected error for unknown step")
	}
}

func TestUnknownStepRank(t *testing.T) {
	t.Parallel()

	if rank := CheckoutStep("review").Rank(); rank != -1 {
		t.Fatalf("expected -1, got %d", rank)
	}
}
