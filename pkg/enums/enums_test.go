package enums

import "testing"

func TestOrderStatusLabel(t *testing.T) {
	if OrderStatusPending.Label() != "Pending" {
		t.Fatalf("unexpected pending label %q", OrderStatusPending.Label())
	}
	if OrderStatusDelivered.Label() != "Delivered" {
		t.Fatalf("unexpected delivered label %q", OrderStatusDelivered.Label())
	}
}

func TestParseHelpers(t *testing.T) {
	if _, err := ParseOrderStatus("cancelled"); err == nil {
		t.Fatal("cancelled is not a stored order status")
	}
	if got, err := ParsePaymentStatus("Paid"); err != nil || got != PaymentStatusPaid {
		t.Fatalf("expected Paid, got %q (%v)", got, err)
	}
	if got, err := ParseUserRole("admin"); err != nil || got != UserRoleAdmin {
		t.Fatalf("expected admin role, got %q (%v)", got, err)
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatal("expected unknown event type to fail")
	}
	if !OTPPurposePasswordReset.IsValid() || OTPPurpose("login").IsValid() {
		t.Fatal("unexpected otp purpose validity")
	}
}
