package enums

import "testing"

func TestAddressTypeServes(t *testing.T) {
	cases := []struct {
		have AddressType
		want AddressType
		ok   bool
	}{
		{AddressTypeShipping, AddressTypeShipping, true},
		{AddressTypeShipping, AddressTypeBilling, false},
		{AddressTypeBilling, AddressTypeBilling, true},
		{AddressTypeBoth, AddressTypeShipping, true},
		{AddressTypeBoth, AddressTypeBilling, true},
	}
	for _, tc := range cases {
		if got := tc.have.Serves(tc.want); got != tc.ok {
			t.Fatalf("%s.Serves(%s) = %v, want %v", tc.have, tc.want, got, tc.ok)
		}
	}
}

func TestParseRejectsUnknownValues(t *testing.T) {
	if _, err := ParseAddressType("home"); err == nil {
		t.Fatal("expected invalid address type")
	}
	if _, err := ParseCheckoutStep("review"); err == nil {
		t.Fatal("expected invalid checkout step")
	}
	if _, err := ParseContactMethod("fax"); err == nil {
		t.Fatal("expected invalid contact method")
	}
	if _, err := ParseOutboxEventType("order_placed"); err == nil {
		t.Fatal("expected invalid event type")
	}
}

func TestParseAcceptsKnownValues(t *testing.T) {
	if got, err := ParseContactMethod("whatsapp"); err != nil || got != ContactMethodWhatsApp {
		t.Fatalf("got %q %v", got, err)
	}
	if got, err := ParseCheckoutStep("payment"); err != nil || got != CheckoutStepPayment {
		t.Fatalf("got %q %v", got, err)
	}
	if got, err := ParseOutboxEventType("cart_changed"); err != nil || got != EventCartChanged {
		t.Fatalf("got %q %v", got, err)
	}
	if !AddressTypeBoth.IsValid() || AddressType("").IsValid() {
		t.Fatal("unexpected validity")
	}
}
