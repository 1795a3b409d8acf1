package checkout

import (
	"strings"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
)

// BillingAddress is the billing leg of the delivery form.
type BillingAddress struct {
	FirstName string `json:"firstName" validate:"notblank"`
	LastName  string `json:"lastName" validate:"notblank"`
	Street    string `json:"street" validate:"notblank"`
	City      string `json:"city" validate:"notblank"`
	State     string `json:"state" validate:"notblank"`
	Zip       string `json:"zip" validate:"notblank"`
}

// DeliveryForm holds the delivery fields. BillingAddress is only read when
// billing differs from delivery.
type DeliveryForm struct {
	FirstName      string         `json:"firstName" validate:"notblank"`
	LastName       string         `json:"lastName" validate:"notblank"`
	Street         string         `json:"street" validate:"notblank"`
	City           string         `json:"city" validate:"notblank"`
	State          string         `json:"state" validate:"notblank"`
	Zip            string         `json:"zip" validate:"notblank"`
	Phone          string         `json:"phone" validate:"notblank"`
	BillingAddress BillingAddress `json:"billingAddress" validate:"-"`
}

// Contacts holds one contact value per channel.
type Contacts struct {
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
	Email    string `json:"email"`
}

// For returns the contact value for method.
func (c Contacts) For(method enums.ContactMethod) string {
	switch method {
	case enums.ContactMethodPhone:
		return c.Phone
	case enums.ContactMethodWhatsApp:
		return c.WhatsApp
	case enums.ContactMethodEmail:
		return c.Email
	}
	return ""
}

func (c *Contacts) set(method enums.ContactMethod, value string) {
	switch method {
	case enums.ContactMethodPhone:
		c.Phone = value
	case enums.ContactMethodWhatsApp:
		c.WhatsApp = value
	case enums.ContactMethodEmail:
		c.Email = value
	}
}

// ResolvedContact is the channel and value the order updates go to.
type ResolvedContact struct {
	Method enums.ContactMethod `json:"method"`
	Value  string              `json:"value"`
}

// Session is the ephemeral wizard state for one checkout.
type Session struct {
	Step                    enums.CheckoutStep  `json:"step"`
	Delivery                DeliveryForm        `json:"delivery"`
	BillingSameAsDelivery   bool                `json:"billingSameAsDelivery"`
	CommunicationPreference enums.ContactMethod `json:"communicationPreference"`
	Contacts                Contacts            `json:"contacts"`
	UseSavedAddress         bool                `json:"useSavedAddress"`
	SelectedAddressID       string              `json:"selectedAddressId,omitempty"`
	SaveAddress             bool                `json:"saveAddress"`

	// Set when the session reaches payment.
	Billing         *BillingAddress  `json:"billing,omitempty"`
	ResolvedContact *ResolvedContact `json:"resolvedContact,omitempty"`
}

// NewSession starts at delivery with billing same as delivery and email
// as the preferred channel.
func NewSession() Session {
	return Session{
		Step:                    enums.CheckoutStepDelivery,
		BillingSameAsDelivery:   true,
		CommunicationPreference: enums.ContactMethodEmail,
	}
}

// Clone returns a copy that shares no pointers with s.
func (s Session) Clone() Session {
	out := s
	if s.Billing != nil {
		billing := *s.Billing
		out.Billing = &billing
	}
	if s.ResolvedContact != nil {
		contact := *s.ResolvedContact
		out.ResolvedContact = &contact
	}
	return out
}

// BillingFromDelivery copies the delivery fields into a new billing address.
func BillingFromDelivery(d DeliveryForm) BillingAddress {
	return BillingAddress{
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Street:    d.Street,
		City:      d.City,
		State:     d.State,
		Zip:       d.Zip,
	}
}

// FullName joins first and last name.
func (d DeliveryForm) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(d.FirstName) + " " + strings.TrimSpace(d.LastName))
}

// splitName puts the first word in first and the rest in last.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
