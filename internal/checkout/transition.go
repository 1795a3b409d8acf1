package checkout

import (
	"strings"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/validation"
)

// Event drives the wizard state machine.
type Event string

const (
	EventAdvance Event = "advance"
	EventGoBack  Event = "go_back"
)

// Transition applies event to s and returns the next session. s is never
// modified. A rejected advance returns a validation error naming every
// offending field and leaves the step at delivery.
func Transition(s Session, event Event) (Session, error) {
	switch event {
	case EventGoBack:
		next := s.Clone()
		if next.Step == enums.CheckoutStepPayment {
			next.Step = enums.CheckoutStepDelivery
		}
		return next, nil
	case EventAdvance:
		if s.Step != enums.CheckoutStepDelivery {
			return s, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not at the delivery step")
		}
		if err := Validate(s); err != nil {
			return s, err
		}
		next := s.Clone()
		billing := next.Delivery.BillingAddress
		if next.BillingSameAsDelivery {
			billing = BillingFromDelivery(next.Delivery)
		}
		next.Billing = &billing
		next.ResolvedContact = &ResolvedContact{
			Method: next.CommunicationPreference,
			Value:  strings.TrimSpace(next.Contacts.For(next.CommunicationPreference)),
		}
		next.Step = enums.CheckoutStepPayment
		return next, nil
	default:
		return s, pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout event")
	}
}

// Validate checks the delivery step guard and reports all violations.
func Validate(s Session) error {
	fields := pkgerrors.FieldErrors{}
	if !s.UseSavedAddress {
		validation.Merge(fields, validation.Fields(s.Delivery))
	} else if strings.TrimSpace(s.SelectedAddressID) == "" {
		fields["selectedAddressId"] = "is required"
	}

	if !s.CommunicationPreference.IsValid() {
		fields["communicationPreference"] = "must be one of: phone whatsapp email"
	} else if strings.TrimSpace(s.Contacts.For(s.CommunicationPreference)) == "" {
		fields["contacts."+string(s.CommunicationPreference)] = "is required"
	}

	if !s.BillingSameAsDelivery {
		validation.Merge(fields, validation.Prefix("billingAddress", validation.Fields(s.Delivery.BillingAddress)))
	}

	if len(fields) > 0 {
		return pkgerrors.Validation(fields)
	}
	return nil
}
