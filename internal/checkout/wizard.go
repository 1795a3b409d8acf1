package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/address"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/logger"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/metrics"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/validation"
)

// WarningAddressSaveFailed marks an opt-in address save that did not persist.
const WarningAddressSaveFailed = "checkout_address_save_failed"

const defaultCountry = "US"

// AddressBook is the subset of the address book the wizard uses.
type AddressBook interface {
	List(ctx context.Context, userID string) (types.Addresses, error)
	GetDefault(ctx context.Context, userID string) (*types.Address, error)
	Add(ctx context.Context, userID string, input address.Input) (types.Address, error)
}

// Warning is a non-fatal problem reported alongside a successful advance.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outcome is the result of a successful advance.
type Outcome struct {
	Session      Session        `json:"session"`
	SavedAddress *types.Address `json:"savedAddress,omitempty"`
	Warnings     []Warning      `json:"warnings,omitempty"`
}

type WizardParams struct {
	Book           AddressBook
	Logger         *logger.Logger
	Metrics        *metrics.CheckoutMetrics
	DefaultCountry string
}

// Wizard runs the delivery to payment checkout flow.
type Wizard struct {
	book    AddressBook
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
	country string
}

func NewWizard(params WizardParams) (*Wizard, error) {
	if params.Book == nil {
		return nil, fmt.Errorf("address book required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	country := strings.TrimSpace(params.DefaultCountry)
	if country == "" {
		country = defaultCountry
	}
	return &Wizard{book: params.Book, logg: logg, metrics: params.Metrics, country: country}, nil
}

// Start opens a session pre-filled from the default address, if any.
// Pre-fill is best effort: a failed lookup yields an empty session.
func (w *Wizard) Start(ctx context.Context, userID string) (Session, error) {
	if err := requireUser(userID); err != nil {
		return Session{}, err
	}
	ctx = w.logg.WithUserID(ctx, userID)

	session := NewSession()
	def, err := w.book.GetDefault(ctx, userID)
	if err != nil {
		w.logg.WarnErr(ctx, "checkout prefill skipped", err)
		return session, nil
	}
	if def == nil {
		return session, nil
	}
	prefill(&session, *def)
	return session, nil
}

// Validate reports the delivery step violations without transitioning.
func (w *Wizard) Validate(session Session) error {
	return Validate(session)
}

// GoBack returns to delivery. It is a no-op at delivery.
func (w *Wizard) GoBack(session Session) Session {
	next, _ := Transition(session, EventGoBack)
	return next
}

// Advance moves a valid session to payment. When the shopper opted in, a new
// address is saved to the book; a failed save is reported as a warning and
// does not block the transition.
func (w *Wizard) Advance(ctx context.Context, userID string, session Session) (*Outcome, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	ctx = w.logg.WithUserID(ctx, userID)

	if session.UseSavedAddress {
		resolved, err := w.withSelectedAddress(ctx, userID, session)
		if err != nil {
			err = withGuardViolations(err, session)
			w.reject(ctx, err)
			return nil, err
		}
		session = resolved
	}

	next, err := Transition(session, EventAdvance)
	if err != nil {
		w.reject(ctx, err)
		return nil, err
	}

	outcome := &Outcome{Session: next}
	if session.SaveAddress && !session.UseSavedAddress {
		saved, err := w.book.Add(ctx, userID, w.addressInput(next))
		if err != nil {
			w.metrics.IncAddressSaveFailure()
			w.logg.WarnErr(w.logg.WithField(ctx, "event", WarningAddressSaveFailed), "checkout address save failed", err)
			outcome.Warnings = append(outcome.Warnings, Warning{
				Code:    WarningAddressSaveFailed,
				Message: "address could not be saved",
			})
		} else {
			outcome.SavedAddress = &saved
		}
	}

	w.metrics.IncAdvance(metrics.ResultOK)
	w.logg.Info(ctx, "checkout advanced to payment")
	return outcome, nil
}

// withSelectedAddress replaces the delivery fields with the saved address.
func (w *Wizard) withSelectedAddress(ctx context.Context, userID string, session Session) (Session, error) {
	selected := strings.TrimSpace(session.SelectedAddressID)
	if selected == "" {
		return session, pkgerrors.Validation(pkgerrors.FieldErrors{"selectedAddressId": "is required"})
	}
	addrs, err := w.book.List(ctx, userID)
	if err != nil {
		return session, err
	}
	i := addrs.Index(selected)
	if i < 0 {
		return session, pkgerrors.Validation(pkgerrors.FieldErrors{"selectedAddressId": "is not a saved address"})
	}
	next := session.Clone()
	fillDelivery(&next.Delivery, addrs[i])
	return next, nil
}

// withGuardViolations folds the remaining delivery guard violations into a
// failed saved-address selection so every offending field is reported.
func withGuardViolations(err error, session Session) error {
	fields := pkgerrors.FieldsOf(err)
	if fields == nil {
		return err
	}
	merged := validation.Merge(pkgerrors.FieldErrors{}, fields)
	return pkgerrors.Validation(validation.Merge(merged, pkgerrors.FieldsOf(Validate(session))))
}

func (w *Wizard) addressInput(s Session) address.Input {
	in := address.Input{
		Name:           s.Delivery.FullName(),
		Street:         s.Delivery.Street,
		City:           s.Delivery.City,
		State:          s.Delivery.State,
		ZipCode:        s.Delivery.Zip,
		Country:        w.country,
		Phone:          optional(s.Delivery.Phone),
		Type:           string(enums.AddressTypeShipping),
		DefaultIfFirst: true,
	}
	if s.BillingSameAsDelivery {
		in.Type = string(enums.AddressTypeBoth)
	}
	if s.ResolvedContact != nil {
		in.ContactMethod = string(s.ResolvedContact.Method)
		in.ContactVia = optional(s.ResolvedContact.Value)
	}
	return in
}

func (w *Wizard) reject(ctx context.Context, err error) {
	if pkgerrors.CodeOf(err) == pkgerrors.CodeValidation {
		w.metrics.IncAdvance(metrics.ResultRejected)
		w.logg.Debug(w.logg.WithField(ctx, "fields", pkgerrors.FieldsOf(err).Fields()), "checkout advance rejected")
		return
	}
	w.metrics.IncAdvance(metrics.ResultError)
	w.logg.WarnErr(ctx, "checkout advance failed", err)
}

func prefill(s *Session, addr types.Address) {
	fillDelivery(&s.Delivery, addr)
	s.UseSavedAddress = true
	s.SelectedAddressID = addr.ID
	if addr.ContactMethod != nil && addr.ContactMethod.IsValid() {
		s.CommunicationPreference = *addr.ContactMethod
		if addr.ContactVia != nil {
			s.Contacts.set(*addr.ContactMethod, *addr.ContactVia)
		}
	}
}

func fillDelivery(d *DeliveryForm, addr types.Address) {
	d.FirstName, d.LastName = splitName(addr.Name)
	d.Street = addr.Street
	d.City = addr.City
	d.State = addr.State
	d.Zip = addr.ZipCode
	if addr.Phone != nil {
		d.Phone = *addr.Phone
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
