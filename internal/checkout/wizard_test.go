package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ArtVersex/art-verse-v1-sub000/internal/address"
	"github.com/ArtVersex/art-verse-v1-sub000/internal/docstore"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/metrics"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
)

const testUser = "user-1"

type wizardFixture struct {
	store  *docstore.MemoryStore
	book   *address.Book
	wizard *Wizard
	reg    *prometheus.Registry
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()
	store := docstore.NewMemoryStore(docstore.DefaultOptions())
	if _, err := store.Ensure(context.Background(), testUser); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	book, err := address.NewBook(store, nil)
	if err != nil {
		t.Fatalf("new book: %v", err)
	}
	reg := prometheus.NewRegistry()
	wizard, err := NewWizard(WizardParams{Book: book, Metrics: metrics.NewCheckoutMetrics(reg), DefaultCountry: "CA"})
	if err != nil {
		t.Fatalf("new wizard: %v", err)
	}
	return &wizardFixture{store: store, book: book, wizard: wizard, reg: reg}
}

func counter(t *testing.T, reg *prometheus.Registry, name, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if result == "" {
				return metric.GetCounter().GetValue()
			}
			for _, label := range metric.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestStartPrefillsFromDefaultAddress(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(t)
	ctx := context.Background()
	phone := "555-0100"
	via := "+1 555 0100"
	if _, err := f.book.Add(ctx, testUser, address.Input{
		Name: "Grace Brewster Hopper", Street: "1 Navy Yard", City: "Arlington", State: "VA",
		ZipCode: "22202", Country: "US", Phone: &phone, IsDefault: true,
		ContactMethod: "whatsapp", ContactVia: &via,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	s, err := f.wizard.Start(ctx, testUser)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.Delivery.FirstName != "Grace" || s.Delivery.LastName != "Brewster Hopper" || s.Delivery.Zip != "22202" || s.Delivery.Phone != phone {
		t.Fatalf("unexpected prefill %+v", s.Delivery)
	}
	if !s.UseSavedAddress || s.SelectedAddressID == "" {
		t.Fatalf("expected saved address selection, got %+v", s)
	}
	if s.CommunicationPreference != enums.ContactMethodWhatsApp || s.Contacts.WhatsApp != via {
		t.Fatalf("expected restored contact, got %s %+v", s.CommunicationPreference, s.Contacts)
	}

	outcome, err := f.wizard.Advance(ctx, testUser, s)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if outcome.Session.Step != enums.CheckoutStepPayment || outcome.Session.Billing.City != "Arlington" {
		t.Fatalf("unexpected outcome %+v", outcome.Session)
	}
}

func TestStartWithoutDefault(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(t)
	s, err := f.wizard.Start(context.Background(), testUser)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.UseSavedAddress || s.Step != enums.CheckoutStepDelivery || !s.BillingSameAsDelivery {
		t.Fatalf("expected blank session, got %+v", s)
	}
	if _, err := f.wizard.Start(context.Background(), ""); pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestAdvanceSavesFirstAddressAsDefault(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(t)
	ctx := context.Background()

	s := validSession()
	s.SaveAddress = true
	outcome, err := f.wizard.Advance(ctx, testUser, s)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	saved := outcome.SavedAddress
	if saved == nil || !saved.IsDefault {
		t.Fatalf("expected first saved address to be default, got %+v", saved)
	}
	if saved.Name != "Grace Hopper" || saved.Country != "CA" || saved.Type != enums.AddressTypeBoth {
		t.Fatalf("unexpected saved address %+v", saved)
	}
	if saved.ContactMethod == nil || *saved.ContactMethod != enums.ContactMethodEmail || saved.ContactVia == nil || *saved.ContactVia != "grace@example.com" {
		t.Fatalf("expected contact recorded, got %+v", saved)
	}

	outcome, err = f.wizard.Advance(ctx, testUser, s)
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if outcome.SavedAddress.IsDefault {
		t.Fatal("only the first saved address becomes default")
	}
	addrs, _ := f.book.List(ctx, testUser)
	if addrs.DefaultCount() != 1 {
		t.Fatalf("expected one default, got %d", addrs.DefaultCount())
	}
	if got := counter(t, f.reg, "checkout_advance_total", "ok"); got != 2 {
		t.Fatalf("expected 2 advances, got %v", got)
	}
}

func TestAdvanceRejectsAndStaysAtDelivery(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(t)
	s := validSession()
	s.Contacts.Email = ""

	outcome, err := f.wizard.Advance(context.Background(), testUser, s)
	if outcome != nil {
		t.Fatal("expected no outcome on rejection")
	}
	if pkgerrors.FieldsOf(err)["contacts.email"] == "" {
		t.Fatalf("expected contacts.email violation, got %v", err)
	}
	if s.Step != enums.CheckoutStepDelivery {
		t.Fatal("session must stay at delivery")
	}
	if got := counter(t, f.reg, "checkout_advance_total", "rejected"); got != 1 {
		t.Fatalf("expected one rejection, got %v", got)
	}
	if err := f.wizard.Validate(s); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("validate: expected validation error, got %v", err)
	}
}

func TestAdvanceUnknownSavedAddress(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(t)
	s := validSession()
	s.UseSavedAddress = true
	s.SelectedAddressID = "missing"

	_, err := f.wizard.Advance(context.Background(), testUser, s)
	if pkgerrors.FieldsOf(err)["selectedAddressId"] == "" {
		t.Fatalf("expected selectedAddressId violation, got %v", err)
	}
}

func TestAdvanceUnknownSavedAddressReportsEveryViolation(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(t)
	s := validSession()
	s.UseSavedAddress = true
	s.SelectedAddressID = "gone"
	s.Contacts.Email = ""
	s.BillingSameAsDelivery = false

	_, err := f.wizard.Advance(context.Background(), testUser, s)
	fields := pkgerrors.FieldsOf(err)
	if fields["selectedAddressId"] != "is not a saved address" {
		t.Fatalf("expected selectedAddressId violation, got %v", err)
	}
	if fields["contacts.email"] == "" {
		t.Fatalf("expected contacts.email violation, got %v", fields)
	}
	billing := 0
	for key := range fields {
		if strings.HasPrefix(key, "billingAddress.") {
			billing++
		}
	}
	if billing == 0 {
		t.Fatalf("expected billingAddress violations, got %v", fields)
	}
	if got := counter(t, f.reg, "checkout_advance_total", "rejected"); got != 1 {
		t.Fatalf("expected one rejection, got %v", got)
	}
}

// failingBook saves nothing.
type failingBook struct {
	err error
}

func (b failingBook) List(context.Context, string) (types.Addresses, error) {
	return types.Addresses{}, nil
}

func (b failingBook) GetDefault(context.Context, string) (*types.Address, error) {
	return nil, b.err
}

func (b failingBook) Add(context.Context, string, address.Input) (types.Address, error) {
	return types.Address{}, b.err
}

func TestAddressSaveFailureIsAWarning(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	wizard, err := NewWizard(WizardParams{
		Book:    failingBook{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("timeout"), "document store unavailable")},
		Metrics: metrics.NewCheckoutMetrics(reg),
	})
	if err != nil {
		t.Fatalf("new wizard: %v", err)
	}
	ctx := context.Background()

	s, err := wizard.Start(ctx, testUser)
	if err != nil {
		t.Fatalf("start should tolerate prefill failure: %v", err)
	}
	s = validSession()
	s.SaveAddress = true

	outcome, err := wizard.Advance(ctx, testUser, s)
	if err != nil {
		t.Fatalf("advance must succeed despite save failure: %v", err)
	}
	if outcome.Session.Step != enums.CheckoutStepPayment {
		t.Fatalf("expected payment step, got %s", outcome.Session.Step)
	}
	if len(outcome.Warnings) != 1 || outcome.Warnings[0].Code != WarningAddressSaveFailed {
		t.Fatalf("expected address save warning, got %+v", outcome.Warnings)
	}
	if outcome.SavedAddress != nil {
		t.Fatal("no address should be reported saved")
	}
	if got := counter(t, reg, "checkout_address_save_failures_total", ""); got != 1 {
		t.Fatalf("expected one save failure, got %v", got)
	}
	if got := counter(t, reg, "checkout_advance_total", "rejected"); got != 0 {
		t.Fatalf("save failures must not count as rejections, got %v", got)
	}
}

func TestGoBack(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(t)
	outcome, err := f.wizard.Advance(context.Background(), testUser, validSession())
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	back := f.wizard.GoBack(outcome.Session)
	if back.Step != enums.CheckoutStepDelivery {
		t.Fatalf("expected delivery, got %s", back.Step)
	}
	if f.wizard.GoBack(back).Step != enums.CheckoutStepDelivery {
		t.Fatal("go back at delivery is a no-op")
	}
}

func TestNewWizardRequiresBook(t *testing.T) {
	t.Parallel()
	if _, err := NewWizard(WizardParams{}); err == nil {
		t.Fatal("expected error without address book")
	}
}
