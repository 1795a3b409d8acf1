package enums

import "fmt"

// ContactMethod is the channel a shopper prefers for order updates.
type ContactMethod string

const (
	ContactMethodPhone    ContactMethod = "phone"
	ContactMethodWhatsApp ContactMethod = "whatsapp"
	ContactMethodEmail    ContactMethod = "email"
)

var validContactMethods = []ContactMethod{
	ContactMethodPhone,
	ContactMethodWhatsApp,
	ContactMethodEmail,
}

// String implements fmt.Stringer.
func (c ContactMethod) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ContactMethod.
func (c ContactMethod) IsValid() bool {
	for _, candidate := range validContactMethods {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContactMethod converts raw input into a ContactMethod.
func ParseContactMethod(value string) (ContactMethod, error) {
	for _, candidate := range validContactMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contact method %q", value)
}
