package enums

import "fmt"

// AddressType describes which checkout legs an address can serve.
type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
	AddressTypeBoth     AddressType = "both"
)

var validAddressTypes = []AddressType{
	AddressTypeShipping,
	AddressTypeBilling,
	AddressTypeBoth,
}

// String implements fmt.Stringer.
func (a AddressType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AddressType.
func (a AddressType) IsValid() bool {
	for _, candidate := range validAddressTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// Serves reports whether an address of this type can be used for want.
// "both" serves every leg.
func (a AddressType) Serves(want AddressType) bool {
	return a == want || a == AddressTypeBoth
}

// ParseAddressType converts raw input into an AddressType.
func ParseAddressType(value string) (AddressType, error) {
	for _, candidate := range validAddressTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid address type %q", value)
}
