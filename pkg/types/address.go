package types

import (
	"database/sql/driver"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
)

// Address is a saved postal address on the user document.
type Address struct {
	ID            string               `json:"id" bson:"id"`
	Name          string               `json:"name" bson:"name"`
	Street        string               `json:"street" bson:"street"`
	Street2       *string              `json:"street2,omitempty" bson:"street2,omitempty"`
	City          string               `json:"city" bson:"city"`
	State         string               `json:"state" bson:"state"`
	ZipCode       string               `json:"zipCode" bson:"zipCode"`
	Country       string               `json:"country" bson:"country"`
	Phone         *string              `json:"phone,omitempty" bson:"phone,omitempty"`
	Type          enums.AddressType    `json:"type" bson:"type"`
	IsDefault     bool                 `json:"isDefault" bson:"isDefault"`
	ContactMethod *enums.ContactMethod `json:"contactMethod,omitempty" bson:"contactMethod,omitempty"`
	ContactVia    *string              `json:"contactVia,omitempty" bson:"contactVia,omitempty"`
}

// Clone returns a deep copy.
func (a Address) Clone() Address {
	out := a
	out.Street2 = cloneString(a.Street2)
	out.Phone = cloneString(a.Phone)
	out.ContactVia = cloneString(a.ContactVia)
	if a.ContactMethod != nil {
		method := *a.ContactMethod
		out.ContactMethod = &method
	}
	return out
}

// Addresses is the address list persisted as JSON.
type Addresses []Address

// Value serializes the list to JSON.
func (a Addresses) Value() (driver.Value, error) {
	return jsonValue(a, "[]")
}

// Scan decodes JSON into the list.
func (a *Addresses) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	var decoded Addresses
	if err := scanJSON(value, &decoded); err != nil {
		return err
	}
	*a = decoded
	return nil
}

// Clone returns a deep copy of the list.
func (a Addresses) Clone() Addresses {
	if a == nil {
		return nil
	}
	out := make(Addresses, len(a))
	for i, addr := range a {
		out[i] = addr.Clone()
	}
	return out
}

// Index returns the position of id, or -1.
func (a Addresses) Index(id string) int {
	for i, addr := range a {
		if addr.ID == id {
			return i
		}
	}
	return -1
}

// DefaultCount returns how many entries are flagged default.
func (a Addresses) DefaultCount() int {
	count := 0
	for _, addr := range a {
		if addr.IsDefault {
			count++
		}
	}
	return count
}
