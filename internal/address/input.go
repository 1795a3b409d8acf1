package address

import (
	"strings"

	"github.com/ArtVersex/art-verse-v1-sub000/pkg/enums"
	pkgerrors "github.com/ArtVersex/art-verse-v1-sub000/pkg/errors"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/types"
	"github.com/ArtVersex/art-verse-v1-sub000/pkg/validation"
)

// Input is a full address as submitted by the shopper.
type Input struct {
	Name          string  `json:"name" validate:"notblank"`
	Street        string  `json:"street" validate:"notblank"`
	Street2       *string `json:"street2,omitempty"`
	City          string  `json:"city" validate:"notblank"`
	State         string  `json:"state" validate:"notblank"`
	ZipCode       string  `json:"zipCode" validate:"notblank"`
	Country       string  `json:"country" validate:"notblank"`
	Phone         *string `json:"phone,omitempty"`
	Type          string  `json:"type" validate:"omitempty,oneof=shipping billing both"`
	IsDefault     bool    `json:"isDefault"`
	ContactMethod string  `json:"contactMethod" validate:"omitempty,oneof=phone whatsapp email"`
	ContactVia    *string `json:"contactVia,omitempty"`

	// DefaultIfFirst marks the address default when the book is empty at
	// write time.
	DefaultIfFirst bool `json:"-"`
}

// Patch changes selected fields of a saved address. Nil fields are kept.
type Patch struct {
	Name          *string
	Street        *string
	Street2       *string
	City          *string
	State         *string
	ZipCode       *string
	Country       *string
	Phone         *string
	Type          *string
	IsDefault     *bool
	ContactMethod *string
	ContactVia    *string
}

func (in Input) normalized() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Street = strings.TrimSpace(in.Street)
	in.City = strings.TrimSpace(in.City)
	in.State = strings.TrimSpace(in.State)
	in.ZipCode = strings.TrimSpace(in.ZipCode)
	in.Country = strings.TrimSpace(in.Country)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	in.ContactMethod = strings.ToLower(strings.TrimSpace(in.ContactMethod))
	in.Street2 = optional(in.Street2)
	in.Phone = optional(in.Phone)
	in.ContactVia = optional(in.ContactVia)
	return in
}

// toAddress validates in and builds the stored address. Every violation is
// reported together.
func (in Input) toAddress(id string) (types.Address, error) {
	in = in.normalized()
	if fields := validation.Fields(in); len(fields) > 0 {
		return types.Address{}, pkgerrors.Validation(fields)
	}

	addrType := enums.AddressTypeShipping
	if in.Type != "" {
		addrType = enums.AddressType(in.Type)
	}
	addr := types.Address{
		ID:         id,
		Name:       in.Name,
		Street:     in.Street,
		Street2:    in.Street2,
		City:       in.City,
		State:      in.State,
		ZipCode:    in.ZipCode,
		Country:    in.Country,
		Phone:      in.Phone,
		Type:       addrType,
		IsDefault:  in.IsDefault,
		ContactVia: in.ContactVia,
	}
	if in.ContactMethod != "" {
		method := enums.ContactMethod(in.ContactMethod)
		addr.ContactMethod = &method
	}
	return addr, nil
}

func inputFrom(addr types.Address) Input {
	in := Input{
		Name:       addr.Name,
		Street:     addr.Street,
		Street2:    addr.Street2,
		City:       addr.City,
		State:      addr.State,
		ZipCode:    addr.ZipCode,
		Country:    addr.Country,
		Phone:      addr.Phone,
		Type:       string(addr.Type),
		IsDefault:  addr.IsDefault,
		ContactVia: addr.ContactVia,
	}
	if addr.ContactMethod != nil {
		in.ContactMethod = string(*addr.ContactMethod)
	}
	return in
}

func (p Patch) apply(in Input) Input {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&in.Name, p.Name)
	set(&in.Street, p.Street)
	set(&in.City, p.City)
	set(&in.State, p.State)
	set(&in.ZipCode, p.ZipCode)
	set(&in.Country, p.Country)
	set(&in.Type, p.Type)
	set(&in.ContactMethod, p.ContactMethod)
	if p.Street2 != nil {
		in.Street2 = p.Street2
	}
	if p.Phone != nil {
		in.Phone = p.Phone
	}
	if p.ContactVia != nil {
		in.ContactVia = p.ContactVia
	}
	if p.IsDefault != nil {
		in.IsDefault = *p.IsDefault
	}
	return in
}

// optional drops blank optional values.
func optional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
