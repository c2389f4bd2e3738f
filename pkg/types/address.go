package types

import "strings"

// Address captures a shipping address as the storefront API expects it.
type Address struct {
	FirstName  string  `json:"first_name" validate:"required"`
	LastName   string  `json:"last_name" validate:"required"`
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	Province   string  `json:"province"`
	PostalCode string  `json:"postal_code" validate:"required"`
	Country    string  `json:"country" validate:"required"`
	Phone      *string `json:"phone,omitempty"`
}

// Normalized returns a copy with surrounding whitespace stripped and the
// country defaulted.
func (a Address) Normalized() Address {
	out := a
	out.FirstName = strings.TrimSpace(a.FirstName)
	out.LastName = strings.TrimSpace(a.LastName)
	out.Line1 = strings.TrimSpace(a.Line1)
	out.City = strings.TrimSpace(a.City)
	out.Province = strings.TrimSpace(a.Province)
	out.PostalCode = strings.TrimSpace(a.PostalCode)
	out.Country = strings.TrimSpace(a.Country)
	if out.Country == "" {
		out.Country = "US"
	}
	if a.Line2 != nil {
		line2 := strings.TrimSpace(*a.Line2)
		out.Line2 = &line2
	}
	if a.Phone != nil {
		phone := strings.TrimSpace(*a.Phone)
		out.Phone = &phone
	}
	return out
}
