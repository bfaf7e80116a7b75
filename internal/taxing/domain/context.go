package domain

import (
	"strings"
)

// Location is the part of an address that tax rules look at.
type Location struct {
	CountryCode string
	RegionCode  string
	PostalCode  string
	City        string
	TaxNumber   string
}

func (l Location) IsZero() bool {
	return l == Location{}
}

// Customer is the taxing view of a customer.
type Customer struct {
	ID        string
	TaxGroup  *CustomerTaxGroup
	TaxNumber string
}

// TaxingContext carries the customer and location facts used to pick tax
// rules. It is immutable once built.
type TaxingContext struct {
	customerTaxGroup  *CustomerTaxGroup
	customerTaxNumber string
	location          Location
}

func NewTaxingContext(group *CustomerTaxGroup, taxNumber string, location *Location) TaxingContext {
	tc := TaxingContext{customerTaxNumber: strings.TrimSpace(taxNumber)}
	if group != nil {
		g := *group
		tc.customerTaxGroup = &g
	}
	if location != nil {
		tc.location = *location
	}
	return tc
}

// CustomerTaxGroup returns a copy of the customer's tax group, or nil for
// anonymous customers.
func (tc TaxingContext) CustomerTaxGroup() *CustomerTaxGroup {
	if tc.customerTaxGroup == nil {
		return nil
	}
	g := *tc.customerTaxGroup
	return &g
}

func (tc TaxingContext) CustomerTaxNumber() string { return tc.customerTaxNumber }

func (tc TaxingContext) Location() Location { return tc.location }

func (tc TaxingContext) CountryCode() string { return tc.location.CountryCode }

func (tc TaxingContext) RegionCode() string { return tc.location.RegionCode }

func (tc TaxingContext) PostalCode() string { return tc.location.PostalCode }

// ContextOverrides replace individual fields when a context is built from a
// source. Zero fields are ignored.
type ContextOverrides struct {
	CustomerTaxGroup  *CustomerTaxGroup
	CustomerTaxNumber string
	Location          *Location
}

// ContextFromSource resolves each context field as override, then customer
// attribute, then address. The location falls back from the shipping to the
// billing address.
func ContextFromSource(source Source, overrides *ContextOverrides) TaxingContext {
	if overrides == nil {
		overrides = &ContextOverrides{}
	}
	customer := source.Customer()
	shipping := source.ShippingAddress()
	billing := source.BillingAddress()

	group := overrides.CustomerTaxGroup
	if group == nil && customer != nil {
		group = customer.TaxGroup
	}

	location := overrides.Location
	if location == nil && shipping != nil && !shipping.IsZero() {
		location = shipping
	}
	if location == nil && billing != nil && !billing.IsZero() {
		location = billing
	}

	taxNumber := strings.TrimSpace(overrides.CustomerTaxNumber)
	if taxNumber == "" && customer != nil {
		taxNumber = strings.TrimSpace(customer.TaxNumber)
	}
	if taxNumber == "" && billing != nil {
		taxNumber = strings.TrimSpace(billing.TaxNumber)
	}

	return NewTaxingContext(group, taxNumber, location)
}

// ContextFromCustomer builds a context for a customer outside of any order.
// A nil customer yields an anonymous context.
func ContextFromCustomer(customer *Customer) TaxingContext {
	if customer == nil {
		return TaxingContext{}
	}
	return NewTaxingContext(customer.TaxGroup, customer.TaxNumber, nil)
}
