package domain

import "context"

type customerContextKey struct{}

// WithCustomer stores the requesting customer in the context.
func WithCustomer(ctx context.Context, customer *Customer) context.Context {
	return context.WithValue(ctx, customerContextKey{}, customer)
}

// CustomerFromContext returns the requesting customer, if any.
func CustomerFromContext(ctx context.Context) (*Customer, bool) {
	if ctx == nil {
		return nil, false
	}
	customer, ok := ctx.Value(customerContextKey{}).(*Customer)
	if !ok || customer == nil {
		return nil, false
	}
	return customer, true
}
