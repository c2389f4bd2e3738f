package middleware

import "context"

type contextKey string

const (
	ctxEmail         contextKey = "identity_email"
	ctxCustomerToken contextKey = "customer_token"
)

func EmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxEmail).(string); ok {
		return v
	}
	return ""
}

func CustomerTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCustomerToken).(string); ok {
		return v
	}
	return ""
}

// WithIdentityClaims injects the verified identity claims into the context.
func WithIdentityClaims(ctx context.Context, email, customerToken string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxEmail, email)
	return context.WithValue(ctx, ctxCustomerToken, customerToken)
}
