package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTenantID contextKey = "tenant_id"
	keyCallerID contextKey = "caller_id"
	keyRoles    contextKey = "roles"
)

// WithTenantID adds tenant ID to context.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, keyTenantID, tenantID)
}

// TenantID extracts tenant ID from context.
func TenantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTenantID).(string)
	return v, ok && v != ""
}

// WithCallerID records the authenticated caller. Set by the identity middleware.
func WithCallerID(ctx context.Context, callerID string) context.Context {
	return context.WithValue(ctx, keyCallerID, callerID)
}

// CallerID returns the authenticated caller, or false when the request is anonymous.
func CallerID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyCallerID).(string)
	return v, ok && v != ""
}

// WithRoles adds caller roles to context.
func WithRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, keyRoles, roles)
}

// Roles extracts caller roles from context.
func Roles(ctx context.Context) ([]string, bool) {
	v, ok := ctx.Value(keyRoles).([]string)
	return v, ok && len(v) > 0
}
