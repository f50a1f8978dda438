package util

import (
	"context"
	"time"
)

// Context keys.
type ctxKey string

const (
	ctxKeyRequestID  ctxKey = "request_id"
	ctxKeyStartTime  ctxKey = "start_time"
	ctxKeyRoute      ctxKey = "route"
	ctxKeyRouteSlot  ctxKey = "route_slot"
	ctxKeyPathParams ctxKey = "path_params"
	ctxKeyUserID     ctxKey = "user_id"
)

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// ContextWithStartTime adds a start time to the context.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext extracts the start time from context.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyStartTime).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// ContextWithRoute adds the matched route pattern to the context.
func ContextWithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, ctxKeyRoute, route)
}

// RouteFromContext extracts the matched route pattern from context.
func RouteFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRoute).(string); ok {
		return v
	}
	return ""
}

// RouteHolder carries the matched route template back out to
// middleware that wrapped the request before routing ran. Context
// values only flow inward, so the holder is a shared slot: middleware
// installs it, the dispatcher fills it.
type RouteHolder struct {
	route string
}

// Set records the matched route template.
func (h *RouteHolder) Set(route string) {
	if h != nil {
		h.route = route
	}
}

// Get returns the matched route template, or "" if none matched.
func (h *RouteHolder) Get() string {
	if h == nil {
		return ""
	}
	return h.route
}

// ContextWithRouteHolder installs a route slot into the context.
func ContextWithRouteHolder(ctx context.Context, h *RouteHolder) context.Context {
	return context.WithValue(ctx, ctxKeyRouteSlot, h)
}

// RouteHolderFromContext extracts the route slot from context.
func RouteHolderFromContext(ctx context.Context) *RouteHolder {
	if v, ok := ctx.Value(ctxKeyRouteSlot).(*RouteHolder); ok {
		return v
	}
	return nil
}

// ContextWithPathParams adds path parameters to the context.
func ContextWithPathParams(ctx context.Context, params map[string]string) context.Context {
	return context.WithValue(ctx, ctxKeyPathParams, params)
}

// PathParamsFromContext extracts path parameters from context.
func PathParamsFromContext(ctx context.Context) map[string]string {
	if v, ok := ctx.Value(ctxKeyPathParams).(map[string]string); ok {
		return v
	}
	return nil
}

// ContextWithUserID adds an authenticated user ID to the context.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ctxKeyUserID).(int64)
	return v, ok
}
