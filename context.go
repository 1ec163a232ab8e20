package goSessions

import "context"

type clientIPContextKey struct{}
type deviceIDContextKey struct{}
type deviceInfoContextKey struct{}
type loginMethodContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. The Engine uses
// it for per-IP rate limiting, session rows, and audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithDeviceID attaches a caller-supplied device identifier to ctx.
// Sessions created without one get a random device ID.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDContextKey{}, deviceID)
}

// WithDeviceInfo attaches a human-readable device description to ctx,
// typically the User-Agent string. Stored on the session row.
func WithDeviceInfo(ctx context.Context, deviceInfo string) context.Context {
	return context.WithValue(ctx, deviceInfoContextKey{}, deviceInfo)
}

// WithLoginMethod attaches the login method label to ctx ("password"
// when unset). Stored on the session row for audit trails.
func WithLoginMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, loginMethodContextKey{}, method)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func deviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	deviceID, _ := ctx.Value(deviceIDContextKey{}).(string)
	return deviceID
}

func deviceInfoFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	deviceInfo, _ := ctx.Value(deviceInfoContextKey{}).(string)
	return deviceInfo
}

func loginMethodFromContext(ctx context.Context) string {
	if ctx == nil {
		return "password"
	}

	method, _ := ctx.Value(loginMethodContextKey{}).(string)
	if method == "" {
		return "password"
	}
	return method
}
