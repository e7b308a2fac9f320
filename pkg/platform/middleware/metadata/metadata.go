// Package metadata records where a request came from: client address and the
// booth terminal's browser and platform.
package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyClientIP struct{}
type contextKeyDevice struct{}

// Device describes the terminal that sent a request.
type Device struct {
	UserAgent string
	Browser   string
	OS        string
	Mobile    bool
	Bot       bool
}

// String renders a short label such as "Chrome on Linux".
func (d Device) String() string {
	switch {
	case d.UserAgent == "":
		return "unknown"
	case d.Bot:
		return "bot"
	case d.Browser == "":
		return d.OS
	case d.OS == "":
		return d.Browser
	}
	label := d.Browser + " on " + d.OS
	if d.Mobile {
		label += " (mobile)"
	}
	return label
}

// ParseDevice extracts browser and platform from a User-Agent header.
func ParseDevice(userAgent string) Device {
	if userAgent == "" {
		return Device{}
	}
	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	return Device{
		UserAgent: userAgent,
		Browser:   browser,
		OS:        ua.OSInfo().Name,
		Mobile:    ua.Mobile(),
		Bot:       ua.Bot(),
	}
}

// ClientMetadata stores the client IP and parsed device in the context.
// Apply it early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

func GetDevice(ctx context.Context) Device {
	if d, ok := ctx.Value(contextKeyDevice{}).(Device); ok {
		return d
	}
	return Device{}
}

// WithClientMetadata injects client IP and device into a context.
// Useful for tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, contextKeyClientIP{}, clientIP)
	return context.WithValue(ctx, contextKeyDevice{}, ParseDevice(userAgent))
}

// ClientIPFromRequest prefers proxy headers over RemoteAddr.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
