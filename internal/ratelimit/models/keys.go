package models

import "strings"

// SanitizeKeySegment escapes the key delimiter so a crafted identifier such
// as "write:10.0.0.1" cannot address another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewIPKey is the bucket key for one client IP within an endpoint class.
func NewIPKey(class EndpointClass, ip string) string {
	return "rl:" + string(class) + ":ip:" + SanitizeKeySegment(ip)
}
