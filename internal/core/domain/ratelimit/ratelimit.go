package ratelimit

import (
	"regexp"
	"strings"
	"time"
)

// UnknownIdentity is used when a request carries no forwarding headers.
const UnknownIdentity = "unknown"

// Window is the fixed-window counter kept per identity. Count is only
// meaningful relative to WindowStart.
type Window struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// Expired reports whether the window no longer applies at now.
func (w Window) Expired(now time.Time, length time.Duration) bool {
	return now.Sub(w.WindowStart) >= length
}

// Remaining is the time left in the window, never negative.
func (w Window) Remaining(now time.Time, length time.Duration) time.Duration {
	r := length - now.Sub(w.WindowStart)
	if r < 0 {
		return 0
	}
	return r
}

type Decision struct {
	Allowed       bool
	RetryAfterSec int
	Count         int
	Limit         int
	WindowStart   time.Time
}

// Entry pairs an identity with its current window.
type Entry struct {
	Identity string
	Window   Window
}

type EntryStats struct {
	IP                 string `json:"ip"`
	Count              int    `json:"count"`
	WindowRemainingSec int    `json:"windowRemainingSec"`
	Blocked            bool   `json:"blocked"`
}

// Stats is the read-only telemetry view of the limiter. Field names follow the
// stats page contract.
type Stats struct {
	RateLimitMax          int          `json:"rateLimitMax"`
	RateLimitWindowSec    int          `json:"rateLimitWindowSec"`
	ActiveIPs             int          `json:"activeIps"`
	TotalRequestsInWindow int          `json:"totalRequestsInWindow"`
	BlockedIPs            int          `json:"blockedIps"`
	Entries               []EntryStats `json:"entries"`
	ServerTimeISO         string       `json:"serverTimeIso"`
}

var (
	lastIPv4Octet = regexp.MustCompile(`\.\d+$`)
	lastIPv6Group = regexp.MustCompile(`:[^:]+$`)
)

// MaskIdentity hides the last IPv4 octet or IPv6 group: "1.2.3.4" becomes
// "1.2.3.x".
func MaskIdentity(identity string) string {
	if strings.Contains(identity, ".") {
		return lastIPv4Octet.ReplaceAllString(identity, ".x")
	}
	return lastIPv6Group.ReplaceAllString(identity, ":x")
}
