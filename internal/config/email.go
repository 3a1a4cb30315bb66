package config

import (
	"strings"
	"time"
)

// TLS modes for outbound SMTP.
const (
	TLSNone     = "none"
	TLSStartTLS = "starttls"
	TLSImplicit = "smtps"
)

// EffectiveTLSMode normalizes the configured SMTP TLS mode. Unknown or empty
// values fall back to the boolean tls flag.
func (c *EmailConfig) EffectiveTLSMode() string {
	if c == nil {
		return TLSNone
	}
	switch strings.ToLower(strings.TrimSpace(c.SMTP.TLSMode)) {
	case "starttls", "tls":
		return TLSStartTLS
	case "smtps", "implicit", "ssl":
		return TLSImplicit
	case "none", "off", "disabled":
		return TLSNone
	}
	if c.SMTP.TLS {
		return TLSStartTLS
	}
	return TLSNone
}

// Sender returns the From address, defaulting to the SMTP login.
func (c *EmailConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.SMTP.User
}

// Location resolves the scheduler timezone, falling back to the host zone.
func (s SchedulerConfig) Location() *time.Location {
	if s.Timezone == "" || strings.EqualFold(s.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
