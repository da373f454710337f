// Package redact strips secrets (embedding API keys, database passwords)
// from strings before they reach a log line or an error message.
//
// Redaction is best-effort and operates on string representations only.
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than 4 characters are skipped to avoid
// spurious redaction of common substrings.
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

var kvPassword = regexp.MustCompile(`(?i)(\bpassword\s*=\s*)('[^']*'|\S+)`)

// DSN masks the password of a database connection string. Both URL form
// ("postgres://user:pw@host/db") and key/value form ("host=x password=pw")
// are handled; anything else is returned unchanged.
func DSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err == nil && u.User != nil {
			if _, has := u.User.Password(); has {
				u.User = url.UserPassword(u.User.Username(), "xxxxx")
				return strings.Replace(u.String(), "xxxxx", placeholder, 1)
			}
			return dsn
		}
	}
	return kvPassword.ReplaceAllString(dsn, "${1}"+placeholder)
}
