// Package environment reads Kizuna settings from environment variables.
//
// Every helper returns the parsed value or the supplied default; malformed
// values fall back to the default instead of failing. Helpers never exit the
// process.
package environment

import (
	"os"
	"strconv"
	"time"
)

// String returns the value of the named variable and whether it was set,
// even to the empty string.
func String(name string) (string, bool) {
	return os.LookupEnv(name)
}

// StringOr returns the value of the named variable, or defaultValue if it is
// unset or empty.
func StringOr(name, defaultValue string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultValue
}

// IntOr parses the named variable as a decimal integer.
func IntOr(name string, defaultValue int) int {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// Int64Or parses the named variable as a 64-bit decimal integer. Byte sizes
// such as cache budgets use it.
func Int64Or(name string, defaultValue int64) int64 {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

// DurationOr parses the named variable as a time.Duration ("30s", "5m").
func DurationOr(name string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
