// Package env reads raw environment variables for the few spots that run
// before envconfig has parsed the full configuration, such as the logger
// bootstrap in the binaries.
package env

import "os"

// Get returns the named environment variable, or fallback when it is unset
// or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
