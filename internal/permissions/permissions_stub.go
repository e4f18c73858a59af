//go:build !darwin

package permissions

import "github.com/rs/zerolog"

// EnsureMicrophone is a no-op on non-macOS platforms.
func EnsureMicrophone(zerolog.Logger) error {
	return nil
}

// EnsureAccessibility is a no-op on non-macOS platforms.
func EnsureAccessibility(zerolog.Logger) bool {
	return true
}
