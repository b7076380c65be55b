// Package usernamecheck validates account handles: length and
// character-class rules, with no normalization, since usernames keep
// case-preserving uniqueness rather than folding to lowercase.
package usernamecheck

import (
	"fmt"
	"regexp"
)

const MinLength = 3

var pattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// Validate reports whether username satisfies the minimum-length,
// alphanumeric-only rule. It never mutates or normalizes the value:
// "Alice" and "alice" are distinct, valid usernames.
func Validate(username string) error {
	if len(username) < MinLength {
		return fmt.Errorf("usernamecheck: username must be at least %d characters", MinLength)
	}
	if !pattern.MatchString(username) {
		return fmt.Errorf("usernamecheck: username must be alphanumeric")
	}
	return nil
}
