package stream

import "fmt"

// Wildcard matches every channel in consumer subscriptions.
const Wildcard = "*"

// MaxChannelLength bounds channel names.
const MaxChannelLength = 128

// ValidateChannel checks that name is usable as a table channel.
// Allowed characters are ASCII letters, digits, '-', '_', '.' and ':'.
func ValidateChannel(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidChannel)
	}
	if len(name) > MaxChannelLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidChannel, MaxChannelLength)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return fmt.Errorf("%w: unexpected character %q in %q", ErrInvalidChannel, c, name)
		}
	}
	return nil
}

// ValidateSubscription accepts a concrete channel name or the wildcard.
func ValidateSubscription(name string) error {
	if name == Wildcard {
		return nil
	}
	return ValidateChannel(name)
}
