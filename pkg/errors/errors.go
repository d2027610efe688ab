// Package errors provides the error wrapping helper used throughout the tool.
package errors

import "fmt"

// Wrap annotates an error with context. A nil err returns nil so call
// sites can wrap unconditionally.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
