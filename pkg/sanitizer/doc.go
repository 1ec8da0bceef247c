// Package sanitizer normalizes free-form request text before validation so
// that stored identifiers and notes compare predictably.
package sanitizer
