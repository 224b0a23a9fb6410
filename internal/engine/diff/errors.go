package diff

import "errors"

var (
	// ErrMalformedPatch is returned when a script references more units than
	// the base text holds, or when an encoded op cannot be decoded.
	ErrMalformedPatch = errors.New("diff: malformed patch")

	// ErrTooLarge is returned when the inputs exceed what the line differ can
	// hash.
	ErrTooLarge = errors.New("diff: input too large")

	// ErrUnknownGranularity is returned when parsing an unrecognized
	// granularity name.
	ErrUnknownGranularity = errors.New("diff: unknown granularity")

	// ErrUnknownAlgorithm is returned when parsing an unrecognized algorithm
	// name.
	ErrUnknownAlgorithm = errors.New("diff: unknown algorithm")
)
