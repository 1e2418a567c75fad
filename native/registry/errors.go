package registry

import "errors"

var (
	// ErrSocialAlreadyLinked is returned in strict mode when the identity already maps to an address.
	ErrSocialAlreadyLinked = errors.New("registry: social info already linked")
	// ErrAddressAlreadyLinked is returned in strict mode when the address already holds an identity.
	ErrAddressAlreadyLinked = errors.New("registry: address already linked")
	// ErrSocialInfoNotFound is returned by Resolve when no address is linked.
	ErrSocialInfoNotFound = errors.New("registry: social info not found")
	// ErrInvalidSocialInfo marks identities that fail validation.
	ErrInvalidSocialInfo = errors.New("registry: invalid social info")
	ErrUnknownMode       = errors.New("registry: unknown mode")
	errDanglingIndex     = errors.New("registry: index entry without record")
)
