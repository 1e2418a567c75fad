package donex

import (
	"errors"

	"donex/native/registry"
)

var (
	ErrUnauthorized        = errors.New("donex: unauthorized")
	ErrInvalidDenom        = errors.New("donex: invalid denom")
	ErrCannotSetOwnAccount = errors.New("donex: cannot link the owner account")
	ErrInvalidAddress      = errors.New("donex: invalid address")
	ErrInvalidMessage      = errors.New("donex: invalid message")
	ErrNotInstantiated     = errors.New("donex: contract not instantiated")
	ErrAlreadyInstantiated = errors.New("donex: contract already instantiated")

	// Registry failures surface unchanged so callers can match either name.
	ErrSocialAlreadyLinked  = registry.ErrSocialAlreadyLinked
	ErrAddressAlreadyLinked = registry.ErrAddressAlreadyLinked
	ErrSocialInfoNotFound   = registry.ErrSocialInfoNotFound
	ErrInvalidSocialInfo    = registry.ErrInvalidSocialInfo
)
