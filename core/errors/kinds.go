package errors

import (
	stderrors "errors"

	"donex/crypto"
	"donex/native/bank"
	"donex/native/donex"
	"donex/native/registry"
)

var (
	ErrNotInstantiated     = stderrors.New("host: contract not instantiated")
	ErrAlreadyInstantiated = stderrors.New("host: contract already instantiated")
	ErrInvalidSender       = stderrors.New("host: invalid sender")
)

// Kind is a stable classification of call failures shared by metrics labels
// and transport error codes.
type Kind string

const (
	KindNone         Kind = ""
	KindUnauthorized Kind = "unauthorized"
	KindInvalid      Kind = "invalid"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindFunds        Kind = "insufficient_funds"
	KindState        Kind = "state"
	KindInternal     Kind = "internal"
)

// Classify maps err onto a Kind. Errors without a known sentinel are internal.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case stderrors.Is(err, donex.ErrUnauthorized), stderrors.Is(err, ErrInvalidSender):
		return KindUnauthorized
	case stderrors.Is(err, registry.ErrSocialInfoNotFound):
		return KindNotFound
	case stderrors.Is(err, registry.ErrSocialAlreadyLinked),
		stderrors.Is(err, registry.ErrAddressAlreadyLinked),
		stderrors.Is(err, donex.ErrCannotSetOwnAccount):
		return KindConflict
	case stderrors.Is(err, bank.ErrInsufficientFunds):
		return KindFunds
	case stderrors.Is(err, ErrNotInstantiated),
		stderrors.Is(err, ErrAlreadyInstantiated),
		stderrors.Is(err, donex.ErrNotInstantiated),
		stderrors.Is(err, donex.ErrAlreadyInstantiated):
		return KindState
	case stderrors.Is(err, donex.ErrInvalidDenom),
		stderrors.Is(err, donex.ErrInvalidMessage),
		stderrors.Is(err, donex.ErrInvalidAddress),
		stderrors.Is(err, registry.ErrInvalidSocialInfo),
		stderrors.Is(err, registry.ErrUnknownMode),
		stderrors.Is(err, crypto.ErrInvalidAddress),
		stderrors.Is(err, bank.ErrInvalidAmount),
		stderrors.Is(err, bank.ErrInvalidAccount):
		return KindInvalid
	default:
		return KindInternal
	}
}
