package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultPrefix is the human-readable part used for donex node accounts.
const DefaultPrefix = "donex"

// ErrInvalidAddress marks strings that cannot be used as account addresses.
var ErrInvalidAddress = errors.New("crypto: invalid address")

// Address represents a 20-byte account address with a human-readable prefix.
type Address struct {
	prefix string
	bytes  []byte
}

func NewAddress(prefix string, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("%w: address must be 20 bytes long, got %d", ErrInvalidAddress, len(b))
	}
	if strings.TrimSpace(prefix) == "" {
		return Address{}, fmt.Errorf("%w: prefix required", ErrInvalidAddress)
	}
	return Address{prefix: prefix, bytes: append([]byte(nil), b...)}, nil
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		return ""
	}
	encoded, err := bech32.Encode(a.prefix, conv)
	if err != nil {
		return ""
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() string {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(strings.TrimSpace(addrStr))
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid bech32 string: %v", ErrInvalidAddress, err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: error converting bits: %v", ErrInvalidAddress, err)
	}
	return NewAddress(prefix, conv)
}

// Validator checks account strings supplied by callers. With an empty prefix
// any non-blank string without whitespace is accepted, which mirrors the
// unchecked addresses used by test harnesses.
type Validator struct {
	Prefix string
}

// Validate returns the canonical form of addr.
func (v Validator) Validate(addr string) (string, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.ContainsAny(trimmed, " \t\r\n") {
		return "", fmt.Errorf("%w: contains whitespace", ErrInvalidAddress)
	}
	if v.Prefix == "" {
		return trimmed, nil
	}
	decoded, err := DecodeAddress(strings.ToLower(trimmed))
	if err != nil {
		return "", err
	}
	if decoded.Prefix() != v.Prefix {
		return "", fmt.Errorf("%w: expected prefix %q, got %q", ErrInvalidAddress, v.Prefix, decoded.Prefix())
	}
	return decoded.String(), nil
}

// DeriveAddress builds a prefixed address from arbitrary seed material by
// taking the trailing 20 bytes of its keccak256 digest. Used for module
// accounts that have no key.
func DeriveAddress(prefix string, seed []byte) (Address, error) {
	digest := crypto.Keccak256(seed)
	return NewAddress(prefix, digest[len(digest)-20:])
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address derives the account address for prefix from the public key.
func (k *PublicKey) Address(prefix string) (Address, error) {
	addrBytes := crypto.PubkeyToAddress(*k.PublicKey).Bytes()
	return NewAddress(prefix, addrBytes)
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}
