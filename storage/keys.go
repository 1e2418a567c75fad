package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedKey is returned when a composite key cannot be split.
var ErrMalformedKey = errors.New("storage: malformed key")

// AppendPart appends part preceded by its uvarint length. The encoding is
// self-delimiting for any length, so keys built from different part lists
// never collide.
func AppendPart(dst []byte, part []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(part)))
	return append(dst, part...)
}

// CompositeKey concatenates prefix with each length-prefixed part.
func CompositeKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += binary.MaxVarintLen64 + len(p)
	}
	out := make([]byte, 0, size)
	out = append(out, prefix...)
	for _, p := range parts {
		out = AppendPart(out, p)
	}
	return out
}

// ReadPart consumes one length-prefixed part from key and returns the part
// and the remainder.
func ReadPart(key []byte) ([]byte, []byte, error) {
	size, n := binary.Uvarint(key)
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: bad length header", ErrMalformedKey)
	}
	rest := key[n:]
	if uint64(len(rest)) < size {
		return nil, nil, fmt.Errorf("%w: part length %d exceeds key", ErrMalformedKey, size)
	}
	return rest[:size], rest[size:], nil
}

// Uint64Key encodes n big-endian so numeric order matches byte order.
func Uint64Key(n uint64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, n)
	return out
}

// ReadUint64 consumes an 8-byte big-endian integer from key.
func ReadUint64(key []byte) (uint64, []byte, error) {
	if len(key) < 8 {
		return 0, nil, fmt.Errorf("%w: short integer", ErrMalformedKey)
	}
	return binary.BigEndian.Uint64(key[:8]), key[8:], nil
}
