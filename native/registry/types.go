package registry

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	platformMaxLength = 64
	profileMaxLength  = 256
)

// SocialInfo identifies an off-chain social account. On the wire it is the
// two element array ["platform", "profile_id"].
type SocialInfo struct {
	Platform  string
	ProfileID string
}

// NewSocialInfo builds and validates an identity.
func NewSocialInfo(platform, profileID string) (SocialInfo, error) {
	info := SocialInfo{Platform: platform, ProfileID: profileID}
	if err := info.Validate(); err != nil {
		return SocialInfo{}, err
	}
	return info, nil
}

// Validate rejects blank, oversized or non UTF-8 parts. Identities are opaque:
// the pair is stored and compared byte for byte, so "Twitter" and "twitter"
// are different platforms.
func (s SocialInfo) Validate() error {
	switch {
	case strings.TrimSpace(s.Platform) == "":
		return fmt.Errorf("%w: platform required", ErrInvalidSocialInfo)
	case strings.TrimSpace(s.ProfileID) == "":
		return fmt.Errorf("%w: profile id required", ErrInvalidSocialInfo)
	case len(s.Platform) > platformMaxLength:
		return fmt.Errorf("%w: platform exceeds %d bytes", ErrInvalidSocialInfo, platformMaxLength)
	case len(s.ProfileID) > profileMaxLength:
		return fmt.Errorf("%w: profile id exceeds %d bytes", ErrInvalidSocialInfo, profileMaxLength)
	case !utf8.ValidString(s.Platform) || !utf8.ValidString(s.ProfileID):
		return fmt.Errorf("%w: invalid utf-8", ErrInvalidSocialInfo)
	}
	return nil
}

func (s SocialInfo) String() string {
	return s.Platform + ":" + s.ProfileID
}

func (s SocialInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{s.Platform, s.ProfileID})
}

func (s *SocialInfo) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: expected [platform, profile_id]", ErrInvalidSocialInfo)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: expected 2 elements, got %d", ErrInvalidSocialInfo, len(pair))
	}
	s.Platform, s.ProfileID = pair[0], pair[1]
	return nil
}

// UserInfo is a stored link between an address and a social identity.
type UserInfo struct {
	Address   string
	Platform  string
	ProfileID string
	Seq       uint64
	LinkedAt  uint64
	Height    uint64
}

// Social returns the identity half of the record.
func (u UserInfo) Social() SocialInfo {
	return SocialInfo{Platform: u.Platform, ProfileID: u.ProfileID}
}

// Mode selects the registry layout. It is fixed at instantiation.
type Mode string

const (
	// ModeStrict keeps a one-to-one mapping and rejects any relink.
	ModeStrict Mode = "strict"
	// ModeMulti keeps an indexed table keyed by (address, platform).
	ModeMulti Mode = "multi"
)

// ParseMode maps a configuration string to a Mode. Empty selects ModeMulti.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeMulti:
		return ModeMulti, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}
