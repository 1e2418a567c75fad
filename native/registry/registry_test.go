package registry

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"donex/core/types"
	"donex/storage"
)

func newTestRegistry(t *testing.T, mode Mode) (Registry, *storage.Cache) {
	t.Helper()
	cache := storage.NewCache(storage.NewMemDB())
	reg, err := New(mode, storage.NewPrefixStore(cache, []byte("registry/")))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg, cache
}

func testEnv(height uint64) types.Env {
	return types.Env{Block: types.BlockInfo{Height: height, Time: time.Unix(1700000000, 0)}}
}

func mustSocial(t *testing.T, platform, profile string) SocialInfo {
	t.Helper()
	info, err := NewSocialInfo(platform, profile)
	if err != nil {
		t.Fatalf("social info: %v", err)
	}
	return info
}

func snapshot(t *testing.T, cache *storage.Cache) map[string]string {
	t.Helper()
	out := make(map[string]string)
	if err := cache.Iterate(nil, func(k, v []byte) error {
		out[string(k)] = string(v)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	return out
}

func TestStrictRejectsSecondLinkWithoutChange(t *testing.T) {
	reg, cache := newTestRegistry(t, ModeStrict)
	x := mustSocial(t, "twitter", "123")
	if err := reg.Link(x, "abc", testEnv(1)); err != nil {
		t.Fatalf("link: %v", err)
	}
	before := snapshot(t, cache)

	if err := reg.Link(x, "def", testEnv(2)); !errors.Is(err, ErrSocialAlreadyLinked) {
		t.Fatalf("expected ErrSocialAlreadyLinked, got %v", err)
	}
	if err := reg.Link(mustSocial(t, "github", "abc"), "abc", testEnv(2)); !errors.Is(err, ErrAddressAlreadyLinked) {
		t.Fatalf("expected ErrAddressAlreadyLinked, got %v", err)
	}
	// Identity conflict is reported before the address conflict.
	if err := reg.Link(x, "abc", testEnv(2)); !errors.Is(err, ErrSocialAlreadyLinked) {
		t.Fatalf("expected ErrSocialAlreadyLinked first, got %v", err)
	}
	if after := snapshot(t, cache); !reflect.DeepEqual(before, after) {
		t.Fatalf("failed link changed state")
	}
}

func TestStrictBijectionSymmetry(t *testing.T) {
	reg, _ := newTestRegistry(t, ModeStrict)
	links := map[string]SocialInfo{
		"abc": mustSocial(t, "twitter", "123"),
		"def": mustSocial(t, "twitter", "456"),
		"ghi": mustSocial(t, "github", "123"),
	}
	for addr, info := range links {
		if err := reg.Link(info, addr, testEnv(1)); err != nil {
			t.Fatalf("link %s: %v", addr, err)
		}
	}
	for addr, info := range links {
		socials, err := reg.SocialsByAddress(addr)
		if err != nil || len(socials) != 1 {
			t.Fatalf("socials of %s: %v %v", addr, socials, err)
		}
		back, err := reg.Resolve(socials[0])
		if err != nil || back != addr {
			t.Fatalf("addressOf(identityOf(%s)) = %q (%v)", addr, back, err)
		}
		resolved, err := reg.Resolve(info)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		again, _ := reg.SocialsByAddress(resolved)
		if again[0] != info {
			t.Fatalf("identityOf(addressOf(%v)) = %v", info, again[0])
		}
	}
}

func TestQueriesReturnEmptyOnMiss(t *testing.T) {
	for _, mode := range []Mode{ModeStrict, ModeMulti} {
		t.Run(string(mode), func(t *testing.T) {
			reg, _ := newTestRegistry(t, mode)
			addrs, err := reg.AddressesBySocial(mustSocial(t, "twitter", "missing"))
			if err != nil {
				t.Fatalf("addresses: %v", err)
			}
			if addrs == nil || len(addrs) != 0 {
				t.Fatalf("expected empty non-nil slice, got %#v", addrs)
			}
			socials, err := reg.SocialsByAddress("nobody")
			if err != nil || socials == nil || len(socials) != 0 {
				t.Fatalf("expected empty socials, got %#v (%v)", socials, err)
			}
			if _, err := reg.Resolve(mustSocial(t, "twitter", "missing")); !errors.Is(err, ErrSocialInfoNotFound) {
				t.Fatalf("expected ErrSocialInfoNotFound, got %v", err)
			}
		})
	}
}

func TestMultiAccumulatesInInsertionOrder(t *testing.T) {
	reg, _ := newTestRegistry(t, ModeMulti)
	x := mustSocial(t, "twitter", "123")
	y := mustSocial(t, "github", "octo")
	if err := reg.Link(x, "A", testEnv(1)); err != nil {
		t.Fatalf("link x: %v", err)
	}
	if err := reg.Link(y, "A", testEnv(2)); err != nil {
		t.Fatalf("link y: %v", err)
	}
	socials, err := reg.SocialsByAddress("A")
	if err != nil {
		t.Fatalf("socials: %v", err)
	}
	if !reflect.DeepEqual(socials, []SocialInfo{x, y}) {
		t.Fatalf("unexpected socials %v", socials)
	}

	// The same identity may resolve to several addresses.
	if err := reg.Link(x, "B", testEnv(3)); err != nil {
		t.Fatalf("link x to B: %v", err)
	}
	addrs, err := reg.AddressesBySocial(x)
	if err != nil {
		t.Fatalf("addresses: %v", err)
	}
	if !reflect.DeepEqual(addrs, []string{"A", "B"}) {
		t.Fatalf("unexpected addresses %v", addrs)
	}
	if first, err := reg.Resolve(x); err != nil || first != "A" {
		t.Fatalf("resolve earliest: %q %v", first, err)
	}
}

func TestMultiOverwriteKeepsIndexesConsistent(t *testing.T) {
	reg, _ := newTestRegistry(t, ModeMulti)
	old := mustSocial(t, "twitter", "111")
	if err := reg.Link(old, "A", testEnv(1)); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := reg.Link(mustSocial(t, "github", "a"), "A", testEnv(2)); err != nil {
		t.Fatalf("link: %v", err)
	}
	replacement := mustSocial(t, "twitter", "222")
	if err := reg.Link(replacement, "A", testEnv(3)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	addrs, err := reg.AddressesBySocial(old)
	if err != nil {
		t.Fatalf("addresses: %v", err)
	}
	if len(addrs) != 0 {
		t.Fatalf("old identity still resolves to %v", addrs)
	}
	addrs, _ = reg.AddressesBySocial(replacement)
	if !reflect.DeepEqual(addrs, []string{"A"}) {
		t.Fatalf("replacement not indexed: %v", addrs)
	}
	socials, _ := reg.SocialsByAddress("A")
	// The overwritten record keeps its original position.
	want := []SocialInfo{replacement, mustSocial(t, "github", "a")}
	if !reflect.DeepEqual(socials, want) {
		t.Fatalf("unexpected socials %v, want %v", socials, want)
	}
}

func TestIdentitiesCompareExactly(t *testing.T) {
	info, err := NewSocialInfo("  Twitter ", " élise ")
	if err != nil {
		t.Fatalf("social info: %v", err)
	}
	if info.Platform != "  Twitter " || info.ProfileID != " élise " {
		t.Fatalf("identity rewritten: %+v", info)
	}
	for _, bad := range []SocialInfo{{Platform: " ", ProfileID: "1"}, {Platform: "x", ProfileID: ""}, {Platform: "x", ProfileID: "\xff"}} {
		if err := bad.Validate(); !errors.Is(err, ErrInvalidSocialInfo) {
			t.Fatalf("expected ErrInvalidSocialInfo for %+v, got %v", bad, err)
		}
	}

	upper := SocialInfo{Platform: "Twitter", ProfileID: "1"}
	lower := SocialInfo{Platform: "twitter", ProfileID: "1"}
	for _, mode := range []Mode{ModeStrict, ModeMulti} {
		reg, _ := newTestRegistry(t, mode)
		if err := reg.Link(upper, "A", testEnv(1)); err != nil {
			t.Fatalf("%s: link upper: %v", mode, err)
		}
		if err := reg.Link(lower, "B", testEnv(2)); err != nil {
			t.Fatalf("%s: case-distinct identity rejected: %v", mode, err)
		}
		socials, err := reg.SocialsByAddress("A")
		if err != nil || !reflect.DeepEqual(socials, []SocialInfo{upper}) {
			t.Fatalf("%s: socials of A = %v (%v), want %v", mode, socials, err, upper)
		}
		addrs, _ := reg.AddressesBySocial(lower)
		if !reflect.DeepEqual(addrs, []string{"B"}) {
			t.Fatalf("%s: lower lookup = %v", mode, addrs)
		}

		if err := reg.Link(SocialInfo{Platform: "github", ProfileID: " 42 "}, "C", testEnv(3)); err != nil {
			t.Fatalf("%s: link padded: %v", mode, err)
		}
		addrs, _ = reg.AddressesBySocial(SocialInfo{Platform: "github", ProfileID: "42"})
		if len(addrs) != 0 {
			t.Fatalf("%s: padded profile matched trimmed lookup: %v", mode, addrs)
		}
		if _, err := reg.Resolve(SocialInfo{Platform: "github", ProfileID: "42"}); !errors.Is(err, ErrSocialInfoNotFound) {
			t.Fatalf("%s: expected not found, got %v", mode, err)
		}
	}
}

func TestSocialInfoJSONTuple(t *testing.T) {
	raw, err := json.Marshal(SocialInfo{Platform: "twitter", ProfileID: "123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `["twitter","123"]` {
		t.Fatalf("unexpected encoding %s", raw)
	}
	var decoded SocialInfo
	if err := json.Unmarshal([]byte(`["github","octo"]`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Platform != "github" || decoded.ProfileID != "octo" {
		t.Fatalf("unexpected decoded %+v", decoded)
	}
	if err := json.Unmarshal([]byte(`["only"]`), &decoded); !errors.Is(err, ErrInvalidSocialInfo) {
		t.Fatalf("expected ErrInvalidSocialInfo, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeMulti {
		t.Fatalf("default mode: %v %v", m, err)
	}
	if m, err := ParseMode("STRICT"); err != nil || m != ModeStrict {
		t.Fatalf("strict mode: %v %v", m, err)
	}
	if _, err := ParseMode("bogus"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}
