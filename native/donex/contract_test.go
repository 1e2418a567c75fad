package donex

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"donex/core/events"
	"donex/core/types"
	"donex/crypto"
	"donex/native/registry"
	"donex/storage"
)

type fixture struct {
	contract *Contract
	cache    *storage.Cache
	store    storage.KVStore
	env      types.Env
}

func newFixture(t *testing.T, msg InstantiateMsg) *fixture {
	t.Helper()
	cache := storage.NewCache(storage.NewMemDB())
	f := &fixture{
		contract: New(crypto.Validator{}),
		cache:    cache,
		store:    storage.NewPrefixStore(cache, []byte("donex/")),
		env:      types.Env{Block: types.BlockInfo{Height: 1, Time: time.Unix(1700000000, 0)}, Contract: "contract"},
	}
	resp, err := f.contract.InstantiateWith(f.store, f.env, types.MessageInfo{Sender: "owner"}, msg)
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if v, _ := resp.Attribute("method"); v != "instantiate" {
		t.Fatalf("unexpected method attribute %q", v)
	}
	if v, _ := resp.Attribute("owner"); v != "owner" {
		t.Fatalf("unexpected owner attribute %q", v)
	}
	return f
}

func (f *fixture) execute(sender string, funds types.Coins, raw string) (*types.Response, error) {
	return f.contract.Execute(f.store, f.env, types.MessageInfo{Sender: sender, Funds: funds}, []byte(raw))
}

func (f *fixture) query(t *testing.T, raw string, out interface{}) error {
	t.Helper()
	bz, err := f.contract.Query(f.store, f.env, []byte(raw))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(bz, out); err != nil {
		t.Fatalf("decode query result %s: %v", bz, err)
	}
	return nil
}

func (f *fixture) snapshot(t *testing.T) map[string]string {
	t.Helper()
	out := map[string]string{}
	if err := f.cache.Iterate(nil, func(k, v []byte) error {
		out[string(k)] = string(v)
		return nil
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	return out
}

func TestInstantiateOnlyOnce(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}})
	_, err := f.contract.Instantiate(f.store, f.env, types.MessageInfo{Sender: "other"}, []byte(`{"accepted_token":["uatom"]}`))
	if !errors.Is(err, ErrAlreadyInstantiated) {
		t.Fatalf("expected ErrAlreadyInstantiated, got %v", err)
	}
	var cfg ConfigResponse
	if err := f.query(t, `{"config":{}}`, &cfg); err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Owner != "owner" || !reflect.DeepEqual(cfg.AcceptedToken, []string{"ucmst"}) || cfg.RegistryMode != "multi" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Contract.Contract != ContractName || cfg.Contract.Version != ContractVersion {
		t.Fatalf("unexpected contract info %+v", cfg.Contract)
	}
}

func TestInstantiateRejectsBadTokens(t *testing.T) {
	cache := storage.NewCache(storage.NewMemDB())
	c := New(crypto.Validator{})
	for _, raw := range []string{`{"accepted_token":["ucmst","ucmst"]}`, `{"accepted_token":[""]}`} {
		_, err := c.Instantiate(cache, types.Env{}, types.MessageInfo{Sender: "owner"}, []byte(raw))
		if !errors.Is(err, ErrInvalidDenom) {
			t.Fatalf("%s: expected ErrInvalidDenom, got %v", raw, err)
		}
	}
	_, err := c.Instantiate(cache, types.Env{}, types.MessageInfo{Sender: "owner"}, []byte(`{"accepted_token":[],"bogus":1}`))
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if cache.Pending() != 0 {
		t.Fatalf("failed instantiate wrote state")
	}
}

func TestSubmitSocialAndQuery(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}})
	resp, err := f.execute("owner", nil, `{"submit_social":{"social_info":["twitter","123"],"address":"abc"}}`)
	if err != nil {
		t.Fatalf("submit social: %v", err)
	}
	if v, _ := resp.Attribute("method"); v != "submit_social_link" {
		t.Fatalf("unexpected method attribute %q", v)
	}
	if len(resp.Events) != 1 || resp.Events[0].Type != events.TypeSocialLinked {
		t.Fatalf("expected social linked event, got %+v", resp.Events)
	}

	var addrs AddressesResponse
	if err := f.query(t, `{"get_addresses_by_social":{"profile_id":"123","platform":"twitter"}}`, &addrs); err != nil {
		t.Fatalf("query: %v", err)
	}
	if !reflect.DeepEqual(addrs.Address, []string{"abc"}) {
		t.Fatalf("unexpected addresses %v", addrs.Address)
	}

	var socials SocialsResponse
	if err := f.query(t, `{"get_socials_by_address":{"address":"abc"}}`, &socials); err != nil {
		t.Fatalf("query: %v", err)
	}
	if !reflect.DeepEqual(socials.SocialInfos, []registry.SocialInfo{{Platform: "twitter", ProfileID: "123"}}) {
		t.Fatalf("unexpected socials %v", socials.SocialInfos)
	}

	var single SocialResponse
	if err := f.query(t, `{"get_social":{"profile_id":"123","platform":"twitter"}}`, &single); err != nil || single.Address != "abc" {
		t.Fatalf("get social: %+v %v", single, err)
	}
	if err := f.query(t, `{"get_social":{"profile_id":"999","platform":"twitter"}}`, &single); !errors.Is(err, ErrSocialInfoNotFound) {
		t.Fatalf("expected ErrSocialInfoNotFound, got %v", err)
	}
}

func TestQueryMissReturnsEmptyList(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}})
	bz, err := f.contract.Query(f.store, f.env, []byte(`{"get_addresses_by_social":{"profile_id":"1","platform":"twitter"}}`))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if string(bz) != `{"address":[]}` {
		t.Fatalf("unexpected miss encoding %s", bz)
	}
	bz, err = f.contract.Query(f.store, f.env, []byte(`{"get_socials_by_address":{"address":"nobody"}}`))
	if err != nil || string(bz) != `{"social_infos":[]}` {
		t.Fatalf("unexpected miss encoding %s (%v)", bz, err)
	}
}

func TestSubmitSocialUnauthorizedNoChange(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}})
	before := f.snapshot(t)
	_, err := f.execute("intruder", nil, `{"submit_social":{"social_info":["twitter","123"],"address":"abc"}}`)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if after := f.snapshot(t); !reflect.DeepEqual(before, after) {
		t.Fatalf("unauthorized link changed state")
	}
}

func TestStrictModeRejectsRelink(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}, RegistryMode: "strict"})
	if _, err := f.execute("owner", nil, `{"submit_social":{"social_info":["twitter","123"],"address":"abc"}}`); err != nil {
		t.Fatalf("first link: %v", err)
	}
	before := f.snapshot(t)
	_, err := f.execute("owner", nil, `{"submit_social":{"social_info":["twitter","123"],"address":"def"}}`)
	if !errors.Is(err, ErrSocialAlreadyLinked) {
		t.Fatalf("expected ErrSocialAlreadyLinked, got %v", err)
	}
	if after := f.snapshot(t); !reflect.DeepEqual(before, after) {
		t.Fatalf("failed relink changed state")
	}
}

func TestForbidOwnerLink(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}, ForbidOwnerLink: true})
	_, err := f.execute("owner", nil, `{"submit_social":{"social_info":["twitter","123"],"address":"owner"}}`)
	if !errors.Is(err, ErrCannotSetOwnAccount) {
		t.Fatalf("expected ErrCannotSetOwnAccount, got %v", err)
	}

	open := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}})
	if _, err := open.execute("owner", nil, `{"submit_social":{"social_info":["twitter","123"],"address":"owner"}}`); err != nil {
		t.Fatalf("owner link without guard: %v", err)
	}
}

func TestDonateSplitsFunds(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}})
	resp, err := f.execute("donor", types.Coins{types.NewCoin("ucmst", 100)}, `{"donate":{"recipient":"admin1"}}`)
	if err != nil {
		t.Fatalf("donate: %v", err)
	}
	want := []types.Attribute{
		{Key: "action", Value: "donate"},
		{Key: "amount", Value: "95"},
		{Key: "sender", Value: "donor"},
		{Key: "fee", Value: "5"},
		{Key: "denom", Value: "ucmst"},
	}
	if !reflect.DeepEqual(resp.Attributes, want) {
		t.Fatalf("unexpected attributes %+v", resp.Attributes)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected two transfers, got %d", len(resp.Messages))
	}
	if resp.Messages[0].ToAddress != "admin1" || resp.Messages[0].Amount.String() != "95ucmst" {
		t.Fatalf("unexpected recipient transfer %+v", resp.Messages[0])
	}
	if resp.Messages[1].ToAddress != "owner" || resp.Messages[1].Amount.String() != "5ucmst" {
		t.Fatalf("unexpected fee transfer %+v", resp.Messages[1])
	}
	if len(resp.Events) != 1 || resp.Events[0].Attr("gross") != "100" {
		t.Fatalf("unexpected donation event %+v", resp.Events)
	}
}

func TestDonateOmitsZeroFee(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}})
	resp, err := f.execute("donor", types.Coins{types.NewCoin("ucmst", 19)}, `{"donate":{"recipient":"admin1","amount":"19"}}`)
	if err != nil {
		t.Fatalf("donate: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ToAddress != "admin1" {
		t.Fatalf("expected a single recipient transfer, got %+v", resp.Messages)
	}
}

func TestDonateRejectsBadFunds(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst", "uatom"}})
	cases := map[string]struct {
		funds types.Coins
		raw   string
	}{
		"no funds":        {nil, `{"donate":{"recipient":"admin1"}}`},
		"two denoms":      {types.Coins{types.NewCoin("ucmst", 50), types.NewCoin("uatom", 50)}, `{"donate":{"recipient":"admin1"}}`},
		"unknown denom":   {types.Coins{types.NewCoin("uosmo", 50)}, `{"donate":{"recipient":"admin1"}}`},
		"zero amount":     {types.Coins{types.NewCoin("ucmst", 0)}, `{"donate":{"recipient":"admin1"}}`},
		"amount mismatch": {types.Coins{types.NewCoin("ucmst", 50)}, `{"donate":{"recipient":"admin1","amount":"60"}}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.execute("donor", tc.funds, tc.raw); !errors.Is(err, ErrInvalidDenom) {
				t.Fatalf("expected ErrInvalidDenom, got %v", err)
			}
		})
	}
}

func TestExecuteRejectsAmbiguousMessages(t *testing.T) {
	f := newFixture(t, InstantiateMsg{AcceptedToken: []string{"ucmst"}})
	for _, raw := range []string{`{}`, `{"donate":{"recipient":"a"},"submit_social":{"social_info":["x","y"],"address":"a"}}`, `not json`} {
		if _, err := f.execute("owner", nil, raw); !errors.Is(err, ErrInvalidMessage) {
			t.Fatalf("%s: expected ErrInvalidMessage, got %v", raw, err)
		}
	}
}

func TestQueriesBeforeInstantiate(t *testing.T) {
	c := New(crypto.Validator{})
	store := storage.NewCache(storage.NewMemDB())
	if _, err := c.Query(store, types.Env{}, []byte(`{"config":{}}`)); !errors.Is(err, ErrNotInstantiated) {
		t.Fatalf("expected ErrNotInstantiated, got %v", err)
	}
}
